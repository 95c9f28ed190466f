package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tylertayyk/pairs-trading/internal/cache"
	"github.com/tylertayyk/pairs-trading/internal/config"
	"github.com/tylertayyk/pairs-trading/internal/models"
	"github.com/tylertayyk/pairs-trading/internal/oanda"
	"github.com/tylertayyk/pairs-trading/internal/risk"
	"github.com/tylertayyk/pairs-trading/internal/state"
)

var (
	// Global instances
	cfg         *config.Config
	client      *oanda.Client
	dataCache   *cache.Cache
	riskManager *risk.Manager
	fileStore   *state.FileStore
	pairs       []models.Pair
	logger      *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pairs-trading",
	Short: "Statistical arbitrage engine for OANDA FX pairs",
	Long: `pairs-trading fits rolling cointegration models over FX instrument
pairs and trades the spread when its z-score leaves the entry band,
closing out when it reverts. Models, positions and the traded universe
are managed through this interface.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)
}

// initLogger configures logging: default INFO, DEBUG if DEBUG env is truthy
func initLogger() {
	verbose := false
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" || v == "yes" {
		verbose = true
	}

	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var err error
	logger, err = zcfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
}

// initializeApp sets up all dependencies
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	stateDir, err := state.DefaultDir(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("failed to resolve state directory: %w", err)
	}
	fileStore, err = state.NewFileStore(stateDir)
	if err != nil {
		return err
	}

	pairs, err = state.LoadSelectedPairs(cfg.SelectedPairsFile)
	if err != nil {
		return fmt.Errorf("failed to load pair universe: %w", err)
	}

	client = oanda.NewClient(cfg)
	dataCache = cache.NewCache(cfg.QuoteCacheTTL)
	riskManager = risk.NewManager(cfg)

	mode := "PRACTICE"
	if cfg.LiveTrading {
		mode = "LIVE"
	}
	fmt.Printf("pairs-trading - %s account\n", mode)

	return nil
}

// Helper function to check if in live mode
func checkLiveMode() error {
	if cfg.LiveTrading {
		fmt.Println("⚠️  WARNING: You are trading a LIVE account!")
		fmt.Print("Type 'confirm-live' to proceed: ")

		var confirm string
		fmt.Scanln(&confirm)

		if confirm != "confirm-live" {
			return fmt.Errorf("live trading not confirmed")
		}
	}
	return nil
}
