package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tylertayyk/pairs-trading/internal/engine"
	"github.com/tylertayyk/pairs-trading/internal/store"
)

func init() {
	runCmd.Flags().Bool("once", false, "Run a single decision cycle and exit")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop over the selected pair universe",
	RunE:  runEngine,
}

func runEngine(cmd *cobra.Command, args []string) error {
	if err := checkLiveMode(); err != nil {
		return err
	}

	modelStore, err := store.NewModelStore(fileStore, cfg.ModelExpiry, time.Now())
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, logger, client, client, fileStore, modelStore, riskManager, dataCache, pairs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	once, _ := cmd.Flags().GetBool("once")
	if once {
		return eng.RunCycle(ctx)
	}

	logger.Info("Starting engine",
		zap.Int("pairs", len(pairs)),
		zap.Strings("instruments", eng.TrackedInstruments()),
	)
	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Println("Engine stopped")
	return nil
}
