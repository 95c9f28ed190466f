package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// OANDA API
	OandaToken     string
	OandaAccountID string
	OandaBaseURL   string

	// Market data
	Granularity       string
	CandleCount       int
	TrainingWindow    time.Duration
	MinAlignedCandles int

	// Strategy
	EntryZScore   float64
	ExitZScore    float64
	TradeAmount   float64
	ModelExpiry   time.Duration
	PollInterval  time.Duration
	LiveTrading   bool

	// Risk
	MaxUnitsPerLeg   int64
	MaxSpreadPercent float64

	// Performance
	QuoteCacheTTL time.Duration
	HTTPTimeout   time.Duration

	// Persistence
	StateDir          string
	SelectedPairsFile string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	defaultStateDir := filepath.Join(home, ".pairs-trading")

	cfg := &Config{
		// OANDA API
		OandaToken:     getEnv("OANDA_API_TOKEN", ""),
		OandaAccountID: getEnv("OANDA_ACCOUNT_ID", ""),
		OandaBaseURL:   getEnv("OANDA_BASE_URL", "https://api-fxpractice.oanda.com"),

		// Market data
		Granularity:       getEnv("GRANULARITY", "M1"),
		CandleCount:       getEnvInt("CANDLE_COUNT", 5000),
		TrainingWindow:    time.Duration(getEnvInt("TRAINING_WINDOW_DAYS", 30)) * 24 * time.Hour,
		MinAlignedCandles: getEnvInt("MIN_ALIGNED_CANDLES", 50),

		// Strategy
		EntryZScore:  getEnvFloat("ENTRY_ZSCORE", 1.96),
		ExitZScore:   getEnvFloat("EXIT_ZSCORE", 1.5),
		TradeAmount:  getEnvFloat("TRADE_AMOUNT", 1000.0),
		ModelExpiry:  time.Duration(getEnvInt("MODEL_EXPIRE_SECONDS", 600)) * time.Second,
		PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_MS", 5000)) * time.Millisecond,
		LiveTrading:  getEnvBool("LIVE_TRADING", false),

		// Risk
		MaxUnitsPerLeg:   int64(getEnvInt("RISK_MAX_UNITS_PER_LEG", 100000)),
		MaxSpreadPercent: getEnvFloat("RISK_MAX_SPREAD_PERCENT", 0.2),

		// Performance
		QuoteCacheTTL: time.Duration(getEnvInt("QUOTE_CACHE_TTL_MS", 1000)) * time.Millisecond,
		HTTPTimeout:   time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 5000)) * time.Millisecond,

		// Persistence
		StateDir:          getEnv("STATE_DIR", defaultStateDir),
		SelectedPairsFile: getEnv("SELECTED_PAIRS_FILE", filepath.Join(defaultStateDir, "selected_pairs.yaml")),
	}

	// Validate required fields
	if cfg.OandaToken == "" || cfg.OandaAccountID == "" {
		return nil, fmt.Errorf("OANDA_API_TOKEN and OANDA_ACCOUNT_ID must be set")
	}

	// Hysteresis requires the exit band inside the entry band
	if cfg.ExitZScore >= cfg.EntryZScore {
		return nil, fmt.Errorf("EXIT_ZSCORE (%.2f) must be less than ENTRY_ZSCORE (%.2f)",
			cfg.ExitZScore, cfg.EntryZScore)
	}

	if cfg.TradeAmount <= 0 {
		return nil, fmt.Errorf("TRADE_AMOUNT must be positive")
	}

	return cfg, nil
}

// IsPracticeAccount returns true if trading against the practice API
func (c *Config) IsPracticeAccount() bool {
	return !c.LiveTrading
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
