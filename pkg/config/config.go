package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the execution core.
type Config struct {
	Port string

	// Venue
	DryRun          bool
	VenueFixture    string  // YAML venue fixture for the sim gateway; empty = built-in
	GatewayRPS      float64 // outbound request rate toward the venue
	GatewayBurst    int
	DefaultSlippage float64 // fraction applied to market orders, e.g. 0.01

	// Balance
	InitialBalance  float64
	BalanceSyncSecs int

	// Risk limits
	MaxLeverage          int
	MaxPositionSizeUSD   float64
	MaxDailyLoss         float64
	MaxDrawdownPct       float64
	MaxOpenPositions     int
	RequireStopLoss      bool
	LossProjectionFactor float64

	// Database
	DBPath string

	// Auth
	JWTSecret        string
	OperatorUser     string
	OperatorPassword string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DryRun:          getEnv("DRY_RUN", "true") == "true",
		VenueFixture:    getEnv("VENUE_FIXTURE", ""),
		GatewayRPS:      getEnvFloat("GATEWAY_RPS", 10),
		GatewayBurst:    getEnvInt("GATEWAY_BURST", 20),
		DefaultSlippage: getEnvFloat("DEFAULT_SLIPPAGE", 0.01),

		InitialBalance:  getEnvFloat("INITIAL_BALANCE", 10000.0),
		BalanceSyncSecs: getEnvInt("BALANCE_SYNC_SECS", 30),

		MaxLeverage:          getEnvInt("RISK_MAX_LEVERAGE", 10),
		MaxPositionSizeUSD:   getEnvFloat("RISK_MAX_POSITION_USD", 10000),
		MaxDailyLoss:         getEnvFloat("RISK_MAX_DAILY_LOSS", 1000),
		MaxDrawdownPct:       getEnvFloat("RISK_MAX_DRAWDOWN_PCT", 20),
		MaxOpenPositions:     getEnvInt("RISK_MAX_OPEN_POSITIONS", 5),
		RequireStopLoss:      getEnv("RISK_REQUIRE_STOP_LOSS", "false") == "true",
		LossProjectionFactor: getEnvFloat("RISK_LOSS_PROJECTION_FACTOR", 0.10),

		DBPath: getEnv("DB_PATH", "./data/execution.db"),

		JWTSecret:        getEnv("JWT_SECRET", "dev-secret"),
		OperatorUser:     getEnv("OPERATOR_USER", "admin"),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", "admin"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
