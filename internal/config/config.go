package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

// Config is the single source of truth for every business constant: the
// transfer caps and the reversal window are defined here once and consumed
// only through this struct, never restated at call sites.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// Amounts in centavos: Q2,000 per transfer, Q10,000 cumulative per
	// UTC calendar day.
	TransferTxCap    int64 `env:"TRANSFER_TX_CAP" envDefault:"200000"`
	TransferDailyCap int64 `env:"TRANSFER_DAILY_CAP" envDefault:"1000000"`

	ReversalWindowMin int `env:"REVERSAL_WINDOW_MIN" envDefault:"60"`

	RateAPIURL       string `env:"EXCHANGE_RATE_API_URL"`
	RateAPIKey       string `env:"EXCHANGE_RATE_API_KEY"`
	RateRefreshHours int    `env:"RATE_REFRESH_HOURS" envDefault:"24"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ReversalWindow() time.Duration {
	return time.Duration(c.ReversalWindowMin) * time.Minute
}

func (c *Config) RateRefreshInterval() time.Duration {
	return time.Duration(c.RateRefreshHours) * time.Hour
}
