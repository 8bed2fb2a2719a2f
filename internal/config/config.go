// Package config loads runtime settings from the environment, with an
// optional .env file applied first.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is everything the CLI reads from the environment. SOUL_* names are
// kept for compatibility with existing agent deployments.
type Config struct {
	Home string `env:"MYA_HOME"`

	APIURL string `env:"SOUL_API_URL" envDefault:"https://mintyouragent.com/api"`
	APIKey string `env:"SOUL_API_KEY"`
	RPCURL string `env:"HELIUS_RPC" envDefault:"https://api.devnet.solana.com"`

	Network string `env:"SOUL_NETWORK" envDefault:"devnet"`

	Timeout      time.Duration `env:"SOUL_TIMEOUT" envDefault:"30s"`
	RetryCount   uint64        `env:"SOUL_RETRY_COUNT" envDefault:"3"`
	PollInterval time.Duration `env:"MYA_POLL_INTERVAL" envDefault:"2s"`

	// Freshness bounds how old a fetched blockhash may be at signing time.
	Freshness time.Duration `env:"MYA_BLOCKHASH_FRESHNESS" envDefault:"60s"`

	Debug bool `env:"MYA_DEBUG"`
}

// Load reads .env from the current directory if present, then parses the
// environment. A missing .env is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Home = filepath.Join(home, ".mya")
	}
	return cfg, nil
}
