package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven half of the CLI configuration. Flags
// override these per invocation; the env covers what stays stable across
// invocations on one machine (store backend, credentials, save key).
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `env:"VINE_ADDR" envDefault:":8080"`

	// Store selects the save-slot backend: file, memory, redis or sqlite.
	Store string `env:"VINE_STORE" envDefault:"file"`

	// SaveDir is the directory for the file backend.
	SaveDir string `env:"VINE_SAVE_DIR" envDefault:".vine/saves"`

	// DBPath is the database file for the sqlite backend.
	DBPath string `env:"VINE_DB_PATH" envDefault:".vine/saves.db"`

	RedisAddr     string `env:"VINE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"VINE_REDIS_PASSWORD"`
	RedisDB       int    `env:"VINE_REDIS_DB" envDefault:"0"`

	// SaveKey, when set, encrypts save slots with a key derived from this
	// passphrase.
	SaveKey string `env:"VINE_SAVE_KEY"`
}

// ParseEnv reads the VINE_* environment into a Config.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
