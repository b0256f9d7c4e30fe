// Package config reads chainexec settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/chainexec/internal/engine"
)

// Config holds the engine limits and the paths and endpoints around them.
// Command-line flags override these values.
type Config struct {
	MaxFunctionDepth      int    `env:"CHAINEXEC_MAX_FUNCTION_DEPTH"       envDefault:"512"`
	MaxCommandChainLength int    `env:"CHAINEXEC_MAX_COMMAND_CHAIN_LENGTH" envDefault:"65536"`
	MaxForkCount          int    `env:"CHAINEXEC_MAX_FORK_COUNT"           envDefault:"65536"`
	MaxArea               int64  `env:"CHAINEXEC_MAX_AREA"                 envDefault:"32768"`
	OTelEndpoint          string `env:"CHAINEXEC_OTEL_ENDPOINT"`
	TraceDir              string `env:"CHAINEXEC_TRACE_DIR"                envDefault:"."`
	// Database is the sqlite file of the store; empty keeps nothing.
	Database string `env:"CHAINEXEC_DB"`
	Seed     uint64 `env:"CHAINEXEC_SEED"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects negative limits. Zero disables an engine limit.
func (c Config) Validate() error {
	switch {
	case c.MaxFunctionDepth < 0:
		return fmt.Errorf("CHAINEXEC_MAX_FUNCTION_DEPTH must not be negative, got %d", c.MaxFunctionDepth)
	case c.MaxCommandChainLength < 0:
		return fmt.Errorf("CHAINEXEC_MAX_COMMAND_CHAIN_LENGTH must not be negative, got %d", c.MaxCommandChainLength)
	case c.MaxForkCount < 0:
		return fmt.Errorf("CHAINEXEC_MAX_FORK_COUNT must not be negative, got %d", c.MaxForkCount)
	case c.MaxArea <= 0:
		return fmt.Errorf("CHAINEXEC_MAX_AREA must be positive, got %d", c.MaxArea)
	}
	return nil
}

// Limits are the engine limits of c.
func (c Config) Limits() engine.Limits {
	return engine.Limits{
		MaxFunctionDepth:      c.MaxFunctionDepth,
		MaxCommandChainLength: c.MaxCommandChainLength,
		MaxForkCount:          c.MaxForkCount,
	}
}
