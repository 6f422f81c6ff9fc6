package cmd

import (
	"github.com/caarlos0/env/v11"
)

// outputEnv carries deployment-level defaults for where telemetry goes.
// Flags override anything set here.
type outputEnv struct {
	Path     string `env:"ROUTESIM_OUTPUT"`
	Format   string `env:"ROUTESIM_FORMAT"   envDefault:"jsonl"`
	Feed     string `env:"ROUTESIM_FEED"     envDefault:"mock"`
	Observer string `env:"ROUTESIM_OBSERVER" envDefault:"simulator"`
}

// loadOutputEnv returns output configuration with defaults. A malformed
// environment falls back to the built-in defaults rather than failing the
// run; the environment is optional sugar, not required input.
func loadOutputEnv() outputEnv {
	var cfg outputEnv
	if err := env.Parse(&cfg); err != nil {
		return outputEnv{
			Format:   "jsonl",
			Feed:     "mock",
			Observer: "simulator",
		}
	}
	return cfg
}
