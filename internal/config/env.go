package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvFilename  = "IONMD_FILENAME"
	EnvVerbosity = "IONMD_VERBOSITY"
	EnvSeed      = "IONMD_SEED"
)

// ApplyEnv overrides simulation settings from the environment. Values
// in the given dotenv files apply only where the process environment
// does not set the same variable.
func ApplyEnv(cfg *Config, files ...string) error {
	file := map[string]string{}
	if len(files) > 0 {
		var err error
		if file, err = godotenv.Read(files...); err != nil {
			return fmt.Errorf("read env: %w", err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}

	if v, ok := lookup(EnvFilename); ok {
		cfg.Sim.Filename = v
	}
	if v, ok := lookup(EnvVerbosity); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvVerbosity, v, err)
		}
		cfg.Sim.Verbosity = n
	}
	if v, ok := lookup(EnvSeed); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvSeed, v, err)
		}
		cfg.Sim.Seed = n
	}
	return nil
}
