package config

import (
	"os"
	"strconv"
	"time"
)

const EnvPrefix = "FLIGHTLAB"

// MergeWithEnvironment applies FLIGHTLAB_* overrides on top of cfg.
func MergeWithEnvironment(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return invalid("%s_SEED: %v", EnvPrefix, err)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv(EnvPrefix + "_DT"); v != "" {
		dt, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalid("%s_DT: %v", EnvPrefix, err)
		}
		cfg.Dt = dt
	}
	if v := os.Getenv(EnvPrefix + "_MAX_TIME"); v != "" {
		maxTime, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalid("%s_MAX_TIME: %v", EnvPrefix, err)
		}
		cfg.MaxTime = maxTime
	}
	if v := os.Getenv(EnvPrefix + "_RUN_BUDGET"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return invalid("%s_RUN_BUDGET: %v", EnvPrefix, err)
		}
		cfg.Budgets.Run = d
	}
	if v := os.Getenv(EnvPrefix + "_ERROR_ON_PRINT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return invalid("%s_ERROR_ON_PRINT: %v", EnvPrefix, err)
		}
		cfg.Rules.ErrorOnPrint = b
	}
	if v := os.Getenv(EnvPrefix + "_ERROR_ON_TIMEOUT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return invalid("%s_ERROR_ON_TIMEOUT: %v", EnvPrefix, err)
		}
		cfg.Rules.ErrorOnTimeout = b
	}
	if v := os.Getenv(EnvPrefix + "_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "_INTEGRATOR"); v != "" {
		cfg.World.Integrator = v
	}
	return nil
}
