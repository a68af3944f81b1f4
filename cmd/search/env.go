package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aluiziolira/go-market-search/config"
)

// Flag defaults come from the environment when set. A malformed value is
// fatal so a typo never silently falls back to the default.

func envString(key, fallback string) string {
	if value, ok := config.EnvString(key); ok {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value, ok, err := config.EnvInt(key)
	exitOnEnvError(err)
	if !ok {
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64) float64 {
	value, ok, err := config.EnvFloat(key)
	exitOnEnvError(err)
	if !ok {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value, ok, err := config.EnvBool(key)
	exitOnEnvError(err)
	if !ok {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value, ok, err := config.EnvDuration(key)
	exitOnEnvError(err)
	if !ok {
		return fallback
	}
	return value
}

func exitOnEnvError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
	os.Exit(1)
}
