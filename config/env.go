package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// env reads overrides straight from the process environment.
var env = newEnv()

func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// EnvString returns the value of key and whether it was set to a non-empty value.
func EnvString(key string) (string, bool) {
	if !env.IsSet(key) {
		return "", false
	}
	value := strings.TrimSpace(env.GetString(key))
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean (1, true, yes, on).
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true, true, nil
	case "no", "off":
		return false, true, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a Go duration ("1.5s") or as plain seconds ("1.5").
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, true, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return time.Duration(secs * float64(time.Second)), true, nil
}
