// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/ibpcdc/internal/log"
)

// lookupEnv returns the value of key when it is set and not blank.
func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// parseEnv converts the value of key with parse. Unset or blank variables
// yield def; unparsable values are logged and yield def as well.
func parseEnv[T any](key string, def T, parse func(string) (T, error)) T {
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	logger := log.WithComponent("config")
	out, err := parse(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", def).
			Err(err).
			Msg("invalid environment variable, using default")
		return def
	}
	logger.Debug().
		Str("key", key).
		Interface("value", out).
		Str("source", "environment").
		Msg("using environment variable")
	return out
}

// ParseString reads a string from the environment. An empty variable counts
// as unset.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue, func(v string) (string, error) { return v, nil })
}

// ParseInt reads a base-10 integer from the environment.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// ParseFloat reads a float from the environment.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(v string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	})
}

// ParseDuration reads a Go duration such as "5s" from the environment.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration)
}

// ParseBool reads a boolean from the environment. It accepts true/false,
// 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, func(v string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", v)
	})
}

// ParseList reads a comma-separated list from the environment. Blank items
// are dropped.
func ParseList(key string, defaultValue []string) []string {
	return parseEnv(key, defaultValue, func(v string) ([]string, error) {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	})
}
