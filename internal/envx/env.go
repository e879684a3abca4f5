// Package envx reads typed configuration values from environment variables,
// optionally seeded from .env files.
package envx

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the given .env files into the environment. Missing files are
// ignored and variables that are already set are not overwritten.
func Load(files ...string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// String returns the value of key, or fallback when unset or empty.
func String(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Int returns key parsed as an int, or fallback when unset or invalid.
func Int(key string, fallback int) int {
	if v, err := strconv.Atoi(String(key, "")); err == nil {
		return v
	}
	return fallback
}

// Float returns key parsed as a float64, or fallback when unset or invalid.
func Float(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(String(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

// Duration returns key parsed by time.ParseDuration, or fallback.
func Duration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(String(key, "")); err == nil {
		return v
	}
	return fallback
}

// List returns key split on commas with blanks dropped, or fallback.
func List(key string, fallback []string) []string {
	v := String(key, "")
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
