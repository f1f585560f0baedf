package config

import (
	"log/slog"
	"os"
)

var exit = os.Exit

func MustNonEmpty(value, envName string) {
	if value == "" {
		slog.Error("missing required env", "env", envName)
		exit(1)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		slog.Error("missing required env", "env", envName)
		exit(1)
	}
}

// MustMinLen guards secrets that are present but too short to be safe.
func MustMinLen(value []byte, n int, envName string) {
	if len(value) < n {
		slog.Error("required env too short", "env", envName, "min_len", n)
		exit(1)
	}
}
