package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads an optional .env file and then fills spec from the environment.
// A missing .env is not an error.
func Load(prefix string, spec any, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("dotenv_not_loaded", "file", f, "error", err)
		}
	}
	if err := envconfig.Process(prefix, spec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
