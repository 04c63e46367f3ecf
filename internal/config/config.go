// Package config resolves application configuration explicitly at startup.
// Nothing here runs at import time; main builds a Config and passes it down,
// so the core packages never see ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds the resolved application configuration
type Config struct {
	// LibraryDir is the root of the document library
	LibraryDir string
}

// Load resolves configuration in order: an explicit .env file (when given),
// a best-effort ./.env, the POCKET_DOC_DIR environment variable, and finally
// ~/.pocket-doc.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// A missing ./.env is not an error
		_ = godotenv.Load()
	}

	dir := os.Getenv("POCKET_DOC_DIR")
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".pocket-doc")
	}

	return &Config{LibraryDir: dir}, nil
}
