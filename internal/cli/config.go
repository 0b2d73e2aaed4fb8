package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// envHome overrides the config directory, envDatabase the database path.
const (
	envHome     = "TICKER_HOME"
	envDatabase = "TICKER_DB"
)

// Config is the optional on-disk configuration at <home>/config.yaml.
type Config struct {
	// Database is the SQLite path shared by every session syncing the
	// same lists. Relative paths resolve against the config directory.
	Database string `yaml:"database"`
}

// configDir returns the ticker home directory, TICKER_HOME if set,
// otherwise ~/.ticker.
func configDir() (string, error) {
	if dir := os.Getenv(envHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".ticker"), nil
}

// loadConfig reads <dir>/config.yaml. A missing file yields a zero
// Config, not an error.
func loadConfig(dir string) (Config, error) {
	b, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// resolveDatabase picks the database path: the --db flag wins, then the
// TICKER_DB environment variable, then the config file, then
// <dir>/ticker.db.
func resolveDatabase(opts *RootOptions, dir string, cfg Config) string {
	if opts.Database != "" {
		return opts.Database
	}
	if env := os.Getenv(envDatabase); env != "" {
		return env
	}
	if cfg.Database != "" {
		if filepath.IsAbs(cfg.Database) {
			return cfg.Database
		}
		return filepath.Join(dir, cfg.Database)
	}
	return filepath.Join(dir, "ticker.db")
}
