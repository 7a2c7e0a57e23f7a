package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"gemini-replica/internal/countries"
	"gemini-replica/internal/persist"
)

// Storage backends
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

// settingsFile is the optional YAML file under SettingsDir
const settingsFile = "app.yaml"

// Config holds all application configuration
type Config struct {
	Port            string        `yaml:"port"`
	DBPath          string        `yaml:"db_path"`
	DBDriver        string        `yaml:"db_driver"`
	StorageBackend  string        `yaml:"storage_backend"`
	DataDir         string        `yaml:"data_dir"`
	StaticDir       string        `yaml:"static_dir"`
	SnapshotKey     string        `yaml:"snapshot_key"`
	ReplyDelay      time.Duration `yaml:"reply_delay"`
	PersistDebounce time.Duration `yaml:"persist_debounce"`
	CountriesURL    string        `yaml:"countries_url"`
	LogLevel        string        `yaml:"log_level"`

	SettingsDir string `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
// A zero ReplyDelay means a random 1.5-2.5s delay per reply.
func Default() *Config {
	return &Config{
		Port:            "8080",
		DBPath:          "data/app.db",
		DBDriver:        "sqlite3",
		StorageBackend:  StorageSQLite,
		DataDir:         "data",
		StaticDir:       "static",
		SnapshotKey:     persist.DefaultKey,
		PersistDebounce: persist.DefaultDebounce,
		CountriesURL:    countries.DefaultURL,
		LogLevel:        "info",
		SettingsDir:     "settings",
	}
}

// Load loads configuration from defaults, the settings file and the environment,
// each layer overriding the previous one
func Load() (*Config, error) {
	cfg := Default()

	if dir := os.Getenv("SETTINGS_DIR"); dir != "" {
		cfg.SettingsDir = dir
	}

	if err := loadSettingsFile(filepath.Join(cfg.SettingsDir, settingsFile), cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSettingsFile overlays a YAML file onto cfg. A missing file is not an error.
func loadSettingsFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	stringVars := map[string]*string{
		"PORT":            &cfg.Port,
		"DB_PATH":         &cfg.DBPath,
		"DB_DRIVER":       &cfg.DBDriver,
		"STORAGE_BACKEND": &cfg.StorageBackend,
		"DATA_DIR":        &cfg.DataDir,
		"STATIC_DIR":      &cfg.StaticDir,
		"SNAPSHOT_KEY":    &cfg.SnapshotKey,
		"COUNTRIES_URL":   &cfg.CountriesURL,
		"LOG_LEVEL":       &cfg.LogLevel,
	}
	for key, dst := range stringVars {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REPLY_DELAY":      &cfg.ReplyDelay,
		"PERSIST_DEBOUNCE": &cfg.PersistDebounce,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	switch c.DBDriver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.DBDriver)
	}

	if c.ReplyDelay < 0 {
		return fmt.Errorf("reply delay must not be negative")
	}
	if c.PersistDebounce < 0 {
		return fmt.Errorf("persist debounce must not be negative")
	}
	if c.SnapshotKey == "" {
		return fmt.Errorf("snapshot key must not be empty")
	}

	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}
