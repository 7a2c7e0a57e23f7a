package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gemini-replica/internal/countries"
	"gemini-replica/internal/persist"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SETTINGS_DIR", "PORT", "DB_PATH", "DB_DRIVER", "STORAGE_BACKEND", "DATA_DIR",
		"STATIC_DIR", "SNAPSHOT_KEY", "REPLY_DELAY", "PERSIST_DEBOUNCE", "COUNTRIES_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, settingsFile), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SETTINGS_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.StorageBackend != StorageSQLite {
		t.Errorf("expected sqlite backend, got %s", cfg.StorageBackend)
	}
	if cfg.SnapshotKey != "gemini-clone-storage" {
		t.Errorf("unexpected snapshot key %s", cfg.SnapshotKey)
	}
	if cfg.ReplyDelay != 0 {
		t.Errorf("expected random reply delay, got %v", cfg.ReplyDelay)
	}
	if cfg.PersistDebounce != 250*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.PersistDebounce)
	}
	if cfg.SnapshotKey != persist.DefaultKey || cfg.PersistDebounce != persist.DefaultDebounce {
		t.Errorf("persistence defaults drifted from the persist package")
	}
	if cfg.CountriesURL != countries.DefaultURL {
		t.Errorf("unexpected countries url %s", cfg.CountriesURL)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoad_SettingsFile(t *testing.T) {
	clearEnv(t)
	dir := writeSettings(t, `
port: "9090"
storage_backend: file
data_dir: /var/lib/gemini
reply_delay: 2s
log_level: debug
`)
	t.Setenv("SETTINGS_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.StorageBackend != StorageFile || cfg.DataDir != "/var/lib/gemini" {
		t.Errorf("unexpected storage settings: %s %s", cfg.StorageBackend, cfg.DataDir)
	}
	if cfg.ReplyDelay != 2*time.Second {
		t.Errorf("expected 2s reply delay, got %v", cfg.ReplyDelay)
	}
	if cfg.SettingsDir != dir {
		t.Errorf("expected settings dir %s, got %s", dir, cfg.SettingsDir)
	}
	// untouched fields keep their defaults
	if cfg.DBPath != "data/app.db" {
		t.Errorf("expected default db path, got %s", cfg.DBPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := writeSettings(t, "port: \"9090\"\ndb_driver: sqlite3\n")
	t.Setenv("SETTINGS_DIR", dir)
	t.Setenv("PORT", "7070")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/custom/db/path.db")
	t.Setenv("STATIC_DIR", "/custom/static")
	t.Setenv("PERSIST_DEBOUNCE", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("expected env port 7070, got %s", cfg.Port)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.DBDriver)
	}
	if cfg.DBPath != "/custom/db/path.db" {
		t.Errorf("unexpected db path %s", cfg.DBPath)
	}
	if cfg.StaticDir != "/custom/static" {
		t.Errorf("unexpected static dir %s", cfg.StaticDir)
	}
	if cfg.PersistDebounce != 0 {
		t.Errorf("expected zero debounce, got %v", cfg.PersistDebounce)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SETTINGS_DIR", t.TempDir())
	t.Setenv("REPLY_DELAY", "soon")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoad_MalformedSettingsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SETTINGS_DIR", writeSettings(t, "port: [unterminated"))

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed settings file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory backend", func(c *Config) { c.StorageBackend = StorageMemory }, false},
		{"unknown backend", func(c *Config) { c.StorageBackend = "redis" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "postgres" }, true},
		{"negative delay", func(c *Config) { c.ReplyDelay = -time.Second }, true},
		{"negative debounce", func(c *Config) { c.PersistDebounce = -time.Second }, true},
		{"empty key", func(c *Config) { c.SnapshotKey = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
