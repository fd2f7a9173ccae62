package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "METRO_API_KEY", "METRO_API_KEY_FILE",
		"CACHE_TTL_SECONDS", "HTTP_TIMEOUT_SECONDS", "VEHICLE_POSITIONS_URL",
		"STATIC_GTFS_URL", "BUNDLE_KEY", "STORE", "DATA_DIR", "REDIS_ADDR",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "BACKGROUND_REFRESH", "CONFIG_FILE", "WEB_DIR",
	} {
		t.Setenv(key, "")
	}
	// Keep godotenv from picking up a developer's .env.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("METRO_API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.CacheTTL != 20*time.Second {
		t.Errorf("CacheTTL = %v, want 20s", cfg.CacheTTL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want 10s", cfg.HTTPTimeout)
	}
	if cfg.BundleKey != "gtfs.zip" {
		t.Errorf("BundleKey = %q, want gtfs.zip", cfg.BundleKey)
	}
	if cfg.Store != "file" {
		t.Errorf("Store = %q, want file", cfg.Store)
	}
	if cfg.VehiclePositionsURL != DefaultVehiclePositionsURL {
		t.Errorf("VehiclePositionsURL = %q", cfg.VehiclePositionsURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("METRO_API_KEY", "secret")
	t.Setenv("CACHE_TTL_SECONDS", "45")
	t.Setenv("BACKGROUND_REFRESH", "true")
	t.Setenv("STORE", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheTTL != 45*time.Second {
		t.Errorf("CacheTTL = %v, want 45s", cfg.CacheTTL)
	}
	if !cfg.BackgroundRefresh {
		t.Error("BackgroundRefresh should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAPIKeyFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("METRO_API_KEY_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want from-file", cfg.APIKey)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	err = cfg.Validate()
	var missing MissingEnvironmentKey
	if !errors.As(err, &missing) {
		t.Fatalf("Validate error = %v, want MissingEnvironmentKey", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:                "3000",
			APIKey:              "k",
			CacheTTL:            20 * time.Second,
			HTTPTimeout:         10 * time.Second,
			VehiclePositionsURL: DefaultVehiclePositionsURL,
			StaticGTFSURL:       DefaultStaticGTFSURL,
			BundleKey:           "gtfs.zip",
			Store:               "file",
			DataDir:             ".",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }, true},
		{"bad store", func(c *Config) { c.Store = "s3" }, true},
		{"redis without addr", func(c *Config) { c.Store = "redis" }, true},
		{"kafka without topic", func(c *Config) { c.KafkaBrokers = "localhost:9092" }, true},
		{"kafka with topic", func(c *Config) {
			c.KafkaBrokers = "localhost:9092"
			c.KafkaTopic = "buses"
		}, false},
		{"bad feed url", func(c *Config) { c.VehiclePositionsURL = "not a url" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"missing web dir", func(c *Config) { c.WebDir = "/does/not/exist" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigFileOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("METRO_API_KEY", "secret")

	path := filepath.Join(t.TempDir(), "config.yml")
	content := "port: \"8080\"\ncacheTTL: 30s\nstore: redis\nredisAddr: cache:6379\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", cfg.CacheTTL)
	}
	if cfg.RedisAddr != "cache:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.APIKey != "secret" {
		t.Error("APIKey should survive the overlay")
	}
}

func TestConfigFileInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("invalid: yaml: content: [[["), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Error("invalid YAML should return an error")
	}
}
