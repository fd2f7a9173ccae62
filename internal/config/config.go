// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultVehiclePositionsURL = "https://apis.metroinfo.co.nz/rti/gtfsrt/v1/vehicle-positions.pb"
	DefaultStaticGTFSURL       = "https://apis.metroinfo.co.nz/rti/gtfs/v1/gtfs.zip"
)

// Config holds all application configuration.
type Config struct {
	Port                string        `yaml:"port" validate:"required,numeric"`
	Env                 string        `yaml:"env"`
	LogLevel            string        `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	APIKey              string        `yaml:"-" validate:"required"`
	CacheTTL            time.Duration `yaml:"cacheTTL" validate:"gt=0"`
	HTTPTimeout         time.Duration `yaml:"httpTimeout" validate:"gt=0"`
	VehiclePositionsURL string        `yaml:"vehiclePositionsURL" validate:"required,url"`
	StaticGTFSURL       string        `yaml:"staticGTFSURL" validate:"required,url"`
	BundleKey           string        `yaml:"bundleKey" validate:"required"`
	Store               string        `yaml:"store" validate:"oneof=file redis"`
	DataDir             string        `yaml:"dataDir" validate:"required_if=Store file"`
	RedisAddr           string        `yaml:"redisAddr" validate:"required_if=Store redis"`
	KafkaBrokers        string        `yaml:"kafkaBrokers"`
	KafkaTopic          string        `yaml:"kafkaTopic" validate:"required_with=KafkaBrokers"`
	BackgroundRefresh   bool          `yaml:"backgroundRefresh"`
	WebDir              string        `yaml:"webDir" validate:"omitempty,dir"`
}

// MissingEnvironmentKey is returned when a required secret is absent.
type MissingEnvironmentKey string

func (k MissingEnvironmentKey) Error() string {
	return fmt.Sprintf("%s environment variable not set", string(k))
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honoured, and CONFIG_FILE may name a
// YAML file whose values override the environment.
func Load() (*Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "3000"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "")),
		CacheTTL:            getDurationEnv("CACHE_TTL_SECONDS", 20) * time.Second,
		HTTPTimeout:         getDurationEnv("HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		VehiclePositionsURL: getEnv("VEHICLE_POSITIONS_URL", DefaultVehiclePositionsURL),
		StaticGTFSURL:       getEnv("STATIC_GTFS_URL", DefaultStaticGTFSURL),
		BundleKey:           getEnv("BUNDLE_KEY", "gtfs.zip"),
		Store:               getEnv("STORE", "file"),
		DataDir:             getEnv("DATA_DIR", "."),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		KafkaBrokers:        getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:          getEnv("KAFKA_TOPIC", ""),
		BackgroundRefresh:   getBoolEnv("BACKGROUND_REFRESH", false),
		WebDir:              getEnv("WEB_DIR", ""),
	}

	key, err := secretFromEnv("METRO_API_KEY")
	if err != nil && !errors.As(err, new(MissingEnvironmentKey)) {
		return nil, err
	}
	cfg.APIKey = key

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HasKafka reports whether snapshot publishing is configured.
func (c *Config) HasKafka() bool {
	return c.KafkaBrokers != ""
}

// RefreshTimeout bounds a whole refresh cycle: the static bundle and the feed.
func (c *Config) RefreshTimeout() time.Duration {
	return 2 * c.HTTPTimeout
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "APIKey" {
					return MissingEnvironmentKey("METRO_API_KEY")
				}
			}
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds)
		}
	}
	return time.Duration(defaultSeconds)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// secretFromEnv reads key directly, or from the file named by key_FILE.
func secretFromEnv(key string) (string, error) {
	value := os.Getenv(key)
	path := os.Getenv(key + "_FILE")
	if value == "" && path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s_FILE: %w", key, err)
		}
		value = string(content)
	}

	if value == "" {
		return "", MissingEnvironmentKey(key)
	}
	return strings.TrimSpace(value), nil
}
