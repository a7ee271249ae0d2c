package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends for the persisted client state.
const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageNone     = "none"
)

// Config holds all configuration of the application.
// Values are read from app.env in the config path and overridden by environment variables.
type Config struct {
	Env                string        `mapstructure:"ENV"`
	ServerAddress      string        `mapstructure:"SERVER_ADDRESS"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	StorageBackend     string        `mapstructure:"STORAGE_BACKEND"`
	DBSource           string        `mapstructure:"DB_SOURCE"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int           `mapstructure:"REDIS_DB"`
	MapsAPIKey         string        `mapstructure:"MAPS_API_KEY"`
	MapsBaseURL        string        `mapstructure:"MAPS_BASE_URL"`
	MapsLoadTimeout    time.Duration `mapstructure:"MAPS_LOAD_TIMEOUT"`
	GeolocationTimeout time.Duration `mapstructure:"GEOLOCATION_TIMEOUT"`
}

var keys = []string{
	"ENV", "SERVER_ADDRESS", "LOG_LEVEL", "STORAGE_BACKEND", "DB_SOURCE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"MAPS_API_KEY", "MAPS_BASE_URL", "MAPS_LOAD_TIMEOUT", "GEOLOCATION_TIMEOUT",
}

// LoadConfig reads configuration from path/app.env and the environment.
// A missing app.env is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", StorageRedis)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MAPS_LOAD_TIMEOUT", 8*time.Second)
	v.SetDefault("GEOLOCATION_TIMEOUT", 10*time.Second)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal config: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends are configured.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: REDIS_ADDR is required when STORAGE_BACKEND is %q", StorageRedis)
		}
	case StoragePostgres:
		if c.DBSource == "" {
			return fmt.Errorf("config: DB_SOURCE is required when STORAGE_BACKEND is %q", StoragePostgres)
		}
	case StorageNone:
	default:
		return fmt.Errorf("config: STORAGE_BACKEND must be %q, %q or %q, got %q",
			StorageRedis, StoragePostgres, StorageNone, c.StorageBackend)
	}
	if c.GeolocationTimeout <= 0 {
		return fmt.Errorf("config: GEOLOCATION_TIMEOUT must be positive")
	}
	if c.MapsLoadTimeout <= 0 {
		return fmt.Errorf("config: MAPS_LOAD_TIMEOUT must be positive")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}
