package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Vision    VisionConfig
	Fiscal    FiscalConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Inference InferenceConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// VisionConfig holds the optical extraction engine configuration
type VisionConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FiscalConfig holds the Cosmos fiscal catalog configuration
type FiscalConfig struct {
	APIToken string        `mapstructure:"api_token"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the fingerprint cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds the product store configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// InferenceConfig tunes the heuristic inference engine
type InferenceConfig struct {
	EnableFuzzyMatching bool `mapstructure:"enable_fuzzy_matching"`
	FuzzyEditDistance   int  `mapstructure:"fuzzy_edit_distance"`
	Debug               bool `mapstructure:"debug"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cadvision/")

	// Environment variable settings
	v.SetEnvPrefix("CADVISION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Vision defaults. The empty api_key default registers the key so
	// AutomaticEnv picks up CADVISION_VISION_API_KEY during Unmarshal.
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.base_url", "https://vision.googleapis.com")
	v.SetDefault("vision.timeout", "30s")

	// Fiscal defaults, same trick for CADVISION_FISCAL_API_TOKEN
	v.SetDefault("fiscal.api_token", "")
	v.SetDefault("fiscal.base_url", "https://api.cosmos.bluesoft.com.br")
	v.SetDefault("fiscal.timeout", "15s")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")

	// Database defaults
	v.SetDefault("database.path", "cadvision.db")

	// Inference defaults
	v.SetDefault("inference.enable_fuzzy_matching", true)
	v.SetDefault("inference.fuzzy_edit_distance", 1)
	v.SetDefault("inference.debug", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.requests_per_second", 2.0)
	v.SetDefault("ratelimit.burst", 5)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Vision.BaseURL == "" {
		return fmt.Errorf("vision base URL is required (set CADVISION_VISION_BASE_URL)")
	}

	if config.Fiscal.APIToken == "" {
		return fmt.Errorf("fiscal API token is required (set CADVISION_FISCAL_API_TOKEN)")
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path is required (set CADVISION_DATABASE_PATH)")
	}

	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL must not be negative, got: %s", config.Cache.TTL)
	}

	return nil
}
