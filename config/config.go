package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const VERSION = "1.4"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Relay       RelayConfig
	Tracking    TrackingConfig
	Tracing     TracingConfig
	Worker      WorkerConfig
	Environment string
	LogLevel    string
	Version     string

	// Shared secret for signing outbound notifications; optional.
	WebhookSecret string
}

type ServerConfig struct {
	Port int
	Host string
}

type DatabaseConfig struct {
	// URL is the full Postgres connection URI; required.
	URL string
}

type RedisConfig struct {
	// URL is the Redis URI backing the job queue.
	URL string
}

type RelayConfig struct {
	Host string
	Port int
	// InsecureTLS disables certificate verification when the relay offers
	// STARTTLS with a self-signed certificate (development only).
	InsecureTLS bool
}

type TrackingConfig struct {
	// BaseURL is the public origin that open pixels and click redirects
	// are served from, without a trailing slash.
	BaseURL      string
	OpenEnabled  bool
	ClickEnabled bool
}

type TracingConfig struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64
}

type WorkerConfig struct {
	Concurrency int
	RatePerSec  int
	MaxAttempts int
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("API_PORT", 3001)
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("HARAKA_HOST", "localhost")
	v.SetDefault("HARAKA_PORT", 587)
	v.SetDefault("RELAY_INSECURE_TLS", false)
	v.SetDefault("TRACKING_BASE_URL", "http://localhost:3001")
	v.SetDefault("ENABLE_OPEN_TRACKING", true)
	v.SetDefault("ENABLE_CLICK_TRACKING", true)
	v.SetDefault("WORKER_CONCURRENCY", 5)
	v.SetDefault("WORKER_RATE_PER_SEC", 100)
	v.SetDefault("WORKER_MAX_ATTEMPTS", 3)
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "relaypost-api")
	v.SetDefault("TRACING_SAMPLING_PROBABILITY", 0.1)

	// Load environment file if specified
	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}

		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	databaseURL := v.GetString("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	config := &Config{
		Server: ServerConfig{
			Port: v.GetInt("API_PORT"),
			Host: v.GetString("API_HOST"),
		},
		Database: DatabaseConfig{
			URL: databaseURL,
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Relay: RelayConfig{
			Host:        v.GetString("HARAKA_HOST"),
			Port:        v.GetInt("HARAKA_PORT"),
			InsecureTLS: v.GetBool("RELAY_INSECURE_TLS"),
		},
		Tracking: TrackingConfig{
			BaseURL:      strings.TrimRight(v.GetString("TRACKING_BASE_URL"), "/"),
			OpenEnabled:  v.GetBool("ENABLE_OPEN_TRACKING"),
			ClickEnabled: v.GetBool("ENABLE_CLICK_TRACKING"),
		},
		Tracing: TracingConfig{
			Enabled:             v.GetBool("TRACING_ENABLED"),
			ServiceName:         v.GetString("TRACING_SERVICE_NAME"),
			SamplingProbability: v.GetFloat64("TRACING_SAMPLING_PROBABILITY"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
			RatePerSec:  v.GetInt("WORKER_RATE_PER_SEC"),
			MaxAttempts: v.GetInt("WORKER_MAX_ATTEMPTS"),
		},
		Environment:   v.GetString("ENVIRONMENT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		Version:       v.GetString("VERSION"),
		WebhookSecret: v.GetString("WEBHOOK_SECRET"),
	}

	return config, nil
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
