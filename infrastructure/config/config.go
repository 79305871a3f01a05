package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Monitoring configuration
	MonitorCapacity    int           `yaml:"monitor_capacity"`
	StreamPollInterval time.Duration `yaml:"stream_poll_interval"`
	EventMaxAge        time.Duration `yaml:"event_max_age"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// RateLimitPerMinute caps requests per client IP; zero disables it
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// Feature flags
	EnableCORS bool `yaml:"enable_cors"`
}

// LoadConfig loads configuration from environment variables, optionally
// overlaid by the YAML file named in CONFIG_FILE. Environment values
// win over file values so deployments can override a shared file.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		MonitorCapacity:    1000,
		StreamPollInterval: 2 * time.Second,
		EventMaxAge:        24 * time.Hour,
		LogLevel:           "info",
		RateLimitPerMinute: 600,
		EnableCORS:         true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.MonitorCapacity = getEnvInt("MONITOR_CAPACITY", cfg.MonitorCapacity)
	cfg.StreamPollInterval = getEnvDuration("STREAM_POLL_INTERVAL", cfg.StreamPollInterval)
	cfg.EventMaxAge = getEnvDuration("EVENT_MAX_AGE", cfg.EventMaxAge)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.MonitorCapacity <= 0 {
		return fmt.Errorf("monitor capacity must be positive, got %d", c.MonitorCapacity)
	}
	if c.StreamPollInterval <= 0 {
		return fmt.Errorf("stream poll interval must be positive, got %s", c.StreamPollInterval)
	}
	if c.EventMaxAge <= 0 {
		return fmt.Errorf("event max age must be positive, got %s", c.EventMaxAge)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %d", c.RateLimitPerMinute)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
