package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Socket server
	SocketHost string `env:"SOCKET_HOST" default:"localhost"`
	SocketPort int    `env:"SOCKET_PORT" default:"9876"`

	// REST proxy
	HTTPPort int `env:"HTTP_PORT" default:"7860"`

	// Bridge client behavior
	SocketTimeout time.Duration `env:"SOCKET_TIMEOUT" default:"15s"`

	// Hardening: cap on a connection's accumulation buffer
	SocketMaxBuffer int `env:"SOCKET_MAX_BUFFER" default:"8388608"`

	// Command schema document
	SchemaPath string `env:"SCHEMA_PATH" default:"./schemas/commands.json"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Missing .env is fine - system env vars still apply
	if err := godotenv.Load(".env"); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Socket server
	if err := loadEnvString(&config.SocketHost, "SOCKET_HOST", "localhost"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.SocketPort, "SOCKET_PORT", 9876); err != nil {
		return nil, err
	}

	// REST proxy
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 7860); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.SocketTimeout, "SOCKET_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if err := loadEnvInt(&config.SocketMaxBuffer, "SOCKET_MAX_BUFFER", 8*1024*1024); err != nil {
		return nil, err
	}

	if err := loadEnvString(&config.SchemaPath, "SCHEMA_PATH", "./schemas/commands.json"); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "json"); err != nil {
		return nil, err
	}

	return config, nil
}

// SocketAddr returns the socket server's host:port.
func (c *Config) SocketAddr() string {
	return fmt.Sprintf("%s:%d", c.SocketHost, c.SocketPort)
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.SocketPort < 0 || c.SocketPort > 65535 {
		errors = append(errors, "SOCKET_PORT must be between 0 and 65535")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}
	if c.SocketTimeout <= 0 {
		errors = append(errors, "SOCKET_TIMEOUT must be positive")
	}
	if c.SocketMaxBuffer < 0 {
		errors = append(errors, "SOCKET_MAX_BUFFER must not be negative")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
