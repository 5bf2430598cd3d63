// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	port := cfg.Server.Port
//	mcfg, err := cfg.Matching.MatcherConfig()
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/labstack/gommon/bytes"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

// Defaults
const (
	DefaultPort                   = 5000
	DefaultMaxUploadSize          = "10MB"
	DefaultIndexPath              = "index.html"
	DefaultTolerance              = "1.00"
	DefaultDiscountRate           = "0.88"
	DefaultMaxCombinationSize     = 5
	DefaultMaxPaymentsPerCustomer = 50
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Matching      MatchingConfig      `yaml:"matching"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // Empty or "*" allows every origin
	MaxUploadSize  string   `yaml:"max_upload_size"` // Human readable, e.g. "10MB"
	IndexPath      string   `yaml:"index_path"`      // Served at GET /
}

// MatchingConfig holds matching engine settings
type MatchingConfig struct {
	Tolerance          string `yaml:"tolerance"`
	DiscountRate       string `yaml:"discount_rate"`
	MaxCombinationSize int    `yaml:"max_combination_size"`
	// Uploads where a single customer has more payments than this are rejected
	// before matching. 0 disables the guard.
	MaxPaymentsPerCustomer int `yaml:"max_payments_per_customer"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"` // Empty disables run history
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", DefaultPort),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
			MaxUploadSize:  getEnv("MAX_UPLOAD_SIZE", DefaultMaxUploadSize),
			IndexPath:      getEnv("INDEX_PATH", DefaultIndexPath),
		},
		Matching: MatchingConfig{
			Tolerance:              getEnv("MATCH_TOLERANCE", DefaultTolerance),
			DiscountRate:           getEnv("MATCH_DISCOUNT_RATE", DefaultDiscountRate),
			MaxCombinationSize:     getEnvInt("MATCH_MAX_COMBINATION_SIZE", DefaultMaxCombinationSize),
			MaxPaymentsPerCustomer: getEnvInt("MATCH_MAX_PAYMENTS_PER_CUSTOMER", DefaultMaxPaymentsPerCustomer),
		},
		Storage: StorageConfig{
			DatabasePath: os.Getenv("DB_PATH"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values left by a sparse YAML file
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MaxUploadSize == "" {
		c.Server.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.Server.IndexPath == "" {
		c.Server.IndexPath = DefaultIndexPath
	}
	if c.Matching.Tolerance == "" {
		c.Matching.Tolerance = DefaultTolerance
	}
	if c.Matching.DiscountRate == "" {
		c.Matching.DiscountRate = DefaultDiscountRate
	}
	if c.Matching.MaxCombinationSize == 0 {
		c.Matching.MaxCombinationSize = DefaultMaxCombinationSize
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// Validate checks every setting that can be wrong at startup
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, err := c.Server.UploadLimit(); err != nil {
		return err
	}
	if _, err := c.Matching.MatcherConfig(); err != nil {
		return err
	}
	if c.Matching.MaxPaymentsPerCustomer < 0 {
		return fmt.Errorf("matching.max_payments_per_customer must not be negative")
	}
	return nil
}

// UploadLimit returns MaxUploadSize in bytes
func (s ServerConfig) UploadLimit() (int64, error) {
	n, err := bytes.Parse(s.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid server.max_upload_size %q: %w", s.MaxUploadSize, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("server.max_upload_size must be positive, got %q", s.MaxUploadSize)
	}
	return n, nil
}

// AllowsAllOrigins reports whether CORS should accept any origin
func (s ServerConfig) AllowsAllOrigins() bool {
	if len(s.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// MatcherConfig converts the matching settings into a matcher.Config
func (m MatchingConfig) MatcherConfig() (matcher.Config, error) {
	tolerance, err := decimal.NewFromString(m.Tolerance)
	if err != nil {
		return matcher.Config{}, fmt.Errorf("invalid matching.tolerance %q: %w", m.Tolerance, err)
	}
	if tolerance.IsNegative() {
		return matcher.Config{}, fmt.Errorf("matching.tolerance must not be negative")
	}

	rate, err := decimal.NewFromString(m.DiscountRate)
	if err != nil {
		return matcher.Config{}, fmt.Errorf("invalid matching.discount_rate %q: %w", m.DiscountRate, err)
	}
	if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return matcher.Config{}, fmt.Errorf("matching.discount_rate must be in (0, 1], got %s", rate)
	}

	if m.MaxCombinationSize < 1 || m.MaxCombinationSize > matcher.MaxCombinationLimit {
		return matcher.Config{}, fmt.Errorf("matching.max_combination_size must be between 1 and %d, got %d",
			matcher.MaxCombinationLimit, m.MaxCombinationSize)
	}

	return matcher.Config{
		Tolerance:          tolerance,
		DiscountRate:       rate,
		MaxCombinationSize: m.MaxCombinationSize,
	}, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma-separated environment variable
func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
