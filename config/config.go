// Package config loads the environment configuration shared by the
// directoryd and cascade binaries.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultPort      = "8080"
	defaultRateLimit = 120
	tableSuffix      = "directories"
)

type Config struct {
	Stage              string
	DirectoryTable     string
	Region             string
	DynamoDBEndpoint   string
	Port               string
	JWTSecret          string
	AtomicMoves        bool
	CORSOrigins        []string
	RateLimitPerMinute int
	LogLevel           slog.Level
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Stage:            os.Getenv("STAGE"),
		Region:           os.Getenv("AWS_REGION"),
		DynamoDBEndpoint: os.Getenv("DYNAMODB_ENDPOINT"),
		Port:             os.Getenv("PORT"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AtomicMoves:      true,
	}

	cfg.DirectoryTable = os.Getenv("DIRECTORY_TABLE")
	if cfg.DirectoryTable == "" {
		cfg.DirectoryTable = tableSuffix
		if cfg.Stage != "" {
			cfg.DirectoryTable = cfg.Stage + "-" + tableSuffix
		}
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if v := os.Getenv("ATOMIC_MOVES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ATOMIC_MOVES: %w", err)
		}
		cfg.AtomicMoves = b
	}

	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	cfg.RateLimitPerMinute = defaultRateLimit
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE: invalid value %q", v)
		}
		cfg.RateLimitPerMinute = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}

// RequireJWTSecret reports an error when no signing secret is configured.
// Only the HTTP server needs one.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
