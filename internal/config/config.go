package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// DriverType identifies which database driver to open.
type DriverType string

const (
	DriverPostgres DriverType = "postgres"
	DriverSQLite   DriverType = "sqlite"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
	ErrUnknownDriver      = errors.New("DB_DRIVER must be postgres or sqlite")
	ErrMissingSystemUser  = errors.New("SYSTEM_USERNAME must not be empty")
)

type Database struct {
	Driver DriverType `yaml:"driver"`
	URL    string     `yaml:"url"`
	// Schema holding the bank tables. Postgres only.
	Schema string `yaml:"schema"`
	// LogLevel for the gorm logger: silent, error, warn, info.
	LogLevel     string `yaml:"log_level"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type Server struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	// IdentityHeader carries the username recorded as created_by.
	IdentityHeader string  `yaml:"identity_header"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type Bank struct {
	// SystemUsername is never offered as the user of an income or preferred account.
	SystemUsername string `yaml:"system_username"`
}

// Config holds everything the server needs at startup.
type Config struct {
	Database Database `yaml:"database"`
	Server   Server   `yaml:"server"`
	Bank     Bank     `yaml:"bank"`
}

const (
	DefaultPort           = "5050"
	DefaultSchema         = "bank"
	DefaultIdentityHeader = "X-Remote-User"
	DefaultSystemUsername = "admin"
)

// Default returns the configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		Database: Database{
			Driver:       DriverPostgres,
			Schema:       DefaultSchema,
			LogLevel:     "warn",
			MaxOpenConns: 20,
		},
		Server: Server{
			Port: DefaultPort,
			CORSOrigins: []string{
				"http://localhost:5173",
				"http://localhost:5174",
			},
			IdentityHeader: DefaultIdentityHeader,
			RateLimitBurst: 20,
		},
		Bank: Bank{SystemUsername: DefaultSystemUsername},
	}
}

// Load reads the optional YAML file at path and then applies environment overrides.
//
// Environment variables:
//   - DATABASE_URL: connection string (postgres DSN or sqlite file)
//   - DB_DRIVER: "postgres" or "sqlite" (default: postgres)
//   - DB_SCHEMA: postgres schema for the bank tables (default: bank)
//   - DB_LOG_LEVEL: silent, error, warn, info (default: warn)
//   - PORT: listen port (default: 5050)
//   - CORS_ORIGINS: comma-separated allow-list
//   - IDENTITY_HEADER: header carrying the acting username (default: X-Remote-User)
//   - RATE_LIMIT_RPS / RATE_LIMIT_BURST: request rate limit, 0 disables
//   - SYSTEM_USERNAME: account excluded from user selection (default: admin)
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// file is optional
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := env("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.ToLower(env("DB_DRIVER")); v != "" {
		cfg.Database.Driver = DriverType(v)
	}
	if v := env("DB_SCHEMA"); v != "" {
		cfg.Database.Schema = v
	}
	if v := env("DB_LOG_LEVEL"); v != "" {
		cfg.Database.LogLevel = strings.ToLower(v)
	}
	if v := env("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := env("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := env("IDENTITY_HEADER"); v != "" {
		cfg.Server.IdentityHeader = v
	}
	if v := env("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.Server.RateLimitRPS = rps
	}
	if v := env("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.Server.RateLimitBurst = burst
	}
	if v, ok := os.LookupEnv("SYSTEM_USERNAME"); ok {
		cfg.Bank.SystemUsername = strings.TrimSpace(v)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Validate checks that the configuration can be used to start the server.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return ErrUnknownDriver
	}
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	if c.Bank.SystemUsername == "" {
		return ErrMissingSystemUser
	}
	return nil
}
