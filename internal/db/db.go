package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/faria/mony-api/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// Connect opens the configured database and stores it in DB.
func Connect(cfg config.Database) {
	d, err := Open(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	DB = d
	log.Printf("Connected to %s database", cfg.Driver)
}

// Open builds a gorm handle for cfg without touching the package global.
func Open(cfg config.Database) (*gorm.DB, error) {
	// Verbose logger to surface slow queries in the service logs.
	lg := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  logLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gcfg := &gorm.Config{
		Logger:         lg,
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.URL))
	case config.DriverPostgres, "":
		dialector = postgres.Open(cfg.URL)
		if cfg.Schema != "" {
			gcfg.NamingStrategy = schema.NamingStrategy{TablePrefix: cfg.Schema + "."}
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	d, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := d.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// A single connection keeps in-memory databases alive and serializes writers.
		sqlDB.SetMaxOpenConns(1)
		return d, nil
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 20
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if cfg.Schema != "" {
		if err := EnsureSchema(d, cfg.Schema); err != nil {
			return nil, fmt.Errorf("ensure schema %s: %w", cfg.Schema, err)
		}
	}
	return d, nil
}

// sqliteDSN turns foreign key enforcement on; cascades depend on it.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
