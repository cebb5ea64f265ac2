package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/faria/mony-api/internal/config"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := Open(config.Database{
		Driver:   config.DriverSQLite,
		URL:      fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return d
}

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	d := openTestDB(t)

	attempts := 0
	err := WithRetry(context.Background(), d, func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	d := openTestDB(t)

	attempts := 0
	err := WithRetry(context.Background(), d, func(tx *gorm.DB) error {
		attempts++
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != maxTxAttempts {
		t.Errorf("expected %d attempts, got %d", maxTxAttempts, attempts)
	}
}

func TestWithRetry_DomainErrorsAreNotRetried(t *testing.T) {
	d := openTestDB(t)
	domainErr := errors.New("order already complete")

	attempts := 0
	err := WithRetry(context.Background(), d, func(tx *gorm.DB) error {
		attempts++
		return domainErr
	})
	if !errors.Is(err, domainErr) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestSqliteDSN(t *testing.T) {
	if got := sqliteDSN("file:test.db"); got != "file:test.db?_foreign_keys=on" {
		t.Errorf("unexpected dsn %q", got)
	}
	if got := sqliteDSN("file:x?mode=memory"); got != "file:x?mode=memory&_foreign_keys=on" {
		t.Errorf("unexpected dsn %q", got)
	}
	if got := sqliteDSN("file:x?_foreign_keys=off"); got != "file:x?_foreign_keys=off" {
		t.Errorf("explicit setting should be kept, got %q", got)
	}
}
