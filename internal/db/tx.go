package db

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

const maxTxAttempts = 3

// WithRetry runs fn in a transaction, starting over from the beginning when the
// database reports a transient conflict. Any other error is returned as is.
func WithRetry(ctx context.Context, d *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = d.WithContext(ctx).Transaction(fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		log.Printf("[db] transaction attempt %d/%d failed, retrying: %v", attempt, maxTxAttempts, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return err
}
