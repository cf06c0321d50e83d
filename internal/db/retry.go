package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mescon/Hassarr/internal/logger"
)

// isBusy reports whether err is SQLite refusing a lock.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "SQLITE_BUSY") || strings.Contains(s, "database is locked")
}

// withRetry runs op until it succeeds, fails with a non-busy error, ctx is
// done, or MaxRetries attempts were made. Backoff doubles from RetryDelay.
func withRetry(ctx context.Context, what string, op func() error) error {
	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}

		delay := RetryDelay * time.Duration(1<<attempt)
		logger.Debugf("Database busy on %s, retrying in %v (attempt %d/%d)", what, delay, attempt+1, MaxRetries)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("database busy after %d retries: %w", MaxRetries, err)
}

// ExecWithRetry executes a statement, retrying while the database is locked.
func ExecWithRetry(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := withRetry(ctx, "exec", func() error {
		var err error
		result, err = db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryWithRetry runs a query, retrying while the database is locked.
func QueryWithRetry(ctx context.Context, db *sql.DB, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := withRetry(ctx, "query", func() error {
		var err error
		rows, err = db.QueryContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
