package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/domain"
)

// NewTestRepository opens a migrated SQLite database in a temp dir. It is
// closed when the test ends.
func NewTestRepository(t testing.TB) *db.Repository {
	t.Helper()
	repo, err := db.NewRepository(filepath.Join(t.TempDir(), "hassarr.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// SeedUserMapping maps haUserID to an Overseerr user.
func SeedUserMapping(t testing.TB, repo *db.Repository, haUserID string, overseerrUserID int64, username string) {
	t.Helper()
	err := repo.UpsertUserMapping(context.Background(), db.UserMapping{
		HAUserID:        haUserID,
		OverseerrUserID: overseerrUserID,
		Username:        username,
	})
	if err != nil {
		t.Fatalf("failed to seed user mapping: %v", err)
	}
}

// SeedEvents inserts events into the database.
func SeedEvents(repo *db.Repository, events ...domain.Event) error {
	for i := range events {
		if _, err := repo.InsertEvent(context.Background(), &events[i]); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}
	}
	return nil
}

// CountEventsByType counts events of a specific type.
func CountEventsByType(sqlDB *sql.DB, eventType domain.EventType) (int, error) {
	var count int
	err := sqlDB.QueryRow("SELECT COUNT(*) FROM events WHERE event_type = ?", eventType).Scan(&count)
	return count, err
}

// ClearAllTables removes all rows from every application table.
func ClearAllTables(sqlDB *sql.DB) error {
	tables := []string{"events", "user_mappings", "service_results", "job_schedules", "settings"}
	for _, table := range tables {
		if _, err := sqlDB.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
