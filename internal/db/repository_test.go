package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/Hassarr/internal/crypto"
	"github.com/mescon/Hassarr/internal/domain"
)

// setupTestDB creates a repository in a temporary directory
func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// withEncryptionKey installs a key manager for the duration of the test.
func withEncryptionKey(t *testing.T, secret string) {
	t.Helper()
	t.Setenv(crypto.KeyEnvVar, secret)
	crypto.ResetForTesting()
	t.Cleanup(crypto.ResetForTesting)
}

// =============================================================================
// Repository setup tests
// =============================================================================

func TestNewRepository(t *testing.T) {
	repo := setupTestDB(t)
	require.NotNil(t, repo.DB)
	assert.NoError(t, repo.DB.Ping())
}

func TestRepository_Pragmas(t *testing.T) {
	repo := setupTestDB(t)

	var journalMode string
	require.NoError(t, repo.DB.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, repo.DB.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestRepository_TablesCreated(t *testing.T) {
	repo := setupTestDB(t)

	for _, table := range []string{"settings", "user_mappings", "service_results", "events", "job_schedules", "schema_migrations"} {
		t.Run(table, func(t *testing.T) {
			var name string
			err := repo.DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			require.NoError(t, err, "table %s should exist", table)
		})
	}
}

func TestRepository_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	first, err := NewRepository(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewRepository(path)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.DB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	files, err := migrationFiles()
	require.NoError(t, err)
	assert.Equal(t, len(files), count)
}

// The embedded schema also applies on the cgo driver.
func TestRepository_MigrationsOnMattnDriver(t *testing.T) {
	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "mattn.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	repo := &Repository{DB: sqlDB}
	require.NoError(t, repo.runMigrations())

	ctx := context.Background()
	require.NoError(t, repo.SetSetting(ctx, "overseerr_url", "http://overseerr:5055"))
	got, err := repo.GetSetting(ctx, "overseerr_url")
	require.NoError(t, err)
	assert.Equal(t, "http://overseerr:5055", got)

	id, err := repo.CreateJobSchedule(ctx, "download-sync", "0 * * * *")
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestParseMigrationVersion(t *testing.T) {
	tests := []struct {
		file   string
		want   int
		wantOk bool
	}{
		{"001_initial_schema.sql", 1, true},
		{"042_add_index.sql", 42, true},
		{"initial.sql", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, ok := parseMigrationVersion(tt.file)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}

func TestRepository_GracefulClose(t *testing.T) {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "close.db"))
	require.NoError(t, err)
	require.NoError(t, repo.GracefulClose())
	assert.Error(t, repo.DB.Ping())
}

func TestRepository_StartPeriodicCheckpoint(t *testing.T) {
	repo := setupTestDB(t)
	stop := repo.StartPeriodicCheckpoint(10 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()
	assert.NoError(t, repo.Checkpoint())
}

func TestRepository_GetDatabaseStats(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.SetSetting(context.Background(), "base_path", "/hassarr"))

	stats, err := repo.GetDatabaseStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wal", stats.JournalMode)
	assert.Positive(t, stats.SizeBytes)
	assert.Equal(t, int64(1), stats.TableCounts["settings"])
	assert.Contains(t, stats.TableCounts, "job_schedules")
}

// =============================================================================
// Settings tests
// =============================================================================

func TestSettings_RoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.GetSetting(ctx, "overseerr_url")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SetSetting(ctx, "overseerr_url", "http://overseerr:5055"))
	require.NoError(t, repo.SetSetting(ctx, "overseerr_url", "http://overseerr:5056"))

	got, err := repo.GetSetting(ctx, "overseerr_url")
	require.NoError(t, err)
	assert.Equal(t, "http://overseerr:5056", got)

	require.NoError(t, repo.DeleteSetting(ctx, "overseerr_url"))
	_, err = repo.GetSetting(ctx, "overseerr_url")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettings_SecretsAreEncryptedAtRest(t *testing.T) {
	withEncryptionKey(t, "test-secret-for-settings")
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSetting(ctx, "overseerr_api_key", "abcdef123456"))

	var raw string
	require.NoError(t, repo.DB.QueryRow("SELECT value FROM settings WHERE key = 'overseerr_api_key'").Scan(&raw))
	assert.True(t, crypto.IsEncrypted(raw))
	assert.NotContains(t, raw, "abcdef123456")

	plain, err := repo.GetSetting(ctx, "overseerr_api_key")
	require.NoError(t, err)
	assert.Equal(t, "abcdef123456", plain)

	all, err := repo.ListSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "********3456", all["overseerr_api_key"])
}

func TestNewRepository_EncryptsPlaintextSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Written before any key existed
	crypto.ResetForTesting()
	first, err := NewRepository(path)
	require.NoError(t, err)
	_, err = first.DB.Exec("INSERT INTO settings (key, value) VALUES ('sonarr_api_key', 'plain-sonarr-key')")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	withEncryptionKey(t, "now-we-have-a-key")
	second, err := NewRepository(path)
	require.NoError(t, err)
	defer second.Close()

	var raw string
	require.NoError(t, second.DB.QueryRow("SELECT value FROM settings WHERE key = 'sonarr_api_key'").Scan(&raw))
	assert.True(t, crypto.IsEncrypted(raw))

	plain, err := second.GetSetting(context.Background(), "sonarr_api_key")
	require.NoError(t, err)
	assert.Equal(t, "plain-sonarr-key", plain)
}

// =============================================================================
// User mapping tests
// =============================================================================

func TestUserMappings_CRUD(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.GetUserMapping(ctx, "ha-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.UpsertUserMapping(ctx, UserMapping{HAUserID: "ha-1", OverseerrUserID: 3, Username: "alice"}))
	require.NoError(t, repo.UpsertUserMapping(ctx, UserMapping{HAUserID: "ha-2", OverseerrUserID: 4}))
	require.NoError(t, repo.UpsertUserMapping(ctx, UserMapping{HAUserID: "ha-1", OverseerrUserID: 5, Username: "alice"}))

	m, err := repo.GetUserMapping(ctx, "ha-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.OverseerrUserID)
	assert.Equal(t, "alice", m.Username)

	all, err := repo.ListUserMappings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ha-1", all[0].HAUserID)
	assert.Equal(t, "", all[1].Username)

	require.NoError(t, repo.DeleteUserMapping(ctx, "ha-2"))
	assert.ErrorIs(t, repo.DeleteUserMapping(ctx, "ha-2"), ErrNotFound)
}

func TestUserMappings_Validation(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, repo.UpsertUserMapping(ctx, UserMapping{OverseerrUserID: 1}))
	assert.Error(t, repo.UpsertUserMapping(ctx, UserMapping{HAUserID: "ha-1"}))
}

// =============================================================================
// Service result tests
// =============================================================================

func TestServiceResults_SaveAndLoad(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveServiceResult(ctx, "last_search_media", json.RawMessage(`{"action":"no_search_results"}`)))
	require.NoError(t, repo.SaveServiceResult(ctx, "last_search_media", json.RawMessage(`{"action":"search_results"}`)))
	require.NoError(t, repo.SaveServiceResult(ctx, "last_run_job", json.RawMessage(`{"action":"job_started"}`)))

	results, err := repo.LoadServiceResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.JSONEq(t, `{"action":"search_results"}`, string(results["last_search_media"]))
}

// =============================================================================
// Event tests
// =============================================================================

func TestEvents_InsertListAndFilter(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, title := range []string{"Alien", "Aliens", "Alien 3"} {
		e := domain.NewMediaEvent(domain.MediaAdded, domain.MediaEventData{Title: title})
		_, err := repo.InsertEvent(ctx, &e)
		require.NoError(t, err)
	}
	job := domain.NewJobEvent("plex-sync", "Plex Sync", "service")
	id, err := repo.InsertEvent(ctx, &job)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)

	all, total, err := repo.ListEvents(ctx, EventQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, domain.JobTriggered, all[0].EventType, "newest first")

	page, total, err := repo.ListEvents(ctx, EventQuery{EventType: domain.MediaAdded, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Aliens", page[0].GetStringOr("title", ""))
	assert.Equal(t, "Alien", page[1].GetStringOr("title", ""))
}

func TestEvents_PruneAndMaintenance(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	old := domain.NewJobEvent("a", "A", "schedule")
	old.CreatedAt = time.Now().AddDate(0, 0, -45).UTC()
	_, err := repo.InsertEvent(ctx, &old)
	require.NoError(t, err)

	fresh := domain.NewJobEvent("b", "B", "schedule")
	_, err = repo.InsertEvent(ctx, &fresh)
	require.NoError(t, err)

	require.NoError(t, repo.RunMaintenance(ctx, 30))

	events, total, err := repo.ListEvents(ctx, EventQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "b", events[0].AggregateID)

	deleted, err := repo.PruneEvents(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

// =============================================================================
// Job schedule tests
// =============================================================================

func TestJobSchedules_CRUD(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	id, err := repo.CreateJobSchedule(ctx, "plex-recently-added-scan", "*/15 * * * *")
	require.NoError(t, err)
	_, err = repo.CreateJobSchedule(ctx, "download-sync", "0 * * * *")
	require.NoError(t, err)

	s, err := repo.GetJobSchedule(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "plex-recently-added-scan", s.JobID)
	assert.True(t, s.Enabled)

	require.NoError(t, repo.UpdateJobSchedule(ctx, id, "0 3 * * *", false))
	enabled, err := repo.ListJobSchedules(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "download-sync", enabled[0].JobID)

	all, err := repo.ListJobSchedules(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.DeleteJobSchedule(ctx, id))
	_, err = repo.GetJobSchedule(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateJobSchedule(ctx, id, "* * * * *", true), ErrNotFound)
	assert.True(t, errors.Is(repo.DeleteJobSchedule(ctx, id), ErrNotFound))
}

func TestNullString(t *testing.T) {
	assert.Equal(t, sql.NullString{}, nullString(""))
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, nullString("x"))
}
