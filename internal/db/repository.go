package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Register pure-Go SQLite driver for database/sql

	"github.com/mescon/Hassarr/internal/config"
	"github.com/mescon/Hassarr/internal/crypto"
	"github.com/mescon/Hassarr/internal/logger"
)

// MaxRetries is the number of times to retry a database operation on SQLITE_BUSY
const MaxRetries = 5

// RetryDelay is the base delay between retries (increases exponentially)
const RetryDelay = 100 * time.Millisecond

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// secretSettingKeys are the settings rows whose values are stored encrypted.
var secretSettingKeys = []string{"overseerr_api_key", "radarr_api_key", "sonarr_api_key", "api_key"}

// Repository provides database access methods for the application.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new Repository with the database at the given path.
func NewRepository(dbPath string) (*Repository, error) {
	// Owner-only permissions: the settings table holds credentials
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL allows concurrent readers and one writer
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := configureSQLite(db); err != nil {
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	repo := &Repository{DB: db}
	if err := repo.runMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Databases written before an encryption key was configured hold plaintext keys
	if err := repo.encryptStoredSecrets(); err != nil {
		logger.Errorf("Warning: failed to encrypt stored API keys: %v", err)
	}

	if err := repo.checkIntegrity(); err != nil {
		logger.Errorf("Warning: database integrity check failed: %v", err)
	}

	return repo, nil
}

// configureSQLite sets SQLite pragmas for reliability and performance
func configureSQLite(db *sql.DB) error {
	criticalPragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		// Sensor refreshes and service calls write concurrently
		"PRAGMA busy_timeout=30000",
	}

	for _, pragma := range criticalPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set critical pragma %s: %w", pragma, err)
		}
	}

	optionalPragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA auto_vacuum=INCREMENTAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=-4000",
	}

	for _, pragma := range optionalPragmas {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debugf("Failed to set optional pragma %s: %v", pragma, err)
		}
	}

	return nil
}

// checkIntegrity runs a quick integrity check on the database
func (r *Repository) checkIntegrity() error {
	var result string
	err := r.DB.QueryRow("PRAGMA quick_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	logger.Infof("✓ Database integrity check passed")
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.DB.Close()
}

// GracefulClose merges the WAL into the main database file and closes the
// connection. Call on shutdown.
func (r *Repository) GracefulClose() error {
	logger.Infof("Database: initiating graceful shutdown...")

	if _, err := r.DB.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Warnf("Shutdown WAL checkpoint failed: %v", err)
	} else {
		logger.Debugf("✓ WAL checkpoint completed")
	}

	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	logger.Infof("✓ Database shutdown complete")
	return nil
}

// Checkpoint runs a passive WAL checkpoint (non-blocking).
func (r *Repository) Checkpoint() error {
	_, err := r.DB.Exec("PRAGMA wal_checkpoint(PASSIVE)")
	if err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// StartPeriodicCheckpoint starts a background goroutine that runs
// WAL checkpoints at the specified interval. Returns a stop function.
func (r *Repository) StartPeriodicCheckpoint(interval time.Duration) func() {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if err := r.Checkpoint(); err != nil {
					logger.Debugf("Periodic checkpoint failed: %v", err)
				}
			}
		}
	}()

	return func() {
		close(stopCh)
	}
}

// PruneEvents deletes events created before cutoff and returns how many went.
func (r *Repository) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := ExecWithRetry(ctx, r.DB, "DELETE FROM events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// RunMaintenance prunes events older than retentionDays (0 keeps everything)
// and then vacuums and analyzes the database.
func (r *Repository) RunMaintenance(ctx context.Context, retentionDays int) error {
	logger.Infof("Starting database maintenance...")

	if retentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		deleted, err := r.PruneEvents(ctx, cutoff)
		if err != nil {
			logger.Errorf("Failed to prune old events: %v", err)
		} else if deleted > 0 {
			logger.Infof("Pruned %d old events", deleted)
		}
	}

	maintenanceOps := []struct {
		name        string
		sql         string
		warnOnError bool
	}{
		{"incremental vacuum", "PRAGMA incremental_vacuum", true},
		{"database analysis", "ANALYZE", true},
		{"WAL checkpoint", "PRAGMA wal_checkpoint(TRUNCATE)", false},
	}
	for _, op := range maintenanceOps {
		if _, err := r.DB.ExecContext(ctx, op.sql); err != nil {
			if op.warnOnError {
				logger.Errorf("Failed to run %s: %v", op.name, err)
			} else {
				logger.Debugf("%s failed (might not be applicable): %v", op.name, err)
			}
			continue
		}
		logger.Debugf("%s completed", op.name)
	}

	logger.Infof("✓ Database maintenance completed")
	return nil
}

// Stats describes the database file and its table sizes.
type Stats struct {
	SizeBytes     int64            `json:"size_bytes"`
	PageCount     int64            `json:"page_count"`
	PageSize      int64            `json:"page_size"`
	FreelistPages int64            `json:"freelist_pages"`
	JournalMode   string           `json:"journal_mode"`
	TableCounts   map[string]int64 `json:"table_counts"`
}

// GetDatabaseStats returns statistics about the database
func (r *Repository) GetDatabaseStats(ctx context.Context) (*Stats, error) {
	s := &Stats{TableCounts: make(map[string]int64)}

	pragmas := []struct {
		name string
		dest any
	}{
		{"page_count", &s.PageCount},
		{"page_size", &s.PageSize},
		{"freelist_count", &s.FreelistPages},
		{"journal_mode", &s.JournalMode},
	}
	for _, p := range pragmas {
		if err := r.DB.QueryRowContext(ctx, "PRAGMA "+p.name).Scan(p.dest); err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", p.name, err)
		}
	}
	s.SizeBytes = s.PageCount * s.PageSize

	// Security: table names are hardcoded in this slice, not from user input
	tables := []string{"settings", "user_mappings", "service_results", "events", "job_schedules"}
	for _, table := range tables {
		var count int64
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err == nil { // NOSONAR - table name from hardcoded slice
			s.TableCounts[table] = count
		}
	}

	return s, nil
}

func (r *Repository) createMigrationsTable() error {
	_, err := r.DB.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func (r *Repository) currentMigrationVersion() (int, error) {
	var version int
	err := r.DB.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}
	return version, nil
}

// migrationFiles returns sorted SQL migration files from the embedded filesystem.
func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// parseMigrationVersion extracts the version number from a migration filename.
func parseMigrationVersion(file string) (int, bool) {
	var version int
	if _, err := fmt.Sscanf(file, "%d_", &version); err != nil {
		return 0, false
	}
	return version, true
}

// applyMigration executes a single migration file within a transaction.
func (r *Repository) applyMigration(file string, version int) error {
	content, err := migrationsFS.ReadFile("migrations/" + file)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", file, err)
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", file, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration version %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", file, err)
	}
	tx = nil
	return nil
}

func (r *Repository) runMigrations() error {
	if err := r.createMigrationsTable(); err != nil {
		return err
	}

	current, err := r.currentMigrationVersion()
	if err != nil {
		return err
	}

	files, err := migrationFiles()
	if err != nil {
		return err
	}
	logger.Debugf("Found %d embedded migration files", len(files))

	for _, file := range files {
		version, ok := parseMigrationVersion(file)
		if !ok {
			logger.Errorf("Skipping invalid migration file: %s", file)
			continue
		}
		if version <= current {
			continue
		}

		logger.Infof("Applying migration: %s", file)
		if err := r.applyMigration(file, version); err != nil {
			return err
		}
	}

	return nil
}

// encryptStoredSecrets encrypts any plaintext credential rows in settings.
func (r *Repository) encryptStoredSecrets() error {
	if !crypto.EncryptionEnabled() {
		logger.Debugf("API key encryption: skipped (no encryption key configured)")
		return nil
	}

	migrated := 0
	for _, key := range secretSettingKeys {
		var value string
		err := r.DB.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) || value == "" {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", key, err)
		}
		if crypto.IsEncrypted(value) {
			continue
		}

		encrypted, err := crypto.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", key, err)
		}
		if _, err := r.DB.Exec("UPDATE settings SET value = ? WHERE key = ?", encrypted, key); err != nil {
			return fmt.Errorf("failed to update encrypted %s: %w", key, err)
		}
		migrated++
	}

	if migrated > 0 {
		logger.Infof("✓ Encrypted %d stored API keys", migrated)
	}
	return nil
}

// isSecretKey reports whether a settings key is stored encrypted.
func isSecretKey(key string) bool {
	if config.IsSecretSetting(key) {
		return true
	}
	for _, k := range secretSettingKeys {
		if k == key {
			return true
		}
	}
	return false
}
