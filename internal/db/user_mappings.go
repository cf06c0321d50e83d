package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserMapping links a front-end user to the Overseerr user that requests
// and removals are made as.
type UserMapping struct {
	HAUserID        string    `json:"ha_user_id"`
	OverseerrUserID int64     `json:"overseerr_user_id"`
	Username        string    `json:"username,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const userMappingColumns = "ha_user_id, overseerr_user_id, COALESCE(username, ''), created_at, updated_at"

func scanUserMapping(row interface{ Scan(...any) error }) (*UserMapping, error) {
	var m UserMapping
	if err := row.Scan(&m.HAUserID, &m.OverseerrUserID, &m.Username, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetUserMapping returns the mapping for haUserID, or ErrNotFound.
func (r *Repository) GetUserMapping(ctx context.Context, haUserID string) (*UserMapping, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userMappingColumns+" FROM user_mappings WHERE ha_user_id = ?", haUserID)
	m, err := scanUserMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user mapping: %w", err)
	}
	return m, nil
}

// ListUserMappings returns all mappings ordered by front-end user id.
func (r *Repository) ListUserMappings(ctx context.Context) ([]UserMapping, error) {
	rows, err := QueryWithRetry(ctx, r.DB, "SELECT "+userMappingColumns+" FROM user_mappings ORDER BY ha_user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list user mappings: %w", err)
	}
	defer rows.Close()

	out := []UserMapping{}
	for rows.Next() {
		m, err := scanUserMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// UpsertUserMapping creates or replaces the mapping for m.HAUserID.
func (r *Repository) UpsertUserMapping(ctx context.Context, m UserMapping) error {
	if m.HAUserID == "" {
		return errors.New("ha_user_id is required")
	}
	if m.OverseerrUserID <= 0 {
		return errors.New("overseerr_user_id must be positive")
	}
	_, err := ExecWithRetry(ctx, r.DB, `
		INSERT INTO user_mappings (ha_user_id, overseerr_user_id, username, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(ha_user_id) DO UPDATE SET
			overseerr_user_id = excluded.overseerr_user_id,
			username = excluded.username,
			updated_at = CURRENT_TIMESTAMP
	`, m.HAUserID, m.OverseerrUserID, m.Username)
	if err != nil {
		return fmt.Errorf("failed to save user mapping: %w", err)
	}
	return nil
}

// DeleteUserMapping removes the mapping for haUserID, or returns ErrNotFound.
func (r *Repository) DeleteUserMapping(ctx context.Context, haUserID string) error {
	res, err := ExecWithRetry(ctx, r.DB, "DELETE FROM user_mappings WHERE ha_user_id = ?", haUserID)
	if err != nil {
		return fmt.Errorf("failed to delete user mapping: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
