package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mescon/Hassarr/internal/crypto"
)

// GetSetting returns the value stored under key, decrypted when it is a
// credential. Missing keys return ErrNotFound.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if isSecretKey(key) {
		plain, err := crypto.Decrypt(value)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt setting %s: %w", key, err)
		}
		return plain, nil
	}
	return value, nil
}

// SetSetting stores value under key, encrypting credentials.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	if isSecretKey(key) && value != "" {
		enc, err := crypto.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
		}
		value = enc
	}
	_, err := ExecWithRetry(ctx, r.DB, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes key. Deleting a missing key is not an error.
func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	if _, err := ExecWithRetry(ctx, r.DB, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// ListSettings returns every setting, with credentials masked.
func (r *Repository) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := QueryWithRetry(ctx, r.DB, "SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if isSecretKey(key) {
			plain, err := crypto.Decrypt(value)
			if err != nil {
				plain = ""
			}
			value = crypto.Mask(plain)
		}
		out[key] = value
	}
	return out, rows.Err()
}
