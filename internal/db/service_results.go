package db

import (
	"context"
	"encoding/json"
	"fmt"
)

// SaveServiceResult stores the JSON-encoded latest result under name.
func (r *Repository) SaveServiceResult(ctx context.Context, name string, result json.RawMessage) error {
	_, err := ExecWithRetry(ctx, r.DB, `
		INSERT INTO service_results (name, result, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET result = excluded.result, updated_at = CURRENT_TIMESTAMP
	`, name, string(result))
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", name, err)
	}
	return nil
}

// LoadServiceResults returns every stored result keyed by name.
func (r *Repository) LoadServiceResults(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := QueryWithRetry(ctx, r.DB, "SELECT name, result FROM service_results")
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var name, result string
		if err := rows.Scan(&name, &result); err != nil {
			return nil, err
		}
		out[name] = json.RawMessage(result)
	}
	return out, rows.Err()
}
