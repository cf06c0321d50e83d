package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mescon/Hassarr/internal/domain"
)

// InsertEvent persists e and returns its row id. Zero CreatedAt and
// EventVersion are filled with now (UTC) and 1.
func (r *Repository) InsertEvent(ctx context.Context, e *domain.Event) (int64, error) {
	return InsertEvent(ctx, r.DB, e)
}

// InsertEvent is the *sql.DB form used by the event bus.
func InsertEvent(ctx context.Context, db *sql.DB, e *domain.Event) (int64, error) {
	data, err := json.Marshal(e.EventData)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event data: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.EventVersion == 0 {
		e.EventVersion = 1
	}

	res, err := ExecWithRetry(ctx, db, `
		INSERT INTO events (aggregate_type, aggregate_id, event_type, event_data, event_version, created_at, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.AggregateType, e.AggregateID, e.EventType, string(data), e.EventVersion, e.CreatedAt, nullString(e.UserID))
	if err != nil {
		return 0, fmt.Errorf("failed to persist event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return e.ID, nil
}

// EventQuery filters ListEvents. Zero fields match everything.
type EventQuery struct {
	EventType   domain.EventType
	AggregateID string
	Since       time.Time
	Limit       int
	Offset      int
}

// ListEvents returns matching events newest first, plus the total match count.
func (r *Repository) ListEvents(ctx context.Context, q EventQuery) ([]domain.Event, int, error) {
	var where []string
	var args []any
	if q.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(q.EventType))
	}
	if q.AggregateID != "" {
		where = append(where, "aggregate_id = ?")
		args = append(args, q.AggregateID)
	}
	if !q.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, q.Since.UTC())
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := QueryWithRetry(ctx, r.DB, `
		SELECT id, aggregate_type, aggregate_id, event_type, event_data, event_version, created_at, COALESCE(user_id, '')
		FROM events`+clause+` ORDER BY id DESC LIMIT ? OFFSET ?`, append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var data string
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &data, &e.EventVersion, &e.CreatedAt, &e.UserID); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(data), &e.EventData); err != nil {
			e.EventData = map[string]interface{}{"raw": data}
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
