package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// JobSchedule runs an Overseerr job on a cron expression.
type JobSchedule struct {
	ID             int64     `json:"id"`
	JobID          string    `json:"job_id"`
	CronExpression string    `json:"cron_expression"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
}

const jobScheduleColumns = "id, job_id, cron_expression, enabled, created_at"

func scanJobSchedule(row interface{ Scan(...any) error }) (*JobSchedule, error) {
	var s JobSchedule
	if err := row.Scan(&s.ID, &s.JobID, &s.CronExpression, &s.Enabled, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListJobSchedules returns schedules ordered by id. enabledOnly filters out
// disabled ones.
func (r *Repository) ListJobSchedules(ctx context.Context, enabledOnly bool) ([]JobSchedule, error) {
	query := "SELECT " + jobScheduleColumns + " FROM job_schedules"
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	rows, err := QueryWithRetry(ctx, r.DB, query+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list job schedules: %w", err)
	}
	defer rows.Close()

	out := []JobSchedule{}
	for rows.Next() {
		s, err := scanJobSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetJobSchedule returns one schedule, or ErrNotFound.
func (r *Repository) GetJobSchedule(ctx context.Context, id int64) (*JobSchedule, error) {
	s, err := scanJobSchedule(r.DB.QueryRowContext(ctx, "SELECT "+jobScheduleColumns+" FROM job_schedules WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job schedule: %w", err)
	}
	return s, nil
}

// CreateJobSchedule inserts an enabled schedule and returns its id.
func (r *Repository) CreateJobSchedule(ctx context.Context, jobID, cronExpr string) (int64, error) {
	res, err := ExecWithRetry(ctx, r.DB,
		"INSERT INTO job_schedules (job_id, cron_expression, enabled) VALUES (?, ?, 1)", jobID, cronExpr)
	if err != nil {
		return 0, fmt.Errorf("failed to create job schedule: %w", err)
	}
	return res.LastInsertId()
}

// UpdateJobSchedule replaces the expression and enabled flag, or returns ErrNotFound.
func (r *Repository) UpdateJobSchedule(ctx context.Context, id int64, cronExpr string, enabled bool) error {
	res, err := ExecWithRetry(ctx, r.DB,
		"UPDATE job_schedules SET cron_expression = ?, enabled = ? WHERE id = ?", cronExpr, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update job schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJobSchedule removes a schedule, or returns ErrNotFound.
func (r *Repository) DeleteJobSchedule(ctx context.Context, id int64) error {
	res, err := ExecWithRetry(ctx, r.DB, "DELETE FROM job_schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete job schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
