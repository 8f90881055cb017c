package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"order-analytics/internal/models"
)

// ErrRunNotFound is returned when no report run has the requested id
var ErrRunNotFound = errors.New("report run not found")

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS report_runs (
		run_id      TEXT PRIMARY KEY,
		report      TEXT NOT NULL,
		as_of       DATE NOT NULL,
		row_count   INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL,
		status      TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`

// EnsureRunsTable creates the report_runs table when it does not exist
func (s *Store) EnsureRunsTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create report_runs: %w", err)
	}
	return nil
}

// RecordRun stores the outcome of one report computation
func (s *Store) RecordRun(ctx context.Context, run *models.ReportRun) error {
	query := s.db.Rebind(`
		INSERT INTO report_runs (run_id, report, as_of, row_count, duration_ms, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		run.RunID, run.Report, run.AsOf, run.RowCount, run.DurationMs, run.Status, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// GetRunByID retrieves a report run by id
func (s *Store) GetRunByID(ctx context.Context, runID string) (*models.ReportRun, error) {
	var run models.ReportRun
	err := s.db.GetContext(ctx, &run, s.db.Rebind(`
		SELECT run_id, report, as_of, row_count, duration_ms, status, created_at
		FROM report_runs WHERE run_id = ?`), runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunsByReport retrieves the latest runs of a report, newest first
func (s *Store) GetRunsByReport(ctx context.Context, report string, limit int) ([]models.ReportRun, error) {
	var runs []models.ReportRun
	err := s.db.SelectContext(ctx, &runs, s.db.Rebind(`
		SELECT run_id, report, as_of, row_count, duration_ms, status, created_at
		FROM report_runs WHERE report = ? ORDER BY created_at DESC LIMIT ?`), report, limit)
	return runs, err
}
