package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// RefreshArchive stores refresh reports and the records each one produced.
type RefreshArchive struct {
	pool *pgxpool.Pool
}

var _ domain.RefreshArchive = (*RefreshArchive)(nil)

func NewRefreshArchive(pool *pgxpool.Pool) *RefreshArchive {
	return &RefreshArchive{pool: pool}
}

// Save writes the report and its records in one transaction.
func (a *RefreshArchive) Save(ctx context.Context, report domain.RefreshReport, records map[domain.SensorKind][]domain.DisplayRecord) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	failures := report.Failures
	if failures == nil {
		failures = []string{}
	}
	counts := report.Counts
	if counts == nil {
		counts = map[domain.SensorKind]int{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_reports (id, started_at, finished_at, counts, duplicate_steps, failures)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		report.ID, report.StartedAt, report.FinishedAt, counts, report.DuplicateSteps, failures)
	if err != nil {
		return fmt.Errorf("failed to insert refresh report: %w", err)
	}

	var rows [][]any
	for _, kind := range domain.SensorKinds {
		for i, rec := range records[kind] {
			rows = append(rows, []any{report.ID, string(kind), i, rec.Title, rec.Category, rec.Fields})
		}
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"refresh_records"},
			[]string{"report_id", "kind", "position", "title", "category", "fields"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy refresh records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit refresh report: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (a *RefreshArchive) Recent(ctx context.Context, limit int) ([]domain.RefreshReport, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, started_at, finished_at, counts, duplicate_steps, failures
		FROM refresh_reports
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh reports: %w", err)
	}

	reports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RefreshReport, error) {
		var r domain.RefreshReport
		err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Counts, &r.DuplicateSteps, &r.Failures)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan refresh reports: %w", err)
	}
	return reports, nil
}

// Records returns the records of kind archived with a report, in display order.
func (a *RefreshArchive) Records(ctx context.Context, reportID uuid.UUID, kind domain.SensorKind) ([]domain.DisplayRecord, error) {
	var exists bool
	if err := a.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM refresh_reports WHERE id = $1)`, reportID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up refresh report: %w", err)
	}
	if !exists {
		return nil, domain.ErrRefreshNotFound
	}

	rows, err := a.pool.Query(ctx, `
		SELECT title, category, fields
		FROM refresh_records
		WHERE report_id = $1 AND kind = $2
		ORDER BY position`, reportID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DisplayRecord, error) {
		var r domain.DisplayRecord
		err := row.Scan(&r.Title, &r.Category, &r.Fields)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan refresh records: %w", err)
	}
	return records, nil
}

// Prune deletes reports (and, by cascade, their records) that finished before
// cutoff. With dryRun set it only counts them.
func (a *RefreshArchive) Prune(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error) {
	if dryRun {
		var n int64
		err := a.pool.QueryRow(ctx, `SELECT count(*) FROM refresh_reports WHERE finished_at < $1`, cutoff).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to count prunable reports: %w", err)
		}
		return n, nil
	}

	tag, err := a.pool.Exec(ctx, `DELETE FROM refresh_reports WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune refresh reports: %w", err)
	}
	return tag.RowsAffected(), nil
}
