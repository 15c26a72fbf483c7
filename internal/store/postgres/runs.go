package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/uniimport/internal/store"
)

const runColumns = `id, profile, file_name, dry_run, started_at, finished_at,
	total_rows, created, skipped, failed, not_attempted, report, client_ip, user_agent`

func scanRun(row pgx.Row) (store.ImportRun, error) {
	var r store.ImportRun
	err := row.Scan(&r.ID, &r.Profile, &r.FileName, &r.DryRun, &r.StartedAt, &r.FinishedAt,
		&r.TotalRows, &r.Created, &r.Skipped, &r.Failed, &r.NotAttempted, &r.Report, &r.ClientIP, &r.UserAgent)
	return r, mapError(err)
}

func (t *tx) RecordImportRun(ctx context.Context, r store.ImportRun) error {
	report := r.Report
	if len(report) == 0 {
		report = []byte("{}")
	}
	_, err := t.db().Exec(ctx,
		`INSERT INTO import_runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		newID(r.ID), r.Profile, r.FileName, r.DryRun, r.StartedAt, r.FinishedAt,
		r.TotalRows, r.Created, r.Skipped, r.Failed, r.NotAttempted, report, r.ClientIP, r.UserAgent)
	return mapError(err)
}

// ListImportRuns returns the newest runs first. A non-positive limit lists
// every run.
func (t *tx) ListImportRuns(ctx context.Context, limit int) ([]store.ImportRun, error) {
	query := `SELECT ` + runColumns + ` FROM import_runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := t.db().Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []store.ImportRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, mapError(rows.Err())
}

func (t *tx) GetImportRun(ctx context.Context, id uuid.UUID) (store.ImportRun, error) {
	return scanRun(t.db().QueryRow(ctx,
		`SELECT `+runColumns+` FROM import_runs WHERE id = $1`, id))
}

func (t *tx) PurgeImportRuns(ctx context.Context, before time.Time) (int64, error) {
	tag, err := t.db().Exec(ctx, `DELETE FROM import_runs WHERE started_at < $1`, before)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
