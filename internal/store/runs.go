package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `r.id, r.pool, r.root, r.policy, r.started_at, r.file_count, r.directive_count,
		       r.matched, r.partial, r.orphan_files, r.orphan_directives, r.fingerprint, r.error,
		       (SELECT p.fingerprint FROM audit_runs p
		        WHERE p.pool = r.pool AND p.root = r.root AND p.started_at < r.started_at
		        ORDER BY p.started_at DESC LIMIT 1)`

// InsertRun stores run and its records in one transaction
func (d *DB) InsertRun(ctx context.Context, run Run, records []RunRecord) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_runs (
			id, pool, root, policy, started_at, file_count, directive_count,
			matched, partial, orphan_files, orphan_directives, fingerprint, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Pool, run.Root, run.Policy, run.StartedAt.UnixNano(), run.Files, run.Directives,
		run.Matched, run.Partial, run.OrphanFiles, run.OrphanDirectives, run.Fingerprint, nullString(run.Error))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_records (run_id, seq, kind, path, fraction) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, run.ID, rec.Seq, rec.Kind, rec.Path, rec.Fraction); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the newest runs first. An empty pool lists every pool;
// limit <= 0 lists everything.
func (d *DB) ListRuns(ctx context.Context, pool string, limit int) (runs []Run, err error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM audit_runs r
		WHERE (? = '' OR r.pool = ?)
		ORDER BY r.started_at DESC
		LIMIT ?
	`, pool, pool, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns one run and its records in report order
func (d *DB) GetRun(ctx context.Context, id string) (*Run, []RunRecord, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM audit_runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, nil, err
	}

	records, err := d.listRecords(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &run, records, nil
}

// ResolveRunID expands a unique prefix of a run ID to the full ID
func (d *DB) ResolveRunID(ctx context.Context, prefix string) (id string, err error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id FROM audit_runs WHERE substr(id, 1, ?) = ? ORDER BY id LIMIT 2
	`, len(prefix), prefix)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
}

func (d *DB) listRecords(ctx context.Context, runID string) (records []RunRecord, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, kind, path, fraction FROM audit_records WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var rec RunRecord
		var path sql.NullString
		var fraction sql.NullFloat64
		if err := rows.Scan(&rec.Seq, &rec.Kind, &path, &fraction); err != nil {
			return nil, err
		}
		rec.Path = path.String
		rec.Fraction = fraction.Float64
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanRun(scanner interface {
	Scan(dest ...interface{}) error
}) (Run, error) {
	var run Run
	var startedAt int64
	var runErr, previous sql.NullString
	err := scanner.Scan(&run.ID, &run.Pool, &run.Root, &run.Policy, &startedAt, &run.Files, &run.Directives,
		&run.Matched, &run.Partial, &run.OrphanFiles, &run.OrphanDirectives, &run.Fingerprint, &runErr, &previous)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(0, startedAt).UTC()
	run.Error = runErr.String
	run.PreviousFingerprint = previous.String
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
