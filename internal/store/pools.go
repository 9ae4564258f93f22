package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dl-alexandre/rcache/internal/types"
)

func (d *DB) AddPool(ctx context.Context, name string) error {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO cache_pools (name, created_at) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, time.Now().Unix())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPoolExists, name)
	}
	return nil
}

func (d *DB) ListPools(ctx context.Context) (pools []string, err error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM cache_pools ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pools = append(pools, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pools, nil
}

// AddDirective stores d and returns its assigned ID. Duplicate paths are
// allowed, as they are by the cache service.
func (d *DB) AddDirective(ctx context.Context, entry types.DirectiveEntry) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO cache_directives (
			path, pool, replication, files_needed, files_cached, bytes_needed, bytes_cached
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.Path, entry.Pool, entry.Replication, entry.FilesNeeded, entry.FilesCached, entry.BytesNeeded, entry.BytesCached)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) ListDirectives(ctx context.Context, pool string) (entries []types.DirectiveEntry, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, path, pool, replication, files_needed, files_cached, bytes_needed, bytes_cached
		FROM cache_directives WHERE pool = ? ORDER BY id
	`, pool)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var e types.DirectiveEntry
		if err := rows.Scan(&e.ID, &e.Path, &e.Pool, &e.Replication, &e.FilesNeeded, &e.FilesCached, &e.BytesNeeded, &e.BytesCached); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
