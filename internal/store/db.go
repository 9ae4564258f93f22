// Package store persists cache pools, directives and audit history in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var (
	ErrPoolExists     = errors.New("pool already exists")
	ErrRunNotFound    = errors.New("audit run not found")
	ErrAmbiguousRunID = errors.New("audit run ID prefix is ambiguous")
)

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_pools (
	name TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cache_directives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	pool TEXT NOT NULL,
	replication INTEGER NOT NULL,
	files_needed INTEGER NOT NULL,
	files_cached INTEGER NOT NULL,
	bytes_needed INTEGER NOT NULL,
	bytes_cached INTEGER NOT NULL,
	FOREIGN KEY (pool) REFERENCES cache_pools(name)
);

CREATE INDEX IF NOT EXISTS idx_directives_pool ON cache_directives(pool, path);

CREATE TABLE IF NOT EXISTS audit_runs (
	id TEXT PRIMARY KEY,
	pool TEXT NOT NULL,
	root TEXT NOT NULL,
	policy TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	file_count INTEGER NOT NULL,
	directive_count INTEGER NOT NULL,
	matched INTEGER NOT NULL,
	partial INTEGER NOT NULL,
	orphan_files INTEGER NOT NULL,
	orphan_directives INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_pool_root ON audit_runs(pool, root, started_at);

CREATE TABLE IF NOT EXISTS audit_records (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	path TEXT,
	fraction REAL,
	PRIMARY KEY (run_id, seq),
	FOREIGN KEY (run_id) REFERENCES audit_runs(id)
);
`
