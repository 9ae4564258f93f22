// Package local is a sandbox backend: files come from an afero filesystem
// and pools and directives live in the SQLite store. A created directive
// is reported fully cached straight away.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/store"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/spf13/afero"
)

type Backend struct {
	fs    afero.Fs
	store *store.DB
}

var (
	_ backend.Backend         = (*Backend)(nil)
	_ backend.RecursiveLister = (*Backend)(nil)
	_ backend.PoolCreator     = (*Backend)(nil)
)

// New serves fs, whose root stands for the HDFS root
func New(fs afero.Fs, db *store.DB) *Backend {
	return &Backend{fs: fs, store: db}
}

// NewOS serves the local directory root
func NewOS(root string, db *store.DB) *Backend {
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), db)
}

func (b *Backend) ListStatus(ctx context.Context, dir string) ([]types.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := resolver.Normalize(dir)
	if err != nil {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: err}
	}
	dir = clean

	info, err := b.fs.Stat(dir)
	if err != nil {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: mapFsError(err)}
	}
	if !info.IsDir() {
		return []types.FileEntry{{Path: dir, Size: info.Size()}}, nil
	}

	infos, err := afero.ReadDir(b.fs, dir)
	if err != nil {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: mapFsError(err)}
	}
	entries := make([]types.FileEntry, 0, len(infos))
	for _, fi := range infos {
		e := types.FileEntry{Path: path.Join(dir, fi.Name()), IsDir: fi.IsDir()}
		if !fi.IsDir() {
			e.Size = fi.Size()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (b *Backend) ListRecursive(ctx context.Context, root string) ([]types.FileEntry, error) {
	clean, err := resolver.Normalize(root)
	if err != nil {
		return nil, &backend.Error{Op: "listRecursive", Path: root, Err: err}
	}
	root = clean

	var entries []types.FileEntry
	err = afero.Walk(b.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() && p == root {
			return nil
		}
		e := types.FileEntry{Path: resolver.MustNormalize(p), IsDir: info.IsDir()}
		if !info.IsDir() {
			e.Size = info.Size()
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return entries, &backend.Error{Op: "listRecursive", Path: root, Err: mapFsError(err)}
	}
	return entries, nil
}

func (b *Backend) ListPools(ctx context.Context) ([]string, error) {
	pools, err := b.store.ListPools(ctx)
	return pools, backend.Wrap("listPools", "", err)
}

func (b *Backend) AddPool(ctx context.Context, name string) error {
	return backend.Wrap("addPool", name, b.store.AddPool(ctx, name))
}

func (b *Backend) ListDirectives(ctx context.Context, pool string) ([]types.DirectiveEntry, error) {
	entries, err := b.store.ListDirectives(ctx, pool)
	return entries, backend.Wrap("listDirectives", pool, err)
}

// CreateDirective pins an existing file. Like the cache service it
// rejects unknown pools and missing paths.
func (b *Backend) CreateDirective(ctx context.Context, req types.DirectiveRequest) error {
	p, err := resolver.Normalize(req.Path)
	if err != nil {
		return &backend.Error{Op: "createDirective", Path: req.Path, Err: err}
	}
	if err := b.requirePool(ctx, req.Pool); err != nil {
		return &backend.Error{Op: "createDirective", Path: p, Err: err}
	}

	var size int64
	var files int64
	err = afero.Walk(b.fs, p, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
			files++
		}
		return nil
	})
	if err != nil {
		return &backend.Error{Op: "createDirective", Path: p, Err: mapFsError(err)}
	}

	repl := int64(req.Replication)
	_, err = b.store.AddDirective(ctx, types.DirectiveEntry{
		Path:        p,
		Pool:        req.Pool,
		Replication: req.Replication,
		FilesNeeded: files,
		FilesCached: files,
		BytesNeeded: size * repl,
		BytesCached: size * repl,
	})
	return backend.Wrap("createDirective", p, err)
}

func (b *Backend) requirePool(ctx context.Context, pool string) error {
	pools, err := b.store.ListPools(ctx)
	if err != nil {
		return err
	}
	for _, name := range pools {
		if name == pool {
			return nil
		}
	}
	return fmt.Errorf("unknown cache pool %s", pool)
}

func mapFsError(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", backend.ErrNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %w", backend.ErrPermission, err)
	}
	return err
}
