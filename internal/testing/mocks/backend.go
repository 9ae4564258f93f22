package mocks

import (
	"context"
	"path"
	"sync"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/types"
)

// Backend is an in-memory backend.Backend. Each method calls its Func
// field when set and falls back to the in-memory tree otherwise.
type Backend struct {
	mu         sync.Mutex
	children   map[string][]types.FileEntry
	files      map[string]types.FileEntry
	Pools      []string
	Directives []types.DirectiveEntry
	Created    []types.DirectiveRequest
	Listed     []string

	ListStatusFunc      func(ctx context.Context, dir string) ([]types.FileEntry, error)
	ListPoolsFunc       func(ctx context.Context) ([]string, error)
	ListDirectivesFunc  func(ctx context.Context, pool string) ([]types.DirectiveEntry, error)
	CreateDirectiveFunc func(ctx context.Context, req types.DirectiveRequest) error
}

var _ backend.Backend = (*Backend)(nil)

// NewBackend creates an empty backend knowing the given pools
func NewBackend(pools ...string) *Backend {
	return &Backend{
		children: make(map[string][]types.FileEntry),
		files:    make(map[string]types.FileEntry),
		Pools:    pools,
	}
}

// AddFile adds a regular file and any missing parent directories
func (b *Backend) AddFile(p string, size int64) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := types.FileEntry{Path: p, Size: size}
	b.files[p] = entry
	b.link(entry)
	return b
}

// AddDir adds an empty directory and any missing parents
func (b *Backend) AddDir(p string) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.children[p]; !ok {
		b.children[p] = nil
	}
	b.link(types.FileEntry{Path: p, IsDir: true})
	return b
}

func (b *Backend) link(entry types.FileEntry) {
	if entry.Path == "/" {
		return
	}
	parent := path.Dir(entry.Path)
	for _, c := range b.children[parent] {
		if c.Path == entry.Path {
			return
		}
	}
	b.children[parent] = append(b.children[parent], entry)
	b.link(types.FileEntry{Path: parent, IsDir: true})
}

// AddDirective registers an existing directive
func (b *Backend) AddDirective(d types.DirectiveEntry) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Directives = append(b.Directives, d)
	return b
}

func (b *Backend) ListStatus(ctx context.Context, dir string) ([]types.FileEntry, error) {
	b.mu.Lock()
	b.Listed = append(b.Listed, dir)
	b.mu.Unlock()
	if b.ListStatusFunc != nil {
		return b.ListStatusFunc(ctx, dir)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if entries, ok := b.children[dir]; ok {
		return append([]types.FileEntry(nil), entries...), nil
	}
	if f, ok := b.files[dir]; ok {
		return []types.FileEntry{f}, nil
	}
	return nil, &backend.Error{Op: "listStatus", Path: dir, Err: backend.ErrNotFound}
}

func (b *Backend) ListPools(ctx context.Context) ([]string, error) {
	if b.ListPoolsFunc != nil {
		return b.ListPoolsFunc(ctx)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Pools...), nil
}

func (b *Backend) ListDirectives(ctx context.Context, pool string) ([]types.DirectiveEntry, error) {
	if b.ListDirectivesFunc != nil {
		return b.ListDirectivesFunc(ctx, pool)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.DirectiveEntry
	for _, d := range b.Directives {
		if d.Pool == pool {
			out = append(out, d)
		}
	}
	return out, nil
}

// CreateDirective records req; by default the new directive is reported
// fully cached by later ListDirectives calls
func (b *Backend) CreateDirective(ctx context.Context, req types.DirectiveRequest) error {
	if b.CreateDirectiveFunc != nil {
		if err := b.CreateDirectiveFunc(ctx, req); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Created = append(b.Created, req)
	size := b.files[req.Path].Size
	b.Directives = append(b.Directives, types.DirectiveEntry{
		ID:          int64(len(b.Directives) + 1),
		Path:        req.Path,
		Pool:        req.Pool,
		Replication: req.Replication,
		FilesNeeded: 1,
		FilesCached: 1,
		BytesNeeded: size * int64(req.Replication),
		BytesCached: size * int64(req.Replication),
	})
	return nil
}

// AddPool implements backend.PoolCreator
func (b *Backend) AddPool(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Pools = append(b.Pools, name)
	return nil
}

// CreatedPaths returns the paths of all created directives in order
func (b *Backend) CreatedPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, len(b.Created))
	for i, req := range b.Created {
		paths[i] = req.Path
	}
	return paths
}
