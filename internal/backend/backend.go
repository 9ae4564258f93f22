// Package backend defines what rcache needs from a filesystem and a cache
// directive service, and the traversal helpers built on top of it.
package backend

import (
	"context"

	"github.com/dl-alexandre/rcache/internal/types"
)

// FileLister lists one directory level. Listing a regular file returns the
// file itself.
type FileLister interface {
	ListStatus(ctx context.Context, dir string) ([]types.FileEntry, error)
}

// DirectiveService is the centralized cache administration surface
type DirectiveService interface {
	ListPools(ctx context.Context) ([]string, error)
	ListDirectives(ctx context.Context, pool string) ([]types.DirectiveEntry, error)
	CreateDirective(ctx context.Context, req types.DirectiveRequest) error
}

// Backend is a filesystem together with its cache directive service
type Backend interface {
	FileLister
	DirectiveService
}

// RecursiveLister is implemented by backends that can list a whole tree in
// one call. ListFilesRecursive prefers it over walking. On error it may
// return the entries read before the failure.
type RecursiveLister interface {
	ListRecursive(ctx context.Context, root string) ([]types.FileEntry, error)
}

// PoolCreator is implemented by backends that can create cache pools
type PoolCreator interface {
	AddPool(ctx context.Context, name string) error
}

type composite struct {
	FileLister
	DirectiveService
}

// Compose serves files from one source and directives from another, for
// example WebHDFS listings with cacheadmin directives.
func Compose(files FileLister, directives DirectiveService) Backend {
	return &composite{FileLister: files, DirectiveService: directives}
}

func (c *composite) ListRecursive(ctx context.Context, root string) ([]types.FileEntry, error) {
	if rl, ok := c.FileLister.(RecursiveLister); ok {
		return rl.ListRecursive(ctx, root)
	}
	return collectFiles(ctx, c.FileLister, root)
}

func (c *composite) AddPool(ctx context.Context, name string) error {
	if pc, ok := c.DirectiveService.(PoolCreator); ok {
		return pc.AddPool(ctx, name)
	}
	return &Error{Op: "addPool", Path: name, Err: ErrUnsupported}
}
