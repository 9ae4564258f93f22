package backend

import (
	"container/heap"
	"context"
	"errors"

	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/types"
)

// SkipDir returned from a WalkFunc for a directory keeps Walk out of it
var SkipDir = errors.New("skip this directory")

// WalkFunc is called for every entry below the root. Returning SkipDir for
// a directory prunes it; any other error stops the walk.
type WalkFunc func(entry types.FileEntry) error

// pathHeap is a min-heap of directory paths in hierarchical order
type pathHeap []string

func (h pathHeap) Len() int           { return len(h) }
func (h pathHeap) Less(i, j int) bool { return resolver.Less(h[i], h[j]) }
func (h pathHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *pathHeap) Push(x any) { *h = append(*h, x.(string)) }

func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

// Walk lists root and every directory reachable from it, smallest pending
// path first, and calls fn once per entry. A root that is a regular file
// is passed to fn as its only entry. Listing errors abort the walk and are
// returned as *Error.
func Walk(ctx context.Context, l FileLister, root string, fn WalkFunc) error {
	start, err := resolver.Normalize(root)
	if err != nil {
		return &Error{Op: "walk", Path: root, Err: err}
	}

	pending := &pathHeap{start}
	// a file or directory is reported at most once, even if a backend
	// repeats it across listings
	seen := make(map[string]bool)

	for pending.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := heap.Pop(pending).(string)

		entries, err := l.ListStatus(ctx, dir)
		if err != nil {
			return Wrap("listStatus", dir, err)
		}

		for _, entry := range entries {
			p, err := resolver.Normalize(entry.Path)
			if err != nil {
				return &Error{Op: "listStatus", Path: dir, Err: err}
			}
			entry.Path = p

			if seen[p] {
				continue
			}
			seen[p] = true

			if err := fn(entry); err != nil {
				if errors.Is(err, SkipDir) && entry.IsDir {
					continue
				}
				return err
			}
			if entry.IsDir {
				heap.Push(pending, p)
			}
		}
	}
	return nil
}

// ListFilesRecursive returns every regular file under root. It uses the
// backend's RecursiveLister when there is one. On failure the files
// collected so far are returned with the error: those walked before the
// failing listing, or those a RecursiveLister returned with its error.
func ListFilesRecursive(ctx context.Context, l FileLister, root string) ([]types.FileEntry, error) {
	if rl, ok := l.(RecursiveLister); ok {
		entries, err := rl.ListRecursive(ctx, root)
		return onlyFiles(entries), Wrap("listRecursive", root, err)
	}
	return collectFiles(ctx, l, root)
}

func collectFiles(ctx context.Context, l FileLister, root string) ([]types.FileEntry, error) {
	var files []types.FileEntry
	err := Walk(ctx, l, root, func(entry types.FileEntry) error {
		if !entry.IsDir {
			files = append(files, entry)
		}
		return nil
	})
	return files, err
}

func onlyFiles(entries []types.FileEntry) []types.FileEntry {
	files := make([]types.FileEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, e)
		}
	}
	return files
}
