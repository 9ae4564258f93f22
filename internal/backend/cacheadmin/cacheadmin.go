// Package cacheadmin drives HDFS through the hdfs command line: file
// listings via `hdfs dfs -ls` and centralized cache management via
// `hdfs cacheadmin`.
package cacheadmin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/types"
)

const DefaultBinary = "hdfs"

type Config struct {
	// Binary is the hdfs executable; DefaultBinary when empty
	Binary string
	// Runner executes commands; an ExecRunner when nil
	Runner Runner
	Logger logging.Logger
}

type Client struct {
	binary string
	runner Runner
	logger logging.Logger
}

var (
	_ backend.Backend         = (*Client)(nil)
	_ backend.RecursiveLister = (*Client)(nil)
	_ backend.PoolCreator     = (*Client)(nil)
)

func New(cfg Config) *Client {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoOpLogger()
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{Logger: cfg.Logger}
	}
	return &Client{binary: cfg.Binary, runner: cfg.Runner, logger: cfg.Logger}
}

func (c *Client) run(ctx context.Context, op, path string, args ...string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		return nil, &backend.Error{Op: op, Path: path, Err: classify(err)}
	}
	return out, nil
}

func (c *Client) ListStatus(ctx context.Context, dir string) ([]types.FileEntry, error) {
	out, err := c.run(ctx, "listStatus", dir, "dfs", "-ls", dir)
	if err != nil {
		return nil, err
	}
	entries, err := parseLs(out)
	return entries, backend.Wrap("listStatus", dir, err)
}

func (c *Client) ListRecursive(ctx context.Context, root string) ([]types.FileEntry, error) {
	out, err := c.run(ctx, "listRecursive", root, "dfs", "-ls", "-R", root)
	if err != nil {
		return nil, err
	}
	entries, err := parseLs(out)
	return entries, backend.Wrap("listRecursive", root, err)
}

func (c *Client) ListPools(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "listPools", "", "cacheadmin", "-listPools")
	if err != nil {
		return nil, err
	}
	return parsePools(out), nil
}

func (c *Client) ListDirectives(ctx context.Context, pool string) ([]types.DirectiveEntry, error) {
	out, err := c.run(ctx, "listDirectives", pool, "cacheadmin", "-listDirectives", "-stats", "-pool", pool)
	if err != nil {
		return nil, err
	}
	entries, err := parseDirectives(out)
	return entries, backend.Wrap("listDirectives", pool, err)
}

func (c *Client) CreateDirective(ctx context.Context, req types.DirectiveRequest) error {
	_, err := c.run(ctx, "createDirective", req.Path,
		"cacheadmin", "-addDirective",
		"-path", req.Path,
		"-pool", req.Pool,
		"-replication", strconv.Itoa(req.Replication),
	)
	return err
}

func (c *Client) AddPool(ctx context.Context, name string) error {
	_, err := c.run(ctx, "addPool", name, "cacheadmin", "-addPool", name)
	return err
}

// classify maps well-known hdfs messages onto backend sentinels
func classify(err error) error {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return err
	}
	switch msg := cmdErr.Stderr; {
	case strings.Contains(msg, "No such file or directory"), strings.Contains(msg, "FileNotFoundException"):
		return fmt.Errorf("%w: %w", backend.ErrNotFound, err)
	case strings.Contains(msg, "Permission denied"), strings.Contains(msg, "AccessControlException"):
		return fmt.Errorf("%w: %w", backend.ErrPermission, err)
	case strings.Contains(msg, "GSSException"), strings.Contains(msg, "SIMPLE authentication is not enabled"):
		return fmt.Errorf("%w: %w", backend.ErrUnauthorized, err)
	}
	return err
}
