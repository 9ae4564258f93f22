// Package resolver turns user and backend supplied paths into the canonical
// form used for ordering and matching: absolute, cleaned, with any
// hdfs://host:port or webhdfs:// prefix removed.
package resolver

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	ErrEmptyPath    = errors.New("path is empty")
	ErrRelativePath = errors.New("path must be absolute")
)

// Normalize returns the canonical form of raw
func Normalize(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", ErrEmptyPath
	}

	if strings.Contains(p, "://") {
		u, err := url.Parse(p)
		if err != nil {
			return "", fmt.Errorf("invalid path %q: %w", raw, err)
		}
		p = u.Path
		if p == "" {
			p = "/"
		}
	}

	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrRelativePath, raw)
	}
	return path.Clean(p), nil
}

// MustNormalize is Normalize for paths already known to be absolute.
// Invalid input is returned cleaned but otherwise untouched.
func MustNormalize(raw string) string {
	p, err := Normalize(raw)
	if err != nil {
		return path.Clean(raw)
	}
	return p
}

// Compare orders canonical paths hierarchically: segment by segment, so a
// directory sorts before its children and "/a/z" sorts before "/a-b".
func Compare(a, b string) int {
	a = strings.TrimPrefix(a, "/")
	b = strings.TrimPrefix(b, "/")
	for a != "" && b != "" {
		var sa, sb string
		sa, a, _ = strings.Cut(a, "/")
		sb, b, _ = strings.Cut(b, "/")
		if c := strings.Compare(sa, sb); c != 0 {
			return c
		}
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// Less reports whether a sorts before b
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// IsUnder reports whether p is root or lies below it
func IsUnder(p, root string) bool {
	if root == "/" || p == root {
		return true
	}
	return strings.HasPrefix(p, root+"/")
}
