// Package exclude decides which paths under a submit root are skipped.
package exclude

import (
	"path"
	"strings"
)

// Matcher matches paths relative to a root against exclude patterns:
//
//	dir/      the directory and everything below it
//	*.tmp     a glob against the relative path or the base name
//	name      an exact relative path, or a file base name
type Matcher struct {
	patterns []string
}

// DefaultPatterns are Hadoop job leftovers that are never worth caching
func DefaultPatterns() []string {
	return []string{
		"_temporary/",
		".staging/",
		".Trash/",
		"_SUCCESS",
		"_FAILURE",
		"*.tmp",
		"*._COPYING_",
	}
}

// New builds a matcher from patterns, adding DefaultPatterns when
// withDefaults is set. A matcher without patterns excludes nothing.
func New(patterns []string, withDefaults bool) *Matcher {
	var merged []string
	if withDefaults {
		merged = append(merged, DefaultPatterns()...)
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		merged = append(merged, p)
	}
	return &Matcher{patterns: merged}
}

// Patterns returns the active patterns
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}

func (m *Matcher) IsExcluded(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = strings.TrimPrefix(strings.TrimPrefix(relPath, "./"), "/")
	if relPath == "" {
		return false
	}
	for _, p := range m.patterns {
		if strings.HasSuffix(p, "/") {
			dirPattern := strings.TrimSuffix(p, "/")
			if matchesDir(relPath, dirPattern, isDir) {
				return true
			}
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, relPath); ok {
				return true
			}
			if ok, _ := path.Match(p, path.Base(relPath)); ok {
				return true
			}
			continue
		}
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if !isDir && path.Base(relPath) == p {
			return true
		}
	}
	return false
}

// matchesDir reports whether relPath is, or is inside, a directory named
// dirPattern at any depth
func matchesDir(relPath, dirPattern string, isDir bool) bool {
	if relPath == dirPattern || strings.HasPrefix(relPath, dirPattern+"/") {
		return true
	}
	if strings.Contains(dirPattern, "/") {
		return false
	}
	segments := strings.Split(relPath, "/")
	if !isDir {
		segments = segments[:len(segments)-1]
	}
	for _, seg := range segments {
		if seg == dirPattern {
			return true
		}
	}
	return false
}
