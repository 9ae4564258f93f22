// Package reconcile compares the files under a root with the cache
// directives of a pool and classifies every path.
//
// Both sides are copied, filtered, sorted by canonical path and
// deduplicated before a single forward pass with one cursor per side.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/types"
)

// Policy decides which cursor moves when the two current paths differ
type Policy string

const (
	// PolicyOrdered advances the cursor holding the smaller path
	PolicyOrdered Policy = "ordered"
	// PolicyLargerSide advances the cursor of whichever collection was
	// larger at the start. This is the historical behaviour; it can
	// misclassify a path that exists on both sides.
	PolicyLargerSide Policy = "larger-side"
)

// ParsePolicy parses a policy name; "" selects PolicyOrdered
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyOrdered:
		return PolicyOrdered, nil
	case PolicyLargerSide:
		return PolicyLargerSide, nil
	}
	return "", fmt.Errorf("unknown resync policy %q (want %s or %s)", s, PolicyOrdered, PolicyLargerSide)
}

// Options tunes a reconciliation
type Options struct {
	Policy Policy
	// Pool drops directives of other pools when set
	Pool string
	// ReportEmptySide reports the non-empty side as orphans when the other
	// side is empty. By default an empty side yields an empty report.
	ReportEmptySide bool
}

// Reconcile classifies files against directives. It never modifies its
// arguments. Entries whose path is not absolute are dropped.
func Reconcile(files []types.FileEntry, directives []types.DirectiveEntry, opts Options) Report {
	fs := prepareFiles(files)
	ds := prepareDirectives(directives, opts.Pool)

	if len(fs) == 0 && len(ds) == 0 {
		return Report{}
	}
	if (len(fs) == 0 || len(ds) == 0) && !opts.ReportEmptySide {
		return Report{}
	}

	m := &merger{
		files:      cursor[types.FileEntry]{name: "files", items: fs},
		directives: cursor[types.DirectiveEntry]{name: "directives", items: ds},
	}
	if len(fs) != len(ds) {
		m.emit(Record{Kind: KindCountMismatch, FileCount: len(fs), DirectiveCount: len(ds)})
	}

	switch opts.Policy {
	case PolicyLargerSide:
		m.walkLargerSide(len(fs) >= len(ds))
	default:
		m.walkOrdered()
	}
	m.drain()

	return Report{Records: m.records}
}

type cursor[T any] struct {
	name  string
	items []T
	pos   int
}

func (c *cursor[T]) done() bool {
	return c.pos >= len(c.items)
}

func (c *cursor[T]) current() *T {
	return &c.items[c.pos]
}

// next returns the current item and moves past it. Moving an exhausted
// cursor is a bug in the walk, not a condition to tolerate.
func (c *cursor[T]) next() *T {
	if c.done() {
		panic(fmt.Sprintf("reconcile: %s cursor advanced past end (%d items)", c.name, len(c.items)))
	}
	item := &c.items[c.pos]
	c.pos++
	return item
}

type merger struct {
	files      cursor[types.FileEntry]
	directives cursor[types.DirectiveEntry]
	records    []Record
}

func (m *merger) emit(r Record) {
	m.records = append(m.records, r)
}

func (m *merger) bothLive() bool {
	return !m.files.done() && !m.directives.done()
}

func (m *merger) walkOrdered() {
	for m.bothLive() {
		c := resolver.Compare(m.files.current().Path, m.directives.current().Path)
		switch {
		case c < 0:
			m.orphanFile()
		case c > 0:
			m.orphanDirective()
		default:
			m.match()
		}
	}
}

func (m *merger) walkLargerSide(advanceFiles bool) {
	for m.bothLive() {
		if m.files.current().Path == m.directives.current().Path {
			m.match()
			continue
		}
		if advanceFiles {
			m.orphanFile()
		} else {
			m.orphanDirective()
		}
	}
}

func (m *merger) drain() {
	for !m.files.done() {
		m.orphanFile()
	}
	for !m.directives.done() {
		m.orphanDirective()
	}
}

func (m *merger) orphanFile() {
	f := m.files.next()
	m.emit(Record{Kind: KindOrphanFile, Path: f.Path, File: f})
}

func (m *merger) orphanDirective() {
	d := m.directives.next()
	m.emit(Record{Kind: KindOrphanDirective, Path: d.Path, Directive: d})
}

func (m *merger) match() {
	f := m.files.next()
	d := m.directives.next()
	if d.FullyCached() {
		m.emit(Record{Kind: KindMatched, Path: f.Path, File: f, Directive: d})
		return
	}
	m.emit(Record{Kind: KindPartiallyCached, Path: f.Path, Fraction: partialPercent(d), File: f, Directive: d})
}

func prepareFiles(in []types.FileEntry) []types.FileEntry {
	out := make([]types.FileEntry, 0, len(in))
	for _, f := range in {
		if f.IsDir {
			continue
		}
		p, err := resolver.Normalize(f.Path)
		if err != nil {
			continue
		}
		f.Path = p
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return resolver.Less(out[i].Path, out[j].Path) })
	return dedupe(out, func(f types.FileEntry) string { return f.Path })
}

func prepareDirectives(in []types.DirectiveEntry, pool string) []types.DirectiveEntry {
	out := make([]types.DirectiveEntry, 0, len(in))
	for _, d := range in {
		if pool != "" && d.Pool != pool {
			continue
		}
		p, err := resolver.Normalize(d.Path)
		if err != nil {
			continue
		}
		d.Path = p
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return resolver.Less(out[i].Path, out[j].Path) })
	return dedupe(out, func(d types.DirectiveEntry) string { return d.Path })
}

// dedupe keeps the first entry of each run of keys that compare equal in a
// slice sorted by resolver.Less
func dedupe[T any](sorted []T, key func(T) string) []T {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, item := range sorted[1:] {
		if resolver.Compare(key(item), key(out[len(out)-1])) != 0 {
			out = append(out, item)
		}
	}
	return out
}
