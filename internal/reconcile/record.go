package reconcile

import (
	"github.com/dl-alexandre/rcache/internal/types"
)

// Kind classifies one line of a Report
type Kind string

const (
	KindCountMismatch   Kind = "count_mismatch"
	KindMatched         Kind = "matched"
	KindPartiallyCached Kind = "partially_cached"
	KindOrphanFile      Kind = "orphan_file"
	KindOrphanDirective Kind = "orphan_directive"
)

// MaxPartialPercent caps the cached percentage of an incomplete directive.
// A directive with fewer files cached than needed never reads as 100%.
const MaxPartialPercent = 99.99

// Record is one classified discrepancy (or match)
type Record struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path,omitempty"`
	// Fraction is the cached percentage, set for partially_cached records
	Fraction float64 `json:"fraction"`
	// FileCount and DirectiveCount are set for count_mismatch records
	FileCount      int                   `json:"fileCount,omitempty"`
	DirectiveCount int                   `json:"directiveCount,omitempty"`
	File           *types.FileEntry      `json:"file,omitempty"`
	Directive      *types.DirectiveEntry `json:"directive,omitempty"`
}

// IsWarning reports whether the record is printed as a warning
func (r Record) IsWarning() bool {
	return r.Kind != KindMatched
}

// Report is the ordered result of a reconciliation
type Report struct {
	Records []Record `json:"records"`
}

// Empty reports whether the reconciliation produced nothing
func (r Report) Empty() bool {
	return len(r.Records) == 0
}

// Summary counts records per kind
type Summary struct {
	Files            int  `json:"files"`
	Directives       int  `json:"directives"`
	Matched          int  `json:"matched"`
	PartiallyCached  int  `json:"partiallyCached"`
	OrphanFiles      int  `json:"orphanFiles"`
	OrphanDirectives int  `json:"orphanDirectives"`
	CountMismatch    bool `json:"countMismatch"`
}

// Discrepancies is the number of records that need attention
func (s Summary) Discrepancies() int {
	return s.PartiallyCached + s.OrphanFiles + s.OrphanDirectives
}

// Summarize counts the records of r. Files and Directives are derived from
// the records themselves, so an empty report summarises to zero.
func (r Report) Summarize() Summary {
	var s Summary
	for _, rec := range r.Records {
		switch rec.Kind {
		case KindCountMismatch:
			s.CountMismatch = true
		case KindMatched:
			s.Matched++
		case KindPartiallyCached:
			s.PartiallyCached++
		case KindOrphanFile:
			s.OrphanFiles++
		case KindOrphanDirective:
			s.OrphanDirectives++
		}
	}
	s.Files = s.Matched + s.PartiallyCached + s.OrphanFiles
	s.Directives = s.Matched + s.PartiallyCached + s.OrphanDirectives
	return s
}

// CachedPercent returns bytesCached as a percentage of bytesNeeded, or 0
// when nothing is needed.
func CachedPercent(bytesCached, bytesNeeded int64) float64 {
	if bytesNeeded <= 0 {
		return 0
	}
	return float64(bytesCached) / float64(bytesNeeded) * 100
}

func partialPercent(d *types.DirectiveEntry) float64 {
	pct := CachedPercent(d.BytesCached, d.BytesNeeded)
	switch {
	case pct < 0:
		return 0
	case pct > MaxPartialPercent:
		return MaxPartialPercent
	}
	return pct
}
