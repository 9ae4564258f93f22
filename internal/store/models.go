package store

import "time"

// Run is one recorded audit
type Run struct {
	ID               string    `json:"id"`
	Pool             string    `json:"pool"`
	Root             string    `json:"root"`
	Policy           string    `json:"policy"`
	StartedAt        time.Time `json:"startedAt"`
	Files            int       `json:"files"`
	Directives       int       `json:"directives"`
	Matched          int       `json:"matched"`
	Partial          int       `json:"partial"`
	OrphanFiles      int       `json:"orphanFiles"`
	OrphanDirectives int       `json:"orphanDirectives"`
	Fingerprint      string    `json:"fingerprint"`
	Error            string    `json:"error,omitempty"`
	// PreviousFingerprint belongs to the run before this one for the same
	// pool and root; empty for the first run.
	PreviousFingerprint string `json:"previousFingerprint,omitempty"`
}

// Unchanged reports whether the previous run found the same state
func (r Run) Unchanged() bool {
	return r.PreviousFingerprint != "" && r.PreviousFingerprint == r.Fingerprint
}

// RunRecord is one report line of a recorded audit
type RunRecord struct {
	Seq      int     `json:"seq"`
	Kind     string  `json:"kind"`
	Path     string  `json:"path,omitempty"`
	Fraction float64 `json:"fraction"`
}
