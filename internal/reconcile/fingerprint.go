package reconcile

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the classification of every record. Two audits with
// the same fingerprint found the same paths in the same state.
func (r Report) Fingerprint() string {
	h := xxhash.New()
	for _, rec := range r.Records {
		fmt.Fprintf(h, "%s\x00%s\x00%.2f\x00%d\x00%d\n", rec.Kind, rec.Path, rec.Fraction, rec.FileCount, rec.DirectiveCount)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
