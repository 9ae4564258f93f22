package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.DirectiveCreated("hot")
	r.DirectiveCreated("hot")
	r.FileExcluded("hot")
	r.BackendError("listDirectives")
	r.ObserveAudit("hot", map[string]int{"matched": 3, "orphan_file": 1}, 1500*time.Millisecond, time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(r.directivesCreated.WithLabelValues("hot")); got != 2 {
		t.Errorf("directives created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.auditRecords.WithLabelValues("hot", "matched")); got != 3 {
		t.Errorf("matched gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.auditDuration.WithLabelValues("hot")); got != 1.5 {
		t.Errorf("duration gauge = %v, want 1.5", got)
	}

	path := filepath.Join(t.TempDir(), "rcache.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`rcache_directives_created_total{pool="hot"} 2`,
		`rcache_audit_records{kind="orphan_file",pool="hot"} 1`,
		`rcache_backend_errors_total{command="listDirectives"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.DirectiveCreated("hot")
	r.BackendError("x")
	r.ObserveAudit("hot", nil, 0, time.Now())
	if err := r.WriteTextfile("/nonexistent/dir/file"); err != nil {
		t.Errorf("WriteTextfile() on nil recorder error = %v", err)
	}
}
