package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/google/go-cmp/cmp"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "rcache.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPools(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, name := range []string{"warm", "hot"} {
		if err := db.AddPool(ctx, name); err != nil {
			t.Fatalf("AddPool(%s) error = %v", name, err)
		}
	}
	if err := db.AddPool(ctx, "hot"); !errors.Is(err, ErrPoolExists) {
		t.Errorf("AddPool(duplicate) error = %v, want ErrPoolExists", err)
	}

	got, err := db.ListPools(ctx)
	if err != nil {
		t.Fatalf("ListPools() error = %v", err)
	}
	if diff := cmp.Diff([]string{"hot", "warm"}, got); diff != "" {
		t.Errorf("ListPools() mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectives(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	entries := []types.DirectiveEntry{
		{Path: "/data/b", Pool: "hot", Replication: 2, FilesNeeded: 1, FilesCached: 1, BytesNeeded: 20, BytesCached: 20},
		{Path: "/data/a", Pool: "hot", Replication: 1, FilesNeeded: 1, FilesCached: 0, BytesNeeded: 10},
		{Path: "/data/a", Pool: "cold", Replication: 1, FilesNeeded: 1, FilesCached: 1, BytesNeeded: 10, BytesCached: 10},
	}
	for i := range entries {
		id, err := db.AddDirective(ctx, entries[i])
		if err != nil {
			t.Fatalf("AddDirective() error = %v", err)
		}
		entries[i].ID = id
	}

	got, err := db.ListDirectives(ctx, "hot")
	if err != nil {
		t.Fatalf("ListDirectives() error = %v", err)
	}
	if diff := cmp.Diff(entries[:2], got); diff != "" {
		t.Errorf("ListDirectives() mismatch (-want +got):\n%s", diff)
	}

	none, err := db.ListDirectives(ctx, "missing")
	if err != nil {
		t.Fatalf("ListDirectives(missing) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListDirectives(missing) = %v, want none", none)
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	runs := []Run{
		{ID: "r1", Pool: "hot", Root: "/data", Policy: "ordered", StartedAt: base, Files: 2, Directives: 2, Matched: 2, Fingerprint: "aaaa"},
		{ID: "r2", Pool: "hot", Root: "/data", Policy: "ordered", StartedAt: base.Add(time.Minute), Files: 2, Directives: 2, Matched: 2, Fingerprint: "aaaa"},
		{ID: "r3", Pool: "hot", Root: "/data", Policy: "ordered", StartedAt: base.Add(2 * time.Minute), Files: 2, Directives: 1, Matched: 1, OrphanFiles: 1, Fingerprint: "bbbb", Error: "listing failed"},
		{ID: "c1", Pool: "cold", Root: "/data", Policy: "ordered", StartedAt: base.Add(3 * time.Minute), Fingerprint: "aaaa"},
	}
	records := []RunRecord{
		{Seq: 0, Kind: "count_mismatch"},
		{Seq: 1, Kind: "matched", Path: "/data/a"},
		{Seq: 2, Kind: "partially_cached", Path: "/data/b", Fraction: 42.5},
	}
	for _, run := range runs {
		if err := db.InsertRun(ctx, run, records); err != nil {
			t.Fatalf("InsertRun(%s) error = %v", run.ID, err)
		}
	}

	got, err := db.ListRuns(ctx, "hot", 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	var ids []string
	for _, run := range got {
		ids = append(ids, run.ID)
	}
	if diff := cmp.Diff([]string{"r3", "r2", "r1"}, ids); diff != "" {
		t.Errorf("ListRuns() order mismatch (-want +got):\n%s", diff)
	}

	unchanged := map[string]bool{"r3": false, "r2": true, "r1": false}
	for _, run := range got {
		if run.Unchanged() != unchanged[run.ID] {
			t.Errorf("run %s Unchanged() = %v, want %v", run.ID, run.Unchanged(), unchanged[run.ID])
		}
	}

	limited, err := db.ListRuns(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListRuns(limit) error = %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "c1" {
		t.Errorf("ListRuns(\"\", 2) = %+v, want c1 first of 2", limited)
	}

	run, gotRecords, err := db.GetRun(ctx, "r3")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	want := runs[2]
	want.PreviousFingerprint = "aaaa"
	if diff := cmp.Diff(want, *run); diff != "" {
		t.Errorf("GetRun() run mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(records, gotRecords); diff != "" {
		t.Errorf("GetRun() records mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := db.GetRun(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun(nope) error = %v, want ErrRunNotFound", err)
	}
}

func TestResolveRunID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, id := range []string{"3f2a9c10-aaaa", "3f2b0000-bbbb", "77e1d2c3-cccc"} {
		run := Run{ID: id, Pool: "hot", Root: "/data", Policy: "ordered", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.InsertRun(ctx, run, nil); err != nil {
			t.Fatalf("InsertRun(%s) error = %v", id, err)
		}
	}

	tests := []struct {
		prefix  string
		want    string
		wantErr error
	}{
		{"77e1", "77e1d2c3-cccc", nil},
		{"3f2a", "3f2a9c10-aaaa", nil},
		{"3f2b0000-bbbb", "3f2b0000-bbbb", nil},
		{"3f2", "", ErrAmbiguousRunID},
		{"ffff", "", ErrRunNotFound},
		{"", "", ErrRunNotFound},
	}
	for _, tt := range tests {
		got, err := db.ResolveRunID(ctx, tt.prefix)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ResolveRunID(%q) error = %v, want %v", tt.prefix, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ResolveRunID(%q) = %q, %v, want %q", tt.prefix, got, err, tt.want)
		}
	}
}
