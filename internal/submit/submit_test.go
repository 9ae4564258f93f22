package submit

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/exclude"
	"github.com/dl-alexandre/rcache/internal/metrics"
	testhelpers "github.com/dl-alexandre/rcache/internal/testing"
	"github.com/dl-alexandre/rcache/internal/testing/mocks"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/google/go-cmp/cmp"
)

func testBackend() *mocks.Backend {
	return mocks.NewBackend("hot", "cold").
		AddFile("/data/a", 10).
		AddFile("/data/logs/app.log", 1).
		AddFile("/data/sub/b", 20).
		AddFile("/data/sub/deeper/c", 30).
		AddFile("/data/sub/_SUCCESS", 0).
		AddDir("/data/empty")
}

func TestRun_SubmitsEveryFileOnce(t *testing.T) {
	b := testBackend()
	var out bytes.Buffer

	res, err := New(b, nil, nil).Run(context.Background(), Options{
		Root:        "/data",
		Pool:        "hot",
		Replication: 3,
		Verbose:     true,
		Out:         &out,
	})
	testhelpers.AssertNoError(t, err, "Run")

	got := b.CreatedPaths()
	sort.Strings(got)
	want := []string{"/data/a", "/data/logs/app.log", "/data/sub/_SUCCESS", "/data/sub/b", "/data/sub/deeper/c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("created paths mismatch (-want +got):\n%s", diff)
	}
	for _, req := range b.Created {
		if req.Pool != "hot" || req.Replication != 3 {
			t.Errorf("request %+v, want pool hot replication 3", req)
		}
	}

	testhelpers.AssertEqual(t, res.Created, 5, "created")
	testhelpers.AssertEqual(t, res.Files, 5, "files")
	testhelpers.AssertEqual(t, strings.Count(out.String(), "Cached: "), 5, "verbose lines")
	if !strings.Contains(out.String(), "Cached: /data/sub/deeper/c\n") {
		t.Errorf("verbose output missing deep file:\n%s", out.String())
	}
}

func TestRun_QuietByDefault(t *testing.T) {
	var out bytes.Buffer
	_, err := New(testBackend(), nil, nil).Run(context.Background(), Options{Root: "/data", Pool: "hot", Out: &out})
	testhelpers.AssertNoError(t, err, "Run")
	if out.Len() != 0 {
		t.Errorf("non-verbose run wrote %q", out.String())
	}
}

func TestRun_MissingPool(t *testing.T) {
	b := testBackend()

	_, err := New(b, nil, nil).Run(context.Background(), Options{Root: "/data", Pool: "nope", Replication: 1})

	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() error = %v, want *PreconditionError", err)
	}
	if !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("Run() error = %v, want ErrPoolNotFound", err)
	}
	testhelpers.AssertEqual(t, err.Error(), "No pool exists named nope", "message")
	testhelpers.AssertEqual(t, len(b.Created), 0, "created directives")
	testhelpers.AssertEqual(t, len(b.Listed), 0, "listings")
}

func TestRun_RootIsFile(t *testing.T) {
	b := testBackend()
	res, err := New(b, nil, nil).Run(context.Background(), Options{Root: "/data/sub/b", Pool: "hot"})
	testhelpers.AssertNoError(t, err, "Run")
	if diff := cmp.Diff([]string{"/data/sub/b"}, b.CreatedPaths()); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}
	testhelpers.AssertEqual(t, res.Created, 1, "created")
	testhelpers.AssertEqual(t, b.Created[0].Replication, 1, "default replication")
}

func TestRun_AbortsOnFirstBackendError(t *testing.T) {
	b := testBackend()
	boom := errors.New("RPC timeout")
	calls := 0
	b.CreateDirectiveFunc = func(ctx context.Context, req types.DirectiveRequest) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}

	rec := metrics.NewRecorder()
	res, err := New(b, nil, rec).Run(context.Background(), Options{Root: "/data", Pool: "hot"})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if !backend.IsBackendError(err) {
		t.Errorf("Run() error = %T, want *backend.Error", err)
	}
	testhelpers.AssertEqual(t, calls, 2, "no retry after failure")
	testhelpers.AssertEqual(t, res.Created, 1, "created before failure")
}

func TestRun_ListPoolsFailure(t *testing.T) {
	b := testBackend()
	b.ListPoolsFunc = func(ctx context.Context) ([]string, error) {
		return nil, errors.New("cacheadmin unavailable")
	}
	_, err := New(b, nil, nil).Run(context.Background(), Options{Root: "/data", Pool: "hot"})
	if !backend.IsBackendError(err) {
		t.Fatalf("Run() error = %v, want backend error", err)
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		t.Errorf("listing failure reported as precondition: %v", err)
	}
}

func TestRun_DryRun(t *testing.T) {
	b := testBackend()
	var out bytes.Buffer
	res, err := New(b, nil, nil).Run(context.Background(), Options{Root: "/data", Pool: "hot", DryRun: true, Verbose: true, Out: &out})
	testhelpers.AssertNoError(t, err, "Run")
	testhelpers.AssertEqual(t, len(b.Created), 0, "created directives")
	testhelpers.AssertEqual(t, res.Files, 5, "files")
	testhelpers.AssertEqual(t, res.Created, 0, "created")
	testhelpers.AssertEqual(t, strings.Count(out.String(), "\n"), 5, "verbose lines")
}

func TestRun_Exclude(t *testing.T) {
	b := testBackend()
	res, err := New(b, nil, nil).Run(context.Background(), Options{
		Root:    "/data",
		Pool:    "hot",
		Exclude: exclude.New([]string{"logs/"}, true),
	})
	testhelpers.AssertNoError(t, err, "Run")

	got := b.CreatedPaths()
	sort.Strings(got)
	if diff := cmp.Diff([]string{"/data/a", "/data/sub/b", "/data/sub/deeper/c"}, got); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}
	testhelpers.AssertEqual(t, res.Excluded, 1, "excluded files")
	for _, dir := range b.Listed {
		if dir == "/data/logs" {
			t.Error("excluded directory was listed")
		}
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"ok", Options{Root: "hdfs://nn/data/", Pool: "hot"}, false},
		{"relative root", Options{Root: "data", Pool: "hot"}, true},
		{"empty root", Options{Pool: "hot"}, true},
		{"no pool", Options{Root: "/data"}, true},
		{"negative replication", Options{Root: "/data", Pool: "hot", Replication: -1}, true},
		{"huge replication", Options{Root: "/data", Pool: "hot", Replication: 40000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("Validate() error = %v, want ErrInvalidOptions", err)
			}
			if err == nil && (got.Root != "/data" || got.Replication != 1) {
				t.Errorf("Validate() = %+v, want normalised root and default replication", got)
			}
		})
	}
}
