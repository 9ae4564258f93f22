package cacheadmin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/google/go-cmp/cmp"
)

type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	if err, ok := f.errs[cmd]; ok {
		return nil, err
	}
	return []byte(f.outputs[cmd]), nil
}

const lsOutput = `Found 3 items
drwxr-xr-x   - hdfs supergroup          0 2024-01-01 10:00 /data/dir
-rw-r--r--   3 hdfs supergroup       1234 2024-01-01 10:00 /data/file
-rw-r--r--   3 hdfs supergroup         42 2024-01-01 10:00 /data/with  two spaces
`

const poolsOutput = `Found 2 results.
NAME  OWNER  GROUP   MODE            LIMIT  MAXTTL
cold  hdfs   hadoop  rwxr-xr-x   unlimited   never
hot   hdfs   hadoop  rwxr-xr-x   unlimited   never
`

const directivesOutput = `Found 2 entries
 ID POOL   REPL EXPIRY  PATH                 BYTES_NEEDED  BYTES_CACHED  FILES_NEEDED  FILES_CACHED
  1 hot       1 never   /data/file                   1234          1234             1             1
  7 hot       2 never   /data/big file             294132        147066             2             1
`

func TestParseLs(t *testing.T) {
	got, err := parseLs([]byte(lsOutput))
	if err != nil {
		t.Fatalf("parseLs() error = %v", err)
	}
	want := []types.FileEntry{
		{Path: "/data/dir", IsDir: true},
		{Path: "/data/file", Size: 1234},
		{Path: "/data/with  two spaces", Size: 42},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseLs() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLs_Malformed(t *testing.T) {
	for _, in := range []string{
		"-rw-r--r-- 3 hdfs",
		"-rw-r--r--   3 hdfs supergroup  big 2024-01-01 10:00 /a",
		"-rw-r--r--   3 hdfs supergroup  1 2024-01-01 10:00 relative",
	} {
		if _, err := parseLs([]byte(in)); err == nil {
			t.Errorf("parseLs(%q) error = nil, want error", in)
		}
	}
}

func TestParsePools(t *testing.T) {
	if diff := cmp.Diff([]string{"cold", "hot"}, parsePools([]byte(poolsOutput))); diff != "" {
		t.Errorf("parsePools() mismatch (-want +got):\n%s", diff)
	}
	if got := parsePools([]byte("Found 0 results.\n")); len(got) != 0 {
		t.Errorf("parsePools(empty) = %v", got)
	}
}

func TestParseDirectives(t *testing.T) {
	got, err := parseDirectives([]byte(directivesOutput))
	if err != nil {
		t.Fatalf("parseDirectives() error = %v", err)
	}
	want := []types.DirectiveEntry{
		{ID: 1, Pool: "hot", Replication: 1, Path: "/data/file", BytesNeeded: 1234, BytesCached: 1234, FilesNeeded: 1, FilesCached: 1},
		{ID: 7, Pool: "hot", Replication: 2, Path: "/data/big file", BytesNeeded: 294132, BytesCached: 147066, FilesNeeded: 2, FilesCached: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseDirectives() mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseDirectives([]byte("  1 hot 1 never /a x 0 1 1\n")); err == nil {
		t.Error("parseDirectives(bad number) error = nil")
	}
}

func TestClient_Commands(t *testing.T) {
	runner := &fakeRunner{outputs: make(map[string]string)}
	runner.outputs["hdfs dfs -ls /data"] = lsOutput
	runner.outputs["hdfs dfs -ls -R /data"] = lsOutput
	runner.outputs["hdfs cacheadmin -listPools"] = poolsOutput
	runner.outputs["hdfs cacheadmin -listDirectives -stats -pool hot"] = directivesOutput
	runner.outputs["hdfs cacheadmin -addDirective -path /data/file -pool hot -replication 3"] = "Added cache directive 8\n"
	c := New(Config{Runner: runner})
	ctx := context.Background()

	entries, err := c.ListStatus(ctx, "/data")
	if err != nil || len(entries) != 3 {
		t.Errorf("ListStatus() = %v, %v", entries, err)
	}
	entries, err = c.ListRecursive(ctx, "/data")
	if err != nil || len(entries) != 3 {
		t.Errorf("ListRecursive() = %v, %v", entries, err)
	}
	pools, err := c.ListPools(ctx)
	if err != nil || len(pools) != 2 {
		t.Errorf("ListPools() = %v, %v", pools, err)
	}
	directives, err := c.ListDirectives(ctx, "hot")
	if err != nil || len(directives) != 2 {
		t.Errorf("ListDirectives() = %v, %v", directives, err)
	}
	err = c.CreateDirective(ctx, types.DirectiveRequest{Path: "/data/file", Pool: "hot", Replication: 3})
	if err != nil {
		t.Errorf("CreateDirective() error = %v", err)
	}
	if len(runner.calls) != 5 {
		t.Errorf("runner calls = %v", runner.calls)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		stderr string
		want   error
	}{
		{"ls: `/nope': No such file or directory", backend.ErrNotFound},
		{"ls: Permission denied: user=bob, access=READ_EXECUTE", backend.ErrPermission},
		{"javax.security.sasl.SaslException: GSS initiate failed [Caused by GSSException]", backend.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.stderr, func(t *testing.T) {
			runner := &fakeRunner{errs: map[string]error{
				"hdfs dfs -ls /nope": &CommandError{Command: "hdfs dfs -ls /nope", Stderr: tt.stderr, Err: errors.New("exit status 1")},
			}}
			_, err := New(Config{Runner: runner}).ListStatus(context.Background(), "/nope")
			if !errors.Is(err, tt.want) {
				t.Errorf("ListStatus() error = %v, want %v", err, tt.want)
			}
			var be *backend.Error
			if !errors.As(err, &be) || be.Op != "listStatus" || be.Path != "/nope" {
				t.Errorf("ListStatus() error = %#v, want *backend.Error", err)
			}
		})
	}
}

func TestClient_CustomBinary(t *testing.T) {
	runner := &fakeRunner{}
	c := New(Config{Binary: "/opt/hadoop/bin/hdfs", Runner: runner})
	if err := c.AddPool(context.Background(), "hot"); err != nil {
		t.Fatalf("AddPool() error = %v", err)
	}
	if diff := cmp.Diff([]string{"/opt/hadoop/bin/hdfs cacheadmin -addPool hot"}, runner.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitN(t *testing.T) {
	got := splitN("  a  b\tc   d e  ", 3)
	if diff := cmp.Diff([]string{"a", "b", "c   d e  "}, got); diff != "" {
		t.Errorf("splitN() mismatch (-want +got):\n%s", diff)
	}
}

func TestListFilesRecursive_KeepsEntriesBeforeBadLine(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"hdfs dfs -ls -R /data": `drwxr-xr-x   - hdfs supergroup          0 2024-01-01 10:00 /data/dir
-rw-r--r--   3 hdfs supergroup       1234 2024-01-01 10:00 /data/dir/part-0
-rw-r--r--   3 hdfs supergroup       oops 2024-01-01 10:00 /data/dir/part-1
-rw-r--r--   3 hdfs supergroup         42 2024-01-01 10:00 /data/dir/part-2
`,
	}}

	files, err := backend.ListFilesRecursive(context.Background(), New(Config{Runner: runner}), "/data")
	var be *backend.Error
	if !errors.As(err, &be) || be.Op != "listRecursive" || be.Path != "/data" {
		t.Fatalf("ListFilesRecursive() error = %v, want a listRecursive *backend.Error", err)
	}
	want := []types.FileEntry{{Path: "/data/dir/part-0", Size: 1234}}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}
