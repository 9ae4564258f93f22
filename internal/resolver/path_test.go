package resolver

import (
	"errors"
	"sort"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "/data/logs", want: "/data/logs"},
		{name: "trailing slash", in: "/data/logs/", want: "/data/logs"},
		{name: "dot segments", in: "/data/./x/../logs", want: "/data/logs"},
		{name: "hdfs uri", in: "hdfs://nn1:8020/data/logs", want: "/data/logs"},
		{name: "uri without path", in: "hdfs://nn1:8020", want: "/"},
		{name: "surrounding space", in: "  /a  ", want: "/a"},
		{name: "empty", in: "", wantErr: ErrEmptyPath},
		{name: "relative", in: "data/logs", wantErr: ErrRelativePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Normalize(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"/a", "/a", 0},
		{"/a", "/b", -1},
		{"/b", "/a", 1},
		{"/", "/a", -1},
		{"/a", "/a/b", -1},
		{"/a/z", "/a-b", -1},
		{"/a-b", "/a/z", 1},
		{"/a/b/c", "/a/b", 1},
	}

	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompare_GroupsDirectories(t *testing.T) {
	paths := []string{"/d/a-b", "/d/a/2", "/d/a/1", "/d/a.txt", "/d/a"}
	sort.Slice(paths, func(i, j int) bool { return Less(paths[i], paths[j]) })

	want := []string{"/d/a", "/d/a/1", "/d/a/2", "/d/a-b", "/d/a.txt"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", paths, want)
		}
	}
}

func TestIsUnder(t *testing.T) {
	tests := []struct {
		p, root string
		want    bool
	}{
		{"/data/a", "/data", true},
		{"/data", "/data", true},
		{"/database", "/data", false},
		{"/anything", "/", true},
	}
	for _, tt := range tests {
		if got := IsUnder(tt.p, tt.root); got != tt.want {
			t.Errorf("IsUnder(%q, %q) = %v, want %v", tt.p, tt.root, got, tt.want)
		}
	}
}
