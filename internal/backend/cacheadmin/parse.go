package cacheadmin

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/types"
)

// parseLs reads `hdfs dfs -ls [-R]` output. On a malformed line it returns
// the entries parsed before it together with the error:
//
//	Found 2 items
//	drwxr-xr-x   - hdfs supergroup          0 2024-01-01 10:00 /data/dir
//	-rw-r--r--   3 hdfs supergroup       1234 2024-01-01 10:00 /data/file
func parseLs(out []byte) ([]types.FileEntry, error) {
	var entries []types.FileEntry
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "Found ") {
			continue
		}
		fields := splitN(line, 8)
		if len(fields) < 8 {
			return entries, fmt.Errorf("unexpected ls line: %q", line)
		}
		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return entries, fmt.Errorf("bad size in ls line %q: %w", line, err)
		}
		p, err := resolver.Normalize(fields[7])
		if err != nil {
			return entries, fmt.Errorf("bad path in ls line %q: %w", line, err)
		}
		entries = append(entries, types.FileEntry{
			Path:  p,
			IsDir: strings.HasPrefix(fields[0], "d"),
			Size:  size,
		})
	}
	return entries, sc.Err()
}

// parsePools reads `hdfs cacheadmin -listPools` output; the pool name is
// the first column after the header.
func parsePools(out []byte) []string {
	var pools []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] == "Found" || fields[0] == "NAME" {
			continue
		}
		pools = append(pools, fields[0])
	}
	return pools
}

// parseDirectives reads `hdfs cacheadmin -listDirectives -stats` output:
//
//	ID POOL REPL EXPIRY PATH BYTES_NEEDED BYTES_CACHED FILES_NEEDED FILES_CACHED
//
// The path sits between four leading and four trailing columns and may
// contain spaces.
func parseDirectives(out []byte) ([]types.DirectiveEntry, error) {
	var entries []types.DirectiveEntry
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == "Found" || fields[0] == "ID" {
			continue
		}
		if len(fields) < 9 {
			return nil, fmt.Errorf("unexpected directive line: %q", line)
		}

		var nums [6]int64
		numFields := []string{fields[0], fields[2]}
		numFields = append(numFields, fields[len(fields)-4:]...)
		for i, f := range numFields {
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q in directive line %q", f, line)
			}
			nums[i] = n
		}

		p, err := resolver.Normalize(strings.Join(fields[4:len(fields)-4], " "))
		if err != nil {
			return nil, fmt.Errorf("bad path in directive line %q: %w", line, err)
		}
		entries = append(entries, types.DirectiveEntry{
			ID:          nums[0],
			Pool:        fields[1],
			Replication: int(nums[1]),
			Path:        p,
			BytesNeeded: nums[2],
			BytesCached: nums[3],
			FilesNeeded: nums[4],
			FilesCached: nums[5],
		})
	}
	return entries, sc.Err()
}

// splitN splits s on runs of whitespace into at most n fields; the last
// field keeps the rest of the line verbatim.
func splitN(s string, n int) []string {
	var fields []string
	s = strings.TrimLeft(s, " \t")
	for len(fields) < n-1 && s != "" {
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			break
		}
		fields = append(fields, s[:i])
		s = strings.TrimLeft(s[i:], " \t")
	}
	if s != "" {
		fields = append(fields, s)
	}
	return fields
}
