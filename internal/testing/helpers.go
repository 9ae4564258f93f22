// Package testing holds fixtures and assertions shared by rcache tests.
package testing

import (
	"fmt"
	"testing"

	"github.com/dl-alexandre/rcache/internal/types"
)

// TestDirective creates a fully cached single-file directive
func TestDirective(path, pool string, size int64) types.DirectiveEntry {
	return types.DirectiveEntry{
		Path:        path,
		Pool:        pool,
		Replication: 1,
		FilesNeeded: 1,
		FilesCached: 1,
		BytesNeeded: size,
		BytesCached: size,
	}
}

// TestPartialDirective creates a directive with only bytesCached of
// bytesNeeded cached
func TestPartialDirective(path, pool string, bytesCached, bytesNeeded int64) types.DirectiveEntry {
	d := TestDirective(path, pool, bytesNeeded)
	d.FilesCached = 0
	d.BytesCached = bytesCached
	return d
}

// what prefixes a failure with the optional description passed to an
// assertion
func what(msgAndArgs []interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok && len(msgAndArgs) > 1 {
		return fmt.Sprintf(format, msgAndArgs[1:]...) + ": "
	}
	return fmt.Sprint(msgAndArgs[0]) + ": "
}

// AssertNoError stops the test when err is set
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf("%sunexpected error: %v", what(msgAndArgs), err)
	}
}

// AssertError stops the test when err is nil
func AssertError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		t.Fatalf("%sexpected an error", what(msgAndArgs))
	}
}

// AssertEqual stops the test when got != want
func AssertEqual(t *testing.T, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		t.Fatalf("%sgot %v, want %v", what(msgAndArgs), got, want)
	}
}
