// Package require layers a handful of PEPL-domain assertions on top of
// testify/require, the same way the teacher's own test suite wraps a
// handful of small requireXxx helpers around testify rather than asserting
// against raw structs in every test body.
package require

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl-core/internal/eval"
	"github.com/pepl-lang/pepl-core/value"
)

// Committed asserts a dispatch/update/event result committed.
func Committed(t *testing.T, r eval.DispatchResult) {
	t.Helper()
	require.True(t, r.Committed, "expected commit, got rollback on invariant %q", r.InvariantError)
}

// RolledBack asserts a dispatch/update/event result rolled back on exactly
// the named invariant.
func RolledBack(t *testing.T, r eval.DispatchResult, invariant string) {
	t.Helper()
	require.False(t, r.Committed, "expected rollback, got commit")
	require.Equal(t, invariant, r.InvariantError)
}

// ValueEqual asserts structural equality under value.Eq's rules (NaN-aware,
// key-set comparison for records), which testify's require.Equal does not
// implement for value.Value's internal slice/pointer fields.
func ValueEqual(t *testing.T, want, got value.Value) {
	t.Helper()
	require.True(t, value.Eq(want, got), "values differ: want %s, got %s", value.ToString(want), value.ToString(got))
}
