package pepl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/value"
)

func TestCompileConfigImmutableChaining(t *testing.T) {
	base := NewCompileConfig()
	derived := base.WithGasLimit(42).WithMemoryLimits(1, 2)
	require.NotSame(t, base, derived)
	// base is unaffected: re-deriving from it again starts from the same defaults.
	again := base.WithGasLimit(99)
	require.NotEqual(t, derived, again)
}

func TestHostConfigWithMockAndCredential(t *testing.T) {
	hc := NewHostConfig().
		WithMock("http", "get", func(args []value.Value) value.Value { return value.StringValue("canned") }).
		WithCredential("api_key", value.StringValue("secret"))
	internal := hc.(*hostConfig)
	require.Len(t, internal.mocks, 1)
	fn, ok := internal.mocks[mockKey{"http", "get"}]
	require.True(t, ok)
	require.True(t, value.Eq(value.StringValue("canned"), fn(nil)))
	require.Equal(t, value.StringValue("secret"), internal.credentials["api_key"])
}

func TestHostConfigCloneDoesNotMutateParent(t *testing.T) {
	base := NewHostConfig()
	derived := base.WithMock("storage", "get", func(args []value.Value) value.Value { return value.NilValue() })
	require.Empty(t, base.(*hostConfig).mocks)
	require.Len(t, derived.(*hostConfig).mocks, 1)
}

func counterSpaceForPeplTest() *ast.Space {
	return &ast.Space{
		Name:  "counter",
		State: []*ast.StateField{{Name: "count", Default: &ast.NumberLit{Value: 0}}},
		Actions: []*ast.Action{{
			Name: "increment",
			Body: []ast.Stmt{&ast.SetStmt{
				Path:  []string{"count"},
				Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 1}},
			}},
		}},
	}
}

func TestCompileRoundTripsThroughPublicAPI(t *testing.T) {
	out, err := Compile(&ast.Program{Space: counterSpaceForPeplTest()}, NewCompileConfig())
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestNewSpaceInstanceAppliesMocks(t *testing.T) {
	space := &ast.Space{
		Name:  "httpspace",
		State: []*ast.StateField{{Name: "body", Default: &ast.StringLit{Value: ""}}},
		Actions: []*ast.Action{{
			Name: "fetch",
			Body: []ast.Stmt{&ast.SetStmt{
				Path:  []string{"body"},
				Value: &ast.CapabilityCall{Module: "http", Function: "get", Args: []ast.Expr{&ast.StringLit{Value: "/x"}}},
			}},
		}},
	}
	host := NewHostConfig().WithMock("http", "get", func(args []value.Value) value.Value { return value.StringValue("mocked") })
	si, err := NewSpaceInstance(space, host)
	require.NoError(t, err)

	result, err := si.Dispatch("fetch", nil)
	require.NoError(t, err)
	require.True(t, result.Committed)
	require.True(t, value.Eq(value.StringValue("mocked"), si.StateSnapshot().RecordGet("body")))
}

func TestRunTestsViaPublicAPI(t *testing.T) {
	space := counterSpaceForPeplTest()
	space.Tests = []*ast.Test{{
		Name: "increments",
		Body: []ast.Stmt{
			&ast.ExprStmt{Expr: &ast.ActionCall{Action: "increment"}},
			&ast.AssertStmt{Cond: &ast.BinaryExpr{Op: ast.OpEq, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 1}}},
		},
	}}
	summary, err := RunTests(space)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Passed)
	require.Equal(t, 0, summary.Failed)
}
