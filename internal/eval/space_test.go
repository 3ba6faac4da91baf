package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/value"
)

func field(name string, def ast.Expr) *ast.StateField {
	return &ast.StateField{Name: name, Default: def}
}

// TestToggleTwicePreservesFalse grounds spec §8 scenario 2.
func TestToggleTwicePreservesFalse(t *testing.T) {
	space := &ast.Space{
		Name:  "toggle",
		State: []*ast.StateField{field("active", &ast.BoolLit{Value: false})},
		Actions: []*ast.Action{{
			Name: "toggle",
			Body: []ast.Stmt{&ast.IfStmt{
				Cond: &ast.Ident{Name: "active"},
				Then: []ast.Stmt{&ast.SetStmt{Path: []string{"active"}, Value: &ast.BoolLit{Value: false}}},
				Else: []ast.Stmt{&ast.SetStmt{Path: []string{"active"}, Value: &ast.BoolLit{Value: true}}},
			}},
		}},
	}
	si, err := NewSpaceInstance(space)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := si.Dispatch("toggle", nil)
		require.NoError(t, err)
		require.True(t, res.Committed)
	}
	got := si.StateSnapshot().RecordGet("active")
	require.True(t, value.Eq(value.BoolValue(false), got))
}

// TestArithmeticDerivedFields grounds spec §8 scenario 3.
func TestArithmeticDerivedFields(t *testing.T) {
	space := &ast.Space{
		Name: "arithmetic",
		State: []*ast.StateField{
			field("a", &ast.NumberLit{Value: 5}),
			field("b", &ast.NumberLit{Value: 3}),
		},
		Derived: []*ast.DerivedField{
			{Name: "sum", Expr: &ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "a"}, Right: &ast.Ident{Name: "b"}}},
			{Name: "product", Expr: &ast.BinaryExpr{Op: ast.OpMul, Left: &ast.Ident{Name: "a"}, Right: &ast.Ident{Name: "b"}}},
		},
	}
	si, err := NewSpaceInstance(space)
	require.NoError(t, err)

	snap := si.StateSnapshot()
	require.True(t, value.Eq(value.NumberValue(8), snap.RecordGet("sum")))
	require.True(t, value.Eq(value.NumberValue(15), snap.RecordGet("product")))
}

// TestNestedSetOnlyTouchesTargetField grounds spec §8 scenario 5.
func TestNestedSetOnlyTouchesTargetField(t *testing.T) {
	initial := &ast.RecordLit{Fields: []*ast.RecordFieldLit{
		{Key: "inner", Value: &ast.RecordLit{Fields: []*ast.RecordFieldLit{
			{Key: "value", Value: &ast.NumberLit{Value: 0}},
			{Key: "other", Value: &ast.NumberLit{Value: 99}},
		}}},
	}}
	space := &ast.Space{
		Name:  "nested",
		State: []*ast.StateField{field("data", initial)},
		Actions: []*ast.Action{{
			Name: "setValue",
			Body: []ast.Stmt{&ast.SetStmt{
				Path:  []string{"data", "inner", "value"},
				Value: &ast.NumberLit{Value: 42},
			}},
		}},
	}
	si, err := NewSpaceInstance(space)
	require.NoError(t, err)

	res, err := si.Dispatch("setValue", nil)
	require.NoError(t, err)
	require.True(t, res.Committed)

	data := si.StateSnapshot().RecordGet("data")
	inner := data.RecordGet("inner")
	require.True(t, value.Eq(value.NumberValue(42), inner.RecordGet("value")))
	require.True(t, value.Eq(value.NumberValue(99), inner.RecordGet("other")))
}

// TestMatchVariantRollbackOnErr grounds spec §8 scenario 6: a parse action
// that sets `value` from an Ok payload but leaves it untouched on Err.
func TestMatchVariantRollbackOnErr(t *testing.T) {
	// parse(input) returns Ok(42) for input=="ok", Err("bad") otherwise.
	parseAction := &ast.Action{
		Name:   "parse",
		Params: []*ast.Param{{Name: "input"}},
		Body: []ast.Stmt{&ast.MatchStmt{
			Subject: &ast.IfExpr{
				Cond: &ast.BinaryExpr{Op: ast.OpEq, Left: &ast.Ident{Name: "input"}, Right: &ast.StringLit{Value: "ok"}},
				Then: &ast.VariantLit{Variant: "Ok", Args: []ast.Expr{&ast.NumberLit{Value: 42}}},
				Else: &ast.VariantLit{Variant: "Err", Args: []ast.Expr{&ast.StringLit{Value: "bad input"}}},
			},
			Arms: []*ast.MatchArm{
				{Variant: "Ok", Bindings: []string{"n"}, Body: []ast.Stmt{
					&ast.SetStmt{Path: []string{"value"}, Value: &ast.Ident{Name: "n"}},
				}},
				{Wildcard: true, Body: nil},
			},
		}},
	}
	space := &ast.Space{
		Name:    "parser",
		State:   []*ast.StateField{field("value", &ast.NumberLit{Value: 0})},
		Actions: []*ast.Action{parseAction},
	}
	si, err := NewSpaceInstance(space)
	require.NoError(t, err)

	res, err := si.Dispatch("parse", []value.Value{value.StringValue("abc")})
	require.NoError(t, err)
	require.True(t, res.Committed)
	require.True(t, value.Eq(value.NumberValue(0), si.StateSnapshot().RecordGet("value")))

	res, err = si.Dispatch("parse", []value.Value{value.StringValue("ok")})
	require.NoError(t, err)
	require.True(t, res.Committed)
	require.True(t, value.Eq(value.NumberValue(42), si.StateSnapshot().RecordGet("value")))
}

func TestDispatchUnknownActionErrors(t *testing.T) {
	si, err := NewSpaceInstance(&ast.Space{Name: "empty"})
	require.NoError(t, err)
	_, err = si.Dispatch("nope", nil)
	require.Error(t, err)
}

func TestInstallMockAppliesToCapabilityCall(t *testing.T) {
	space := &ast.Space{
		Name:  "httpspace",
		State: []*ast.StateField{field("body", &ast.StringLit{Value: ""})},
		Actions: []*ast.Action{{
			Name: "fetch",
			Body: []ast.Stmt{&ast.SetStmt{
				Path:  []string{"body"},
				Value: &ast.CapabilityCall{Module: "http", Function: "get", Args: []ast.Expr{&ast.StringLit{Value: "/x"}}},
			}},
		}},
	}
	si, err := NewSpaceInstance(space)
	require.NoError(t, err)
	si.InstallMock("http", "get", value.StringValue("mocked"))

	res, err := si.Dispatch("fetch", nil)
	require.NoError(t, err)
	require.True(t, res.Committed)
	require.True(t, value.Eq(value.StringValue("mocked"), si.StateSnapshot().RecordGet("body")))
}
