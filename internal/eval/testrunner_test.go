package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl-core/ast"
)

func TestRunTestsPassAndFail(t *testing.T) {
	space := &ast.Space{
		Name:  "counter",
		State: []*ast.StateField{field("count", &ast.NumberLit{Value: 0})},
		Actions: []*ast.Action{{
			Name: "increment",
			Body: []ast.Stmt{&ast.SetStmt{
				Path:  []string{"count"},
				Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 1}},
			}},
		}},
		Tests: []*ast.Test{
			{
				Name: "increments by one",
				Body: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.ActionCall{Action: "increment"}},
					&ast.AssertStmt{Cond: &ast.BinaryExpr{Op: ast.OpEq, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 1}}},
				},
			},
			{
				Name: "wrongly expects two",
				Body: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.ActionCall{Action: "increment"}},
					&ast.AssertStmt{
						Cond: &ast.BinaryExpr{Op: ast.OpEq, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 2}},
						Msg:  &ast.StringLit{Value: "count should be 2"},
					},
				},
			},
		},
	}

	summary, err := RunTests(space)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Passed)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Cases, 2)
	require.True(t, summary.Cases[0].Passed)
	require.False(t, summary.Cases[1].Passed)
	require.Equal(t, "count should be 2", summary.Cases[1].Message)
}

func TestRunTestsWithMockedResponse(t *testing.T) {
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
		Tests: []*ast.Test{{
			Name:      "uses mocked response",
			Responses: []*ast.MockResponse{{Module: "http", Function: "get", Value: &ast.StringLit{Value: "canned"}}},
			Body: []ast.Stmt{
				&ast.ExprStmt{Expr: &ast.ActionCall{Action: "fetch"}},
				&ast.AssertStmt{Cond: &ast.BinaryExpr{Op: ast.OpEq, Left: &ast.Ident{Name: "body"}, Right: &ast.StringLit{Value: "canned"}}},
			},
		}},
	}

	summary, err := RunTests(space)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Passed)
	require.Equal(t, 0, summary.Failed)
}
