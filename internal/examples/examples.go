// Package examples holds small, hand-built ast.Program values standing in
// for source files a PEPL parser would otherwise produce. Lexing/parsing is
// explicitly out of this module's scope (ast.Program is documented as
// already-typechecked input), so cmd/pepl demonstrates the library against
// this fixed registry instead of reading `.pepl` source text.
package examples

import "github.com/pepl-lang/pepl-core/ast"

// Registry maps a short name to its program, used by cmd/pepl's
// compile/test/run subcommands.
var Registry = map[string]*ast.Program{
	"counter": Counter(),
	"toggle":  Toggle(),
}

// Counter grounds spec §8 scenario 1.
func Counter() *ast.Program {
	return &ast.Program{Space: &ast.Space{
		Name:  "counter",
		State: []*ast.StateField{{Name: "count", Default: &ast.NumberLit{Value: 0}}},
		Actions: []*ast.Action{
			{
				Name: "increment",
				Body: []ast.Stmt{&ast.SetStmt{
					Path:  []string{"count"},
					Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 1}},
				}},
			},
			{
				Name: "decrement",
				Body: []ast.Stmt{&ast.IfStmt{
					Cond: &ast.BinaryExpr{Op: ast.OpGt, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 0}},
					Then: []ast.Stmt{&ast.SetStmt{
						Path:  []string{"count"},
						Value: &ast.BinaryExpr{Op: ast.OpSub, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 1}},
					}},
				}},
			},
		},
		Views: []*ast.View{{
			Name: "main",
			Body: []ast.UIElement{&ast.UINode{
				Component: "Text",
				Props: []*ast.UIProp{{
					Name:  "content",
					Value: &ast.Ident{Name: "count"},
				}},
			}},
		}},
	}}
}

// Toggle grounds spec §8 scenario 2.
func Toggle() *ast.Program {
	return &ast.Program{Space: &ast.Space{
		Name:  "toggle",
		State: []*ast.StateField{{Name: "active", Default: &ast.BoolLit{Value: false}}},
		Actions: []*ast.Action{{
			Name: "toggle",
			Body: []ast.Stmt{&ast.IfStmt{
				Cond: &ast.Ident{Name: "active"},
				Then: []ast.Stmt{&ast.SetStmt{Path: []string{"active"}, Value: &ast.BoolLit{Value: false}}},
				Else: []ast.Stmt{&ast.SetStmt{Path: []string{"active"}, Value: &ast.BoolLit{Value: true}}},
			}},
		}},
	}}
}
