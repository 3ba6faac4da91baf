package parity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl-core/ast"
)

func numberField(name string, def float64) *ast.StateField {
	return &ast.StateField{Name: name, Default: &ast.NumberLit{Value: def}}
}

// counterScenario grounds spec §8 scenario 1: increment/decrement bounded
// at zero, sequence [inc, inc, inc, dec, dec, dec, dec] -> count == 0.
func counterScenario() Scenario {
	space := &ast.Space{
		Name:  "counter",
		State: []*ast.StateField{numberField("count", 0)},
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
	}
	return Scenario{
		Name:    "counter",
		Program: &ast.Program{Space: space},
		Steps: []Step{
			ActionStep("increment"), ActionStep("increment"), ActionStep("increment"),
			ActionStep("decrement"), ActionStep("decrement"), ActionStep("decrement"), ActionStep("decrement"),
		},
	}
}

// invariantRollbackScenario grounds spec §8 scenario 4: update(0.5) commits,
// update(0.6) rolls back because elapsed would exceed 1.0.
func invariantRollbackScenario() Scenario {
	space := &ast.Space{
		Name:  "clock",
		State: []*ast.StateField{numberField("elapsed", 0)},
		Invariants: []*ast.Invariant{
			{Name: "bounded", Cond: &ast.BinaryExpr{Op: ast.OpLe, Left: &ast.Ident{Name: "elapsed"}, Right: &ast.NumberLit{Value: 1.0}}},
		},
		Update: &ast.Update{
			Param: "dt",
			Body: []ast.Stmt{&ast.SetStmt{
				Path:  []string{"elapsed"},
				Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "elapsed"}, Right: &ast.Ident{Name: "dt"}},
			}},
		},
	}
	return Scenario{
		Name:    "invariant-rollback",
		Program: &ast.Program{Space: space},
		Steps:   []Step{UpdateStep(0.5), UpdateStep(0.6)},
	}
}

func TestParityCounterWasmtime(t *testing.T) {
	results, err := Check(counterScenario(), EngineWasmtime)
	require.NoError(t, err)
	require.Len(t, results, 7)
}

func TestParityCounterWasmer(t *testing.T) {
	results, err := Check(counterScenario(), EngineWasmer)
	require.NoError(t, err)
	require.Len(t, results, 7)
}

func TestParityInvariantRollback(t *testing.T) {
	results, err := Check(invariantRollbackScenario(), EngineWasmtime)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].EvalCommitted)
	require.False(t, results[1].EvalCommitted)
	require.Equal(t, "bounded", results[1].EvalInvariant)
}
