package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/value"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(NewEnvironment(), map[string]int{})
}

func TestEvalExprArithmetic(t *testing.T) {
	ev := newTestEvaluator()
	v, err := ev.EvalExpr(&ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.NumberLit{Value: 2}, Right: &ast.NumberLit{Value: 3}})
	require.NoError(t, err)
	require.True(t, value.Eq(value.NumberValue(5), v))
}

func TestEvalExprDivisionByZeroTraps(t *testing.T) {
	ev := newTestEvaluator()
	_, err := ev.EvalExpr(&ast.BinaryExpr{Op: ast.OpDiv, Left: &ast.NumberLit{Value: 1}, Right: &ast.NumberLit{Value: 0}})
	require.Error(t, err)
	var trap ArithmeticTrapError
	require.True(t, errors.As(err, &trap))
}

func TestEvalExprGasExhausted(t *testing.T) {
	ev := newTestEvaluator()
	ev.SetGasLimit(2)
	_, err := ev.EvalExpr(&ast.BinaryExpr{
		Op:   ast.OpAdd,
		Left: &ast.NumberLit{Value: 1},
		Right: &ast.BinaryExpr{
			Op: ast.OpAdd, Left: &ast.NumberLit{Value: 1}, Right: &ast.NumberLit{Value: 1},
		},
	})
	require.Error(t, err)
	var gasErr GasExhaustedError
	require.True(t, errors.As(err, &gasErr))
}

func TestExecAssertTrapsWithMessage(t *testing.T) {
	ev := newTestEvaluator()
	err := ev.ExecStmts([]ast.Stmt{&ast.AssertStmt{
		Cond: &ast.BoolLit{Value: false},
		Msg:  &ast.StringLit{Value: "nope"},
	}})
	require.Error(t, err)
	var af AssertionFailedError
	require.True(t, errors.As(err, &af))
	require.Equal(t, "nope", af.Message)
}

func TestEvalTryUnwrapsOkAndTrapsOnErr(t *testing.T) {
	ev := newTestEvaluator()
	v, err := ev.EvalExpr(&ast.TryExpr{Operand: &ast.VariantLit{Variant: "Ok", Args: []ast.Expr{&ast.NumberLit{Value: 9}}}})
	require.NoError(t, err)
	require.True(t, value.Eq(value.NumberValue(9), v))

	_, err = ev.EvalExpr(&ast.TryExpr{Operand: &ast.VariantLit{Variant: "Err", Args: []ast.Expr{&ast.StringLit{Value: "boom"}}}})
	require.Error(t, err)
	var uw UnwrapError
	require.True(t, errors.As(err, &uw))
}

func TestMatchExprDispatchesByVariant(t *testing.T) {
	ev := newTestEvaluator()
	v, err := ev.EvalExpr(&ast.MatchExpr{
		Subject: &ast.VariantLit{Variant: "Ok", Args: []ast.Expr{&ast.NumberLit{Value: 7}}},
		Arms: []*ast.MatchExprArm{
			{Variant: "Ok", Bindings: []string{"n"}, Body: &ast.Ident{Name: "n"}},
			{Wildcard: true, Body: &ast.NumberLit{Value: -1}},
		},
	})
	require.NoError(t, err)
	require.True(t, value.Eq(value.NumberValue(7), v))
}
