package eval

import (
	"errors"
	"fmt"

	"github.com/pepl-lang/pepl-core/ast"
)

// CaseResult is the outcome of one `test` block.
type CaseResult struct {
	Name    string
	Passed  bool
	Message string
}

// RunSummary aggregates pass/fail counts and per-case messages across a
// program's `test` blocks (spec §4.4 "Test runner").
type RunSummary struct {
	Cases  []CaseResult
	Passed int
	Failed int
}

func (s *RunSummary) add(r CaseResult) {
	s.Cases = append(s.Cases, r)
	if r.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
}

// RunTests executes every test block in space against a fresh
// SpaceInstance, installing its with_responses mocks first. Unqualified
// calls inside a test body resolve to action dispatches; assertion failures
// and runtime errors mark the case failed.
func RunTests(space *ast.Space) (*RunSummary, error) {
	summary := &RunSummary{}
	for _, t := range space.Tests {
		result, err := runOneTest(space, t)
		if err != nil {
			return nil, fmt.Errorf("running test %q: %w", t.Name, err)
		}
		summary.add(result)
	}
	return summary, nil
}

func runOneTest(space *ast.Space, t *ast.Test) (CaseResult, error) {
	si, err := NewSpaceInstance(space)
	if err != nil {
		return CaseResult{}, err
	}
	for _, mock := range t.Responses {
		v, err := si.ev.EvalExpr(mock.Value)
		if err != nil {
			return CaseResult{}, err
		}
		si.InstallMock(mock.Module, mock.Function, v)
	}

	for _, stmt := range t.Body {
		if err := runTestStmt(si, stmt); err != nil {
			var assertErr AssertionFailedError
			if errors.As(err, &assertErr) {
				return CaseResult{Name: t.Name, Passed: false, Message: assertErr.Error()}, nil
			}
			return CaseResult{Name: t.Name, Passed: false, Message: err.Error()}, nil
		}
	}
	return CaseResult{Name: t.Name, Passed: true}, nil
}

// runTestStmt executes one top-level statement of a test body. An
// unqualified `ExprStmt` call to a bare action name resolves to a dispatch
// (spec §4.4 "Test runner": "Unqualified calls inside a test body resolve
// to action dispatches"); everything else runs through the ordinary
// statement evaluator, including `assert`.
func runTestStmt(si *SpaceInstance, stmt ast.Stmt) error {
	if call, ok := asActionCallStmt(stmt); ok {
		args, err := si.ev.EvalExprs(call.Args)
		if err != nil {
			return err
		}
		_, err = si.Dispatch(call.Action, args)
		return err
	}
	return si.ev.ExecStmt(stmt)
}

func asActionCallStmt(stmt ast.Stmt) (*ast.ActionCall, bool) {
	exprStmt, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return nil, false
	}
	call, ok := exprStmt.Expr.(*ast.ActionCall)
	return call, ok
}
