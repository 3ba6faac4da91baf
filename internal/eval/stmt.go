package eval

import (
	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/value"
)

// ExecStmts runs a statement list in source order, stopping at the first
// error (including a returnSignal unwinding to the dispatch boundary).
func (ev *Evaluator) ExecStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := ev.ExecStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) ExecStmt(s ast.Stmt) error {
	if err := ev.tick(); err != nil {
		return err
	}
	switch n := s.(type) {
	case *ast.SetStmt:
		return ev.execSet(n)
	case *ast.LetStmt:
		return ev.execLet(n)
	case *ast.IfStmt:
		return ev.execIf(n)
	case *ast.ForStmt:
		return ev.execFor(n)
	case *ast.MatchStmt:
		return ev.execMatch(n)
	case *ast.ReturnStmt:
		return returnSignal{}
	case *ast.AssertStmt:
		return ev.execAssert(n)
	case *ast.ExprStmt:
		_, err := ev.EvalExpr(n.Expr)
		return err
	default:
		return UndefinedBindingError{Name: "unsupported statement node"}
	}
}

// execSet implements both `set name = expr` and the nested-path two-phase
// algorithm from spec §4.3: walk down to read intermediate records, then
// rebuild from the innermost replaced field back up to the state field
// itself, which is what actually lands in the global map.
func (ev *Evaluator) execSet(n *ast.SetStmt) error {
	v, err := ev.EvalExpr(n.Value)
	if err != nil {
		return err
	}
	root := n.Path[0]
	if len(n.Path) == 1 {
		if ev.Env.Set(root, v) {
			return nil
		}
		ev.Env.DefineGlobal(root, v)
		return nil
	}

	rootVal, ok := ev.Env.GetGlobal(root)
	if !ok {
		rootVal, _ = ev.Env.Get(root)
	}
	// Walk down, keeping every intermediate record on the way.
	chain := make([]value.Value, len(n.Path))
	chain[0] = rootVal
	for i := 1; i < len(n.Path)-1; i++ {
		chain[i] = chain[i-1].RecordGet(n.Path[i])
	}
	// Rebuild up: replace the final field, then splice each enclosing
	// record, from deepest to outermost.
	newVal := v
	for i := len(n.Path) - 1; i > 0; i-- {
		parent := chain[i-1]
		newVal = parent.RecordWith(n.Path[i], newVal)
	}
	ev.Env.DefineGlobal(root, newVal)
	return nil
}

func (ev *Evaluator) execLet(n *ast.LetStmt) error {
	v, err := ev.EvalExpr(n.Value)
	if err != nil {
		return err
	}
	if n.Name != "" {
		ev.Env.Define(n.Name, v)
	}
	return nil
}

func (ev *Evaluator) execIf(n *ast.IfStmt) error {
	cond, err := ev.EvalExpr(n.Cond)
	if err != nil {
		return err
	}
	ev.Env.PushScope()
	defer ev.Env.PopScope()
	if cond.Bool {
		return ev.ExecStmts(n.Then)
	}
	return ev.ExecStmts(n.Else)
}

func (ev *Evaluator) execFor(n *ast.ForStmt) error {
	iter, err := ev.EvalExpr(n.Iterable)
	if err != nil {
		return err
	}
	ev.Env.PushScope()
	defer ev.Env.PopScope()
	for i, item := range iter.Items {
		if err := ev.tick(); err != nil {
			return err
		}
		if n.IndexName != "" {
			ev.Env.Define(n.IndexName, value.NumberValue(float64(i)))
		}
		if n.ElemName != "" {
			ev.Env.Define(n.ElemName, item)
		}
		if err := ev.ExecStmts(n.Body); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) execMatch(n *ast.MatchStmt) error {
	subject, err := ev.EvalExpr(n.Subject)
	if err != nil {
		return err
	}
	for _, a := range n.Arms {
		if a.Wildcard {
			return ev.execMatchArm(a, subject)
		}
		if subject.Tag == value.Variant || subject.Tag == value.Result {
			if subject.VariantName == a.Variant {
				return ev.execMatchArm(a, subject)
			}
		}
	}
	return nil
}

func (ev *Evaluator) execMatchArm(a *ast.MatchArm, subject value.Value) error {
	ev.Env.PushScope()
	defer ev.Env.PopScope()
	for i, name := range a.Bindings {
		if i < len(subject.Payload) {
			ev.Env.Define(name, subject.Payload[i])
		}
	}
	return ev.ExecStmts(a.Body)
}

func (ev *Evaluator) execAssert(n *ast.AssertStmt) error {
	cond, err := ev.EvalExpr(n.Cond)
	if err != nil {
		return err
	}
	if cond.Bool {
		return nil
	}
	msg := ""
	if n.Msg != nil {
		mv, err := ev.EvalExpr(n.Msg)
		if err != nil {
			return err
		}
		msg = value.ToString(mv)
	}
	return AssertionFailedError{Message: msg}
}
