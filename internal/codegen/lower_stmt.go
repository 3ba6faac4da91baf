package codegen

import (
	"fmt"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/internal/strtab"
	"github.com/pepl-lang/pepl-core/internal/wasmbin"
)

// lowerStmts lowers a statement list in order, stopping (but not erroring)
// once an unconditional `return` has been lowered — code after it would be
// unreachable WASM, same as the evaluator's returnSignal short-circuit.
func lowerStmts(x *exprCtx, stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := lowerStmt(x, s); err != nil {
			return err
		}
		if _, ok := s.(*ast.ReturnStmt); ok {
			break
		}
	}
	return nil
}

func lowerStmt(x *exprCtx, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.SetStmt:
		return lowerSetStmt(x, s)
	case *ast.LetStmt:
		return lowerLetStmt(x, s)
	case *ast.IfStmt:
		return lowerIfStmt(x, s)
	case *ast.ForStmt:
		return lowerForStmt(x, s)
	case *ast.MatchStmt:
		return lowerMatchStmt(x, s)
	case *ast.ReturnStmt:
		// The dispatch trampoline in space_funcs.go wraps every action body
		// in a block it can branch out of; `return` simply branches to
		// that block's end (depth resolved by the caller via fc's return
		// target, tracked the same way loop/match labels are).
		x.e.Br(x.fc.returnDepth())
		return nil
	case *ast.AssertStmt:
		return lowerAssertStmt(x, s)
	case *ast.ExprStmt:
		if err := lowerExpr(x, s.Expr); err != nil {
			return err
		}
		x.e.Drop()
		return nil
	default:
		return fmt.Errorf("codegen: unsupported statement %T", stmt)
	}
}

// lowerSetStmt implements the two-phase nested-path assignment (spec §4.3
// "set"): single-segment paths store directly; multi-segment paths read
// down through each intermediate record, then rebuild bottom-up with
// val_record_with before writing the new root back to the state field.
func lowerSetStmt(x *exprCtx, s *ast.SetStmt) error {
	if err := lowerExpr(x, s.Value); err != nil {
		return err
	}
	valueSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(valueSlot)

	if len(s.Path) == 1 {
		return storeStateField(x, s.Path[0], valueSlot)
	}

	root := s.Path[0]
	rest := s.Path[1:]

	// Phase 1: walk down, remembering each intermediate record value.
	chain := make([]uint32, len(rest)) // chain[i] = record value just before applying rest[i]
	emitStateFieldGet(x, x.m.FieldIndex[root])
	cur := x.fc.NewLocal(i32)
	x.e.LocalSet(cur)
	for i, field := range rest {
		chain[i] = cur
		if i == len(rest)-1 {
			break
		}
		next := x.fc.NewLocal(i32)
		emitRecordGetFromLocal(x, cur, field)
		x.e.LocalSet(next)
		cur = next
	}

	// Phase 2: rebuild bottom-up with val_record_with(rec, key, value).
	newVal := valueSlot
	for i := len(rest) - 1; i >= 0; i-- {
		rebuilt := x.fc.NewLocal(i32)
		emitRecordWith(x, chain[i], rest[i], newVal)
		x.e.LocalSet(rebuilt)
		newVal = rebuilt
	}
	return storeStateField(x, root, newVal)
}

func emitRecordGetFromLocal(x *exprCtx, recSlot uint32, field string) {
	ref := x.c.strings.Intern(field)
	x.e.LocalGet(recSlot)
	x.e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length))
	x.call("val_record_get")
}

func emitRecordWith(x *exprCtx, recSlot uint32, field string, valSlot uint32) {
	ref := x.c.strings.Intern(field)
	x.e.LocalGet(recSlot)
	x.e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length))
	x.e.LocalGet(valSlot)
	x.call("val_record_with")
}

func storeStateField(x *exprCtx, name string, valSlot uint32) error {
	fieldIdx, ok := x.m.FieldIndex[name]
	if !ok {
		return fmt.Errorf("codegen: set on unknown field %q", name)
	}
	ref := x.c.strings.Intern(name)
	x.e.GlobalGet(GlobalStatePtr)
	x.e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length))
	x.e.LocalGet(valSlot)
	x.call("val_record_with")
	x.e.GlobalSet(GlobalStatePtr)
	_ = fieldIdx
	return nil
}

func lowerLetStmt(x *exprCtx, s *ast.LetStmt) error {
	if err := lowerExpr(x, s.Value); err != nil {
		return err
	}
	if s.Name == "" {
		x.e.Drop()
		return nil
	}
	slot := x.fc.Bind(s.Name)
	x.e.LocalSet(slot)
	return nil
}

func lowerIfStmt(x *exprCtx, s *ast.IfStmt) error {
	if err := lowerExpr(x, s.Cond); err != nil {
		return err
	}
	x.e.I32Load(offW1)
	x.e.If(wasmbin.BlockTypeEmpty)
	x.fc.EnterBlock()
	x.fc.PushScope()
	if err := lowerStmts(x, s.Then); err != nil {
		x.fc.PopScope()
		x.fc.ExitBlock()
		return err
	}
	x.fc.PopScope()
	if len(s.Else) > 0 {
		x.e.Else()
		x.fc.PushScope()
		if err := lowerStmts(x, s.Else); err != nil {
			x.fc.PopScope()
			x.fc.ExitBlock()
			return err
		}
		x.fc.PopScope()
	}
	x.fc.ExitBlock()
	x.e.End()
	return nil
}

// lowerForStmt implements `for [i,] x in xs { body }` as a statement: the
// iterable is materialized once, iterated by index with a gas tick per
// loop head (spec §4.2 "Gas metering" applies at loop heads as well as call
// sites), body executed for effect only.
func lowerForStmt(x *exprCtx, s *ast.ForStmt) error {
	if err := lowerExpr(x, s.Iterable); err != nil {
		return err
	}
	iterSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(iterSlot)
	count := x.fc.NewLocal(i32)
	x.e.LocalGet(iterSlot).I32Load(offW2).LocalSet(count)

	idx := x.fc.NewLocal(i32)
	x.e.I32Const(0).LocalSet(idx)

	x.fc.PushScope()
	elemSlot := x.fc.Bind(s.ElemName)
	var indexSlot uint32
	if s.IndexName != "" {
		indexSlot = x.fc.Bind(s.IndexName)
	}

	x.e.Block(wasmbin.BlockTypeEmpty)
	x.fc.EnterBlock()
	x.e.Loop(wasmbin.BlockTypeEmpty)
	x.fc.EnterBlock()
	emitGasTick(x.e, x.c)
	x.e.LocalGet(idx).LocalGet(count).I32GeS().BrIf(1)

	x.e.LocalGet(iterSlot).LocalGet(idx).Call(x.c.funcIndex("val_list_get")).LocalSet(elemSlot)
	if s.IndexName != "" {
		x.e.LocalGet(idx)
		x.call("val_number_from_i32")
		x.e.LocalSet(indexSlot)
	}
	if err := lowerStmts(x, s.Body); err != nil {
		x.fc.PopScope()
		x.fc.ExitBlock()
		x.fc.ExitBlock()
		return err
	}

	x.e.LocalGet(idx).I32Const(1).I32Add().LocalSet(idx)
	x.e.Br(0)
	x.fc.ExitBlock()
	x.e.End()
	x.fc.ExitBlock()
	x.e.End()
	x.fc.PopScope()
	return nil
}

// lowerMatchStmt mirrors lowerMatchArmsExpr but executes each arm's body as
// statements for effect rather than producing a value.
func lowerMatchStmt(x *exprCtx, s *ast.MatchStmt) error {
	if err := lowerExpr(x, s.Subject); err != nil {
		return err
	}
	scrutSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(scrutSlot)
	return lowerMatchArmsStmt(x, scrutSlot, s.Arms, 0)
}

func lowerMatchArmsStmt(x *exprCtx, scrutSlot uint32, arms []*ast.MatchArm, i int) error {
	if i >= len(arms) {
		emitTrapWellKnown(x.e, x.c, strtab.WKValuePlaceholder)
		return nil
	}
	arm := arms[i]
	if arm.Wildcard {
		x.fc.PushScope()
		err := lowerStmts(x, arm.Body)
		x.fc.PopScope()
		return err
	}
	variantID, ok := x.m.VariantIndex[arm.Variant]
	if !ok {
		return fmt.Errorf("codegen: unknown match variant %q", arm.Variant)
	}
	x.e.LocalGet(scrutSlot).I32Load(offW1).I32Const(int32(variantID)).I32Eq()
	x.e.If(wasmbin.BlockTypeEmpty)
	x.fc.EnterBlock()

	x.fc.PushScope()
	if len(arm.Bindings) > 0 {
		payloadSlot := x.fc.NewLocal(i32)
		x.e.LocalGet(scrutSlot).I32Load(offW2).LocalSet(payloadSlot)
		for bi, name := range arm.Bindings {
			slot := x.fc.Bind(name)
			x.e.LocalGet(payloadSlot).I32Const(int32(bi)).Call(x.c.funcIndex("val_list_get")).LocalSet(slot)
		}
	}
	if err := lowerStmts(x, arm.Body); err != nil {
		x.fc.PopScope()
		x.fc.ExitBlock()
		return err
	}
	x.fc.PopScope()

	x.e.Else()
	if err := lowerMatchArmsStmt(x, scrutSlot, arms, i+1); err != nil {
		x.fc.ExitBlock()
		return err
	}
	x.fc.ExitBlock()
	x.e.End()
	return nil
}

// lowerAssertStmt traps with the user-supplied message, or the well-known
// "assertion failed" default, when Cond is false (spec §4.3 "assert").
func lowerAssertStmt(x *exprCtx, s *ast.AssertStmt) error {
	if err := lowerExpr(x, s.Cond); err != nil {
		return err
	}
	x.e.I32Load(offW1).I32Eqz()
	x.e.If(wasmbin.BlockTypeEmpty)
	if s.Msg != nil {
		if err := lowerExpr(x, s.Msg); err != nil {
			return err
		}
		x.call("val_to_string")
		msgSlot := x.fc.NewLocal(i32)
		x.e.LocalSet(msgSlot)
		x.e.LocalGet(msgSlot).I32Load(offW1)
		x.e.LocalGet(msgSlot).I32Load(offW2)
		emitTrapDynamic(x.e)
	} else {
		emitTrapWellKnown(x.e, x.c, strtab.WKAssertionFailed)
	}
	x.e.End()
	return nil
}
