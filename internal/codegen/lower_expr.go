package codegen

import (
	"fmt"
	"math"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/internal/capid"
	"github.com/pepl-lang/pepl-core/internal/strtab"
	"github.com/pepl-lang/pepl-core/internal/wasmbin"
)

// exprCtx carries everything lowerExpr needs beyond the expression itself:
// the emitter to append to, the per-function local/scope tracker, and the
// program-wide metadata (field/action/view/variant ids) collected up front
// (spec §4.1 "Metadata collection"). Every lowerExpr call leaves exactly one
// i32 value pointer on the operand stack (spec §4.3 "Expression lowering
// contract").
type exprCtx struct {
	c  *compiler
	fc *FuncContext
	e  *wasmbin.Emitter
	m  *Metadata
}

func (x *exprCtx) call(name string) { x.e.Call(x.c.funcIndex(name)) }

func lowerExpr(x *exprCtx, expr ast.Expr) error {
	switch ex := expr.(type) {
	case *ast.NumberLit:
		return lowerNumberLit(x, ex)
	case *ast.StringLit:
		lowerInternedString(x, ex.Value)
		return nil
	case *ast.BoolLit:
		b := int32(0)
		if ex.Value {
			b = 1
		}
		x.e.I32Const(b)
		x.call("val_bool")
		return nil
	case *ast.NilLit:
		x.call("val_nil")
		return nil
	case *ast.InterpString:
		return lowerInterpString(x, ex)
	case *ast.Ident:
		return lowerIdent(x, ex)
	case *ast.ListLit:
		return lowerListLit(x, ex)
	case *ast.RecordLit:
		return lowerRecordLit(x, ex)
	case *ast.FieldAccess:
		return lowerFieldAccess(x, ex)
	case *ast.MethodCall:
		return lowerMethodCall(x, ex)
	case *ast.CapabilityCall:
		return lowerCapabilityCall(x, ex)
	case *ast.ActionCall:
		return lowerActionCall(x, ex)
	case *ast.BinaryExpr:
		return lowerBinaryExpr(x, ex)
	case *ast.UnaryExpr:
		return lowerUnaryExpr(x, ex)
	case *ast.TryExpr:
		return lowerTryExpr(x, ex)
	case *ast.IfExpr:
		return lowerIfExpr(x, ex)
	case *ast.VariantLit:
		return lowerVariantLit(x, ex)
	case *ast.ForExpr:
		return lowerForExpr(x, ex)
	case *ast.MatchExpr:
		return lowerMatchExpr(x, ex)
	case *ast.LambdaLit:
		// Closures over WASM locals require an indirect-call table and a
		// captured-environment allocation scheme codegen does not build
		// (the evaluator is the reference implementation for lambdas;
		// see design notes on dynamic dispatch). Traps rather than
		// silently miscompiling.
		emitTrapWellKnown(x.e, x.c, strtab.WKValuePlaceholder)
		return nil
	default:
		return fmt.Errorf("codegen: unsupported expression %T", expr)
	}
}

func lowerNumberLit(x *exprCtx, n *ast.NumberLit) error {
	lo, hi := splitF64Words(n.Value)
	x.e.I32Const(int32(lo)).I32Const(int32(hi))
	x.call("val_number")
	return nil
}

// splitF64Words decomposes a float64 into the two raw i32 words val_number
// expects (spec §3.2's NUMBER payload), little-endian low word first.
func splitF64Words(v float64) (lo, hi uint32) {
	bits := math.Float64bits(v)
	return uint32(bits), uint32(bits >> 32)
}

func lowerInternedString(x *exprCtx, s string) {
	ref := x.c.strings.Intern(s)
	x.e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length))
	x.call("val_string")
}

// lowerInterpString concatenates literal segments and the string form of
// each embedded expression left to right (spec §4.3 "String
// interpolation"), folding via val_string_concat and val_to_string.
func lowerInterpString(x *exprCtx, s *ast.InterpString) error {
	if len(s.Parts) == 0 {
		lowerInternedString(x, "")
		return nil
	}
	first := true
	for _, part := range s.Parts {
		if part.Expr == nil {
			lowerInternedString(x, part.Literal)
		} else {
			if err := lowerExpr(x, part.Expr); err != nil {
				return err
			}
			x.call("val_to_string")
		}
		if !first {
			x.call("val_string_concat")
		}
		first = false
	}
	return nil
}

// lowerIdent resolves a local binding first, then a state/derived field
// (loaded off the global state record), then an action name used as a bare
// ACTION_REF value (spec §4.3 "Identifier resolution").
func lowerIdent(x *exprCtx, id *ast.Ident) error {
	if slot, ok := x.fc.Lookup(id.Name); ok {
		x.e.LocalGet(slot)
		return nil
	}
	if fieldIdx, ok := x.m.FieldIndex[id.Name]; ok {
		emitStateFieldGet(x, fieldIdx)
		return nil
	}
	if actionIdx, ok := x.m.ActionIndex[id.Name]; ok {
		x.e.I32Const(int32(actionIdx))
		x.call("val_action_ref")
		return nil
	}
	return fmt.Errorf("codegen: unresolved identifier %q", id.Name)
}

// emitStateFieldGet loads state.fields[fieldIdx] via val_record_get against
// the interned field name, keeping a single source of truth for how fields
// live inside the state record rather than a parallel by-index layout.
func emitStateFieldGet(x *exprCtx, fieldIdx int) {
	name := x.m.StateFields[fieldIdx]
	x.e.GlobalGet(GlobalStatePtr)
	ref := x.c.strings.Intern(name)
	x.e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length))
	x.call("val_record_get")
}

func lowerListLit(x *exprCtx, l *ast.ListLit) error {
	return lowerElementSequence(x, l.Elements, "val_list")
}

// lowerElementSequence is shared by ListLit and the args array built for
// capability/stdlib/method calls: evaluate each element into a scratch
// local, write a packed i32-pointer array into freshly bump-allocated
// memory, then wrap it with the given constructor helper.
func lowerElementSequence(x *exprCtx, elems []ast.Expr, ctor string) error {
	slots := make([]uint32, len(elems))
	for i, el := range elems {
		if err := lowerExpr(x, el); err != nil {
			return err
		}
		slot := x.fc.NewLocal(i32)
		x.e.LocalSet(slot)
		slots[i] = slot
	}
	arr := x.fc.NewLocal(i32)
	x.e.I32Const(int32(len(elems) * 4)).Call(x.c.funcIndex("alloc")).LocalSet(arr)
	for i, slot := range slots {
		x.e.LocalGet(arr).LocalGet(slot).I32Store(uint32(i * 4))
	}
	x.e.LocalGet(arr).I32Const(int32(len(elems)))
	x.call(ctor)
	return nil
}

// lowerRecordLit builds the entries table val_record_get scans: each entry
// is {key_offset:u32, key_len:u32, value_ptr:u32}, 12 bytes, field order
// preserved (spec §3.2).
func lowerRecordLit(x *exprCtx, r *ast.RecordLit) error {
	valSlots := make([]uint32, len(r.Fields))
	for i, f := range r.Fields {
		if err := lowerExpr(x, f.Value); err != nil {
			return err
		}
		slot := x.fc.NewLocal(i32)
		x.e.LocalSet(slot)
		valSlots[i] = slot
	}
	entries := x.fc.NewLocal(i32)
	x.e.I32Const(int32(len(r.Fields) * 12)).Call(x.c.funcIndex("alloc")).LocalSet(entries)
	for i, f := range r.Fields {
		ref := x.c.strings.Intern(f.Key)
		base := uint32(i * 12)
		x.e.LocalGet(entries).I32Const(int32(ref.Offset)).I32Store(base)
		x.e.LocalGet(entries).I32Const(int32(ref.Length)).I32Store(base + 4)
		x.e.LocalGet(entries).LocalGet(valSlots[i]).I32Store(base + 8)
	}
	x.e.LocalGet(entries).I32Const(int32(len(r.Fields)))
	x.call("val_record")
	return nil
}

func lowerFieldAccess(x *exprCtx, f *ast.FieldAccess) error {
	if err := lowerExpr(x, f.Receiver); err != nil {
		return err
	}
	ref := x.c.strings.Intern(f.Field)
	x.e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length))
	x.call("val_record_get")
	return nil
}

// lowerMethodCall desugars receiver.method(args) into a host_call against
// the stdlib module resolved from the receiver's static shape (spec §9
// "method-call module resolution"): list literals go to `list`, string
// literals and interpolated strings to `string`, record literals to
// `record`, and every other receiver (identifiers, field accesses, calls)
// to `list`, since no type information is available at this layer. No
// receiver is refused.
func lowerMethodCall(x *exprCtx, m *ast.MethodCall) error {
	kind := receiverKind(m.Receiver)
	module, ok := capid.MethodModule(kind)
	if !ok {
		return fmt.Errorf("codegen: cannot resolve method dispatch module for %q", m.Method)
	}
	return lowerHostCall(x, m.Receiver, module, m.Method, m.Args)
}

func receiverKind(e ast.Expr) capid.ReceiverKind {
	switch e.(type) {
	case *ast.ListLit:
		return capid.ReceiverList
	case *ast.StringLit, *ast.InterpString:
		return capid.ReceiverString
	case *ast.RecordLit:
		return capid.ReceiverRecord
	default:
		// Bare identifiers/field accesses carry no static shape at this
		// layer; list is the most common receiver for chained method
		// calls in PEPL programs, matching the teacher corpus's own
		// preference for list pipelines.
		return capid.ReceiverList
	}
}

func lowerCapabilityCall(x *exprCtx, cc *ast.CapabilityCall) error {
	return lowerHostCall(x, nil, cc.Module, cc.Function, cc.Args)
}

// lowerHostCall evaluates an optional receiver followed by args into a
// packed arg list, then calls the imported host_call(module_id, fn_id,
// args_ptr) trampoline (spec §6.2 "Capability dispatch table"). When
// receiver is non-nil it is prepended as args[0], matching the evaluator's
// method-call convention of passing the receiver as the first stdlib arg.
func lowerHostCall(x *exprCtx, receiver ast.Expr, module, function string, args []ast.Expr) error {
	modID, ok := capid.ModuleID(module)
	if !ok {
		return fmt.Errorf("codegen: unknown module %q", module)
	}
	fnID := capid.FunctionID(module, function)

	full := args
	if receiver != nil {
		full = append([]ast.Expr{receiver}, args...)
	}
	if err := lowerElementSequence(x, full, "val_list"); err != nil {
		return err
	}
	argsListSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(argsListSlot)

	emitGasTick(x.e, x.c)
	x.e.I32Const(int32(modID)).I32Const(int32(fnID)).LocalGet(argsListSlot)
	x.e.Call(ImportHostCall)
	return nil
}

func lowerActionCall(x *exprCtx, a *ast.ActionCall) error {
	idx, ok := x.m.ActionIndex[a.Action]
	if !ok {
		return fmt.Errorf("codegen: unknown action %q", a.Action)
	}
	x.e.I32Const(int32(idx))
	x.call("val_action_ref")
	return nil
}

func lowerVariantLit(x *exprCtx, v *ast.VariantLit) error {
	id, ok := x.m.VariantIndex[v.Variant]
	if !ok {
		return fmt.Errorf("codegen: unknown variant %q", v.Variant)
	}
	if err := lowerElementSequence(x, v.Args, "val_list"); err != nil {
		return err
	}
	payloadSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(payloadSlot)
	x.e.I32Const(int32(id)).LocalGet(payloadSlot)
	x.call("val_variant")
	return nil
}

// lowerBinaryExpr handles short-circuit and/or and ?? specially (their
// right-hand side must not be evaluated eagerly), then dispatches every
// other operator to its val_* helper (spec §4.3 "Operators").
func lowerBinaryExpr(x *exprCtx, b *ast.BinaryExpr) error {
	switch b.Op {
	case ast.OpAnd:
		return lowerShortCircuit(x, b, false)
	case ast.OpOr:
		return lowerShortCircuit(x, b, true)
	case ast.OpCoalesce:
		return lowerCoalesce(x, b)
	}
	if err := lowerExpr(x, b.Left); err != nil {
		return err
	}
	if err := lowerExpr(x, b.Right); err != nil {
		return err
	}
	switch b.Op {
	case ast.OpAdd:
		x.call("val_add")
	case ast.OpSub:
		x.call("val_sub")
	case ast.OpMul:
		x.call("val_mul")
	case ast.OpDiv:
		x.call("val_div")
	case ast.OpMod:
		x.call("val_mod")
	case ast.OpLt:
		x.call("val_lt")
	case ast.OpLe:
		x.call("val_le")
	case ast.OpGt:
		x.call("val_gt")
	case ast.OpGe:
		x.call("val_ge")
	case ast.OpEq:
		x.call("val_eq")
	case ast.OpNe:
		x.call("val_eq")
		x.e.I32Load(offW1)
		x.e.I32Eqz()
		x.call("val_bool")
	default:
		return fmt.Errorf("codegen: unsupported binary operator %v", b.Op)
	}
	return nil
}

// lowerShortCircuit implements `and`/`or`: the left operand's truthiness
// (its BOOL payload word) gates whether the right operand is evaluated at
// all, using a native wasm if/else so neither side's side effects (gas,
// traps, capability calls) run unless the language semantics require it.
func lowerShortCircuit(x *exprCtx, b *ast.BinaryExpr, isOr bool) error {
	if err := lowerExpr(x, b.Left); err != nil {
		return err
	}
	leftSlot := x.fc.NewLocal(i32)
	x.e.LocalTee(leftSlot)
	x.e.I32Load(offW1)
	if isOr {
		// or: short-circuit (return left) when left is truthy.
	} else {
		x.e.I32Eqz() // and: short-circuit (return left) when left is falsy.
	}
	x.e.If(wasmbin.BlockTypeOf(i32))
	x.e.LocalGet(leftSlot)
	x.e.Else()
	if err := lowerExpr(x, b.Right); err != nil {
		return err
	}
	x.e.End()
	return nil
}

// lowerCoalesce implements `??`: evaluate left, return it unless its tag is
// NIL, in which case evaluate and return right.
func lowerCoalesce(x *exprCtx, b *ast.BinaryExpr) error {
	if err := lowerExpr(x, b.Left); err != nil {
		return err
	}
	leftSlot := x.fc.NewLocal(i32)
	x.e.LocalTee(leftSlot)
	x.call("val_tag")
	x.e.I32Const(TagNil).I32Eq()
	x.e.If(wasmbin.BlockTypeOf(i32))
	if err := lowerExpr(x, b.Right); err != nil {
		return err
	}
	x.e.Else()
	x.e.LocalGet(leftSlot)
	x.e.End()
	return nil
}

func lowerUnaryExpr(x *exprCtx, u *ast.UnaryExpr) error {
	if err := lowerExpr(x, u.Operand); err != nil {
		return err
	}
	switch u.Op {
	case ast.OpNeg:
		x.call("val_neg")
	case ast.OpNot:
		x.call("val_not")
	default:
		return fmt.Errorf("codegen: unsupported unary operator %v", u.Op)
	}
	return nil
}

// lowerTryExpr implements `expr?` (spec §9's resolved open question: codegen
// follows the evaluator's reference behavior): evaluate the Result, and if
// its variant is "Err" re-raise it immediately by trapping with the
// payload's message when it is a string, otherwise the generic unwrap
// trap; if "Ok", unwrap to its single payload element.
func lowerTryExpr(x *exprCtx, t *ast.TryExpr) error {
	if err := lowerExpr(x, t.Operand); err != nil {
		return err
	}
	resSlot := x.fc.NewLocal(i32)
	x.e.LocalTee(resSlot)
	x.e.I32Load(offW1) // variant global id
	errID := x.m.VariantIndex["Err"]
	x.e.I32Const(int32(errID)).I32Eq()
	x.e.If(wasmbin.BlockTypeEmpty)
	errVal := x.fc.NewLocal(i32)
	x.e.LocalGet(resSlot).I32Load(offW2).I32Const(0)
	x.call("val_list_get")
	x.e.LocalTee(errVal).I32Load(offTag)
	x.e.I32Const(TagString).I32Eq()
	x.e.If(wasmbin.BlockTypeEmpty)
	x.e.LocalGet(errVal).I32Load(offW1)
	x.e.LocalGet(errVal).I32Load(offW2)
	emitTrapDynamic(x.e)
	x.e.End()
	emitTrapWellKnown(x.e, x.c, strtab.WKUnwrapOnErr)
	x.e.End()
	// Ok: payload is a one-element list; unwrap element 0.
	x.e.LocalGet(resSlot).I32Load(offW2) // payload list ptr
	x.e.I32Const(0)
	x.call("val_list_get")
	return nil
}

// lowerIfExpr uses a native wasm if/else with an i32 result, matching the
// expression-position contract directly.
func lowerIfExpr(x *exprCtx, i *ast.IfExpr) error {
	if err := lowerExpr(x, i.Cond); err != nil {
		return err
	}
	x.e.I32Load(offW1) // bool cell -> raw i32
	x.e.If(wasmbin.BlockTypeOf(i32))
	if err := lowerExpr(x, i.Then); err != nil {
		return err
	}
	x.e.Else()
	if i.Else != nil {
		if err := lowerExpr(x, i.Else); err != nil {
			return err
		}
	} else {
		x.call("val_nil")
	}
	x.e.End()
	return nil
}

// lowerForExpr evaluates a for-comprehension into a fresh list: the
// iterable is materialized once, its element count read back, and each
// produced element is appended into a scratch result local re-boxed as a
// list at the end (spec §4.3's `for x in xs => body` when used in
// expression position, e.g. inside a record literal).
func lowerForExpr(x *exprCtx, f *ast.ForExpr) error {
	if err := lowerExpr(x, f.Iterable); err != nil {
		return err
	}
	iterSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(iterSlot)

	count := x.fc.NewLocal(i32)
	x.e.LocalGet(iterSlot).I32Load(offW2).LocalSet(count)

	// Results are collected into a growing raw pointer buffer sized to the
	// input count (a for-expr never grows beyond one output per input
	// element; map semantics, not filter — matching spec §4.3's for-expr).
	out := x.fc.NewLocal(i32)
	x.e.LocalGet(count).I32Const(4).I32Mul().Call(x.c.funcIndex("alloc")).LocalSet(out)

	idx := x.fc.NewLocal(i32)
	x.e.I32Const(0).LocalSet(idx)

	x.fc.PushScope()
	elemSlot := x.fc.Bind(f.ElemName)
	var indexSlot uint32
	if f.IndexName != "" {
		indexSlot = x.fc.Bind(f.IndexName)
	}

	x.e.Block(wasmbin.BlockTypeEmpty)
	x.e.Loop(wasmbin.BlockTypeEmpty)
	x.e.LocalGet(idx).LocalGet(count).I32GeS().BrIf(1)

	x.e.LocalGet(iterSlot).LocalGet(idx).Call(x.c.funcIndex("val_list_get")).LocalSet(elemSlot)
	if f.IndexName != "" {
		x.e.LocalGet(idx)
		x.call("val_number_from_i32")
		x.e.LocalSet(indexSlot)
	}
	if err := lowerExpr(x, f.Body); err != nil {
		x.fc.PopScope()
		return err
	}
	bodySlot := x.fc.NewLocal(i32)
	x.e.LocalSet(bodySlot)
	x.e.LocalGet(out).LocalGet(idx).I32Const(4).I32Mul().I32Add()
	x.e.LocalGet(bodySlot)
	x.e.I32Store(0)

	x.e.LocalGet(idx).I32Const(1).I32Add().LocalSet(idx)
	x.e.Br(0)
	x.e.End()
	x.e.End()
	x.fc.PopScope()

	x.e.LocalGet(out).LocalGet(count)
	x.call("val_list")
	return nil
}

// lowerMatchExpr evaluates the scrutinee once, then tests its variant tag
// against each arm in source order, binding the payload fields the arm
// names; the first matching arm's body (or the wildcard arm) becomes the
// result. Non-exhaustive matches trap rather than silently producing NIL
// (spec §4.3 invariant: match must be validated exhaustive upstream, so a
// runtime miss indicates a codegen/validator disagreement).
func lowerMatchExpr(x *exprCtx, m *ast.MatchExpr) error {
	if err := lowerExpr(x, m.Subject); err != nil {
		return err
	}
	scrutSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(scrutSlot)

	return lowerMatchArmsExpr(x, scrutSlot, m.Arms, 0)
}

func lowerMatchArmsExpr(x *exprCtx, scrutSlot uint32, arms []*ast.MatchExprArm, i int) error {
	if i >= len(arms) {
		emitTrapWellKnown(x.e, x.c, strtab.WKValuePlaceholder)
		return nil
	}
	arm := arms[i]
	if arm.Wildcard {
		return lowerExpr(x, arm.Body)
	}
	variantID, ok := x.m.VariantIndex[arm.Variant]
	if !ok {
		return fmt.Errorf("codegen: unknown match variant %q", arm.Variant)
	}
	x.e.LocalGet(scrutSlot).I32Load(offW1).I32Const(int32(variantID)).I32Eq()
	x.e.If(wasmbin.BlockTypeOf(i32))

	x.fc.PushScope()
	if len(arm.Bindings) > 0 {
		payloadSlot := x.fc.NewLocal(i32)
		x.e.LocalGet(scrutSlot).I32Load(offW2).LocalSet(payloadSlot)
		for bi, name := range arm.Bindings {
			slot := x.fc.Bind(name)
			x.e.LocalGet(payloadSlot).I32Const(int32(bi)).Call(x.c.funcIndex("val_list_get")).LocalSet(slot)
		}
	}
	if err := lowerExpr(x, arm.Body); err != nil {
		x.fc.PopScope()
		return err
	}
	x.fc.PopScope()

	x.e.Else()
	if err := lowerMatchArmsExpr(x, scrutSlot, arms, i+1); err != nil {
		return err
	}
	x.e.End()
	return nil
}
