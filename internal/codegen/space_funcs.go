package codegen

import (
	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/internal/strtab"
	"github.com/pepl-lang/pepl-core/internal/wasmbin"
)

// defineSpaceFuncs lowers every space-level function in this order: the
// internal recompute_derived helper (registered first because init calls
// it), then the exported init, dispatch_action, render, get_state, and the
// optional update/handle_event callbacks. All reuse the
// exprCtx/lowerExpr/lowerStmts machinery built for general expression and
// statement lowering.
func defineSpaceFuncs(c *compiler, m *Metadata, space *ast.Space) error {
	defineRecomputeDerivedFunc(c, m, space)
	defineInitFunc(c, m, space)
	if err := defineDispatchFunc(c, m, space); err != nil {
		return err
	}
	if err := defineRenderFunc(c, m, space); err != nil {
		return err
	}
	defineGetStateFunc(c)
	if m.HasUpdate {
		if err := defineCallbackFunc(c, m, space, "update", space.Update.Param, space.Update.Body); err != nil {
			return err
		}
	}
	if m.HasOnEvent {
		if err := defineCallbackFunc(c, m, space, "handle_event", space.OnEvent.Param, space.OnEvent.Body); err != nil {
			return err
		}
	}
	return nil
}

// defineInitFunc evaluates every state field's default expression in
// declaration order, assembles the initial state record with a NIL
// placeholder for each derived field, and recomputes derived fields into
// it (spec §4.4 "Construction").
func defineInitFunc(c *compiler, m *Metadata, space *ast.Space) {
	idx := c.defineFunc("init", sig(nil))
	e, fc := newCellEmitter(0)
	x := &exprCtx{c: c, fc: fc, e: e, m: m}

	e.I32Const(0).GlobalSet(GlobalGasCounter)

	fieldCount := len(space.State) + len(space.Derived)
	entries := fc.NewLocal(i32)
	e.I32Const(int32(fieldCount * 12)).Call(c.funcIndex("alloc")).LocalSet(entries)

	for i, f := range space.State {
		emitFieldEntry(x, entries, i, f.Name, f.Default)
	}
	for i, d := range space.Derived {
		emitFieldEntry(x, entries, len(space.State)+i, d.Name, &ast.NilLit{})
	}
	e.LocalGet(entries).I32Const(int32(fieldCount))
	x.call("val_record")
	e.GlobalSet(GlobalStatePtr)

	e.Call(c.funcIndex("recompute_derived"))
	finish(c, idx, e, fc)
}

func emitFieldEntry(x *exprCtx, entries uint32, i int, name string, value ast.Expr) {
	ref := x.c.strings.Intern(name)
	base := uint32(i * 12)
	valSlot := x.fc.NewLocal(i32)
	lowerExpr(x, value)
	x.e.LocalSet(valSlot)
	x.e.LocalGet(entries).I32Const(int32(ref.Offset)).I32Store(base)
	x.e.LocalGet(entries).I32Const(int32(ref.Length)).I32Store(base + 4)
	x.e.LocalGet(entries).LocalGet(valSlot).I32Store(base + 8)
}

// defineRecomputeDerivedFunc rebuilds every derived field from the current
// state record and writes it back via val_record_with (spec §4.4: derived
// fields are recomputed after every successful mutation). Called from init
// and after every dispatch/update/handle_event body runs.
func defineRecomputeDerivedFunc(c *compiler, m *Metadata, space *ast.Space) {
	idx := c.defineFunc("recompute_derived", sig(nil))
	e, fc := newCellEmitter(0)
	x := &exprCtx{c: c, fc: fc, e: e, m: m}
	for _, d := range space.Derived {
		if err := lowerExpr(x, d.Expr); err != nil {
			continue
		}
		valSlot := fc.NewLocal(i32)
		e.LocalSet(valSlot)
		ref := c.strings.Intern(d.Name)
		e.GlobalGet(GlobalStatePtr)
		e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length))
		e.LocalGet(valSlot)
		x.call("val_record_with")
		e.GlobalSet(GlobalStatePtr)
	}
	finish(c, idx, e, fc)
}

// defineGetStateFunc exposes the current state record pointer (spec §4.4
// "get_state"), read by the host between dispatches and by the
// codegen/evaluator parity harness.
func defineGetStateFunc(c *compiler) {
	idx := c.defineFunc("get_state", sig(nil, i32))
	e, fc := newCellEmitter(0)
	e.GlobalGet(GlobalStatePtr)
	finish(c, idx, e, fc)
}

// emitResultRecord builds the {committed: bool, invariant: string|nil}
// record every atomic callback returns (spec §4.4 "Dispatch").
func emitResultRecord(x *exprCtx, committed bool, nameRef *strtab.Ref) {
	b := int32(0)
	if committed {
		b = 1
	}
	x.e.I32Const(b)
	x.call("val_bool")
	committedSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(committedSlot)

	if nameRef != nil {
		x.e.I32Const(int32(nameRef.Offset)).I32Const(int32(nameRef.Length))
		x.call("val_string")
	} else {
		x.call("val_nil")
	}
	invariantSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(invariantSlot)

	entries := x.fc.NewLocal(i32)
	x.e.I32Const(24).Call(x.c.funcIndex("alloc")).LocalSet(entries)
	cRef := x.c.strings.Intern("committed")
	iRef := x.c.strings.Intern("invariant")
	x.e.LocalGet(entries).I32Const(int32(cRef.Offset)).I32Store(0)
	x.e.LocalGet(entries).I32Const(int32(cRef.Length)).I32Store(4)
	x.e.LocalGet(entries).LocalGet(committedSlot).I32Store(8)
	x.e.LocalGet(entries).I32Const(int32(iRef.Offset)).I32Store(12)
	x.e.LocalGet(entries).I32Const(int32(iRef.Length)).I32Store(16)
	x.e.LocalGet(entries).LocalGet(invariantSlot).I32Store(20)
	x.e.LocalGet(entries).I32Const(2)
	x.call("val_record")
}

// emitAtomicBody is the shared transaction shape behind dispatch_action,
// update and handle_event (spec §4.4): run body inside a block `return` can
// branch out of, recompute derived fields, then check every invariant in
// order. Since the value model never mutates a cell in place, "rollback" is
// simply resetting the state global back to the pointer it held before the
// body ran — no field-by-field snapshot/restore is needed the way the
// tree-walking evaluator's mutable environment requires.
//
// reportResult controls the function's own return value: dispatch_action
// returns the {committed, invariant} record (spec §4.1's dispatch_action
// signature), while update/handle_event are declared with no result at all
// (spec §6.1) — the host observes their effect only via get_state.
func emitAtomicBody(x *exprCtx, body []ast.Stmt, invariants []*ast.Invariant, reportResult bool) error {
	e, fc := x.e, x.fc
	snapshot := fc.NewLocal(i32)
	e.GlobalGet(GlobalStatePtr).LocalSet(snapshot)

	e.I32Const(0).GlobalSet(GlobalGasCounter)

	e.Block(wasmbin.BlockTypeEmpty)
	fc.EnterBlock()
	if err := lowerStmts(x, body); err != nil {
		fc.ExitBlock()
		return err
	}
	fc.ExitBlock()
	e.End()

	e.Call(x.c.funcIndex("recompute_derived"))

	for _, inv := range invariants {
		if err := lowerExpr(x, inv.Cond); err != nil {
			return err
		}
		e.I32Load(offW1).I32Eqz()
		e.If(wasmbin.BlockTypeEmpty)
		e.LocalGet(snapshot).GlobalSet(GlobalStatePtr)
		e.Call(x.c.funcIndex("recompute_derived"))
		if reportResult {
			nameRef := x.c.strings.Intern(inv.Name)
			emitResultRecord(x, false, &nameRef)
		}
		e.Return()
		e.End()
	}
	if reportResult {
		emitResultRecord(x, true, nil)
	}
	e.Return()
	return nil
}

// defineDispatchFunc builds the single exported dispatch_action(action_id,
// args_ptr) -> result entry point, switching on the dense action id
// Metadata assigned (spec §4.1 "Metadata collection"): an unknown id traps,
// which can only happen on a host/codegen ABI mismatch.
func defineDispatchFunc(c *compiler, m *Metadata, space *ast.Space) error {
	idx := c.defineFunc("dispatch_action", sig([]wasmbin.ValueType{i32, i32}, i32))
	e, fc := newCellEmitter(2)
	actionID, argsPtr := uint32(0), uint32(1)

	for i, action := range space.Actions {
		e.LocalGet(actionID).I32Const(int32(i)).I32Eq()
		e.If(wasmbin.BlockTypeEmpty)
		x := &exprCtx{c: c, fc: fc, e: e, m: m}
		fc.PushScope()
		for pi, p := range action.Params {
			slot := fc.Bind(p.Name)
			e.LocalGet(argsPtr).I32Const(int32(pi)).Call(c.funcIndex("val_list_get")).LocalSet(slot)
		}
		err := emitAtomicBody(x, action.Body, space.Invariants, true)
		fc.PopScope()
		if err != nil {
			return err
		}
		e.End()
	}
	emitTrapWellKnown(e, c, strtab.WKValuePlaceholder)
	finish(c, idx, e, fc)
	return nil
}

// defineCallbackFunc builds update/handle_event, whose single parameter is
// already a boxed Value (spec §4.3 "update(dt)"/"handle_event(event)") bound
// directly to the function's own param slot rather than unpacked from an
// args list. Neither returns a value (spec §6.1 Exports) — the host checks
// the effect of a call via get_state, not a result record.
func defineCallbackFunc(c *compiler, m *Metadata, space *ast.Space, name, paramName string, body []ast.Stmt) error {
	idx := c.defineFunc(name, sig([]wasmbin.ValueType{i32}))
	e, fc := newCellEmitter(1)
	x := &exprCtx{c: c, fc: fc, e: e, m: m}
	fc.PushScope()
	fc.BindParam(paramName, 0)
	err := emitAtomicBody(x, body, space.Invariants, false)
	fc.PopScope()
	if err != nil {
		return err
	}
	finish(c, idx, e, fc)
	return nil
}

// defineRenderFunc builds the single exported render(view_id) -> i32 entry
// point (spec §4.1 "Pipeline", §6.1 Exports), switching on the dense view id
// Metadata assigned, the same chain-of-Eq shape dispatch_action uses. The
// result is a PEPL LIST of {component, props, children} records (spec §4.4
// "Render" — mirrors the evaluator's surface.Node one level down, as a
// value rather than a Go struct, since codegen has no host-side type to
// hand back through the WASM boundary).
func defineRenderFunc(c *compiler, m *Metadata, space *ast.Space) error {
	idx := c.defineFunc("render", sig([]wasmbin.ValueType{i32}, i32))
	e, fc := newCellEmitter(1)
	viewID := uint32(0)

	for i, v := range space.Views {
		e.LocalGet(viewID).I32Const(int32(i)).I32Eq()
		e.If(wasmbin.BlockTypeEmpty)
		x := &exprCtx{c: c, fc: fc, e: e, m: m}
		if err := lowerUIElements(x, v.Body); err != nil {
			return err
		}
		e.Return()
		e.End()
	}
	emitTrapWellKnown(e, c, strtab.WKValuePlaceholder)
	finish(c, idx, e, fc)
	return nil
}

// lowerUIElements renders a sibling list of UI elements into one flat
// result list, left on the stack. UIIf/UIFor don't each contribute exactly
// one node, so the result is built by accumulation (val_list_append) rather
// than the fixed-size array lowerElementSequence uses for ordinary list
// literals.
func lowerUIElements(x *exprCtx, elems []ast.UIElement) error {
	x.e.I32Const(0).Call(x.c.funcIndex("alloc"))
	x.e.I32Const(0)
	x.call("val_list")
	accSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(accSlot)
	for _, el := range elems {
		if err := lowerUIElement(x, el, accSlot); err != nil {
			return err
		}
	}
	x.e.LocalGet(accSlot)
	return nil
}

func lowerUIElement(x *exprCtx, el ast.UIElement, accSlot uint32) error {
	switch n := el.(type) {
	case *ast.UINode:
		nodeSlot, err := lowerUINode(x, n)
		if err != nil {
			return err
		}
		x.e.LocalGet(accSlot).LocalGet(nodeSlot)
		x.call("val_list_append")
		x.e.LocalSet(accSlot)
		return nil
	case *ast.UIIf:
		return lowerUIIf(x, n, accSlot)
	case *ast.UIFor:
		return lowerUIFor(x, n, accSlot)
	default:
		return nil
	}
}

func lowerUIIf(x *exprCtx, n *ast.UIIf, accSlot uint32) error {
	if err := lowerExpr(x, n.Cond); err != nil {
		return err
	}
	x.e.I32Load(offW1)
	x.e.If(wasmbin.BlockTypeEmpty)
	x.fc.EnterBlock()
	for _, child := range n.Then {
		if err := lowerUIElement(x, child, accSlot); err != nil {
			x.fc.ExitBlock()
			return err
		}
	}
	x.fc.ExitBlock()
	if len(n.Else) > 0 {
		x.e.Else()
		x.fc.EnterBlock()
		for _, child := range n.Else {
			if err := lowerUIElement(x, child, accSlot); err != nil {
				x.fc.ExitBlock()
				return err
			}
		}
		x.fc.ExitBlock()
	}
	x.e.End()
	return nil
}

func lowerUIFor(x *exprCtx, n *ast.UIFor, accSlot uint32) error {
	if err := lowerExpr(x, n.Iterable); err != nil {
		return err
	}
	iterSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(iterSlot)
	count := x.fc.NewLocal(i32)
	x.e.LocalGet(iterSlot).I32Load(offW2).LocalSet(count)
	idx := x.fc.NewLocal(i32)
	x.e.I32Const(0).LocalSet(idx)

	x.fc.PushScope()
	var elemSlot uint32
	if n.ElemName != "" {
		elemSlot = x.fc.Bind(n.ElemName)
	}
	var indexSlot uint32
	if n.IndexName != "" {
		indexSlot = x.fc.Bind(n.IndexName)
	}

	x.e.Block(wasmbin.BlockTypeEmpty)
	x.fc.EnterBlock()
	x.e.Loop(wasmbin.BlockTypeEmpty)
	x.fc.EnterBlock()
	x.e.LocalGet(idx).LocalGet(count).I32GeS().BrIf(1)
	if n.ElemName != "" {
		x.e.LocalGet(iterSlot).LocalGet(idx).Call(x.c.funcIndex("val_list_get")).LocalSet(elemSlot)
	}
	if n.IndexName != "" {
		x.e.LocalGet(idx)
		x.call("val_number_from_i32")
		x.e.LocalSet(indexSlot)
	}
	for _, child := range n.Body {
		if err := lowerUIElement(x, child, accSlot); err != nil {
			x.fc.PopScope()
			x.fc.ExitBlock()
			x.fc.ExitBlock()
			return err
		}
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

// lowerUINode builds a {component, props, children} record for a single
// concrete component instantiation (spec §4.4's UINode), leaving its local
// slot index as the return value so callers can append it without
// re-evaluating.
func lowerUINode(x *exprCtx, n *ast.UINode) (uint32, error) {
	valSlots := make([]uint32, len(n.Props))
	for i, p := range n.Props {
		if err := lowerExpr(x, p.Value); err != nil {
			return 0, err
		}
		slot := x.fc.NewLocal(i32)
		x.e.LocalSet(slot)
		valSlots[i] = slot
	}
	propEntries := x.fc.NewLocal(i32)
	x.e.I32Const(int32(len(n.Props) * 12)).Call(x.c.funcIndex("alloc")).LocalSet(propEntries)
	for i, p := range n.Props {
		ref := x.c.strings.Intern(p.Name)
		base := uint32(i * 12)
		x.e.LocalGet(propEntries).I32Const(int32(ref.Offset)).I32Store(base)
		x.e.LocalGet(propEntries).I32Const(int32(ref.Length)).I32Store(base + 4)
		x.e.LocalGet(propEntries).LocalGet(valSlots[i]).I32Store(base + 8)
	}
	x.e.LocalGet(propEntries).I32Const(int32(len(n.Props)))
	x.call("val_record")
	propsSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(propsSlot)

	if err := lowerUIElements(x, n.Children); err != nil {
		return 0, err
	}
	childrenSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(childrenSlot)

	compRef := x.c.strings.Intern(n.Component)
	x.e.I32Const(int32(compRef.Offset)).I32Const(int32(compRef.Length))
	x.call("val_string")
	compSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(compSlot)

	nodeEntries := x.fc.NewLocal(i32)
	x.e.I32Const(36).Call(x.c.funcIndex("alloc")).LocalSet(nodeEntries)
	compKeyRef := x.c.strings.Intern("component")
	propsKeyRef := x.c.strings.Intern("props")
	childrenKeyRef := x.c.strings.Intern("children")
	x.e.LocalGet(nodeEntries).I32Const(int32(compKeyRef.Offset)).I32Store(0)
	x.e.LocalGet(nodeEntries).I32Const(int32(compKeyRef.Length)).I32Store(4)
	x.e.LocalGet(nodeEntries).LocalGet(compSlot).I32Store(8)
	x.e.LocalGet(nodeEntries).I32Const(int32(propsKeyRef.Offset)).I32Store(12)
	x.e.LocalGet(nodeEntries).I32Const(int32(propsKeyRef.Length)).I32Store(16)
	x.e.LocalGet(nodeEntries).LocalGet(propsSlot).I32Store(20)
	x.e.LocalGet(nodeEntries).I32Const(int32(childrenKeyRef.Offset)).I32Store(24)
	x.e.LocalGet(nodeEntries).I32Const(int32(childrenKeyRef.Length)).I32Store(28)
	x.e.LocalGet(nodeEntries).LocalGet(childrenSlot).I32Store(32)
	x.e.LocalGet(nodeEntries).I32Const(3)
	x.call("val_record")
	resultSlot := x.fc.NewLocal(i32)
	x.e.LocalSet(resultSlot)
	return resultSlot, nil
}
