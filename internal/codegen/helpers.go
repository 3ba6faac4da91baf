package codegen

import (
	"github.com/pepl-lang/pepl-core/internal/strtab"
	"github.com/pepl-lang/pepl-core/internal/wasmbin"
)

// Cell field byte offsets, relative to a value pointer (spec §3.2): every
// value is a 12-byte tag:u32 | w1:u32 | w2:u32 cell. NUMBER's f64 payload
// occupies w1/w2 as one contiguous little-endian 8-byte float, which is why
// val_get_number is a single f64.load at offset 4 rather than a two-word
// reassembly.
const (
	offTag uint32 = 0
	offW1  uint32 = 4
	offW2  uint32 = 8
)

// defineRuntimeHelpers emits every helper in the fixed order spec §4.2
// lists, each claiming the next function index after the three env
// imports. Helpers never recompute metadata or touch the gas meter except
// where noted (gas ticks belong to call *sites*, not callees, per spec
// §4.2 — the one exception is that helpers themselves are not gas-ticked,
// matching "uniform, inline" ticking at the lowering layer only).
func defineRuntimeHelpers(c *compiler) {
	helperDefs := []struct {
		name string
		sig  wasmbin.FunctionType
		body func(c *compiler, idx uint32)
	}{
		{"alloc", sig([]wasmbin.ValueType{i32}, i32), emitAllocBody},
		{"val_nil", sig(nil, i32), emitValNilBody},
		{"val_number", sig([]wasmbin.ValueType{i32, i32}, i32), emitValNumberBody},
		{"val_bool", sig([]wasmbin.ValueType{i32}, i32), emitValBoolBody},
		{"val_string", sig([]wasmbin.ValueType{i32, i32}, i32), emitValStringBody},
		{"val_list", sig([]wasmbin.ValueType{i32, i32}, i32), emitValListBody},
		{"val_record", sig([]wasmbin.ValueType{i32, i32}, i32), emitValRecordBody},
		{"val_variant", sig([]wasmbin.ValueType{i32, i32}, i32), emitValVariantBody},
		{"val_action_ref", sig([]wasmbin.ValueType{i32}, i32), emitValActionRefBody},
		{"val_tag", sig([]wasmbin.ValueType{i32}, i32), emitValTagBody},
		{"val_get_w1", sig([]wasmbin.ValueType{i32}, i32), emitValGetW1Body},
		{"val_get_w2", sig([]wasmbin.ValueType{i32}, i32), emitValGetW2Body},
		{"val_get_number", sig([]wasmbin.ValueType{i32}, f64v), emitValGetNumberBody},
		{"memcmp", sig([]wasmbin.ValueType{i32, i32, i32}, i32), emitMemcmpBody},
		{"val_eq", sig([]wasmbin.ValueType{i32, i32}, i32), emitValEqBody},
		{"int_to_string", sig([]wasmbin.ValueType{f64v}, i32), emitIntToStringBody},
		{"val_to_string", sig([]wasmbin.ValueType{i32}, i32), emitValToStringBody},
		{"val_string_concat", sig([]wasmbin.ValueType{i32, i32}, i32), emitValStringConcatBody},
		{"check_nan", sig([]wasmbin.ValueType{i32}, i32), emitCheckNanBody},
		{"val_add", sig([]wasmbin.ValueType{i32, i32}, i32), arithHelper(wasmbin.OpcodeF64Add)},
		{"val_sub", sig([]wasmbin.ValueType{i32, i32}, i32), arithHelper(wasmbin.OpcodeF64Sub)},
		{"val_mul", sig([]wasmbin.ValueType{i32, i32}, i32), arithHelper(wasmbin.OpcodeF64Mul)},
		{"val_div", sig([]wasmbin.ValueType{i32, i32}, i32), emitValDivBody},
		{"val_mod", sig([]wasmbin.ValueType{i32, i32}, i32), emitValModBody},
		{"val_neg", sig([]wasmbin.ValueType{i32}, i32), emitValNegBody},
		{"val_not", sig([]wasmbin.ValueType{i32}, i32), emitValNotBody},
		{"val_lt", sig([]wasmbin.ValueType{i32, i32}, i32), cmpHelper(wasmbin.OpcodeF64Lt)},
		{"val_le", sig([]wasmbin.ValueType{i32, i32}, i32), cmpHelper(wasmbin.OpcodeF64Le)},
		{"val_gt", sig([]wasmbin.ValueType{i32, i32}, i32), cmpHelper(wasmbin.OpcodeF64Gt)},
		{"val_ge", sig([]wasmbin.ValueType{i32, i32}, i32), cmpHelper(wasmbin.OpcodeF64Ge)},
		{"val_record_get", sig([]wasmbin.ValueType{i32, i32, i32}, i32), emitValRecordGetBody},
		{"val_record_with", sig([]wasmbin.ValueType{i32, i32, i32, i32}, i32), emitValRecordWithBody},
		{"val_list_get", sig([]wasmbin.ValueType{i32, i32}, i32), emitValListGetBody},
		{"val_number_from_i32", sig([]wasmbin.ValueType{i32}, i32), emitValNumberFromI32Body},
		{"val_list_append", sig([]wasmbin.ValueType{i32, i32}, i32), emitValListAppendBody},
	}

	indices := make([]uint32, len(helperDefs))
	for i, h := range helperDefs {
		indices[i] = c.defineFunc(h.name, h.sig)
	}
	for i, h := range helperDefs {
		h.body(c, indices[i])
	}
}

func newCellEmitter(paramCount int) (*wasmbin.Emitter, *FuncContext) {
	return wasmbin.NewEmitter(), NewFuncContext(paramCount)
}

func finish(c *compiler, idx uint32, e *wasmbin.Emitter, fc *FuncContext) {
	e.End()
	c.setBody(idx, wasmbin.Code{Locals: fc.LocalGroups(), Body: e.Bytes()})
}

// allocCell allocates a fresh 12-byte cell and writes its tag, leaving the
// pointer in ptrLocal and the stack empty; callers then store w1/w2 and
// finally push ptrLocal.
func allocCell(c *compiler, e *wasmbin.Emitter, fc *FuncContext, tag int32) uint32 {
	ptrLocal := fc.NewLocal(i32)
	e.I32Const(int32(CellSize)).Call(c.funcIndex("alloc")).LocalSet(ptrLocal)
	e.LocalGet(ptrLocal).I32Const(tag).I32Store(offTag)
	return ptrLocal
}

func emitAllocBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	sizeParam := uint32(0)
	ptrLocal := fc.NewLocal(i32)
	newHeapLocal := fc.NewLocal(i32)

	e.GlobalGet(GlobalHeapPtr).LocalSet(ptrLocal)
	e.LocalGet(ptrLocal).LocalGet(sizeParam).I32Add().LocalSet(newHeapLocal)

	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(newHeapLocal)
	e.MemorySize().I32Const(65536).I32Mul()
	e.I32GtS()
	e.I32Eqz()
	e.BrIf(1)
	e.I32Const(1).MemoryGrow().Drop()
	e.Br(0)
	e.End() // loop
	e.End() // block

	e.LocalGet(newHeapLocal).GlobalSet(GlobalHeapPtr)
	e.LocalGet(ptrLocal)
	finish(c, idx, e, fc)
}

func emitValNilBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(0)
	ptr := allocCell(c, e, fc, TagNil)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValNumberBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	lo, hi := uint32(0), uint32(1)
	ptr := allocCell(c, e, fc, TagNumber)
	e.LocalGet(ptr).LocalGet(lo).I32Store(offW1)
	e.LocalGet(ptr).LocalGet(hi).I32Store(offW2)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValBoolBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	b := uint32(0)
	ptr := allocCell(c, e, fc, TagBool)
	// w1 = (b != 0)
	e.LocalGet(ptr)
	e.LocalGet(b).I32Const(0).I32Ne()
	e.I32Store(offW1)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValStringBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	ptrParam, lenParam := uint32(0), uint32(1)
	ptr := allocCell(c, e, fc, TagString)
	e.LocalGet(ptr).LocalGet(ptrParam).I32Store(offW1)
	e.LocalGet(ptr).LocalGet(lenParam).I32Store(offW2)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValListBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	arr, count := uint32(0), uint32(1)
	ptr := allocCell(c, e, fc, TagList)
	e.LocalGet(ptr).LocalGet(arr).I32Store(offW1)
	e.LocalGet(ptr).LocalGet(count).I32Store(offW2)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValRecordBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	entries, count := uint32(0), uint32(1)
	ptr := allocCell(c, e, fc, TagRecord)
	e.LocalGet(ptr).LocalGet(entries).I32Store(offW1)
	e.LocalGet(ptr).LocalGet(count).I32Store(offW2)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValVariantBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	id, payload := uint32(0), uint32(1)
	ptr := allocCell(c, e, fc, TagVariant)
	e.LocalGet(ptr).LocalGet(id).I32Store(offW1)
	e.LocalGet(ptr).LocalGet(payload).I32Store(offW2)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValActionRefBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	id := uint32(0)
	ptr := allocCell(c, e, fc, TagActionRef)
	e.LocalGet(ptr).LocalGet(id).I32Store(offW1)
	e.LocalGet(ptr)
	finish(c, idx, e, fc)
}

func emitValTagBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	e.LocalGet(0).I32Load(offTag)
	finish(c, idx, e, fc)
}

func emitValGetW1Body(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	e.LocalGet(0).I32Load(offW1)
	finish(c, idx, e, fc)
}

func emitValGetW2Body(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	e.LocalGet(0).I32Load(offW2)
	finish(c, idx, e, fc)
}

func emitValGetNumberBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	e.LocalGet(0).F64Load(offW1)
	finish(c, idx, e, fc)
}

// emitMemcmpBody implements a byte-equal predicate, short-circuiting on
// pointer equality and zero length (spec §4.2 memcmp).
func emitMemcmpBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(3)
	a, b, length := uint32(0), uint32(1), uint32(2)
	i := fc.NewLocal(i32)
	eq := fc.NewLocal(i32)

	e.LocalGet(a).LocalGet(b).I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	e.I32Const(1)
	e.Else()
	e.LocalGet(length).I32Eqz()
	e.If(wasmbin.BlockTypeOf(i32))
	e.I32Const(1)
	e.Else()
	e.I32Const(0).LocalSet(i)
	e.I32Const(1).LocalSet(eq)
	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(i).LocalGet(length).I32GeS().BrIf(1)
	e.LocalGet(a).LocalGet(i).I32Add().I32Load8U(0)
	e.LocalGet(b).LocalGet(i).I32Add().I32Load8U(0)
	e.I32Ne()
	e.If(wasmbin.BlockTypeEmpty)
	e.I32Const(0).LocalSet(eq)
	e.Br(2)
	e.End()
	e.LocalGet(i).I32Const(1).I32Add().LocalSet(i)
	e.Br(0)
	e.End()
	e.End()
	e.LocalGet(eq)
	e.End()
	e.End()
	finish(c, idx, e, fc)
}

// emitValEqBody implements structural equality (spec §4.2 val_eq): NIL=NIL
// true; NUMBER compares with f64.eq (so NaN != NaN and 0 == -0); STRING compares length then
// memcmp; everything else falls back to comparing (w1, w2), which is
// sufficient for the scalar tags (BOOL, ACTION_REF) the spec calls out as
// the minimal fallback case.
func emitValEqBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	a, b := uint32(0), uint32(1)
	tagA := fc.NewLocal(i32)

	e.LocalGet(a).Call(c.funcIndex("val_tag")).LocalSet(tagA)
	e.LocalGet(tagA)
	e.LocalGet(b).Call(c.funcIndex("val_tag"))
	e.I32Ne()
	e.If(wasmbin.BlockTypeOf(i32))
	e.I32Const(0).Call(c.funcIndex("val_bool"))
	e.Else()
	e.LocalGet(tagA).I32Const(TagNumber).I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	e.LocalGet(a).F64Load(offW1)
	e.LocalGet(b).F64Load(offW1)
	e.F64Eq()
	e.Call(c.funcIndex("val_bool"))
	e.Else()
	e.LocalGet(tagA).I32Const(TagString).I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	e.LocalGet(a).I32Load(offW2)
	e.LocalGet(b).I32Load(offW2)
	e.I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	e.LocalGet(a).I32Load(offW1)
	e.LocalGet(b).I32Load(offW1)
	e.LocalGet(a).I32Load(offW2)
	e.Call(c.funcIndex("memcmp"))
	e.Else()
	e.I32Const(0)
	e.End()
	e.Call(c.funcIndex("val_bool"))
	e.Else()
	e.LocalGet(a).I32Load(offW1)
	e.LocalGet(b).I32Load(offW1)
	e.I32Eq()
	e.LocalGet(a).I32Load(offW2)
	e.LocalGet(b).I32Load(offW2)
	e.I32Eq()
	e.I32And()
	e.Call(c.funcIndex("val_bool"))
	e.End()
	e.End()
	e.End()
	finish(c, idx, e, fc)
}

// emitValToStringBody implements val_to_string (spec §4.2): string
// pass-through; integer-valued finite NUMBERs whose magnitude fits an i32
// (-2147483647..2147483647, so int_to_string can negate them) render as plain
// decimal digits via int_to_string; everything else (non-integer numbers,
// NaN, infinities, and every non-scalar tag) falls back to the well-known
// "[value]" placeholder, matching the open question in spec §9 about a
// full shortest-round-trip formatter.
func emitValToStringBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	v := uint32(0)
	tag := fc.NewLocal(i32)
	e.LocalGet(v).Call(c.funcIndex("val_tag")).LocalSet(tag)

	e.LocalGet(tag).I32Const(TagString).I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	e.LocalGet(v)
	e.Else()
	e.LocalGet(tag).I32Const(TagBool).I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	trueRef := c.strings.WellKnownRef(strtab.WKTrue)
	falseRef := c.strings.WellKnownRef(strtab.WKFalse)
	e.LocalGet(v).I32Load(offW1)
	e.If(wasmbin.BlockTypeOf(i32))
	e.I32Const(int32(trueRef.Offset)).I32Const(int32(trueRef.Length)).Call(c.funcIndex("val_string"))
	e.Else()
	e.I32Const(int32(falseRef.Offset)).I32Const(int32(falseRef.Length)).Call(c.funcIndex("val_string"))
	e.End()
	e.Else()
	e.LocalGet(tag).I32Const(TagNil).I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	nilRef := c.strings.WellKnownRef(strtab.WKNil)
	e.I32Const(int32(nilRef.Offset)).I32Const(int32(nilRef.Length)).Call(c.funcIndex("val_string"))
	e.Else()
	e.LocalGet(tag).I32Const(TagNumber).I32Eq()
	e.If(wasmbin.BlockTypeOf(i32))
	numVal := fc.NewLocal(f64v)
	e.LocalGet(v).F64Load(offW1).LocalSet(numVal)
	e.LocalGet(numVal).LocalGet(numVal).F64Floor().F64Eq()
	e.LocalGet(numVal).F64Const(-2147483647.0).F64Ge()
	e.I32And()
	e.LocalGet(numVal).F64Const(2147483647.0).F64Le()
	e.I32And()
	e.If(wasmbin.BlockTypeOf(i32))
	e.LocalGet(numVal).Call(c.funcIndex("int_to_string"))
	e.Else()
	placeholder := c.strings.WellKnownRef(strtab.WKValuePlaceholder)
	e.I32Const(int32(placeholder.Offset)).I32Const(int32(placeholder.Length)).Call(c.funcIndex("val_string"))
	e.End()
	e.Else()
	placeholder = c.strings.WellKnownRef(strtab.WKValuePlaceholder)
	e.I32Const(int32(placeholder.Offset)).I32Const(int32(placeholder.Length)).Call(c.funcIndex("val_string"))
	e.End()
	e.End()
	e.End()
	e.End()
	finish(c, idx, e, fc)
}

// emitIntToStringBody converts an integer-valued f64 (already range- and
// integrality-checked by the caller) to its decimal string cell, handling
// the sign and the n == 0 case explicitly since the digit loop below
// never runs for zero.
func emitIntToStringBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	isNeg := fc.NewLocal(i32)
	mag := fc.NewLocal(f64v)
	n := fc.NewLocal(i32)
	buf := fc.NewLocal(i32)
	digitCount := fc.NewLocal(i32)
	dst := fc.NewLocal(i32)

	e.LocalGet(0).F64Const(0).F64Lt().LocalSet(isNeg)
	e.LocalGet(isNeg)
	e.If(wasmbin.BlockTypeOf(f64v))
	e.LocalGet(0).F64Neg()
	e.Else()
	e.LocalGet(0)
	e.End()
	e.LocalSet(mag)
	e.LocalGet(mag).I32TruncF64S().LocalSet(n)

	e.I32Const(16).Call(c.funcIndex("alloc")).LocalSet(buf)
	e.I32Const(0).LocalSet(digitCount)

	e.LocalGet(n).I32Eqz()
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(buf).I32Const(48).I32Store8(0)
	e.I32Const(1).LocalSet(digitCount)
	e.Else()
	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(n).I32Eqz().BrIf(1)
	e.LocalGet(buf).LocalGet(digitCount).I32Add()
	e.LocalGet(n).I32Const(10).I32RemS().I32Const(48).I32Add()
	e.I32Store8(0)
	e.LocalGet(digitCount).I32Const(1).I32Add().LocalSet(digitCount)
	e.LocalGet(n).I32Const(10).I32DivS().LocalSet(n)
	e.Br(0)
	e.End()
	e.End()
	e.End()

	// buf now holds digitCount digits, least-significant first. Reassemble
	// them in the correct order (and the leading '-') into the final cell
	// by walking buf backwards.
	totalLen := fc.NewLocal(i32)
	i := fc.NewLocal(i32)
	writePos := fc.NewLocal(i32)

	e.LocalGet(digitCount)
	e.LocalGet(isNeg)
	e.I32Add().LocalSet(totalLen)
	e.LocalGet(totalLen).Call(c.funcIndex("alloc")).LocalSet(dst)

	e.LocalGet(isNeg)
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(dst).I32Const(45).I32Store8(0) // '-'
	e.End()

	e.LocalGet(isNeg).LocalSet(writePos)
	e.LocalGet(digitCount).I32Const(1).I32Sub().LocalSet(i)
	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(i).I32Const(0).I32LtS().BrIf(1)
	e.LocalGet(dst).LocalGet(writePos).I32Add()
	e.LocalGet(buf).LocalGet(i).I32Add().I32Load8U(0)
	e.I32Store8(0)
	e.LocalGet(writePos).I32Const(1).I32Add().LocalSet(writePos)
	e.LocalGet(i).I32Const(1).I32Sub().LocalSet(i)
	e.Br(0)
	e.End()
	e.End()

	e.LocalGet(dst).LocalGet(totalLen).Call(c.funcIndex("val_string"))
	finish(c, idx, e, fc)
}

func emitValStringConcatBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	a, b := uint32(0), uint32(1)
	lenA := fc.NewLocal(i32)
	lenB := fc.NewLocal(i32)
	dst := fc.NewLocal(i32)
	dstB := fc.NewLocal(i32)
	i := fc.NewLocal(i32)

	e.LocalGet(a).I32Load(offW2).LocalSet(lenA)
	e.LocalGet(b).I32Load(offW2).LocalSet(lenB)
	e.LocalGet(lenA).LocalGet(lenB).I32Add().Call(c.funcIndex("alloc")).LocalSet(dst)
	e.LocalGet(dst).LocalGet(lenA).I32Add().LocalSet(dstB)

	// memory.copy is a bulk-memory instruction PEPL doesn't enable (spec
	// §1 Non-goals / WASM Core 1.0), so both halves are copied one byte at
	// a time: dst[0:lenA) = bytes(a), dst[lenA:lenA+lenB) = bytes(b).
	emitByteCopyLoop(e, fc, i, dst, a)
	emitByteCopyLoop(e, fc, i, dstB, b)

	e.LocalGet(dst).LocalGet(lenA).LocalGet(lenB).I32Add().Call(c.funcIndex("val_string"))
	finish(c, idx, e, fc)
}

// emitByteCopyLoop copies the string cell src's bytes into memory starting
// at dstBase (a local holding the destination start offset). i is a
// scratch local reused across calls within the same function.
func emitByteCopyLoop(e *wasmbin.Emitter, fc *FuncContext, i, dstBase uint32, src uint32) {
	srcPtr := fc.NewLocal(i32)
	srcLen := fc.NewLocal(i32)

	e.LocalGet(src).I32Load(offW1).LocalSet(srcPtr)
	e.LocalGet(src).I32Load(offW2).LocalSet(srcLen)

	e.I32Const(0).LocalSet(i)
	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(i).LocalGet(srcLen).I32GeS().BrIf(1)
	e.LocalGet(dstBase).LocalGet(i).I32Add()
	e.LocalGet(srcPtr).LocalGet(i).I32Add().I32Load8U(0)
	e.I32Store8(0)
	e.LocalGet(i).I32Const(1).I32Add().LocalSet(i)
	e.Br(0)
	e.End()
	e.End()
}

func emitCheckNanBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	v := uint32(0)
	e.LocalGet(v).Call(c.funcIndex("val_tag")).I32Const(TagNumber).I32Eq()
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(v).F64Load(offW1)
	e.LocalGet(v).F64Load(offW1)
	e.F64Ne() // NaN is the only value not equal to itself
	e.If(wasmbin.BlockTypeEmpty)
	emitTrapWellKnown(e, c, strtab.WKNaNResult)
	e.End()
	e.End()
	e.LocalGet(v)
	finish(c, idx, e, fc)
}

// arithHelper builds val_add/val_sub/val_mul: unbox both operands to f64,
// apply op, and reassemble without a NaN check — NaN propagation is caught
// at the check_nan/div boundary per spec §4.2.
func arithHelper(op wasmbin.Opcode) func(c *compiler, idx uint32) {
	return func(c *compiler, idx uint32) {
		e, fc := newCellEmitter(2)
		a, b := uint32(0), uint32(1)
		e.LocalGet(a).F64Load(offW1)
		e.LocalGet(b).F64Load(offW1)
		emitF64BinOp(e, op)
		emitBoxF64(e, c, fc)
		finish(c, idx, e, fc)
	}
}

func cmpHelper(op wasmbin.Opcode) func(c *compiler, idx uint32) {
	return func(c *compiler, idx uint32) {
		e, fc := newCellEmitter(2)
		a, b := uint32(0), uint32(1)
		e.LocalGet(a).F64Load(offW1)
		e.LocalGet(b).F64Load(offW1)
		emitF64BinOp(e, op)
		e.Call(c.funcIndex("val_bool"))
		finish(c, idx, e, fc)
	}
}

func emitF64BinOp(e *wasmbin.Emitter, op wasmbin.Opcode) {
	switch op {
	case wasmbin.OpcodeF64Add:
		e.F64Add()
	case wasmbin.OpcodeF64Sub:
		e.F64Sub()
	case wasmbin.OpcodeF64Mul:
		e.F64Mul()
	case wasmbin.OpcodeF64Div:
		e.F64Div()
	case wasmbin.OpcodeF64Lt:
		e.F64Lt()
	case wasmbin.OpcodeF64Le:
		e.F64Le()
	case wasmbin.OpcodeF64Gt:
		e.F64Gt()
	case wasmbin.OpcodeF64Ge:
		e.F64Ge()
	case wasmbin.OpcodeF64Eq:
		e.F64Eq()
	case wasmbin.OpcodeF64Ne:
		e.F64Ne()
	}
}

// emitBoxF64 allocates a fresh NUMBER cell and stores the f64 currently on
// top of the stack into its w1/w2 payload region, leaving the cell pointer
// on the stack. This is the shared tail of every arithmetic helper.
func emitBoxF64(e *wasmbin.Emitter, c *compiler, fc *FuncContext) {
	scratch := fc.NewLocal(f64v)
	e.LocalSet(scratch)
	ptr := allocCell(c, e, fc, TagNumber)
	e.LocalGet(ptr).LocalGet(scratch).F64Store(offW1)
	e.LocalGet(ptr)
}

func emitValDivBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	a, b := uint32(0), uint32(1)
	e.LocalGet(b).F64Load(offW1).F64Const(0).F64Eq()
	e.If(wasmbin.BlockTypeEmpty)
	emitTrapWellKnown(e, c, strtab.WKDivisionByZero)
	e.End()
	e.LocalGet(a).F64Load(offW1)
	e.LocalGet(b).F64Load(offW1)
	e.F64Div()
	emitBoxF64(e, c, fc)
	e.Call(c.funcIndex("check_nan"))
	finish(c, idx, e, fc)
}

// emitValModBody implements a - floor(a/b)*b (spec §4.2 val_mod).
func emitValModBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	a, b := uint32(0), uint32(1)
	e.LocalGet(b).F64Load(offW1).F64Const(0).F64Eq()
	e.If(wasmbin.BlockTypeEmpty)
	emitTrapWellKnown(e, c, strtab.WKDivisionByZero)
	e.End()

	aVal := fc.NewLocal(f64v)
	bVal := fc.NewLocal(f64v)
	e.LocalGet(a).F64Load(offW1).LocalSet(aVal)
	e.LocalGet(b).F64Load(offW1).LocalSet(bVal)
	e.LocalGet(aVal)
	e.LocalGet(aVal).LocalGet(bVal).F64Div().F64Floor()
	e.LocalGet(bVal).F64Mul()
	e.F64Sub()
	emitBoxF64(e, c, fc)
	e.Call(c.funcIndex("check_nan"))
	finish(c, idx, e, fc)
}

func emitValNegBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	e.LocalGet(0).F64Load(offW1).F64Neg()
	emitBoxF64(e, c, fc)
	e.Call(c.funcIndex("check_nan"))
	finish(c, idx, e, fc)
}

func emitValNotBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	e.LocalGet(0).I32Load(offW1).I32Eqz()
	e.Call(c.funcIndex("val_bool"))
	finish(c, idx, e, fc)
}

// emitValRecordGetBody linearly scans the entries table (spec §3.2: each
// entry is key_offset, key_len, value_ptr — 12 bytes) comparing length then
// memcmp, returning NIL on a miss (spec §4.2 val_record_get).
func emitValRecordGetBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(3)
	rec, keyPtr, keyLen := uint32(0), uint32(1), uint32(2)
	entries := fc.NewLocal(i32)
	count := fc.NewLocal(i32)
	i := fc.NewLocal(i32)
	entryPtr := fc.NewLocal(i32)

	e.LocalGet(rec).I32Load(offW1).LocalSet(entries)
	e.LocalGet(rec).I32Load(offW2).LocalSet(count)
	e.I32Const(0).LocalSet(i)

	e.Block(wasmbin.BlockTypeOf(i32))
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(i).LocalGet(count).I32GeS()
	e.If(wasmbin.BlockTypeEmpty)
	e.Call(c.funcIndex("val_nil"))
	e.Br(2)
	e.End()

	e.LocalGet(entries).LocalGet(i).I32Const(12).I32Mul().I32Add().LocalSet(entryPtr)
	e.LocalGet(entryPtr).I32Load(4) // key_len
	e.LocalGet(keyLen).I32Ne()
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(i).I32Const(1).I32Add().LocalSet(i)
	e.Br(1)
	e.End()

	e.LocalGet(entryPtr).I32Load(0) // key_offset
	e.LocalGet(keyPtr)
	e.LocalGet(keyLen)
	e.Call(c.funcIndex("memcmp"))
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(entryPtr).I32Load(8) // value_ptr
	e.Br(2)
	e.End()

	e.LocalGet(i).I32Const(1).I32Add().LocalSet(i)
	e.Br(0)
	e.End() // loop
	e.Unreachable()
	e.End() // block
	finish(c, idx, e, fc)
}

// emitValRecordWithBody returns a new record equal to rec but with key bound
// to value — updated in place if the key already exists, appended otherwise
// (spec §4.3 "set a.b.c = expr" builds nested records this way, bottom-up).
// Entries are never mutated; a fresh entries array is always allocated,
// matching the value semantics the rest of the cell model assumes.
func emitValRecordWithBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(4)
	rec, keyPtr, keyLen, value := uint32(0), uint32(1), uint32(2), uint32(3)
	entries := fc.NewLocal(i32)
	count := fc.NewLocal(i32)
	i := fc.NewLocal(i32)
	found := fc.NewLocal(i32)
	entryPtr := fc.NewLocal(i32)
	newEntries := fc.NewLocal(i32)
	newCount := fc.NewLocal(i32)
	j := fc.NewLocal(i32)
	dstPtr := fc.NewLocal(i32)
	srcPtr := fc.NewLocal(i32)

	e.LocalGet(rec).I32Load(offW1).LocalSet(entries)
	e.LocalGet(rec).I32Load(offW2).LocalSet(count)

	e.I32Const(0).LocalSet(found)
	e.I32Const(0).LocalSet(i)
	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(i).LocalGet(count).I32GeS()
	e.If(wasmbin.BlockTypeEmpty)
	e.Br(2) // exhausted entries without a match; i == count, found == 0
	e.End()

	e.LocalGet(entries).LocalGet(i).I32Const(12).I32Mul().I32Add().LocalSet(entryPtr)
	e.LocalGet(entryPtr).I32Load(4).LocalGet(keyLen).I32Ne()
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(i).I32Const(1).I32Add().LocalSet(i)
	e.Br(1)
	e.End()

	e.LocalGet(entryPtr).I32Load(0)
	e.LocalGet(keyPtr)
	e.LocalGet(keyLen)
	e.Call(c.funcIndex("memcmp"))
	e.If(wasmbin.BlockTypeEmpty)
	e.I32Const(1).LocalSet(found)
	e.Br(2)
	e.End()

	e.LocalGet(i).I32Const(1).I32Add().LocalSet(i)
	e.Br(0)
	e.End() // loop
	e.End() // block

	e.LocalGet(found)
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(count).LocalSet(newCount)
	e.Else()
	e.LocalGet(count).I32Const(1).I32Add().LocalSet(newCount)
	e.End()

	e.LocalGet(newCount).I32Const(12).I32Mul().Call(c.funcIndex("alloc")).LocalSet(newEntries)

	e.I32Const(0).LocalSet(j)
	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(j).LocalGet(count).I32GeS().BrIf(1)
	e.LocalGet(newEntries).LocalGet(j).I32Const(12).I32Mul().I32Add().LocalSet(dstPtr)
	e.LocalGet(entries).LocalGet(j).I32Const(12).I32Mul().I32Add().LocalSet(srcPtr)
	e.LocalGet(dstPtr)
	e.LocalGet(srcPtr).I32Load(0)
	e.I32Store(0)
	e.LocalGet(dstPtr)
	e.LocalGet(srcPtr).I32Load(4)
	e.I32Store(4)
	e.LocalGet(j).LocalGet(i).I32Eq()
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(dstPtr).LocalGet(value).I32Store(8)
	e.Else()
	e.LocalGet(dstPtr)
	e.LocalGet(srcPtr).I32Load(8)
	e.I32Store(8)
	e.End()
	e.LocalGet(j).I32Const(1).I32Add().LocalSet(j)
	e.Br(0)
	e.End() // loop
	e.End() // block

	e.LocalGet(found).I32Eqz()
	e.If(wasmbin.BlockTypeEmpty)
	e.LocalGet(newEntries).LocalGet(count).I32Const(12).I32Mul().I32Add().LocalSet(dstPtr)
	e.LocalGet(dstPtr).LocalGet(keyPtr).I32Store(0)
	e.LocalGet(dstPtr).LocalGet(keyLen).I32Store(4)
	e.LocalGet(dstPtr).LocalGet(value).I32Store(8)
	e.End()

	e.LocalGet(newEntries).LocalGet(newCount).Call(c.funcIndex("val_record"))
	finish(c, idx, e, fc)
}

// emitValNumberFromI32Body boxes a raw i32 (e.g. a for-comprehension index)
// as a NUMBER value, used wherever codegen needs to hand an internally
// computed integer back into PEPL value space.
func emitValNumberFromI32Body(c *compiler, idx uint32) {
	e, fc := newCellEmitter(1)
	e.LocalGet(0).F64ConvertI32S()
	emitBoxF64(e, c, fc)
	finish(c, idx, e, fc)
}

// emitValListAppendBody returns a new list equal to list with item appended
// at the end — used by view rendering (space_funcs.go) to build a surface
// tree of statically unknown length, the same copy-and-extend shape as
// val_record_with.
func emitValListAppendBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	list, item := uint32(0), uint32(1)
	arr := fc.NewLocal(i32)
	count := fc.NewLocal(i32)
	newArr := fc.NewLocal(i32)
	j := fc.NewLocal(i32)

	e.LocalGet(list).I32Load(offW1).LocalSet(arr)
	e.LocalGet(list).I32Load(offW2).LocalSet(count)

	e.LocalGet(count).I32Const(1).I32Add().I32Const(4).I32Mul().Call(c.funcIndex("alloc")).LocalSet(newArr)

	e.I32Const(0).LocalSet(j)
	e.Block(wasmbin.BlockTypeEmpty)
	e.Loop(wasmbin.BlockTypeEmpty)
	e.LocalGet(j).LocalGet(count).I32GeS().BrIf(1)
	e.LocalGet(newArr).LocalGet(j).I32Const(4).I32Mul().I32Add()
	e.LocalGet(arr).LocalGet(j).I32Const(4).I32Mul().I32Add().I32Load(0)
	e.I32Store(0)
	e.LocalGet(j).I32Const(1).I32Add().LocalSet(j)
	e.Br(0)
	e.End()
	e.End()

	e.LocalGet(newArr).LocalGet(count).I32Const(4).I32Mul().I32Add()
	e.LocalGet(item)
	e.I32Store(0)

	e.LocalGet(newArr).LocalGet(count).I32Const(1).I32Add().Call(c.funcIndex("val_list"))
	finish(c, idx, e, fc)
}

func emitValListGetBody(c *compiler, idx uint32) {
	e, fc := newCellEmitter(2)
	list, index := uint32(0), uint32(1)
	count := fc.NewLocal(i32)
	e.LocalGet(list).I32Load(offW2).LocalSet(count)
	e.LocalGet(index).I32Const(0).I32LtS()
	e.LocalGet(index).LocalGet(count).I32GeS()
	e.I32Or()
	e.If(wasmbin.BlockTypeOf(i32))
	e.Call(c.funcIndex("val_nil"))
	e.Else()
	e.LocalGet(list).I32Load(offW1)
	e.LocalGet(index).I32Const(4).I32Mul().I32Add()
	e.I32Load(0)
	e.End()
	finish(c, idx, e, fc)
}
