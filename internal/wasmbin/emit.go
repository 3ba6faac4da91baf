package wasmbin

import (
	"github.com/pepl-lang/pepl-core/internal/ieee754"
	"github.com/pepl-lang/pepl-core/internal/leb128"
)

// Emitter accumulates the instruction stream for a single function body. It
// is the shared low-level building block used by both the runtime helper
// emitter (internal/codegen/helpers.go) and expression/statement lowering
// (internal/codegen/lower_expr.go, lower_stmt.go) — every PEPL function body
// is built by appending to one of these.
type Emitter struct {
	buf []byte
}

func NewEmitter() *Emitter { return &Emitter{} }

func (e *Emitter) Bytes() []byte { return e.buf }

func (e *Emitter) op(o Opcode) *Emitter {
	e.buf = append(e.buf, byte(o))
	return e
}

func (e *Emitter) raw(b ...byte) *Emitter {
	e.buf = append(e.buf, b...)
	return e
}

func (e *Emitter) Unreachable() *Emitter { return e.op(OpcodeUnreachable) }
func (e *Emitter) Nop() *Emitter         { return e.op(OpcodeNop) }
func (e *Emitter) Drop() *Emitter        { return e.op(OpcodeDrop) }
func (e *Emitter) Return() *Emitter      { return e.op(OpcodeReturn) }
func (e *Emitter) End() *Emitter         { return e.op(OpcodeEnd) }
func (e *Emitter) Else() *Emitter        { return e.op(OpcodeElse) }

func (e *Emitter) Block(bt BlockType) *Emitter { return e.op(OpcodeBlock).raw(byte(bt)) }
func (e *Emitter) Loop(bt BlockType) *Emitter   { return e.op(OpcodeLoop).raw(byte(bt)) }
func (e *Emitter) If(bt BlockType) *Emitter     { return e.op(OpcodeIf).raw(byte(bt)) }

func (e *Emitter) Br(depth uint32) *Emitter   { return e.op(OpcodeBr).raw(leb128.EncodeUint32(depth)...) }
func (e *Emitter) BrIf(depth uint32) *Emitter { return e.op(OpcodeBrIf).raw(leb128.EncodeUint32(depth)...) }

func (e *Emitter) Call(funcIdx uint32) *Emitter {
	return e.op(OpcodeCall).raw(leb128.EncodeUint32(funcIdx)...)
}

func (e *Emitter) LocalGet(idx uint32) *Emitter {
	return e.op(OpcodeLocalGet).raw(leb128.EncodeUint32(idx)...)
}
func (e *Emitter) LocalSet(idx uint32) *Emitter {
	return e.op(OpcodeLocalSet).raw(leb128.EncodeUint32(idx)...)
}
func (e *Emitter) LocalTee(idx uint32) *Emitter {
	return e.op(OpcodeLocalTee).raw(leb128.EncodeUint32(idx)...)
}
func (e *Emitter) GlobalGet(idx uint32) *Emitter {
	return e.op(OpcodeGlobalGet).raw(leb128.EncodeUint32(idx)...)
}
func (e *Emitter) GlobalSet(idx uint32) *Emitter {
	return e.op(OpcodeGlobalSet).raw(leb128.EncodeUint32(idx)...)
}

// memarg is encoded as align (leb128 u32) then offset (leb128 u32).
func (e *Emitter) memarg(align, offset uint32) *Emitter {
	return e.raw(leb128.EncodeUint32(align)...).raw(leb128.EncodeUint32(offset)...)
}

func (e *Emitter) I32Load(offset uint32) *Emitter  { return e.op(OpcodeI32Load).memarg(2, offset) }
func (e *Emitter) I64Load(offset uint32) *Emitter  { return e.op(OpcodeI64Load).memarg(3, offset) }
func (e *Emitter) F64Load(offset uint32) *Emitter  { return e.op(OpcodeF64Load).memarg(3, offset) }
func (e *Emitter) I32Store(offset uint32) *Emitter { return e.op(OpcodeI32Store).memarg(2, offset) }
func (e *Emitter) I64Store(offset uint32) *Emitter { return e.op(OpcodeI64Store).memarg(3, offset) }
func (e *Emitter) F64Store(offset uint32) *Emitter { return e.op(OpcodeF64Store).memarg(3, offset) }

func (e *Emitter) I32Load8U(offset uint32) *Emitter { return e.op(OpcodeI32Load8U).memarg(0, offset) }
func (e *Emitter) I32Store8(offset uint32) *Emitter { return e.op(OpcodeI32Store8).memarg(0, offset) }

func (e *Emitter) MemoryGrow() *Emitter { return e.op(OpcodeMemoryGrow).raw(0x00) }
func (e *Emitter) MemorySize() *Emitter { return e.op(OpcodeMemorySize).raw(0x00) }

func (e *Emitter) I32Const(v int32) *Emitter {
	return e.op(OpcodeI32Const).raw(leb128.EncodeInt32(v)...)
}
func (e *Emitter) I64Const(v int64) *Emitter {
	return e.op(OpcodeI64Const).raw(leb128.EncodeInt64(v)...)
}
func (e *Emitter) F64Const(v float64) *Emitter {
	return e.op(OpcodeF64Const).raw(ieee754.EncodeFloat64(v)...)
}

func (e *Emitter) I32Eqz() *Emitter { return e.op(OpcodeI32Eqz) }
func (e *Emitter) I32Eq() *Emitter  { return e.op(OpcodeI32Eq) }
func (e *Emitter) I32Ne() *Emitter  { return e.op(OpcodeI32Ne) }
func (e *Emitter) I32LtS() *Emitter { return e.op(OpcodeI32LtS) }
func (e *Emitter) I32GtS() *Emitter { return e.op(OpcodeI32GtS) }
func (e *Emitter) I32LeS() *Emitter { return e.op(OpcodeI32LeS) }
func (e *Emitter) I32GeS() *Emitter { return e.op(OpcodeI32GeS) }
func (e *Emitter) I32Add() *Emitter  { return e.op(OpcodeI32Add) }
func (e *Emitter) I32Sub() *Emitter  { return e.op(OpcodeI32Sub) }
func (e *Emitter) I32Mul() *Emitter  { return e.op(OpcodeI32Mul) }
func (e *Emitter) I32DivS() *Emitter { return e.op(OpcodeI32DivS) }
func (e *Emitter) I32RemS() *Emitter { return e.op(OpcodeI32RemS) }
func (e *Emitter) I32And() *Emitter  { return e.op(OpcodeI32And) }
func (e *Emitter) I32Or() *Emitter   { return e.op(OpcodeI32Or) }

func (e *Emitter) I32TruncF64S() *Emitter   { return e.op(OpcodeI32TruncF64S) }
func (e *Emitter) F64ConvertI32S() *Emitter { return e.op(OpcodeF64ConvertI32S) }

func (e *Emitter) F64Eq() *Emitter   { return e.op(OpcodeF64Eq) }
func (e *Emitter) F64Ne() *Emitter   { return e.op(OpcodeF64Ne) }
func (e *Emitter) F64Lt() *Emitter   { return e.op(OpcodeF64Lt) }
func (e *Emitter) F64Gt() *Emitter   { return e.op(OpcodeF64Gt) }
func (e *Emitter) F64Le() *Emitter   { return e.op(OpcodeF64Le) }
func (e *Emitter) F64Ge() *Emitter   { return e.op(OpcodeF64Ge) }
func (e *Emitter) F64Add() *Emitter  { return e.op(OpcodeF64Add) }
func (e *Emitter) F64Sub() *Emitter  { return e.op(OpcodeF64Sub) }
func (e *Emitter) F64Mul() *Emitter  { return e.op(OpcodeF64Mul) }
func (e *Emitter) F64Div() *Emitter  { return e.op(OpcodeF64Div) }
func (e *Emitter) F64Neg() *Emitter  { return e.op(OpcodeF64Neg) }
func (e *Emitter) F64Abs() *Emitter  { return e.op(OpcodeF64Abs) }
func (e *Emitter) F64Floor() *Emitter { return e.op(OpcodeF64Floor) }

func (e *Emitter) I64ExtendI32U() *Emitter     { return e.op(OpcodeI64ExtendI32U) }
func (e *Emitter) I64Shl() *Emitter            { return e.op(OpcodeI64Shl) }
func (e *Emitter) I64Or() *Emitter             { return e.op(OpcodeI64Or) }
func (e *Emitter) I64ShrU() *Emitter           { return e.op(OpcodeI64ShrU) }
func (e *Emitter) I32WrapI64() *Emitter        { return e.op(OpcodeI32WrapI64) }
func (e *Emitter) I64ReinterpretF64() *Emitter { return e.op(OpcodeI64ReinterpretF64) }
func (e *Emitter) F64ReinterpretI64() *Emitter { return e.op(OpcodeF64ReinterpretI64) }
