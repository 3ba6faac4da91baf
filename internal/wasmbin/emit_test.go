package wasmbin

import (
	"bytes"
	"testing"
)

func TestEmitterI32ConstAndLocalGet(t *testing.T) {
	e := NewEmitter()
	e.I32Const(42).LocalGet(1).I32Add().Return().End()
	want := []byte{byte(OpcodeI32Const), 42, byte(OpcodeLocalGet), 1, byte(OpcodeI32Add), byte(OpcodeReturn), byte(OpcodeEnd)}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("got % x, want % x", e.Bytes(), want)
	}
}

func TestEmitterNegativeI32ConstUsesSignedLEB(t *testing.T) {
	e := NewEmitter()
	e.I32Const(-1)
	// signed LEB128 of -1 is a single 0x7f byte.
	want := []byte{byte(OpcodeI32Const), 0x7f}
	if !bytes.Equal(e.Bytes(), want) {
		t.Fatalf("got % x, want % x", e.Bytes(), want)
	}
}

func TestEmitterChainingReturnsSameEmitter(t *testing.T) {
	e := NewEmitter()
	got := e.Nop().Drop()
	if got != e {
		t.Fatal("chained calls should return the same *Emitter")
	}
}

func TestEmitterF64ConstEncodesEightBytes(t *testing.T) {
	e := NewEmitter()
	e.F64Const(1.5)
	if len(e.Bytes()) != 9 { // opcode + 8 bytes
		t.Fatalf("F64Const emitted %d bytes, want 9", len(e.Bytes()))
	}
}
