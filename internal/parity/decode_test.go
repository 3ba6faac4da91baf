package parity

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pepl-lang/pepl-core/internal/codegen"
	"github.com/pepl-lang/pepl-core/value"
	"github.com/stretchr/testify/require"
)

// cellWriter is a tiny in-memory layout builder for constructing decoder
// fixtures without a live wasm engine: bump-allocate and write exactly the
// way internal/codegen's helpers do, at Go speed.
type cellWriter struct {
	mem []byte
}

func newCellWriter(capacity int) *cellWriter {
	return &cellWriter{mem: make([]byte, 0, capacity)}
}

func (w *cellWriter) alloc(n int) int32 {
	ptr := int32(len(w.mem))
	w.mem = append(w.mem, make([]byte, n)...)
	return ptr
}

func (w *cellWriter) putU32(ptr int32, v uint32) {
	binary.LittleEndian.PutUint32(w.mem[ptr:ptr+4], v)
}

func (w *cellWriter) putF64(ptr int32, v float64) {
	binary.LittleEndian.PutUint64(w.mem[ptr:ptr+8], math.Float64bits(v))
}

func (w *cellWriter) putBytes(ptr int32, b []byte) {
	copy(w.mem[ptr:], b)
}

func (w *cellWriter) cell(tag int32) int32 {
	ptr := w.alloc(int(codegen.CellSize))
	w.putU32(ptr+offTag, uint32(tag))
	return ptr
}

func (w *cellWriter) number(n float64) int32 {
	ptr := w.cell(codegen.TagNumber)
	w.putF64(ptr+offW1, n)
	return ptr
}

func (w *cellWriter) str(s string) int32 {
	bp := w.alloc(len(s))
	w.putBytes(bp, []byte(s))
	ptr := w.cell(codegen.TagString)
	w.putU32(ptr+offW1, uint32(bp))
	w.putU32(ptr+offW2, uint32(len(s)))
	return ptr
}

func (w *cellWriter) boolean(b bool) int32 {
	ptr := w.cell(codegen.TagBool)
	bb := uint32(0)
	if b {
		bb = 1
	}
	w.putU32(ptr+offW1, bb)
	return ptr
}

func (w *cellWriter) list(elems []int32) int32 {
	arr := w.alloc(len(elems) * 4)
	for i, e := range elems {
		w.putU32(arr+int32(i*4), uint32(e))
	}
	ptr := w.cell(codegen.TagList)
	w.putU32(ptr+offW1, uint32(arr))
	w.putU32(ptr+offW2, uint32(len(elems)))
	return ptr
}

func (w *cellWriter) record(keys []string, vals []int32) int32 {
	entries := w.alloc(len(keys) * 12)
	for i, k := range keys {
		kp := w.alloc(len(k))
		w.putBytes(kp, []byte(k))
		base := entries + int32(i*12)
		w.putU32(base, uint32(kp))
		w.putU32(base+4, uint32(len(k)))
		w.putU32(base+8, uint32(vals[i]))
	}
	ptr := w.cell(codegen.TagRecord)
	w.putU32(ptr+offW1, uint32(entries))
	w.putU32(ptr+offW2, uint32(len(keys)))
	return ptr
}

func TestDecodeScalars(t *testing.T) {
	w := newCellWriter(256)
	numPtr := w.number(42)
	strPtr := w.str("hello")
	boolPtr := w.boolean(true)

	dec := newDecoder(w.mem, nil)

	n, err := dec.Decode(numPtr)
	require.NoError(t, err)
	require.True(t, value.Eq(value.NumberValue(42), n))

	s, err := dec.Decode(strPtr)
	require.NoError(t, err)
	require.True(t, value.Eq(value.StringValue("hello"), s))

	b, err := dec.Decode(boolPtr)
	require.NoError(t, err)
	require.True(t, value.Eq(value.BoolValue(true), b))
}

func TestDecodeListAndRecord(t *testing.T) {
	w := newCellWriter(256)
	a := w.number(1)
	b := w.number(2)
	listPtr := w.list([]int32{a, b})
	recPtr := w.record([]string{"x", "y"}, []int32{a, listPtr})

	dec := newDecoder(w.mem, nil)

	list, err := dec.Decode(listPtr)
	require.NoError(t, err)
	require.True(t, value.Eq(value.ListValue([]value.Value{value.NumberValue(1), value.NumberValue(2)}), list))

	rec, err := dec.Decode(recPtr)
	require.NoError(t, err)
	want := value.RecordValue([]value.RecordField{
		{Key: "x", Value: value.NumberValue(1)},
		{Key: "y", Value: value.ListValue([]value.Value{value.NumberValue(1), value.NumberValue(2)})},
	})
	require.True(t, value.Eq(want, rec))
}

func TestDecodeVariant(t *testing.T) {
	w := newCellWriter(256)
	payload := w.list([]int32{w.number(7)})
	ptr := w.cell(codegen.TagVariant)
	w.putU32(ptr+offW1, 0)
	w.putU32(ptr+offW2, uint32(payload))

	dec := newDecoder(w.mem, []string{"Ok", "Err"})
	v, err := dec.Decode(ptr)
	require.NoError(t, err)
	require.Equal(t, value.Result, v.Tag)
	require.Equal(t, "Ok", v.VariantName)
	require.True(t, value.Eq(value.NumberValue(7), v.Payload[0]))
}
