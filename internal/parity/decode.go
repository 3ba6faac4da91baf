// Package parity cross-checks internal/codegen's compiled output against
// internal/eval's tree-walking semantics by running the same action/update/
// event sequence through both and comparing resulting state value-for-value
// (spec §8 "Codegen/evaluator parity").
package parity

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pepl-lang/pepl-core/internal/codegen"
	"github.com/pepl-lang/pepl-core/value"
)

// decoder reads the WASM target's 12-byte tagged value cells back into
// value.Value, mirroring the cell layout internal/codegen/helpers.go
// writes: tag:u32 | w1:u32 | w2:u32 at offsets 0/4/8 (spec §3.2).
type decoder struct {
	mem          []byte
	variantNames []string // dense global id -> name, from codegen.Metadata
}

func newDecoder(mem []byte, variantNames []string) *decoder {
	return &decoder{mem: mem, variantNames: variantNames}
}

func (d *decoder) u32(off int32) uint32 {
	return binary.LittleEndian.Uint32(d.mem[off : off+4])
}

func (d *decoder) f64(off int32) float64 {
	bits := binary.LittleEndian.Uint64(d.mem[off : off+8])
	return math.Float64frombits(bits)
}

func (d *decoder) bytes(off, length int32) []byte {
	return d.mem[off : off+length]
}

// Decode converts the value cell at ptr into its value.Value equivalent.
// ptr == 0 never occurs for a well-formed cell (0 is the data segment's
// first byte, never a bump-allocated cell), so a zero pointer would be a
// codegen bug rather than a valid NIL.
func (d *decoder) Decode(ptr int32) (value.Value, error) {
	tag := int32(d.u32(ptr + int32(offTag)))
	w1 := int32(d.u32(ptr + int32(offW1)))
	w2 := int32(d.u32(ptr + int32(offW2)))

	switch tag {
	case codegen.TagNil:
		return value.NilValue(), nil
	case codegen.TagNumber:
		return value.NumberValue(d.f64(ptr + int32(offW1))), nil
	case codegen.TagBool:
		return value.BoolValue(w1 != 0), nil
	case codegen.TagString:
		return value.StringValue(string(d.bytes(w1, w2))), nil
	case codegen.TagList:
		return d.decodeList(w1, w2)
	case codegen.TagRecord:
		return d.decodeRecord(w1, w2)
	case codegen.TagVariant:
		return d.decodeVariant(w1, w2)
	case codegen.TagActionRef:
		return value.ActionRefValue(int(w1), ""), nil
	default:
		return value.Value{}, fmt.Errorf("parity: unknown value tag %d at ptr %d", tag, ptr)
	}
}

// decodeList reads a val_list's backing array: count consecutive i32 cell
// pointers starting at arr.
func (d *decoder) decodeList(arr, count int32) (value.Value, error) {
	items := make([]value.Value, count)
	for i := int32(0); i < count; i++ {
		elemPtr := int32(d.u32(arr + i*4))
		v, err := d.Decode(elemPtr)
		if err != nil {
			return value.Value{}, err
		}
		items[i] = v
	}
	return value.ListValue(items), nil
}

// decodeRecord reads a val_record's entries table: count 12-byte
// {key_offset, key_length, value_ptr} triples, in declaration order
// (internal/codegen/space_funcs.go's emitFieldEntry/lowerUINode layout).
func (d *decoder) decodeRecord(entries, count int32) (value.Value, error) {
	fields := make([]value.RecordField, count)
	for i := int32(0); i < count; i++ {
		base := entries + i*12
		keyOff := int32(d.u32(base))
		keyLen := int32(d.u32(base + 4))
		valPtr := int32(d.u32(base + 8))
		v, err := d.Decode(valPtr)
		if err != nil {
			return value.Value{}, err
		}
		fields[i] = value.RecordField{Key: string(d.bytes(keyOff, keyLen)), Value: v}
	}
	return value.RecordValue(fields), nil
}

// decodeVariant resolves w1 (the dense global variant id codegen.Metadata
// assigned) back to its declared name, and decodes the payload list at w2
// the same way an ordinary list is decoded.
func (d *decoder) decodeVariant(id, payloadPtr int32) (value.Value, error) {
	if int(id) < 0 || int(id) >= len(d.variantNames) {
		return value.Value{}, fmt.Errorf("parity: unknown variant id %d", id)
	}
	name := d.variantNames[id]
	payload, err := d.Decode(payloadPtr)
	if err != nil {
		return value.Value{}, err
	}
	if name == "Ok" || name == "Err" {
		return value.Value{Tag: value.Result, VariantName: name, Payload: payload.Items}, nil
	}
	return value.VariantValue(name, payload.Items), nil
}

// offTag/offW1/offW2 mirror internal/codegen's unexported cell-field
// offsets; duplicated here since parity is an external consumer of the
// memory layout, not of codegen's internals.
const (
	offTag = 0
	offW1  = 4
	offW2  = 8
)
