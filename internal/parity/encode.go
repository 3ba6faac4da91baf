package parity

import (
	"encoding/binary"
	"math"

	"github.com/pepl-lang/pepl-core/internal/capid"
	"github.com/pepl-lang/pepl-core/internal/codegen"
	"github.com/pepl-lang/pepl-core/value"
)

// encoder is the host-side mirror of codegen's val_* constructors: it
// writes a value.Value into the module's own linear memory via its
// exported alloc, for host_call results and for packing a dispatch_action
// argument list (spec §6.2 "host_call trampoline").
type encoder struct {
	inst         engineInstance
	variantIndex map[string]int // name -> dense global id, from codegen.Metadata
}

func newEncoder(inst engineInstance, variantIndex map[string]int) *encoder {
	return &encoder{inst: inst, variantIndex: variantIndex}
}

func (enc *encoder) cell(tag int32) (int32, error) {
	ptr, err := enc.inst.Alloc(int32(codegen.CellSize))
	if err != nil {
		return 0, err
	}
	if err := enc.storeU32(ptr+offTag, uint32(tag)); err != nil {
		return 0, err
	}
	return ptr, nil
}

func (enc *encoder) storeU32(ptr int32, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return enc.inst.WriteMemory(ptr, buf[:])
}

func (enc *encoder) storeF64(ptr int32, v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return enc.inst.WriteMemory(ptr, buf[:])
}

// Encode writes v as a fresh value cell (and, transitively, whatever
// backing arrays/bytes it needs) and returns the cell's pointer.
func (enc *encoder) Encode(v value.Value) (int32, error) {
	switch v.Tag {
	case value.Nil:
		return enc.cell(codegen.TagNil)
	case value.Number:
		ptr, err := enc.cell(codegen.TagNumber)
		if err != nil {
			return 0, err
		}
		return ptr, enc.storeF64(ptr+offW1, v.Num)
	case value.Bool:
		ptr, err := enc.cell(codegen.TagBool)
		if err != nil {
			return 0, err
		}
		b := uint32(0)
		if v.Bool {
			b = 1
		}
		return ptr, enc.storeU32(ptr+offW1, b)
	case value.String:
		bytesPtr, err := enc.inst.Alloc(int32(len(v.Str)))
		if err != nil {
			return 0, err
		}
		if err := enc.inst.WriteMemory(bytesPtr, []byte(v.Str)); err != nil {
			return 0, err
		}
		ptr, err := enc.cell(codegen.TagString)
		if err != nil {
			return 0, err
		}
		if err := enc.storeU32(ptr+offW1, uint32(bytesPtr)); err != nil {
			return 0, err
		}
		return ptr, enc.storeU32(ptr+offW2, uint32(len(v.Str)))
	case value.List:
		return enc.encodeList(v.Items)
	case value.Record:
		return enc.encodeRecord(v.Fields)
	case value.Variant, value.Result:
		id, ok := enc.variantIndex[v.VariantName]
		if !ok {
			id = 0
		}
		payloadPtr, err := enc.encodeList(v.Payload)
		if err != nil {
			return 0, err
		}
		ptr, err := enc.cell(codegen.TagVariant)
		if err != nil {
			return 0, err
		}
		if err := enc.storeU32(ptr+offW1, uint32(id)); err != nil {
			return 0, err
		}
		return ptr, enc.storeU32(ptr+offW2, uint32(payloadPtr))
	case value.ActionRef:
		ptr, err := enc.cell(codegen.TagActionRef)
		if err != nil {
			return 0, err
		}
		return ptr, enc.storeU32(ptr+offW1, uint32(v.ActionIndex))
	default:
		return enc.cell(codegen.TagNil)
	}
}

func (enc *encoder) encodeList(items []value.Value) (int32, error) {
	arr, err := enc.inst.Alloc(int32(len(items) * 4))
	if err != nil {
		return 0, err
	}
	for i, it := range items {
		elemPtr, err := enc.Encode(it)
		if err != nil {
			return 0, err
		}
		if err := enc.storeU32(arr+int32(i*4), uint32(elemPtr)); err != nil {
			return 0, err
		}
	}
	ptr, err := enc.cell(codegen.TagList)
	if err != nil {
		return 0, err
	}
	if err := enc.storeU32(ptr+offW1, uint32(arr)); err != nil {
		return 0, err
	}
	return ptr, enc.storeU32(ptr+offW2, uint32(len(items)))
}

func (enc *encoder) encodeRecord(fields []value.RecordField) (int32, error) {
	entries, err := enc.inst.Alloc(int32(len(fields) * 12))
	if err != nil {
		return 0, err
	}
	for i, f := range fields {
		keyPtr, err := enc.inst.Alloc(int32(len(f.Key)))
		if err != nil {
			return 0, err
		}
		if err := enc.inst.WriteMemory(keyPtr, []byte(f.Key)); err != nil {
			return 0, err
		}
		valPtr, err := enc.Encode(f.Value)
		if err != nil {
			return 0, err
		}
		base := entries + int32(i*12)
		if err := enc.storeU32(base, uint32(keyPtr)); err != nil {
			return 0, err
		}
		if err := enc.storeU32(base+4, uint32(len(f.Key))); err != nil {
			return 0, err
		}
		if err := enc.storeU32(base+8, uint32(valPtr)); err != nil {
			return 0, err
		}
	}
	ptr, err := enc.cell(codegen.TagRecord)
	if err != nil {
		return 0, err
	}
	if err := enc.storeU32(ptr+offW1, uint32(entries)); err != nil {
		return 0, err
	}
	return ptr, enc.storeU32(ptr+offW2, uint32(len(fields)))
}

// capabilityModuleName reverses capid's fixed capability module table, used
// by the host_call trampoline to route a (module_id, fn_id) pair back to a
// (module, function) name pair HostBridge.Mocks can look up.
func capabilityModuleName(id int) (string, bool) {
	switch id {
	case capid.ModuleHTTP:
		return "http", true
	case capid.ModuleStorage:
		return "storage", true
	case capid.ModuleLocation:
		return "location", true
	case capid.ModuleNotifications:
		return "notifications", true
	case capid.ModuleCredential:
		return "credential", true
	default:
		return "", false
	}
}
