package wasmbin

import (
	"bytes"
	"testing"
)

func TestEncodeModuleMagicAndVersion(t *testing.T) {
	m := &Module{}
	out := EncodeModule(m)
	if !bytes.Equal(out, magicAndVersion) {
		t.Fatalf("empty module encoded to %x, want just magic+version", out)
	}
}

func TestEncodeModuleSectionOrder(t *testing.T) {
	m := &Module{
		TypeSection:     []FunctionType{{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}}},
		FunctionSection: []uint32{0},
		MemorySection:   []MemoryLimits{{Min: 16, Max: 256, HasMax: true}},
		ExportSection:   []Export{{Name: "memory", Type: ExternTypeMemory, Index: 0}},
		CodeSection:     []Code{{Body: []byte{byte(OpcodeI32Const), 0x01, byte(OpcodeEnd)}}},
	}
	out := EncodeModule(m)
	if !bytes.HasPrefix(out, magicAndVersion) {
		t.Fatal("encoded module missing magic+version prefix")
	}
	body := out[len(magicAndVersion):]
	wantOrder := []SectionID{SectionType, SectionFunction, SectionMemory, SectionExport, SectionCode}
	pos := 0
	for _, id := range wantOrder {
		if pos >= len(body) {
			t.Fatalf("ran out of bytes before section %d", id)
		}
		if SectionID(body[pos]) != id {
			t.Fatalf("section at byte %d = %d, want %d", pos, body[pos], id)
		}
		pos++
		size, n, err := decodeULEB(body[pos:])
		if err != nil {
			t.Fatal(err)
		}
		pos += n + int(size)
	}
}

// decodeULEB is a tiny local decoder so this test doesn't need to reach back
// into internal/leb128 for a reader-based API just to check a size prefix.
func decodeULEB(b []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i, by := range b {
		result |= uint32(by&0x7f) << shift
		if by&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, bytes.ErrTooLarge
}

func TestEncodeLimitsWithAndWithoutMax(t *testing.T) {
	withMax := encodeLimits(1, 2, true)
	if withMax[0] != 0x01 {
		t.Fatalf("expected flag byte 0x01, got %#x", withMax[0])
	}
	noMax := encodeLimits(1, 0, false)
	if noMax[0] != 0x00 {
		t.Fatalf("expected flag byte 0x00, got %#x", noMax[0])
	}
}
