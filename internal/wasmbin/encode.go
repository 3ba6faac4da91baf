package wasmbin

import (
	"github.com/pepl-lang/pepl-core/internal/leb128"
)

var magicAndVersion = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// EncodeModule serialises m to a binary WASM module, emitting sections in
// the fixed order required by spec §4.1.5: type, import, function, memory,
// global, export, code, data, custom. Determinism follows directly from m's
// slices already being in a stable (insertion) order — this function adds
// no further ordering decisions of its own.
func EncodeModule(m *Module) []byte {
	out := append([]byte{}, magicAndVersion...)
	if len(m.TypeSection) > 0 {
		out = appendSection(out, SectionType, encodeTypeSection(m.TypeSection))
	}
	if len(m.ImportSection) > 0 {
		out = appendSection(out, SectionImport, encodeImportSection(m.ImportSection))
	}
	if len(m.FunctionSection) > 0 {
		out = appendSection(out, SectionFunction, encodeFunctionSection(m.FunctionSection))
	}
	if len(m.MemorySection) > 0 {
		out = appendSection(out, SectionMemory, encodeMemorySection(m.MemorySection))
	}
	if len(m.GlobalSection) > 0 {
		out = appendSection(out, SectionGlobal, encodeGlobalSection(m.GlobalSection))
	}
	if len(m.ExportSection) > 0 {
		out = appendSection(out, SectionExport, encodeExportSection(m.ExportSection))
	}
	if len(m.CodeSection) > 0 {
		out = appendSection(out, SectionCode, encodeCodeSection(m.CodeSection))
	}
	if len(m.DataSection) > 0 {
		out = appendSection(out, SectionData, encodeDataSection(m.DataSection))
	}
	for _, cs := range m.CustomSections {
		out = appendSection(out, SectionCustom, encodeCustomSection(cs))
	}
	return out
}

func appendSection(out []byte, id SectionID, payload []byte) []byte {
	out = append(out, byte(id))
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func encodeVec(n int) []byte { return leb128.EncodeUint32(uint32(n)) }

func encodeName(s string) []byte {
	b := encodeVec(len(s))
	return append(b, s...)
}

func encodeTypeSection(types []FunctionType) []byte {
	out := encodeVec(len(types))
	for _, t := range types {
		out = append(out, 0x60) // functype tag
		out = append(out, encodeVec(len(t.Params))...)
		for _, p := range t.Params {
			out = append(out, byte(p))
		}
		out = append(out, encodeVec(len(t.Results))...)
		for _, r := range t.Results {
			out = append(out, byte(r))
		}
	}
	return out
}

func encodeImportSection(imports []Import) []byte {
	out := encodeVec(len(imports))
	for _, im := range imports {
		out = append(out, encodeName(im.Module)...)
		out = append(out, encodeName(im.Name)...)
		out = append(out, byte(im.Type))
		switch im.Type {
		case ExternTypeFunc:
			out = append(out, leb128.EncodeUint32(im.FuncTypeIdx)...)
		}
	}
	return out
}

func encodeFunctionSection(fns []uint32) []byte {
	out := encodeVec(len(fns))
	for _, idx := range fns {
		out = append(out, leb128.EncodeUint32(idx)...)
	}
	return out
}

func encodeLimits(min, max uint32, hasMax bool) []byte {
	if hasMax {
		return append([]byte{0x01}, append(leb128.EncodeUint32(min), leb128.EncodeUint32(max)...)...)
	}
	return append([]byte{0x00}, leb128.EncodeUint32(min)...)
}

func encodeMemorySection(mems []MemoryLimits) []byte {
	out := encodeVec(len(mems))
	for _, m := range mems {
		out = append(out, encodeLimits(m.Min, m.Max, m.HasMax)...)
	}
	return out
}

func encodeGlobalSection(globals []GlobalType) []byte {
	out := encodeVec(len(globals))
	for _, g := range globals {
		out = append(out, byte(g.Type))
		if g.Mutable {
			out = append(out, 0x01)
		} else {
			out = append(out, 0x00)
		}
		out = append(out, byte(OpcodeI32Const))
		out = append(out, leb128.EncodeInt32(g.InitI32)...)
		out = append(out, byte(OpcodeEnd))
	}
	return out
}

func encodeExportSection(exports []Export) []byte {
	out := encodeVec(len(exports))
	for _, ex := range exports {
		out = append(out, encodeName(ex.Name)...)
		out = append(out, byte(ex.Type))
		out = append(out, leb128.EncodeUint32(ex.Index)...)
	}
	return out
}

func encodeCodeSection(codes []Code) []byte {
	out := encodeVec(len(codes))
	for _, c := range codes {
		body := encodeVec(len(c.Locals))
		for _, lg := range c.Locals {
			body = append(body, leb128.EncodeUint32(lg.Count)...)
			body = append(body, byte(lg.Type))
		}
		body = append(body, c.Body...)
		out = append(out, leb128.EncodeUint32(uint32(len(body)))...)
		out = append(out, body...)
	}
	return out
}

func encodeDataSection(segs []DataSegment) []byte {
	out := encodeVec(len(segs))
	for _, d := range segs {
		out = append(out, 0x00) // memory index 0, active segment
		out = append(out, byte(OpcodeI32Const))
		out = append(out, leb128.EncodeInt32(d.Offset)...)
		out = append(out, byte(OpcodeEnd))
		out = append(out, encodeVec(len(d.Bytes))...)
		out = append(out, d.Bytes...)
	}
	return out
}

func encodeCustomSection(cs CustomSection) []byte {
	out := encodeName(cs.Name)
	return append(out, cs.Bytes...)
}
