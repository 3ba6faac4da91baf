// Package wasmbin is a minimal binary-format model of a WebAssembly 1.0
// module: just enough of the section structure (type, import, function,
// memory, global, export, code, data, custom) for the PEPL code generator to
// assemble a deterministic module. It intentionally does not implement a
// general-purpose decoder/validator — that's delegated to an embedding WASM
// engine (internal/parity wires wasmtime-go and wasmer-go for exactly that).
package wasmbin

// ValueType is a WASM value type tag as it appears in the binary format.
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// SectionID is the one-byte id prefixing every section in the binary format.
// PEPL modules always emit them in this exact order (spec §4.1.5).
type SectionID byte

const (
	SectionCustom   SectionID = 0
	SectionType     SectionID = 1
	SectionImport   SectionID = 2
	SectionFunction SectionID = 3
	SectionTable    SectionID = 4
	SectionMemory   SectionID = 5
	SectionGlobal   SectionID = 6
	SectionExport   SectionID = 7
	SectionStart    SectionID = 8
	SectionElement  SectionID = 9
	SectionCode     SectionID = 10
	SectionData     SectionID = 11
)

// FunctionType is a function signature; WASM 1.0 allows at most one result.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// ExternType classifies an Import or Export.
type ExternType byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// Import describes one of the three env imports PEPL modules require:
// host_call, log and trap (spec §4.1 Imports table).
type Import struct {
	Module, Name string
	Type         ExternType
	FuncTypeIdx  uint32 // valid when Type == ExternTypeFunc
}

// MemoryLimits bounds linear memory in units of 64KiB pages.
type MemoryLimits struct {
	Min uint32
	Max uint32
	HasMax bool
}

// GlobalType describes a single mutable or immutable i32 global.
type GlobalType struct {
	Type    ValueType
	Mutable bool
	// InitI32 is the constant initializer; PEPL only ever declares i32
	// globals (heap pointer, gas counter, gas limit, state pointer).
	InitI32 int32
}

// Export binds a name to an item in one of the index spaces.
type Export struct {
	Name  string
	Type  ExternType
	Index uint32
}

// Code is a single function body: its locals (grouped by run of identical
// type, as the binary format requires) and its instruction stream.
type Code struct {
	Locals []LocalGroup
	Body   []byte // already-encoded instructions, terminated by 0x0b (end)
}

type LocalGroup struct {
	Count uint32
	Type  ValueType
}

// DataSegment is an active segment loaded at a constant i32 offset.
type DataSegment struct {
	Offset int32
	Bytes  []byte
}

// Module is the complete set of sections assembled by the code generator.
// Field order here is documentation only; EncodeModule fixes the actual
// section emission order regardless of Go struct layout.
type Module struct {
	TypeSection     []FunctionType
	ImportSection   []Import
	FunctionSection []uint32 // index into TypeSection, one per defined (non-imported) function
	MemorySection   []MemoryLimits
	GlobalSection   []GlobalType
	ExportSection   []Export
	CodeSection     []Code
	DataSection     []DataSegment
	CustomSections  []CustomSection
}

// CustomSection is an opaque, named section. PEPL modules emit exactly one,
// named "pepl", carrying the compiler version string (spec §6.3).
type CustomSection struct {
	Name  string
	Bytes []byte
}
