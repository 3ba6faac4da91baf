package codegen

import (
	"fmt"

	"github.com/pepl-lang/pepl-core/internal/strtab"
	"github.com/pepl-lang/pepl-core/internal/wasmbin"
)

// Global indices, fixed by the module's ABI (spec §3.3 "Globals").
const (
	GlobalHeapPtr    uint32 = 0
	GlobalGasCounter uint32 = 1
	GlobalGasLimit   uint32 = 2
	GlobalStatePtr   uint32 = 3
)

// Import indices; host_call/log/trap are always imported in this order
// (spec §4.1 "Imports").
const (
	ImportHostCall uint32 = 0
	ImportLog      uint32 = 1
	ImportTrap     uint32 = 2
	importCount    uint32 = 3
)

// Memory layout defaults (spec §3.3).
const (
	InitialMemoryPages uint32 = 16  // 1 MiB
	MaxMemoryPages     uint32 = 256 // 16 MiB
	CellSize           uint32 = 12  // tag:u32 | w1:u32 | w2:u32
)

// Value tags (spec §3.2).
const (
	TagNil       int32 = 0
	TagNumber    int32 = 1
	TagBool      int32 = 2
	TagString    int32 = 3
	TagList      int32 = 4
	TagRecord    int32 = 5
	TagVariant   int32 = 6
	TagLambda    int32 = 7
	TagActionRef int32 = 9
)

// CompileOptions carries the per-compile tunables CompileConfig exposes at
// the package's public boundary (spec §4.1 "Module Assembler", §4.2 "Gas
// metering"). A zero CompileOptions is not valid on its own; withDefaults
// fills every unset field with the package's fixed defaults.
type CompileOptions struct {
	GasLimit uint64
	MinPages uint32
	MaxPages uint32
}

func (o CompileOptions) withDefaults() CompileOptions {
	if o.GasLimit == 0 {
		o.GasLimit = 1_000_000
	}
	if o.MinPages == 0 {
		o.MinPages = InitialMemoryPages
	}
	if o.MaxPages == 0 {
		o.MaxPages = MaxMemoryPages
	}
	return o
}

// compiler holds everything shared across the whole compile pipeline: the
// string intern pool, the function index table (name -> absolute WASM
// function index), and the growing list of types/functions/codes that will
// become the assembled Module (spec §4.1 "Pipeline").
type compiler struct {
	strings   *strtab.Table
	funcTable map[string]uint32
	nextFunc  uint32

	types       []wasmbin.FunctionType
	importTypes []uint32 // type index per env import, in ImportHostCall/ImportLog/ImportTrap order
	fns         []uint32 // FunctionSection: type index per defined function
	codes       []wasmbin.Code
	names       []string // parallel to fns/codes, for diagnostics only

	gasLimitDefault int32
}

func newCompiler(opts CompileOptions) *compiler {
	c := &compiler{
		strings:         strtab.NewTable(),
		funcTable:       map[string]uint32{},
		nextFunc:        importCount,
		gasLimitDefault: int32(opts.GasLimit),
	}
	// The three env imports (spec §4.1 Imports table) get their type-section
	// entries registered first, before any helper/space function signature,
	// so their FuncTypeIdx values are fixed regardless of what else gets
	// interned into the type section afterward.
	hostCallType := sig([]wasmbin.ValueType{i32, i32, i32}, i32)
	logType := sig([]wasmbin.ValueType{i32, i32})
	trapType := sig([]wasmbin.ValueType{i32, i32})
	c.importTypes = []uint32{
		c.registerType(hostCallType),
		c.registerType(logType),
		c.registerType(trapType),
	}
	return c
}

func (c *compiler) registerType(ft wasmbin.FunctionType) uint32 {
	idx := uint32(len(c.types))
	c.types = append(c.types, ft)
	return idx
}

// defineFunc registers a function's signature, reserving its absolute index
// in the shared function index space; the body is attached later via
// setBody once lowering completes (functions may need to call each other
// before either body is finished, e.g. mutually-recursive helpers).
func (c *compiler) defineFunc(name string, sig wasmbin.FunctionType) uint32 {
	idx := c.nextFunc
	c.nextFunc++
	c.funcTable[name] = idx
	typeIdx := uint32(len(c.types))
	c.types = append(c.types, sig)
	c.fns = append(c.fns, typeIdx)
	c.codes = append(c.codes, wasmbin.Code{})
	c.names = append(c.names, name)
	return idx
}

func (c *compiler) setBody(idx uint32, code wasmbin.Code) {
	c.codes[idx-importCount] = code
}

func (c *compiler) funcIndex(name string) uint32 {
	idx, ok := c.funcTable[name]
	if !ok {
		panic(fmt.Sprintf("codegen bug: undefined function %q referenced before registration", name))
	}
	return idx
}

const i32 = wasmbin.ValueTypeI32
const f64v = wasmbin.ValueTypeF64

func sig(params []wasmbin.ValueType, results ...wasmbin.ValueType) wasmbin.FunctionType {
	return wasmbin.FunctionType{Params: params, Results: results}
}
