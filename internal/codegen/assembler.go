package codegen

import (
	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/internal/wasmbin"
)

// Version is embedded in every compiled module's "pepl" custom section
// (spec §6.3 "Module provenance").
const Version = "0.1.0"

// Compile lowers a validated PEPL program to a binary WebAssembly 1.0
// module (spec §4.1 "Pipeline"): collect metadata, emit the fixed runtime
// helpers, lower every space function, then assemble sections once the
// string table's final size is known. Compile does not itself validate the
// assembled bytes against the WASM 1.0 grammar; that's left to the real
// engines internal/parity instantiates, which reject a malformed module at
// load time.
func Compile(program *ast.Program, opts CompileOptions) ([]byte, error) {
	opts = opts.withDefaults()
	c := newCompiler(opts)
	m := CollectMetadata(program.Space)

	defineRuntimeHelpers(c)
	if err := defineSpaceFuncs(c, m, program.Space); err != nil {
		return nil, err
	}

	mod := &wasmbin.Module{
		TypeSection:     c.types,
		FunctionSection: c.fns,
		CodeSection:     c.codes,
		ImportSection: []wasmbin.Import{
			{Module: "env", Name: "host_call", Type: wasmbin.ExternTypeFunc, FuncTypeIdx: hostCallTypeIdx(c)},
			{Module: "env", Name: "log", Type: wasmbin.ExternTypeFunc, FuncTypeIdx: logTypeIdx(c)},
			{Module: "env", Name: "trap", Type: wasmbin.ExternTypeFunc, FuncTypeIdx: trapTypeIdx(c)},
		},
		MemorySection: []wasmbin.MemoryLimits{
			{Min: opts.MinPages, Max: opts.MaxPages, HasMax: true},
		},
		GlobalSection: []wasmbin.GlobalType{
			{Type: i32, Mutable: true, InitI32: int32(c.strings.Size())}, // heap ptr, right after the string table
			{Type: i32, Mutable: true, InitI32: 0},                      // gas counter
			{Type: i32, Mutable: true, InitI32: c.gasLimitDefault},      // gas limit
			{Type: i32, Mutable: true, InitI32: 0},                      // state ptr, set by init()
		},
		DataSection: []wasmbin.DataSegment{
			{Offset: 0, Bytes: c.strings.Bytes()},
		},
		CustomSections: []wasmbin.CustomSection{
			{Name: "pepl", Bytes: []byte(Version)},
		},
		ExportSection: buildExports(c, m, program.Space),
	}
	return wasmbin.EncodeModule(mod), nil
}

// The three env imports share no signature; each needs its own type-section
// entry, registered once up front so their FuncTypeIdx is stable regardless
// of what helper/space-function signatures get interned afterward.
//
// Their indices are read back from c.importTypes, which newCompiler fills
// before any other type is registered, so they never change afterward.
func hostCallTypeIdx(c *compiler) uint32 { return c.importTypes[0] }
func logTypeIdx(c *compiler) uint32      { return c.importTypes[1] }
func trapTypeIdx(c *compiler) uint32     { return c.importTypes[2] }

// buildExports assembles the fixed export set spec §6.1 lists: memory,
// alloc, init, dispatch_action, render, get_state, plus update/handle_event
// when the space declares them.
func buildExports(c *compiler, m *Metadata, space *ast.Space) []wasmbin.Export {
	exports := []wasmbin.Export{
		{Name: "memory", Type: wasmbin.ExternTypeMemory, Index: 0},
		{Name: "alloc", Type: wasmbin.ExternTypeFunc, Index: c.funcIndex("alloc")},
		{Name: "init", Type: wasmbin.ExternTypeFunc, Index: c.funcIndex("init")},
		{Name: "dispatch_action", Type: wasmbin.ExternTypeFunc, Index: c.funcIndex("dispatch_action")},
		{Name: "render", Type: wasmbin.ExternTypeFunc, Index: c.funcIndex("render")},
		{Name: "get_state", Type: wasmbin.ExternTypeFunc, Index: c.funcIndex("get_state")},
	}
	if m.HasUpdate {
		exports = append(exports, wasmbin.Export{Name: "update", Type: wasmbin.ExternTypeFunc, Index: c.funcIndex("update")})
	}
	if m.HasOnEvent {
		exports = append(exports, wasmbin.Export{Name: "handle_event", Type: wasmbin.ExternTypeFunc, Index: c.funcIndex("handle_event")})
	}
	return exports
}
