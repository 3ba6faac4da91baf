package parity

import (
	"github.com/pepl-lang/pepl-core/internal/codegen"
	"github.com/pepl-lang/pepl-core/value"
)

// HostBridge answers the compiled module's three env imports the same way
// config.HostConfig answers the evaluator's capability calls, so both sides
// of a parity check see identical mock responses (spec §3.4). Meta is
// carried alongside so either engine's host_call glue can decode/encode
// call arguments and results without threading it through every signature.
type HostBridge struct {
	Meta  *codegen.Metadata
	Mocks func(module, function string, args []value.Value) value.Value
	Log   func(string)
	Trap  func(string)
}

// engineInstance is the minimal surface parity.Check needs from an
// instantiated compiled module, implemented separately for wasmtime-go and
// wasmer-go (engine_wasmtime.go, engine_wasmer.go) so the comparison logic
// in parity.go never branches on which engine is active.
type engineInstance interface {
	// Alloc calls the module's exported alloc(size) and returns the pointer.
	Alloc(size int32) (int32, error)
	// WriteMemory copies data into linear memory starting at ptr.
	WriteMemory(ptr int32, data []byte) error
	// ReadMemory returns the current backing linear memory slice. Callers
	// must re-fetch after any call that might grow memory (alloc/dispatch).
	ReadMemory() ([]byte, error)
	// CallI32 invokes a function returning a single i32 (init has none of
	// its own args; dispatch_action/render/get_state do).
	CallI32(name string, args ...int32) (int32, error)
	// CallVoid invokes a function with no return value (init, update,
	// handle_event per spec §6.1).
	CallVoid(name string, args ...int32) error
}

// Engine selects which embedding runtime instantiates a compiled module.
type Engine int

const (
	EngineWasmtime Engine = iota
	EngineWasmer
)

// instHolder breaks the instantiate-needs-imports / imports-need-instance
// cycle every engine backend hits: host_call must be registered before
// instantiation, but it needs the instance's own memory/alloc once called.
// Each backend's newXxxInstance fills holder.inst in right after its
// Instantiate call returns, before control can reach any wasm code.
type instHolder struct{ inst engineInstance }

func instantiate(engine Engine, wasmBytes []byte, bridge HostBridge) (engineInstance, error) {
	switch engine {
	case EngineWasmtime:
		return newWasmtimeInstance(wasmBytes, bridge)
	case EngineWasmer:
		return newWasmerInstance(wasmBytes, bridge)
	default:
		panic("parity: unknown engine")
	}
}
