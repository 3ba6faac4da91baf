package pepl

import (
	"io"

	"github.com/pepl-lang/pepl-core/internal/codegen"
	"github.com/pepl-lang/pepl-core/value"
)

// CompileConfig controls the codegen pipeline, prior to Compile (spec §4.1
// "Module Assembler"). CompileConfig is immutable: each WithXXX returns a
// new instance including the corresponding change, the same chaining
// convention the runtime/host configs below use.
type CompileConfig interface {
	// WithGasLimit overrides the default per-dispatch instruction budget
	// (spec §4.2 "Gas metering"). The limit is baked into the compiled
	// module's gas-limit global, not re-read at runtime.
	WithGasLimit(uint64) CompileConfig

	// WithMemoryLimits overrides the linear memory's minimum and maximum
	// page counts (spec §3.3 "Memory image"). Both are in units of 64KiB
	// pages; min must be large enough to hold the interned string table.
	WithMemoryLimits(min, max uint32) CompileConfig
}

type compileConfig struct {
	gasLimit  uint64
	minPages  uint32
	maxPages  uint32
}

// NewCompileConfig returns the default configuration: a 1,000,000
// instruction gas budget and the codegen package's default memory bounds.
func NewCompileConfig() CompileConfig {
	return &compileConfig{
		gasLimit: 1_000_000,
		minPages: codegen.InitialMemoryPages,
		maxPages: codegen.MaxMemoryPages,
	}
}

func (c *compileConfig) WithGasLimit(limit uint64) CompileConfig {
	ret := *c
	ret.gasLimit = limit
	return &ret
}

func (c *compileConfig) WithMemoryLimits(min, max uint32) CompileConfig {
	ret := *c
	ret.minPages = min
	ret.maxPages = max
	return &ret
}

// Engine selects which embedding WASM runtime executes a compiled module
// (internal/parity wires both; spec treats the choice as a host concern
// outside the core's scope).
type Engine int

const (
	// EngineWasmtime runs compiled modules through wasmtime-go, an
	// ahead-of-time Cranelift compiler — the default, lowest-latency choice
	// for repeated dispatch calls against the same module.
	EngineWasmtime Engine = iota
	// EngineWasmer runs compiled modules through wasmer-go instead, useful
	// as an independent cross-check that codegen output isn't accidentally
	// coupled to one engine's validation quirks (spec §7 "bit-for-bit
	// agreement" — the parity harness runs both against the evaluator).
	EngineWasmer
)

// RuntimeConfig records which embedding engine runs a compiled module. No
// function in this package takes a RuntimeConfig; internal/parity selects
// its engine with its own parity.Engine.
// RuntimeConfig is immutable; each WithXXX function returns a new instance.
type RuntimeConfig interface {
	// WithEngine selects the embedding WASM engine. Defaults to
	// EngineWasmtime.
	WithEngine(Engine) RuntimeConfig
}

type runtimeConfig struct {
	engine Engine
}

func NewRuntimeConfig() RuntimeConfig {
	return &runtimeConfig{engine: EngineWasmtime}
}

func (c *runtimeConfig) WithEngine(e Engine) RuntimeConfig {
	ret := *c
	ret.engine = e
	return &ret
}

// MockFn answers a capability call the same way the real host dispatch
// table would: receiver and args already unpacked into value.Value, result
// is whatever the call site's expression lowering expects back (spec §3.4
// "mock-response table").
type MockFn func(args []value.Value) value.Value

// HostConfig carries everything a single SpaceInstance/module run needs
// from its embedding host: mocked capability responses, credential
// bindings, and where trap/log messages are written — the PEPL analogue of
// a sandboxed process's environment and open files. HostConfig is
// immutable; each WithXXX function returns a new instance.
type HostConfig interface {
	// WithMock installs a capability mock keyed by (module, function),
	// overriding the real dispatch table for every subsequent call in a
	// test or a disconnected preview (spec §3.4).
	WithMock(module, function string, fn MockFn) HostConfig

	// WithCredential records a value for a named credential slot (spec §3.4
	// "captured credential bindings"). NewSpaceInstance does not apply it:
	// the slot keeps the nil placeholder a fresh SpaceInstance seeds it with.
	WithCredential(name string, v value.Value) HostConfig

	// WithTrapWriter records a writer for the module's trap/log strings;
	// defaults to io.Discard. Neither Compile nor NewSpaceInstance reads it,
	// so nothing is written to it.
	WithTrapWriter(io.Writer) HostConfig
}

type hostConfig struct {
	mocks       map[mockKey]MockFn
	credentials map[string]value.Value
	trapWriter  io.Writer
}

type mockKey struct{ module, function string }

func NewHostConfig() HostConfig {
	return &hostConfig{
		mocks:       map[mockKey]MockFn{},
		credentials: map[string]value.Value{},
		trapWriter:  io.Discard,
	}
}

func (c *hostConfig) WithMock(module, function string, fn MockFn) HostConfig {
	ret := c.clone()
	ret.mocks[mockKey{module, function}] = fn
	return ret
}

func (c *hostConfig) WithCredential(name string, v value.Value) HostConfig {
	ret := c.clone()
	ret.credentials[name] = v
	return ret
}

func (c *hostConfig) WithTrapWriter(w io.Writer) HostConfig {
	ret := c.clone()
	ret.trapWriter = w
	return ret
}

func (c *hostConfig) clone() *hostConfig {
	ret := &hostConfig{
		mocks:       make(map[mockKey]MockFn, len(c.mocks)),
		credentials: make(map[string]value.Value, len(c.credentials)),
		trapWriter:  c.trapWriter,
	}
	for k, v := range c.mocks {
		ret.mocks[k] = v
	}
	for k, v := range c.credentials {
		ret.credentials[k] = v
	}
	return ret
}
