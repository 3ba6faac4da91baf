package codegen

import (
	"github.com/pepl-lang/pepl-core/internal/strtab"
	"github.com/pepl-lang/pepl-core/internal/wasmbin"
)

// emitGasTick emits the inline per-call-site/per-loop-head gas check (spec
// §4.2 "Gas metering"): increment the counter, compare against the limit,
// and trap on overflow. It is deliberately inlined rather than a helper
// call so every tick costs the same, fixed number of instructions.
func emitGasTick(e *wasmbin.Emitter, c *compiler) {
	e.GlobalGet(GlobalGasCounter).I32Const(1).I32Add().GlobalSet(GlobalGasCounter)
	e.GlobalGet(GlobalGasCounter).GlobalGet(GlobalGasLimit).I32GtS()
	e.If(wasmbin.BlockTypeEmpty)
	emitTrapWellKnown(e, c, strtab.WKGasExhausted)
	e.End()
}

// emitTrapWellKnown emits a call to the imported `trap(ptr, len)` function
// using one of the fixed well-known strings, followed by `unreachable`
// (spec §4.1 Imports, §7 "every error is terminal").
func emitTrapWellKnown(e *wasmbin.Emitter, c *compiler, wk int) {
	ref := c.strings.WellKnownRef(wk)
	e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length)).Call(ImportTrap)
	e.Unreachable()
}

// emitTrapDynamic traps with a message whose (ptr, len) are already on the
// stack in that order — used for `assert` with a message and for `?` on an
// Err whose payload is a string.
func emitTrapDynamic(e *wasmbin.Emitter) {
	e.Call(ImportTrap)
	e.Unreachable()
}

func emitTrapInterned(e *wasmbin.Emitter, ref strtab.Ref) {
	e.I32Const(int32(ref.Offset)).I32Const(int32(ref.Length)).Call(ImportTrap)
	e.Unreachable()
}
