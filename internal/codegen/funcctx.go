package codegen

import "github.com/pepl-lang/pepl-core/internal/wasmbin"

// FuncContext tracks per-function lowering state: a monotonic counter
// allocating new i32/f64 local slots, plus a scoped name stack pushed on
// `let`/loop-variable bind and popped on scope exit (spec §4.3 "Locals").
type FuncContext struct {
	paramCount uint32
	nextLocal  uint32
	localTypes []wasmbin.ValueType
	scopes     []map[string]uint32
	blockDepth uint32
}

func NewFuncContext(paramCount int) *FuncContext {
	return &FuncContext{
		paramCount: uint32(paramCount),
		nextLocal:  uint32(paramCount),
		scopes:     []map[string]uint32{{}},
	}
}

// NewLocal allocates a fresh local slot of the given type and returns its
// index (params occupy indices [0, paramCount)).
func (fc *FuncContext) NewLocal(t wasmbin.ValueType) uint32 {
	idx := fc.nextLocal
	fc.nextLocal++
	fc.localTypes = append(fc.localTypes, t)
	return idx
}

func (fc *FuncContext) PushScope() { fc.scopes = append(fc.scopes, map[string]uint32{}) }

func (fc *FuncContext) PopScope() {
	if len(fc.scopes) > 1 {
		fc.scopes = fc.scopes[:len(fc.scopes)-1]
	}
}

// Bind associates name with a local slot in the innermost scope, allocating
// a fresh i32 slot for it (every PEPL value is carried as an i32 pointer).
func (fc *FuncContext) Bind(name string) uint32 {
	idx := fc.NewLocal(wasmbin.ValueTypeI32)
	fc.scopes[len(fc.scopes)-1][name] = idx
	return idx
}

// EnterBlock/ExitBlock track structured-control nesting opened since the
// function's outer return block, so a `return` statement anywhere in the
// body can compute the right Br depth to reach it.
func (fc *FuncContext) EnterBlock() { fc.blockDepth++ }
func (fc *FuncContext) ExitBlock()  { fc.blockDepth-- }

// returnDepth is the Br depth that targets the function's outer return
// block from the current nesting position. emitAtomicBody opens that block
// and calls EnterBlock once before lowering the body, so blockDepth==1
// already sits at the block itself; subtract one to land Br(0) there
// instead of branching past it.
func (fc *FuncContext) returnDepth() uint32 { return fc.blockDepth - 1 }

// BindParam associates name directly with an existing parameter slot (rather
// than allocating a fresh local, as Bind does) — used for the single named
// parameter of update/handle_event callbacks, which already arrive as a
// real WASM function parameter.
func (fc *FuncContext) BindParam(name string, idx uint32) {
	fc.scopes[len(fc.scopes)-1][name] = idx
}

// Lookup resolves name against the scope stack, innermost first.
func (fc *FuncContext) Lookup(name string) (uint32, bool) {
	for i := len(fc.scopes) - 1; i >= 0; i-- {
		if idx, ok := fc.scopes[i][name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// LocalGroups compresses localTypes into the binary format's run-length
// groups (spec §4.1's Code section uses grouped locals).
func (fc *FuncContext) LocalGroups() []wasmbin.LocalGroup {
	var groups []wasmbin.LocalGroup
	for _, t := range fc.localTypes {
		if len(groups) > 0 && groups[len(groups)-1].Type == t {
			groups[len(groups)-1].Count++
			continue
		}
		groups = append(groups, wasmbin.LocalGroup{Count: 1, Type: t})
	}
	return groups
}
