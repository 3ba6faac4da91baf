// Package pepl is the public entry point: compile a PEPL program to a WASM
// module, or construct a tree-walking SpaceInstance to run it directly
// in-process (spec §4.1, §4.4).
package pepl

import (
	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/internal/codegen"
	"github.com/pepl-lang/pepl-core/internal/eval"
)

// Compile lowers program to a binary WebAssembly 1.0 module, applying cfg's
// gas limit and memory bounds (spec §4.1 "Module Assembler", §A.2). A nil
// cfg compiles with codegen's built-in defaults.
func Compile(program *ast.Program, cfg CompileConfig) ([]byte, error) {
	var opts codegen.CompileOptions
	if cc, ok := cfg.(*compileConfig); ok {
		opts = codegen.CompileOptions{
			GasLimit: cc.gasLimit,
			MinPages: cc.minPages,
			MaxPages: cc.maxPages,
		}
	}
	return codegen.Compile(program, opts)
}

// SpaceInstance is the public alias for the tree-walking evaluator's
// runtime — the reference semantics codegen's compiled output must match
// bit-for-bit (spec §7, §8).
type SpaceInstance = eval.SpaceInstance

// NewSpaceInstance constructs a fresh SpaceInstance and applies host, if
// given: each WithMock function is called once with nil args and its result
// is installed as the fixed response for that capability call before the
// instance's first dispatch. WithCredential bindings and the trap writer are
// not applied; the instance's credential slots stay nil.
func NewSpaceInstance(space *ast.Space, host HostConfig) (*SpaceInstance, error) {
	si, err := eval.NewSpaceInstance(space)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return si, nil
	}
	hc := host.(*hostConfig)
	for key, fn := range hc.mocks {
		mock := fn
		si.InstallMock(key.module, key.function, mock(nil))
	}
	return si, nil
}

// RunTests executes every `test` block declared in space (spec §4.4 "Test
// runner").
func RunTests(space *ast.Space) (*eval.RunSummary, error) {
	return eval.RunTests(space)
}
