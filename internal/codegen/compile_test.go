package codegen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl-core/ast"
)

func counterSpace() *ast.Space {
	return &ast.Space{
		Name:  "counter",
		State: []*ast.StateField{{Name: "count", Default: &ast.NumberLit{Value: 0}}},
		Actions: []*ast.Action{{
			Name: "increment",
			Body: []ast.Stmt{&ast.SetStmt{
				Path:  []string{"count"},
				Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.Ident{Name: "count"}, Right: &ast.NumberLit{Value: 1}},
			}},
		}},
	}
}

func TestCompileProducesValidWasmHeader(t *testing.T) {
	out, err := Compile(&ast.Program{Space: counterSpace()}, CompileOptions{})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}))
}

func TestCompileExportsFixedABISurface(t *testing.T) {
	out, err := Compile(&ast.Program{Space: counterSpace()}, CompileOptions{})
	require.NoError(t, err)
	for _, name := range []string{"memory", "alloc", "init", "dispatch_action", "render", "get_state"} {
		require.True(t, bytes.Contains(out, []byte(name)), "missing export %q", name)
	}
	// no update/handle_event export since this space declares neither.
	require.False(t, bytes.Contains(out, []byte("update")))
	require.False(t, bytes.Contains(out, []byte("handle_event")))
}

func TestCompileExportsUpdateWhenDeclared(t *testing.T) {
	space := counterSpace()
	space.Update = &ast.Update{Param: "dt", Body: []ast.Stmt{}}
	out, err := Compile(&ast.Program{Space: space}, CompileOptions{})
	require.NoError(t, err)
	require.True(t, bytes.Contains(out, []byte("update")))
}

func TestCompileIsDeterministic(t *testing.T) {
	program := &ast.Program{Space: counterSpace()}
	a, err := Compile(program, CompileOptions{})
	require.NoError(t, err)
	b, err := Compile(program, CompileOptions{})
	require.NoError(t, err)
	require.True(t, bytes.Equal(a, b), "Compile should be deterministic across repeated calls")
}

func TestCollectMetadataAssignsDenseIdsInDeclarationOrder(t *testing.T) {
	space := counterSpace()
	space.Actions = append(space.Actions, &ast.Action{Name: "decrement"})
	m := CollectMetadata(space)
	require.Equal(t, 0, m.ActionIndex["increment"])
	require.Equal(t, 1, m.ActionIndex["decrement"])
	require.Equal(t, []string{"increment", "decrement"}, m.ActionOrder)
	// Result's two built-in arms are always present.
	require.Contains(t, m.VariantIndex, "Ok")
	require.Contains(t, m.VariantIndex, "Err")
}
