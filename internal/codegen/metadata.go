// Package codegen lowers a validated PEPL AST to a binary WebAssembly 1.0
// module (spec §4.1-§4.3): a fixed ABI, a tag-union value representation, a
// bump allocator, a gas meter, and traps for arithmetic/assertion/invariant
// failures.
package codegen

import "github.com/pepl-lang/pepl-core/ast"

// Metadata is the set of dense tables collected by a single walk of the
// space body before any code is emitted (spec §4.1 "Metadata collection").
// Every table preserves declaration order, which is what makes compile()
// deterministic: nothing here depends on map iteration order surviving into
// the output.
type Metadata struct {
	StateFields []string // includes derived fields, which live in the state record
	FieldIndex  map[string]int

	ActionIndex map[string]int
	ActionOrder []string

	ViewIndex map[string]int
	ViewOrder []string

	// VariantIndex assigns a dense global id to every sum-type variant name
	// across the whole program (spec §4.1: "Sum-type variant names -> dense
	// global ids, shared across all user sum types").
	VariantIndex map[string]int
	VariantOrder []string

	HasUpdate  bool
	HasOnEvent bool
}

func CollectMetadata(space *ast.Space) *Metadata {
	m := &Metadata{
		FieldIndex:   map[string]int{},
		ActionIndex:  map[string]int{},
		ViewIndex:    map[string]int{},
		VariantIndex: map[string]int{},
	}
	for _, f := range space.State {
		m.addField(f.Name)
	}
	for _, d := range space.Derived {
		m.addField(d.Name)
	}
	for i, a := range space.Actions {
		m.ActionIndex[a.Name] = i
		m.ActionOrder = append(m.ActionOrder, a.Name)
	}
	for i, v := range space.Views {
		m.ViewIndex[v.Name] = i
		m.ViewOrder = append(m.ViewOrder, v.Name)
	}
	m.HasUpdate = space.Update != nil
	m.HasOnEvent = space.OnEvent != nil

	// Walk every type annotation reachable from state/derived field
	// declarations to find sum-type variants. A well-formed AST only
	// introduces new sum types here; actions/views reference already-seen
	// variant names via VariantLit/MatchArm.
	for _, f := range space.State {
		m.collectVariants(f.Type)
	}
	for _, d := range space.Derived {
		m.collectVariants(d.Type)
	}
	// The built-in two-arm Result type is always present since `?` and
	// fallible stdlib calls construct it regardless of whether the user
	// declared any sum type of their own.
	m.addVariant("Ok")
	m.addVariant("Err")
	return m
}

func (m *Metadata) addField(name string) {
	if _, ok := m.FieldIndex[name]; ok {
		return
	}
	m.FieldIndex[name] = len(m.StateFields)
	m.StateFields = append(m.StateFields, name)
}

func (m *Metadata) addVariant(name string) {
	if _, ok := m.VariantIndex[name]; ok {
		return
	}
	m.VariantIndex[name] = len(m.VariantOrder)
	m.VariantOrder = append(m.VariantOrder, name)
}

func (m *Metadata) collectVariants(t *ast.TypeAnnotation) {
	if t == nil {
		return
	}
	switch t.Kind {
	case ast.TypeVariant:
		for _, v := range t.Variants {
			m.addVariant(v.Name)
			for _, f := range v.Fields {
				m.collectVariants(f.Type)
			}
		}
	case ast.TypeList:
		m.collectVariants(t.Elem)
	case ast.TypeRecord:
		for _, f := range t.Fields {
			m.collectVariants(f.Type)
		}
	}
}
