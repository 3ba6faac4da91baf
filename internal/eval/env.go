package eval

import "github.com/pepl-lang/pepl-core/value"

// Environment is a scope stack of name->Value maps plus a separate global
// map for state and derived fields (spec §4.4 "Environment"). Locals shadow
// globals; `set` only ever updates the nearest local binding or, via
// SpaceInstance, the global state map directly.
type Environment struct {
	scopes  []map[string]value.Value
	globals map[string]value.Value
}

func NewEnvironment() *Environment {
	return &Environment{
		scopes:  []map[string]value.Value{{}},
		globals: map[string]value.Value{},
	}
}

func (e *Environment) PushScope() { e.scopes = append(e.scopes, map[string]value.Value{}) }

func (e *Environment) PopScope() {
	if len(e.scopes) > 1 {
		e.scopes = e.scopes[:len(e.scopes)-1]
	}
}

// Define binds name in the innermost scope.
func (e *Environment) Define(name string, v value.Value) {
	e.scopes[len(e.scopes)-1][name] = v
}

// Get resolves name against the scope stack first, then the globals.
func (e *Environment) Get(name string) (value.Value, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i][name]; ok {
			return v, true
		}
	}
	if v, ok := e.globals[name]; ok {
		return v, true
	}
	return value.Value{}, false
}

// Set updates the nearest local binding for name; it never creates new
// bindings and never touches globals. Returns false if name is unbound in
// any scope.
func (e *Environment) Set(name string, v value.Value) bool {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if _, ok := e.scopes[i][name]; ok {
			e.scopes[i][name] = v
			return true
		}
	}
	return false
}

// DefineGlobal binds name (a state or derived field) in the global map.
func (e *Environment) DefineGlobal(name string, v value.Value) { e.globals[name] = v }

func (e *Environment) GetGlobal(name string) (value.Value, bool) {
	v, ok := e.globals[name]
	return v, ok
}

// GlobalBindings snapshots the global map for atomic-dispatch rollback
// (spec §4.4 SpaceInstance Dispatch). The snapshot is a shallow copy: Values
// are immutable so sharing them across snapshots is safe.
func (e *Environment) GlobalBindings() map[string]value.Value {
	snap := make(map[string]value.Value, len(e.globals))
	for k, v := range e.globals {
		snap[k] = v
	}
	return snap
}

// RestoreGlobal replaces the global map wholesale, completing a rollback.
func (e *Environment) RestoreGlobal(snapshot map[string]value.Value) {
	e.globals = snapshot
}
