package eval

import (
	"errors"
	"fmt"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/surface"
	"github.com/pepl-lang/pepl-core/value"
)

// DispatchResult reports the outcome of an action dispatch or update/event
// callback (spec §4.4 "Dispatch"). A failed invariant check is not an
// error — it is a successful call that left state unchanged.
type DispatchResult struct {
	Committed      bool
	InvariantError string // set iff !Committed
}

// SpaceInstance is the evaluator's runtime for one PEPL space: its
// environment, derived-field and invariant definitions, and the action/view
// declarations needed to resolve identifiers and dispatch by name (spec
// §3.4, §4.4).
type SpaceInstance struct {
	ev            *Evaluator
	space         *ast.Space
	stateFields   []string
	derived       []*ast.DerivedField
	invariants    []*ast.Invariant
	actionsByName map[string]*ast.Action
	actionIndex   map[string]int
	viewsByName   map[string]*ast.View
}

// NewSpaceInstance constructs a fresh instance: registers action names for
// Ident resolution, evaluates each state field's default in declaration
// order, seeds credentials as nil placeholders, and computes the initial
// derived fields (spec §4.4 "Construction").
func NewSpaceInstance(space *ast.Space) (*SpaceInstance, error) {
	env := NewEnvironment()
	actionIndex := make(map[string]int, len(space.Actions))
	actionsByName := make(map[string]*ast.Action, len(space.Actions))
	for i, a := range space.Actions {
		actionIndex[a.Name] = i
		actionsByName[a.Name] = a
	}
	viewsByName := make(map[string]*ast.View, len(space.Views))
	for _, v := range space.Views {
		viewsByName[v.Name] = v
	}

	ev := NewEvaluator(env, actionIndex)
	si := &SpaceInstance{
		ev:            ev,
		space:         space,
		derived:       space.Derived,
		invariants:    space.Invariants,
		actionsByName: actionsByName,
		actionIndex:   actionIndex,
		viewsByName:   viewsByName,
	}

	for _, f := range space.State {
		v, err := ev.EvalExpr(f.Default)
		if err != nil {
			return nil, fmt.Errorf("evaluating default for state field %q: %w", f.Name, err)
		}
		env.DefineGlobal(f.Name, v)
		si.stateFields = append(si.stateFields, f.Name)
	}
	for _, c := range space.Credentials {
		env.DefineGlobal(c.Name, value.NilValue())
	}
	ev.ResetGas()
	if err := si.recomputeDerived(); err != nil {
		return nil, err
	}
	return si, nil
}

// StateSnapshot projects the global bindings onto the declared state fields,
// in declaration order, for comparison against the codegen's get_state
// output (spec §8 "Codegen/evaluator parity").
func (si *SpaceInstance) StateSnapshot() value.Value {
	fields := make([]value.RecordField, 0, len(si.stateFields)+len(si.derived))
	for _, name := range si.stateFields {
		v, _ := si.ev.Env.GetGlobal(name)
		fields = append(fields, value.RecordField{Key: name, Value: v})
	}
	for _, d := range si.derived {
		v, _ := si.ev.Env.GetGlobal(d.Name)
		fields = append(fields, value.RecordField{Key: d.Name, Value: v})
	}
	return value.RecordValue(fields)
}

func (si *SpaceInstance) recomputeDerived() error {
	for _, d := range si.derived {
		v, err := si.ev.EvalExpr(d.Expr)
		if err != nil {
			return fmt.Errorf("recomputing derived field %q: %w", d.Name, err)
		}
		si.ev.Env.DefineGlobal(d.Name, v)
	}
	return nil
}

func (si *SpaceInstance) checkInvariants() (string, error) {
	for _, inv := range si.invariants {
		v, err := si.ev.EvalExpr(inv.Cond)
		if err != nil {
			return "", err
		}
		if !v.Bool {
			return inv.Name, nil
		}
	}
	return "", nil
}

// runAtomic is the shared transaction shape behind Dispatch, Update and
// HandleEvent (spec §4.4 "Dispatch", "Update and event callbacks"): bind
// params in a fresh scope, execute the body, recompute derived fields, then
// check invariants; on failure restore the pre-call snapshot and recompute
// derived fields again so they reflect the restored state.
func (si *SpaceInstance) runAtomic(params map[string]value.Value, body []ast.Stmt) (DispatchResult, error) {
	snapshot := si.ev.Env.GlobalBindings()
	si.ev.ResetGas()

	si.ev.Env.PushScope()
	for name, v := range params {
		si.ev.Env.Define(name, v)
	}
	err := si.ev.ExecStmts(body)
	si.ev.Env.PopScope()

	var rs returnSignal
	if err != nil && !errors.As(err, &rs) {
		return DispatchResult{}, err
	}

	if err := si.recomputeDerived(); err != nil {
		return DispatchResult{}, err
	}
	failedName, err := si.checkInvariants()
	if err != nil {
		return DispatchResult{}, err
	}
	if failedName != "" {
		si.ev.Env.RestoreGlobal(snapshot)
		if err := si.recomputeDerived(); err != nil {
			return DispatchResult{}, err
		}
		return DispatchResult{Committed: false, InvariantError: failedName}, nil
	}
	return DispatchResult{Committed: true}, nil
}

// Dispatch runs the named action with positional args under invariant
// checking (spec §4.4).
func (si *SpaceInstance) Dispatch(name string, args []value.Value) (DispatchResult, error) {
	action, ok := si.actionsByName[name]
	if !ok {
		return DispatchResult{}, fmt.Errorf("unknown action: %s", name)
	}
	params := make(map[string]value.Value, len(action.Params))
	for i, p := range action.Params {
		if i < len(args) {
			params[p.Name] = args[i]
		} else {
			params[p.Name] = value.NilValue()
		}
	}
	return si.runAtomic(params, action.Body)
}

// Update runs the optional per-tick callback, binding dt as its single
// parameter (spec §4.3 "update(dt_ptr)").
func (si *SpaceInstance) Update(dt value.Value) (DispatchResult, error) {
	if si.space.Update == nil {
		return DispatchResult{}, errors.New("space has no update callback")
	}
	return si.runAtomic(map[string]value.Value{si.space.Update.Param: dt}, si.space.Update.Body)
}

// HandleEvent runs the optional event callback, binding event as its single
// parameter.
func (si *SpaceInstance) HandleEvent(event value.Value) (DispatchResult, error) {
	if si.space.OnEvent == nil {
		return DispatchResult{}, errors.New("space has no event handler")
	}
	return si.runAtomic(map[string]value.Value{si.space.OnEvent.Param: event}, si.space.OnEvent.Body)
}

// InstallMock registers a capability mock for use by subsequent dispatches,
// as a test's `with_responses` block would (spec §4.4).
func (si *SpaceInstance) InstallMock(module, function string, v value.Value) {
	si.ev.InstallMock(module, function, v)
}

// Render walks a view's UI block and produces a Surface tree (spec §4.4
// "Render"). Render never mutates state and is safe to call repeatedly
// (spec §8 "Round-trip / idempotence").
func (si *SpaceInstance) Render(viewName string) (surface.Tree, error) {
	view, ok := si.viewsByName[viewName]
	if !ok {
		return nil, fmt.Errorf("unknown view: %s", viewName)
	}
	return si.renderElements(view.Body)
}

func (si *SpaceInstance) renderElements(elems []ast.UIElement) (surface.Tree, error) {
	var out surface.Tree
	for _, el := range elems {
		nodes, err := si.renderElement(el)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (si *SpaceInstance) renderElement(el ast.UIElement) ([]surface.Node, error) {
	switch n := el.(type) {
	case *ast.UINode:
		props := make([]surface.PropEntry, 0, len(n.Props))
		for _, p := range n.Props {
			v, err := si.evalProp(p.Value)
			if err != nil {
				return nil, err
			}
			props = append(props, surface.PropEntry{Name: p.Name, Value: v})
		}
		children, err := si.renderElements(n.Children)
		if err != nil {
			return nil, err
		}
		return []surface.Node{{Component: n.Component, Props: props, Children: children}}, nil
	case *ast.UIIf:
		cond, err := si.ev.EvalExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		if cond.Bool {
			return si.flatten(si.renderElements(n.Then))
		}
		return si.flatten(si.renderElements(n.Else))
	case *ast.UIFor:
		iter, err := si.ev.EvalExpr(n.Iterable)
		if err != nil {
			return nil, err
		}
		si.ev.Env.PushScope()
		defer si.ev.Env.PopScope()
		var out []surface.Node
		for i, item := range iter.Items {
			if n.IndexName != "" {
				si.ev.Env.Define(n.IndexName, value.NumberValue(float64(i)))
			}
			if n.ElemName != "" {
				si.ev.Env.Define(n.ElemName, item)
			}
			nodes, err := si.renderElements(n.Body)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported UI element node")
	}
}

func (si *SpaceInstance) flatten(tree surface.Tree, err error) ([]surface.Node, error) {
	if err != nil {
		return nil, err
	}
	return []surface.Node(tree), nil
}

// evalProp recognises action-reference props specially (spec §4.4
// "Render"): a bare identifier becomes {"__action": name}, a call becomes
// {"__action": name, "__args": [...]}, and a lambda becomes {"__lambda": closure}.
func (si *SpaceInstance) evalProp(e ast.Expr) (value.Value, error) {
	v, err := si.ev.EvalExpr(e)
	if err != nil {
		return value.Value{}, err
	}
	if v.Tag == value.ActionRef {
		fields := []value.RecordField{{Key: "__action", Value: value.StringValue(v.ActionName)}}
		if len(v.Payload) > 0 {
			fields = append(fields, value.RecordField{Key: "__args", Value: value.ListValue(v.Payload)})
		}
		return value.RecordValue(fields), nil
	}
	if v.Tag == value.Lambda {
		return value.RecordValue([]value.RecordField{{Key: "__lambda", Value: v}}), nil
	}
	return v, nil
}
