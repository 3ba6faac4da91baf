package parity

import (
	"fmt"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/internal/codegen"
	"github.com/pepl-lang/pepl-core/internal/eval"
	"github.com/pepl-lang/pepl-core/value"
)

// MockFn answers a capability call during a parity run, the wasm-side
// counterpart of eval.SpaceInstance.InstallMock (spec §3.4).
type MockFn func(args []value.Value) value.Value

type capKey struct{ module, function string }

// Scenario is one spec §8 "concrete scenario": a program and an input
// sequence to drive through both runtimes, plus any capability mocks the
// program's actions need (scenarios 1-5 need none; a parse-style scenario
// can supply one for its capability call).
type Scenario struct {
	Name    string
	Program *ast.Program
	Steps   []Step
	Mocks   map[capKey]MockFn
}

// WithMock installs a capability mock, mirroring config.HostConfig's
// chaining convention.
func (s Scenario) WithMock(module, function string, fn MockFn) Scenario {
	if s.Mocks == nil {
		s.Mocks = map[capKey]MockFn{}
	}
	s.Mocks[capKey{module, function}] = fn
	return s
}

type stepKind int

const (
	stepAction stepKind = iota
	stepUpdate
	stepEvent
)

// Step is one input to dispatch against both runtimes.
type Step struct {
	kind   stepKind
	action string
	args   []value.Value
	value  value.Value
}

func ActionStep(name string, args ...value.Value) Step {
	return Step{kind: stepAction, action: name, args: args}
}

func UpdateStep(dt float64) Step {
	return Step{kind: stepUpdate, value: value.NumberValue(dt)}
}

func EventStep(event value.Value) Step {
	return Step{kind: stepEvent, value: event}
}

// StepResult captures what happened on each side for one step, so a caller
// can assert atomicity/commit-agreement beyond the coarse "did state match"
// check (spec §8 "Atomicity").
type StepResult struct {
	EvalCommitted bool
	EvalInvariant string
	WasmState     value.Value
	EvalState     value.Value
}

// Check compiles scenario.Program, runs its step sequence through a fresh
// eval.SpaceInstance and through the compiled module on the given engine,
// and fails fast on the first state mismatch (spec §8 "Codegen/evaluator
// parity"). On success it returns the per-step results for the caller to
// run any scenario-specific assertions (e.g. scenario 4's exact commit
// pattern) against.
func Check(scenario Scenario, engine Engine) ([]StepResult, error) {
	space := scenario.Program.Space
	wasmBytes, err := codegen.Compile(scenario.Program, codegen.CompileOptions{})
	if err != nil {
		return nil, fmt.Errorf("parity: compile: %w", err)
	}
	meta := codegen.CollectMetadata(space)

	evalInst, err := eval.NewSpaceInstance(space)
	if err != nil {
		return nil, fmt.Errorf("parity: evaluator init: %w", err)
	}

	bridge := buildHostBridge(scenario.Mocks, meta)
	inst, err := instantiate(engine, wasmBytes, bridge)
	if err != nil {
		return nil, fmt.Errorf("parity: instantiate: %w", err)
	}

	if err := inst.CallVoid("init"); err != nil {
		return nil, fmt.Errorf("parity: init: %w", err)
	}

	if err := compareState(inst, evalInst, meta, -1); err != nil {
		return nil, err
	}

	var results []StepResult
	for i, step := range scenario.Steps {
		r, err := runStep(inst, evalInst, meta, step)
		if err != nil {
			return nil, fmt.Errorf("parity: step %d (%s): %w", i, stepLabel(step), err)
		}
		results = append(results, r)
		if !value.Eq(r.WasmState, r.EvalState) {
			return nil, fmt.Errorf("parity: step %d (%s): state mismatch: wasm=%s eval=%s",
				i, stepLabel(step), value.ToString(r.WasmState), value.ToString(r.EvalState))
		}
	}
	return results, nil
}

func stepLabel(s Step) string {
	switch s.kind {
	case stepAction:
		return "action:" + s.action
	case stepUpdate:
		return "update"
	case stepEvent:
		return "handle_event"
	default:
		return "?"
	}
}

func runStep(inst engineInstance, evalInst *eval.SpaceInstance, meta *codegen.Metadata, step Step) (StepResult, error) {
	enc := newEncoder(inst, meta.VariantIndex)

	switch step.kind {
	case stepAction:
		actionID, ok := meta.ActionIndex[step.action]
		if !ok {
			return StepResult{}, fmt.Errorf("unknown action %q", step.action)
		}
		argsPtr, err := enc.encodeList(step.args)
		if err != nil {
			return StepResult{}, err
		}
		if _, err := inst.CallI32("dispatch_action", int32(actionID), argsPtr); err != nil {
			return StepResult{}, err
		}
		evalResult, err := evalInst.Dispatch(step.action, step.args)
		if err != nil {
			return StepResult{}, err
		}
		return finishStep(inst, evalInst, meta, evalResult)
	case stepUpdate:
		dtPtr, err := enc.Encode(step.value)
		if err != nil {
			return StepResult{}, err
		}
		if err := inst.CallVoid("update", dtPtr); err != nil {
			return StepResult{}, err
		}
		evalResult, err := evalInst.Update(step.value)
		if err != nil {
			return StepResult{}, err
		}
		return finishStep(inst, evalInst, meta, evalResult)
	case stepEvent:
		evPtr, err := enc.Encode(step.value)
		if err != nil {
			return StepResult{}, err
		}
		if err := inst.CallVoid("handle_event", evPtr); err != nil {
			return StepResult{}, err
		}
		evalResult, err := evalInst.HandleEvent(step.value)
		if err != nil {
			return StepResult{}, err
		}
		return finishStep(inst, evalInst, meta, evalResult)
	default:
		return StepResult{}, fmt.Errorf("unknown step kind")
	}
}

func finishStep(inst engineInstance, evalInst *eval.SpaceInstance, meta *codegen.Metadata, evalResult eval.DispatchResult) (StepResult, error) {
	wasmState, err := readState(inst, meta)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		EvalCommitted: evalResult.Committed,
		EvalInvariant: evalResult.InvariantError,
		WasmState:     wasmState,
		EvalState:     evalInst.StateSnapshot(),
	}, nil
}

func compareState(inst engineInstance, evalInst *eval.SpaceInstance, meta *codegen.Metadata, stepIndex int) error {
	wasmState, err := readState(inst, meta)
	if err != nil {
		return err
	}
	evalState := evalInst.StateSnapshot()
	if !value.Eq(wasmState, evalState) {
		return fmt.Errorf("parity: step %d: post-init state mismatch: wasm=%s eval=%s",
			stepIndex, value.ToString(wasmState), value.ToString(evalState))
	}
	return nil
}

func readState(inst engineInstance, meta *codegen.Metadata) (value.Value, error) {
	ptr, err := inst.CallI32("get_state")
	if err != nil {
		return value.Value{}, err
	}
	mem, err := inst.ReadMemory()
	if err != nil {
		return value.Value{}, err
	}
	return newDecoder(mem, meta.VariantOrder).Decode(ptr)
}

// buildHostBridge wires the compiled module's three env imports: host_call
// routes capability module ids to scenario.Mocks (stdlib module ids are not
// mocked — spec §3.4 mocks are a capability-only concept); any call with no
// installed mock gets back an Err value naming module.function, not a trap;
// log/trap discard output (parity cares about state, not console output).
func buildHostBridge(mocks map[capKey]MockFn, meta *codegen.Metadata) HostBridge {
	return HostBridge{
		Meta: meta,
		Mocks: func(module, function string, args []value.Value) value.Value {
			fn, ok := mocks[capKey{module, function}]
			if !ok {
				return value.ErrValue(value.StringValue("parity: no mock installed for " + module + "." + function))
			}
			return fn(args)
		},
		Log:  func(string) {},
		Trap: func(string) {},
	}
}
