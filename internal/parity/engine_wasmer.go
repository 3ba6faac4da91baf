package parity

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// wasmerInstance backs engineInstance with wasmer-go, the independent
// second engine config.EngineWasmer selects — run alongside wasmtime so a
// codegen bug that happens to validate against only one engine's quirks
// still shows up as a parity mismatch (spec §7, §8).
type wasmerInstance struct {
	instance *wasmer.Instance
	memory   *wasmer.Memory
}

func newWasmerInstance(wasmBytes []byte, bridge HostBridge) (engineInstance, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("wasmer: compile module: %w", err)
	}

	var holder instHolder

	hostCallType := wasmer.NewFunctionType(
		wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32),
		wasmer.NewValueTypes(wasmer.I32),
	)
	hostCallFn := wasmer.NewFunction(store, hostCallType, func(args []wasmer.Value) ([]wasmer.Value, error) {
		ret := hostCallTrampoline(&holder, bridge,
			args[0].I32(), args[1].I32(), args[2].I32())
		return []wasmer.Value{wasmer.NewI32(ret)}, nil
	})

	logType := wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32), wasmer.NewValueTypes())
	logFn := wasmer.NewFunction(store, logType, func(args []wasmer.Value) ([]wasmer.Value, error) {
		bridge.Log(readStringArg(&holder, args[0].I32(), args[1].I32()))
		return []wasmer.Value{}, nil
	})

	trapType := wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32), wasmer.NewValueTypes())
	trapFn := wasmer.NewFunction(store, trapType, func(args []wasmer.Value) ([]wasmer.Value, error) {
		bridge.Trap(readStringArg(&holder, args[0].I32(), args[1].I32()))
		return []wasmer.Value{}, nil
	})

	importObject := wasmer.NewImportObject()
	importObject.Register("env", map[string]wasmer.IntoExtern{
		"host_call": hostCallFn,
		"log":       logFn,
		"trap":      trapFn,
	})

	instance, err := wasmer.NewInstance(module, importObject)
	if err != nil {
		return nil, fmt.Errorf("wasmer: instantiate: %w", err)
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("wasmer: get memory export: %w", err)
	}
	wi := &wasmerInstance{instance: instance, memory: mem}
	holder.inst = wi
	return wi, nil
}

func (w *wasmerInstance) Alloc(size int32) (int32, error) {
	return w.CallI32("alloc", size)
}

func (w *wasmerInstance) WriteMemory(ptr int32, data []byte) error {
	copy(w.memory.Data()[ptr:], data)
	return nil
}

func (w *wasmerInstance) ReadMemory() ([]byte, error) {
	return w.memory.Data(), nil
}

func (w *wasmerInstance) CallI32(name string, args ...int32) (int32, error) {
	fn, err := w.instance.Exports.GetFunction(name)
	if err != nil {
		return 0, fmt.Errorf("wasmer: no exported function %q: %w", name, err)
	}
	wasmArgs := make([]interface{}, len(args))
	for i, a := range args {
		wasmArgs[i] = a
	}
	ret, err := fn(wasmArgs...)
	if err != nil {
		return 0, fmt.Errorf("wasmer: call %s: %w", name, err)
	}
	v, ok := ret.(int32)
	if !ok {
		return 0, fmt.Errorf("wasmer: call %s: expected i32 result, got %T", name, ret)
	}
	return v, nil
}

func (w *wasmerInstance) CallVoid(name string, args ...int32) error {
	fn, err := w.instance.Exports.GetFunction(name)
	if err != nil {
		return fmt.Errorf("wasmer: no exported function %q: %w", name, err)
	}
	wasmArgs := make([]interface{}, len(args))
	for i, a := range args {
		wasmArgs[i] = a
	}
	_, err = fn(wasmArgs...)
	if err != nil {
		return fmt.Errorf("wasmer: call %s: %w", name, err)
	}
	return nil
}
