package parity

import (
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v14"
)

// wasmtimeInstance backs engineInstance with wasmtime-go's AOT (Cranelift)
// engine — the default parity cross-check engine (config.EngineWasmtime).
type wasmtimeInstance struct {
	store    *wasmtime.Store
	instance *wasmtime.Instance
}

func newWasmtimeInstance(wasmBytes []byte, bridge HostBridge) (engineInstance, error) {
	engine := wasmtime.NewEngine()
	module, err := wasmtime.NewModule(engine, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("wasmtime: compile module: %w", err)
	}
	store := wasmtime.NewStore(engine)
	linker := wasmtime.NewLinker(engine)

	var holder instHolder
	hostCall := func(moduleID, fnID, argsPtr int32) int32 {
		return hostCallTrampoline(&holder, bridge, moduleID, fnID, argsPtr)
	}
	if err := linker.DefineFunc(store, "env", "host_call", hostCall); err != nil {
		return nil, fmt.Errorf("wasmtime: define host_call: %w", err)
	}
	logFn := func(ptr, length int32) {
		bridge.Log(readStringArg(&holder, ptr, length))
	}
	if err := linker.DefineFunc(store, "env", "log", logFn); err != nil {
		return nil, fmt.Errorf("wasmtime: define log: %w", err)
	}
	trapFn := func(ptr, length int32) {
		bridge.Trap(readStringArg(&holder, ptr, length))
	}
	if err := linker.DefineFunc(store, "env", "trap", trapFn); err != nil {
		return nil, fmt.Errorf("wasmtime: define trap: %w", err)
	}

	instance, err := linker.Instantiate(store, module)
	if err != nil {
		return nil, fmt.Errorf("wasmtime: instantiate: %w", err)
	}
	wi := &wasmtimeInstance{store: store, instance: instance}
	holder.inst = wi
	return wi, nil
}

func readStringArg(holder *instHolder, ptr, length int32) string {
	mem, err := holder.inst.ReadMemory()
	if err != nil || length == 0 {
		return ""
	}
	return string(mem[ptr : ptr+length])
}

func (w *wasmtimeInstance) Alloc(size int32) (int32, error) {
	return w.CallI32("alloc", size)
}

func (w *wasmtimeInstance) WriteMemory(ptr int32, data []byte) error {
	mem := w.instance.GetExport(w.store, "memory").Memory()
	raw := mem.UnsafeData(w.store)
	copy(raw[ptr:], data)
	return nil
}

func (w *wasmtimeInstance) ReadMemory() ([]byte, error) {
	mem := w.instance.GetExport(w.store, "memory").Memory()
	return mem.UnsafeData(w.store), nil
}

func (w *wasmtimeInstance) CallI32(name string, args ...int32) (int32, error) {
	fn := w.instance.GetFunc(w.store, name)
	if fn == nil {
		return 0, fmt.Errorf("wasmtime: no exported function %q", name)
	}
	wasmArgs := make([]interface{}, len(args))
	for i, a := range args {
		wasmArgs[i] = a
	}
	ret, err := fn.Call(w.store, wasmArgs...)
	if err != nil {
		return 0, fmt.Errorf("wasmtime: call %s: %w", name, err)
	}
	v, ok := ret.(int32)
	if !ok {
		return 0, fmt.Errorf("wasmtime: call %s: expected i32 result, got %T", name, ret)
	}
	return v, nil
}

func (w *wasmtimeInstance) CallVoid(name string, args ...int32) error {
	fn := w.instance.GetFunc(w.store, name)
	if fn == nil {
		return fmt.Errorf("wasmtime: no exported function %q", name)
	}
	wasmArgs := make([]interface{}, len(args))
	for i, a := range args {
		wasmArgs[i] = a
	}
	_, err := fn.Call(w.store, wasmArgs...)
	if err != nil {
		return fmt.Errorf("wasmtime: call %s: %w", name, err)
	}
	return nil
}
