package parity

// hostCallTrampoline is the engine-agnostic body behind the compiled
// module's imported host_call(module_id, fn_id, args_ptr) -> i32 (spec
// §6.2): decode the packed args list out of the module's own memory,
// resolve (module_id, fn_id) back to names for capability calls (the only
// calls HostBridge.Mocks answers — stdlib calls are pure and have no mock
// concept per spec §3.4), run the mock, and encode its result back into
// the same module's memory.
//
// holder.inst is guaranteed non-nil by the time this runs: Check only lets
// the instantiated module make calls after setting holder.inst.
func hostCallTrampoline(holder *instHolder, bridge HostBridge, moduleID, fnID, argsPtr int32) int32 {
	inst := holder.inst
	mem, err := inst.ReadMemory()
	if err != nil {
		return 0
	}
	dec := newDecoder(mem, bridge.Meta.VariantOrder)
	argsList, err := dec.Decode(argsPtr)
	if err != nil {
		return 0
	}

	module, _ := capabilityModuleName(int(moduleID))
	function, _ := capabilityFunctionName(module, int(fnID))

	result := bridge.Mocks(module, function, argsList.Items)

	enc := newEncoder(inst, bridge.Meta.VariantIndex)
	ptr, err := enc.Encode(result)
	if err != nil {
		return 0
	}
	return ptr
}

// capabilityFunctionName reverses capid's fixed per-capability function-id
// tables (internal/capid's capabilityFunctions, not exported). Duplicated
// here since the trampoline only ever needs the reverse direction, which
// capid itself has no reason to expose.
func capabilityFunctionName(module string, fnID int) (string, bool) {
	tables := map[string]map[int]string{
		"http":          {1: "get", 2: "post", 3: "put", 4: "patch", 5: "delete"},
		"storage":       {1: "get", 2: "set", 3: "delete", 4: "keys"},
		"location":      {1: "current"},
		"notifications": {1: "send"},
		"credential":    {1: "get"},
	}
	fns, ok := tables[module]
	if !ok {
		return "", false
	}
	name, ok := fns[fnID]
	return name, ok
}
