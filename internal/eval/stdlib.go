package eval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pepl-lang/pepl-core/surface"
	"github.com/pepl-lang/pepl-core/value"
)

// MockKey identifies a mocked capability call installed by a test's
// `with_responses` block (spec §4.4 "Mock capabilities").
type MockKey struct{ Module, Function string }

// mockTable holds canned responses keyed by (module, function); multiple
// responses for the same key are consumed in installation order, then the
// last one repeats, matching how a test fixture would script a sequence of
// calls without needing a fresh mock per call.
type mockTable struct {
	responses map[MockKey][]value.Value
	cursor    map[MockKey]int
}

func newMockTable() *mockTable {
	return &mockTable{responses: map[MockKey][]value.Value{}, cursor: map[MockKey]int{}}
}

func (m *mockTable) install(key MockKey, v value.Value) {
	m.responses[key] = append(m.responses[key], v)
}

func (m *mockTable) lookup(key MockKey) (value.Value, bool) {
	vals, ok := m.responses[key]
	if !ok || len(vals) == 0 {
		return value.Value{}, false
	}
	i := m.cursor[key]
	if i >= len(vals) {
		i = len(vals) - 1
	} else {
		m.cursor[key] = i + 1
	}
	return vals[i], true
}

// callCapability resolves a `module.function(args...)` call where module is
// a declared capability. The evaluator never talks to a real host: it only
// ever consults the mock table, returning Err("unmocked capability call: …")
// on a miss (spec §4.4).
func (ev *Evaluator) callCapability(module, function string, args []value.Value) (value.Value, error) {
	key := MockKey{Module: module, Function: function}
	if v, ok := ev.mocks.lookup(key); ok {
		return v, nil
	}
	return value.ErrValue(value.StringValue(fmt.Sprintf("unmocked capability call: %s.%s", module, function))), nil
}

// callStdlib dispatches a pure stdlib module call to its built-in Go
// implementation. Unlike capabilities, stdlib calls are never mocked and
// never fail to resolve for a well-formed program.
func (ev *Evaluator) callStdlib(module, function string, args []value.Value) (value.Value, error) {
	switch module {
	case "math":
		return stdlibMath(function, args)
	case "string":
		return stdlibString(function, args)
	case "list":
		return stdlibList(function, args)
	case "record":
		return stdlibRecord(function, args)
	case "json":
		return stdlibJSON(function, args)
	case "convert":
		return stdlibConvert(function, args)
	case "core":
		return stdlibCore(function, args)
	case "time", "timer":
		// Deterministic by construction: PEPL has no wall-clock or
		// scheduling non-determinism (spec §1 Non-goals), so time/timer
		// calls always resolve through the mock table like capabilities,
		// never a real clock.
		return ev.callCapability(module, function, args)
	default:
		return value.NilValue(), fmt.Errorf("unknown stdlib module: %s", module)
	}
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.NilValue()
}

func stdlibMath(fn string, args []value.Value) (value.Value, error) {
	a := arg(args, 0).Num
	switch fn {
	case "abs":
		return value.NumberValue(math.Abs(a)), nil
	case "floor":
		return value.NumberValue(math.Floor(a)), nil
	case "ceil":
		return value.NumberValue(math.Ceil(a)), nil
	case "round":
		return value.NumberValue(math.Round(a)), nil
	case "sqrt":
		return value.NumberValue(math.Sqrt(a)), nil
	case "min":
		return value.NumberValue(math.Min(a, arg(args, 1).Num)), nil
	case "max":
		return value.NumberValue(math.Max(a, arg(args, 1).Num)), nil
	case "pow":
		return value.NumberValue(math.Pow(a, arg(args, 1).Num)), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown math function: %s", fn)
	}
}

func stdlibString(fn string, args []value.Value) (value.Value, error) {
	s := arg(args, 0).Str
	switch fn {
	case "len":
		return value.NumberValue(float64(len([]rune(s)))), nil
	case "upper":
		return value.StringValue(strings.ToUpper(s)), nil
	case "lower":
		return value.StringValue(strings.ToLower(s)), nil
	case "trim":
		return value.StringValue(strings.TrimSpace(s)), nil
	case "split":
		parts := strings.Split(s, arg(args, 1).Str)
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.StringValue(p)
		}
		return value.ListValue(items), nil
	case "contains":
		return value.BoolValue(strings.Contains(s, arg(args, 1).Str)), nil
	case "slice":
		runes := []rune(s)
		start := clampIndex(int(arg(args, 1).Num), len(runes))
		end := clampIndex(int(arg(args, 2).Num), len(runes))
		if start > end {
			start = end
		}
		return value.StringValue(string(runes[start:end])), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown string function: %s", fn)
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func stdlibList(fn string, args []value.Value) (value.Value, error) {
	l := arg(args, 0)
	switch fn {
	case "len":
		return value.NumberValue(float64(len(l.Items))), nil
	case "push":
		items := append(append([]value.Value{}, l.Items...), arg(args, 1))
		return value.ListValue(items), nil
	case "get":
		return l.ListGet(int(arg(args, 1).Num)), nil
	case "contains":
		for _, it := range l.Items {
			if value.Eq(it, arg(args, 1)) {
				return value.BoolValue(true), nil
			}
		}
		return value.BoolValue(false), nil
	case "reverse":
		items := make([]value.Value, len(l.Items))
		for i, it := range l.Items {
			items[len(items)-1-i] = it
		}
		return value.ListValue(items), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown list function: %s", fn)
	}
}

func stdlibRecord(fn string, args []value.Value) (value.Value, error) {
	r := arg(args, 0)
	switch fn {
	case "get":
		return r.RecordGet(arg(args, 1).Str), nil
	case "has":
		for _, f := range r.Fields {
			if f.Key == arg(args, 1).Str {
				return value.BoolValue(true), nil
			}
		}
		return value.BoolValue(false), nil
	case "keys":
		keys := make([]string, len(r.Fields))
		for i, f := range r.Fields {
			keys[i] = f.Key
		}
		sort.Strings(keys)
		items := make([]value.Value, len(keys))
		for i, k := range keys {
			items[i] = value.StringValue(k)
		}
		return value.ListValue(items), nil
	case "with":
		return r.RecordWith(arg(args, 1).Str, arg(args, 2)), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown record function: %s", fn)
	}
}

func stdlibJSON(fn string, args []value.Value) (value.Value, error) {
	switch fn {
	case "stringify":
		b, err := surface.MarshalJSON(arg(args, 0))
		if err != nil {
			return value.ErrValue(value.StringValue(err.Error())), nil
		}
		return value.OkValue(value.StringValue(string(b))), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown json function: %s", fn)
	}
}

func stdlibConvert(fn string, args []value.Value) (value.Value, error) {
	a := arg(args, 0)
	switch fn {
	case "to_string":
		return value.StringValue(value.ToString(a)), nil
	case "to_number":
		n, err := strconv.ParseFloat(strings.TrimSpace(a.Str), 64)
		if err != nil {
			return value.ErrValue(value.StringValue("not a number: " + a.Str)), nil
		}
		return value.OkValue(value.NumberValue(n)), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown convert function: %s", fn)
	}
}

func stdlibCore(fn string, args []value.Value) (value.Value, error) {
	switch fn {
	case "identity":
		return arg(args, 0), nil
	case "type_of":
		return value.StringValue(typeName(arg(args, 0))), nil
	default:
		return value.NilValue(), fmt.Errorf("unknown core function: %s", fn)
	}
}

func typeName(v value.Value) string {
	switch v.Tag {
	case value.Nil:
		return "nil"
	case value.Number:
		return "number"
	case value.Bool:
		return "bool"
	case value.String:
		return "string"
	case value.List:
		return "list"
	case value.Record:
		return "record"
	case value.Variant, value.Result:
		return "variant"
	case value.Lambda:
		return "function"
	case value.ActionRef:
		return "action"
	default:
		return "unknown"
	}
}
