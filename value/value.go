// Package value implements the in-memory counterpart of the WASM target's
// 12-byte value cell (spec §3.2): the tree-walking evaluator's native
// representation of every PEPL runtime value. The codegen package never
// imports this package directly — it builds the same tagged shape out of
// linear-memory bytes — but both share the tag vocabulary and structural
// equality/display rules defined here, which is what the parity tests in
// internal/parity check bit-for-bit.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Tag mirrors the wire tag of a value cell.
type Tag int

const (
	Nil Tag = iota
	Number
	Bool
	String
	List
	Record
	Variant
	Lambda
	Result
	ActionRef
)

// Value is a tagged union covering every PEPL runtime value. Only the field
// matching Tag is meaningful; the rest are zero. Values are immutable once
// constructed — List and Record share element/field Values by reference,
// which is safe because nothing in PEPL can mutate a Value in place (every
// "update" builds a new Value, per the bump-heap design this mirrors).
type Value struct {
	Tag    Tag
	Num    float64
	Bool   bool
	Str    string
	Items  []Value       // Tag == List
	Fields []RecordField // Tag == Record, in declaration/insertion order
	// Variant/Result payloads: VariantName is "Ok"/"Err" for Result,
	// or the declared sum-type arm name for Variant. Payload holds the
	// positional field values (declaration order).
	VariantName string
	Payload     []Value
	Lambda      *LambdaValue
	ActionIndex int
	ActionName  string
}

type RecordField struct {
	Key   string
	Value Value
}

// LambdaValue captures, by value, a snapshot of the enclosing scope stack at
// the point the lambda literal was evaluated (spec §9 "Closures in the
// evaluator"). Env is declared as an opaque interface{} here to avoid a
// package import cycle with internal/eval, which defines the real
// environment type and type-asserts it back.
type LambdaValue struct {
	Params []string
	Body   interface{} // *ast.Expr body, typed at the call site in internal/eval
	Env    interface{} // captured *eval.Environment snapshot
}

func NilValue() Value          { return Value{Tag: Nil} }
func NumberValue(n float64) Value { return Value{Tag: Number, Num: n} }
func BoolValue(b bool) Value   { return Value{Tag: Bool, Bool: b} }
func StringValue(s string) Value { return Value{Tag: String, Str: s} }
func ListValue(items []Value) Value { return Value{Tag: List, Items: items} }
func RecordValue(fields []RecordField) Value { return Value{Tag: Record, Fields: fields} }
func VariantValue(name string, payload []Value) Value {
	return Value{Tag: Variant, VariantName: name, Payload: payload}
}
func ActionRefValue(index int, name string) Value {
	return Value{Tag: ActionRef, ActionIndex: index, ActionName: name}
}

// OkValue / ErrValue build the built-in two-arm Result sum type used by `?`
// and fallible stdlib calls.
func OkValue(v Value) Value  { return Value{Tag: Result, VariantName: "Ok", Payload: []Value{v}} }
func ErrValue(msg Value) Value { return Value{Tag: Result, VariantName: "Err", Payload: []Value{msg}} }

func (v Value) IsNil() bool { return v.Tag == Nil }

// RecordGet performs the same linear scan by key the codegen's
// val_record_get helper does; absent keys yield Nil (spec §4.2).
func (v Value) RecordGet(key string) Value {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return NilValue()
}

// RecordWith returns a new Record with key replaced (or appended if absent),
// implementing the immutable-update discipline `set a.b = x` relies on
// (spec §4.3 "set a.b.c...n").
func (v Value) RecordWith(key string, newVal Value) Value {
	fields := make([]RecordField, len(v.Fields))
	copy(fields, v.Fields)
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = newVal
			return Value{Tag: Record, Fields: fields}
		}
	}
	fields = append(fields, RecordField{Key: key, Value: newVal})
	return Value{Tag: Record, Fields: fields}
}

func (v Value) ListGet(index int) Value {
	if index < 0 || index >= len(v.Items) {
		return NilValue()
	}
	return v.Items[index]
}

// Eq implements structural equality matching val_eq's semantics: NIL=NIL is
// true, NaN != NaN (even to itself), lists/records compare element-wise and
// by key set, Result/Variant compare by arm name then payload, and
// functions (Lambda) are never equal.
func Eq(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case Nil:
		return true
	case Number:
		if math.IsNaN(a.Num) || math.IsNaN(b.Num) {
			return false
		}
		return a.Num == b.Num
	case Bool:
		return a.Bool == b.Bool
	case String:
		return a.Str == b.Str
	case List:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Eq(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case Record:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		am := fieldMap(a)
		bm := fieldMap(b)
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !Eq(av, bv) {
				return false
			}
		}
		return true
	case Variant, Result:
		if a.VariantName != b.VariantName || len(a.Payload) != len(b.Payload) {
			return false
		}
		for i := range a.Payload {
			if !Eq(a.Payload[i], b.Payload[i]) {
				return false
			}
		}
		return true
	case ActionRef:
		return a.ActionIndex == b.ActionIndex
	case Lambda:
		return false
	default:
		return false
	}
}

func fieldMap(v Value) map[string]Value {
	m := make(map[string]Value, len(v.Fields))
	for _, f := range v.Fields {
		m[f.Key] = f.Value
	}
	return m
}

// ToString implements the val_to_string / Display rule: integer-valued
// finite numbers render as decimal digits, other numbers use the platform's
// default float rendering (matching the evaluator's reference semantics;
// the codegen's val_to_string falls back to "[value]" for non-integers per
// the open question in spec §9), booleans/nil/lists/records/variants follow
// fixed formats.
func ToString(v Value) string {
	switch v.Tag {
	case Nil:
		return "nil"
	case Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(v.Num)
	case String:
		return v.Str
	case List:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = ToString(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Record:
		keys := make([]string, 0, len(v.Fields))
		byKey := make(map[string]Value, len(v.Fields))
		for _, f := range v.Fields {
			keys = append(keys, f.Key)
			byKey[f.Key] = f.Value
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, ToString(byKey[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Variant, Result:
		if len(v.Payload) == 0 {
			return v.VariantName
		}
		parts := make([]string, len(v.Payload))
		for i, p := range v.Payload {
			parts[i] = ToString(p)
		}
		return fmt.Sprintf("%s(%s)", v.VariantName, strings.Join(parts, ", "))
	case Lambda:
		return "<function>"
	case ActionRef:
		return "<action:" + v.ActionName + ">"
	default:
		return "[value]"
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return "[value]"
	}
	if n == math.Trunc(n) && math.Abs(n) < (1<<53) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// IsIntegerFinite reports whether n is exactly representable as a decimal
// integer within +/-2^53, the range formatNumber prints as plain digits
// (codegen's val_to_string prints digits only for magnitudes below 2^31).
func IsIntegerFinite(n float64) bool {
	return !math.IsInf(n, 0) && !math.IsNaN(n) && n == math.Trunc(n) && math.Abs(n) < (1<<53)
}
