// Package surface implements the serialised UI description a view's render
// produces (spec §6.4): a list of nodes, each a record of component name,
// props, and children, in that field order.
package surface

import (
	"encoding/json"
	"fmt"

	"github.com/pepl-lang/pepl-core/value"
)

// Node is one Surface tree node as the evaluator builds it. The codegen
// builds the structurally identical `{ component, props, children }` record
// shape directly in linear memory; Node exists so the evaluator (and tests
// comparing the two runtimes) have a typed Go value to work with.
type Node struct {
	Component string
	Props     []PropEntry
	Children  []Node
}

type PropEntry struct {
	Name  string
	Value value.Value
}

// ToValue converts a Node to the generic record/list Value shape the spec
// mandates, field order component/props/children, so structural equality
// and JSON serialisation can share one path with ordinary PEPL values.
func (n Node) ToValue() value.Value {
	propFields := make([]value.RecordField, len(n.Props))
	for i, p := range n.Props {
		propFields[i] = value.RecordField{Key: p.Name, Value: p.Value}
	}
	children := make([]value.Value, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.ToValue()
	}
	return value.RecordValue([]value.RecordField{
		{Key: "component", Value: value.StringValue(n.Component)},
		{Key: "props", Value: value.RecordValue(propFields)},
		{Key: "children", Value: value.ListValue(children)},
	})
}

// Tree is the list of top-level nodes a single render(view_id) call returns.
type Tree []Node

func (t Tree) ToValue() value.Value {
	items := make([]value.Value, len(t))
	for i, n := range t {
		items[i] = n.ToValue()
	}
	return value.ListValue(items)
}

// MarshalJSON serialises a Value following the Surface tree JSON mapping:
// NUMBER -> number, NIL -> null, RECORD -> object, LIST -> array, and
// VARIANT -> either a bare string (unit variant) or {variant: [fields...]}.
func MarshalJSON(v value.Value) ([]byte, error) {
	return json.Marshal(toJSONAny(v))
}

func toJSONAny(v value.Value) interface{} {
	switch v.Tag {
	case value.Nil:
		return nil
	case value.Number:
		return v.Num
	case value.Bool:
		return v.Bool
	case value.String:
		return v.Str
	case value.List:
		out := make([]interface{}, len(v.Items))
		for i, it := range v.Items {
			out[i] = toJSONAny(it)
		}
		return out
	case value.Record:
		out := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Key] = toJSONAny(f.Value)
		}
		return out
	case value.Variant, value.Result:
		if len(v.Payload) == 0 {
			return v.VariantName
		}
		fields := make([]interface{}, len(v.Payload))
		for i, p := range v.Payload {
			fields[i] = toJSONAny(p)
		}
		return map[string]interface{}{v.VariantName: fields}
	case value.ActionRef:
		return map[string]interface{}{"__action": v.ActionName}
	default:
		return fmt.Sprintf("%v", v)
	}
}
