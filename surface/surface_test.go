package surface

import (
	"encoding/json"
	"testing"

	"github.com/pepl-lang/pepl-core/value"
)

func TestNodeToValueFieldOrder(t *testing.T) {
	n := Node{
		Component: "Text",
		Props:     []PropEntry{{Name: "content", Value: value.StringValue("hi")}},
		Children:  nil,
	}
	v := n.ToValue()
	if v.Tag != value.Record {
		t.Fatalf("ToValue tag = %v, want Record", v.Tag)
	}
	wantKeys := []string{"component", "props", "children"}
	if len(v.Fields) != len(wantKeys) {
		t.Fatalf("got %d fields, want %d", len(v.Fields), len(wantKeys))
	}
	for i, k := range wantKeys {
		if v.Fields[i].Key != k {
			t.Fatalf("field %d = %q, want %q", i, v.Fields[i].Key, k)
		}
	}
	if got := v.RecordGet("component"); !value.Eq(got, value.StringValue("Text")) {
		t.Fatalf("component = %v", got)
	}
}

func TestTreeToValue(t *testing.T) {
	tree := Tree{{Component: "A"}, {Component: "B"}}
	v := tree.ToValue()
	if v.Tag != value.List || len(v.Items) != 2 {
		t.Fatalf("Tree.ToValue() = %+v", v)
	}
}

func TestMarshalJSONScalarsAndContainers(t *testing.T) {
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.NilValue(), "null"},
		{value.NumberValue(3), "3"},
		{value.BoolValue(true), "true"},
		{value.StringValue("hi"), `"hi"`},
		{value.ListValue([]value.Value{value.NumberValue(1), value.NumberValue(2)}), "[1,2]"},
	}
	for _, c := range cases {
		b, err := MarshalJSON(c.v)
		if err != nil {
			t.Fatalf("MarshalJSON(%+v): %v", c.v, err)
		}
		if string(b) != c.want {
			t.Fatalf("MarshalJSON(%+v) = %s, want %s", c.v, b, c.want)
		}
	}
}

func TestMarshalJSONRecordRoundTrips(t *testing.T) {
	v := value.RecordValue([]value.RecordField{{Key: "x", Value: value.NumberValue(1)}})
	b, err := MarshalJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["x"] != float64(1) {
		t.Fatalf("decoded record = %v", m)
	}
}

func TestMarshalJSONUnitVariantIsBareString(t *testing.T) {
	b, err := MarshalJSON(value.VariantValue("Empty", nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"Empty"` {
		t.Fatalf("unit variant JSON = %s", b)
	}
}

func TestMarshalJSONPayloadVariant(t *testing.T) {
	b, err := MarshalJSON(value.OkValue(value.NumberValue(9)))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string][]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if len(m["Ok"]) != 1 || m["Ok"][0] != float64(9) {
		t.Fatalf("decoded Ok payload = %v", m)
	}
}
