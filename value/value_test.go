package value

import (
	"math"
	"testing"
)

func TestEqScalars(t *testing.T) {
	if !Eq(NumberValue(1), NumberValue(1)) {
		t.Fatal("1 != 1")
	}
	if Eq(NumberValue(1), NumberValue(2)) {
		t.Fatal("1 == 2")
	}
	if Eq(NumberValue(math.NaN()), NumberValue(math.NaN())) {
		t.Fatal("NaN should never equal itself")
	}
	if !Eq(NilValue(), NilValue()) {
		t.Fatal("nil != nil")
	}
	if !Eq(BoolValue(true), BoolValue(true)) {
		t.Fatal("true != true")
	}
	if Eq(StringValue("a"), StringValue("b")) {
		t.Fatal("a == b")
	}
}

func TestEqListOrderMatters(t *testing.T) {
	a := ListValue([]Value{NumberValue(1), NumberValue(2)})
	b := ListValue([]Value{NumberValue(2), NumberValue(1)})
	if Eq(a, b) {
		t.Fatal("lists with different order compared equal")
	}
	c := ListValue([]Value{NumberValue(1), NumberValue(2)})
	if !Eq(a, c) {
		t.Fatal("identical lists compared unequal")
	}
}

func TestEqRecordIsKeySetNotOrder(t *testing.T) {
	a := RecordValue([]RecordField{{Key: "x", Value: NumberValue(1)}, {Key: "y", Value: NumberValue(2)}})
	b := RecordValue([]RecordField{{Key: "y", Value: NumberValue(2)}, {Key: "x", Value: NumberValue(1)}})
	if !Eq(a, b) {
		t.Fatal("records with same keys in different order should compare equal")
	}
}

func TestEqVariantAndResult(t *testing.T) {
	ok1 := OkValue(NumberValue(5))
	ok2 := OkValue(NumberValue(5))
	if !Eq(ok1, ok2) {
		t.Fatal("equal Ok results compared unequal")
	}
	err := ErrValue(StringValue("boom"))
	if Eq(ok1, err) {
		t.Fatal("Ok and Err compared equal")
	}
	v1 := VariantValue("Circle", []Value{NumberValue(3)})
	v2 := VariantValue("Square", []Value{NumberValue(3)})
	if Eq(v1, v2) {
		t.Fatal("variants with different arm names compared equal")
	}
}

func TestEqLambdaNeverEqual(t *testing.T) {
	a := Value{Tag: Lambda, Lambda: &LambdaValue{}}
	b := Value{Tag: Lambda, Lambda: &LambdaValue{}}
	if Eq(a, b) {
		t.Fatal("lambdas should never compare equal")
	}
}

func TestRecordGetAndWith(t *testing.T) {
	r := RecordValue([]RecordField{{Key: "a", Value: NumberValue(1)}})
	if got := r.RecordGet("a"); !Eq(got, NumberValue(1)) {
		t.Fatalf("RecordGet(a) = %v", got)
	}
	if got := r.RecordGet("missing"); !got.IsNil() {
		t.Fatalf("RecordGet(missing) = %v, want nil", got)
	}
	updated := r.RecordWith("a", NumberValue(2))
	if !Eq(updated.RecordGet("a"), NumberValue(2)) {
		t.Fatal("RecordWith did not update existing key")
	}
	if !Eq(r.RecordGet("a"), NumberValue(1)) {
		t.Fatal("RecordWith mutated the original record")
	}
	appended := r.RecordWith("b", NumberValue(3))
	if !Eq(appended.RecordGet("b"), NumberValue(3)) {
		t.Fatal("RecordWith did not append a new key")
	}
}

func TestListGetBounds(t *testing.T) {
	l := ListValue([]Value{NumberValue(10), NumberValue(20)})
	if !Eq(l.ListGet(1), NumberValue(20)) {
		t.Fatal("ListGet(1) wrong")
	}
	if !l.ListGet(-1).IsNil() {
		t.Fatal("ListGet(-1) should be nil")
	}
	if !l.ListGet(5).IsNil() {
		t.Fatal("ListGet(out of range) should be nil")
	}
}

func TestToStringFormats(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{NilValue(), "nil"},
		{BoolValue(true), "true"},
		{NumberValue(3), "3"},
		{NumberValue(3.5), "3.5"},
		{StringValue("hi"), "hi"},
		{ListValue([]Value{NumberValue(1), NumberValue(2)}), "[1, 2]"},
		{OkValue(NumberValue(7)), "Ok(7)"},
	}
	for _, c := range cases {
		if got := ToString(c.v); got != c.want {
			t.Fatalf("ToString(%+v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestIsIntegerFinite(t *testing.T) {
	if !IsIntegerFinite(4) {
		t.Fatal("4 should be integer-finite")
	}
	if IsIntegerFinite(4.5) {
		t.Fatal("4.5 should not be integer-finite")
	}
	if IsIntegerFinite(math.Inf(1)) {
		t.Fatal("+Inf should not be integer-finite")
	}
	if IsIntegerFinite(math.NaN()) {
		t.Fatal("NaN should not be integer-finite")
	}
}
