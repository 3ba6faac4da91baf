package ieee754

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeDecodeFloat32RoundTrip(t *testing.T) {
	cases := []float32{0, 1, -1, 3.14159, float32(math.Inf(1)), float32(math.Inf(-1))}
	for _, v := range cases {
		got, err := DecodeFloat32(bytes.NewReader(EncodeFloat32(v)))
		if err != nil {
			t.Fatalf("DecodeFloat32(%v): %v", v, err)
		}
		if got != v {
			t.Fatalf("DecodeFloat32(%v) = %v", v, got)
		}
	}
}

func TestEncodeDecodeFloat64RoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 2.718281828, math.Inf(1), math.Inf(-1)}
	for _, v := range cases {
		got, err := DecodeFloat64(bytes.NewReader(EncodeFloat64(v)))
		if err != nil {
			t.Fatalf("DecodeFloat64(%v): %v", v, err)
		}
		if got != v {
			t.Fatalf("DecodeFloat64(%v) = %v", v, got)
		}
	}
}

func TestSplitJoinWordsRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 42.5, -1000000.125}
	for _, v := range cases {
		lo, hi := SplitWords(v)
		got := JoinWords(lo, hi)
		if got != v {
			t.Fatalf("JoinWords(SplitWords(%v)) = %v", v, got)
		}
	}
}

func TestSplitJoinWordsNaN(t *testing.T) {
	lo, hi := SplitWords(math.NaN())
	got := JoinWords(lo, hi)
	if !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
}
