package leb128

import "testing"

func TestEncodeDecodeUint32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 16384, 4294967295}
	for _, v := range cases {
		enc := EncodeUint32(v)
		got, n, err := DecodeUint32(Reader(enc))
		if err != nil {
			t.Fatalf("DecodeUint32(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("DecodeUint32(%d) = %d", v, got)
		}
		if n != uint64(len(enc)) {
			t.Fatalf("DecodeUint32(%d) consumed %d bytes, want %d", v, n, len(enc))
		}
	}
}

func TestEncodeDecodeInt32RoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 63, -64, 64, -65, 1000000, -1000000}
	for _, v := range cases {
		enc := EncodeInt32(v)
		got, _, err := DecodeInt32(Reader(enc))
		if err != nil {
			t.Fatalf("DecodeInt32(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("DecodeInt32(%d) = %d", v, got)
		}
	}
}

func TestEncodeDecodeInt64RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 9223372036854775807, -9223372036854775808}
	for _, v := range cases {
		enc := EncodeInt64(v)
		got, _, err := DecodeInt64(Reader(enc))
		if err != nil {
			t.Fatalf("DecodeInt64(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("DecodeInt64(%d) = %d", v, got)
		}
	}
}

func TestDecodeUint32Overflow(t *testing.T) {
	// five continuation bytes with high bits set beyond 32 bits of payload.
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
	if _, _, err := DecodeUint32(Reader(buf)); err == nil {
		t.Fatal("expected overflow error")
	}
}
