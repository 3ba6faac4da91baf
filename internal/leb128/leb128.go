// Package leb128 implements the LEB128 variable-length integer encoding used
// throughout the WebAssembly binary format: section and vector lengths are
// unsigned LEB128; i32/i64 constants and signed indices are signed LEB128.
package leb128

import (
	"bytes"
	"errors"
	"io"
)

// EncodeUint32 appends the unsigned LEB128 encoding of v.
func EncodeUint32(v uint32) []byte { return appendUleb(nil, uint64(v)) }

// EncodeInt32 appends the signed LEB128 encoding of v.
func EncodeInt32(v int32) []byte { return appendSleb(nil, int64(v)) }

// EncodeInt64 appends the signed LEB128 encoding of v.
func EncodeInt64(v int64) []byte { return appendSleb(nil, v) }

func appendUleb(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}

func appendSleb(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf = append(buf, b)
			return buf
		}
		buf = append(buf, b|0x80)
	}
}

// DecodeUint32 reads an unsigned LEB128 value, returning the number of bytes
// consumed alongside it so callers can advance a program counter.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	var result uint64
	var shift uint
	var n uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if shift >= 32 && b > 0x0f {
				return 0, n, errors.New("leb128: uint32 overflow")
			}
			return uint32(result), n, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, n, errors.New("leb128: uint32 too long")
		}
	}
}

// DecodeInt32 reads a signed LEB128 value.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	v, n, err := decodeSigned(r, 32)
	return int32(v), n, err
}

// DecodeInt64 reads a signed LEB128 value.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeSigned(r, 64)
}

func decodeSigned(r io.ByteReader, size uint) (int64, uint64, error) {
	var result int64
	var shift uint
	var n uint64
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= size {
			return 0, n, errors.New("leb128: signed value too long")
		}
	}
	if shift < size && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, n, nil
}

// Reader wraps a byte slice for DecodeUint32/Int32/Int64 callers that only
// have a slice, matching the pattern used across the codebase:
// leb128.DecodeUint32(bytes.NewReader(b)).
func Reader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
