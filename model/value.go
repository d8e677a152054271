package model

import (
	"bytes"
	"strings"
)

// Kind enumerates the value types a column can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
)

// Value is a single typed cell. The zero Value is a null.
type Value struct {
	Kind  Kind
	B     bool
	I64   int64
	F64   float64
	Str   string
	Bytes []byte
}

// Null returns a null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{Kind: KindInt, I64: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Binary returns a raw bytes value. The slice is not copied.
func Binary(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// Size returns the estimated in-memory footprint of the value in bytes.
// It is used for memtable accounting and must stay cheap.
func (v Value) Size() int64 {
	// Struct header dominates small values.
	const base = 16
	return base + int64(len(v.Str)) + int64(len(v.Bytes))
}

// Compare orders two values. Nulls sort first, then by kind, then by the
// kind's natural order. Comparing values of different kinds is well defined
// but only meaningful for sorting.
func (v Value) Compare(o Value) int {
	if v.Kind != o.Kind {
		if v.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case KindNull:
		return 0
	case KindBool:
		if v.B == o.B {
			return 0
		}
		if !v.B {
			return -1
		}
		return 1
	case KindInt:
		switch {
		case v.I64 < o.I64:
			return -1
		case v.I64 > o.I64:
			return 1
		}
		return 0
	case KindFloat:
		switch {
		case v.F64 < o.F64:
			return -1
		case v.F64 > o.F64:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(v.Str, o.Str)
	case KindBytes:
		return bytes.Compare(v.Bytes, o.Bytes)
	default:
		return 0
	}
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool { return v.Compare(o) == 0 }

// Row is an ordered sequence of values. Depending on context it is either in
// request row-shape order or in tablet schema order.
type Row []Value

// Size returns the summed footprint of all values in the row.
func (r Row) Size() int64 {
	var n int64
	for _, v := range r {
		n += v.Size()
	}
	return n
}

// CompareKeys orders two rows by their first numKeys columns.
func (r Row) CompareKeys(o Row, numKeys int) int {
	for i := 0; i < numKeys && i < len(r) && i < len(o); i++ {
		if c := r[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	return 0
}
