package script

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindInteger is a signed 64-bit arithmetic operand.
	KindInteger Kind = iota

	// KindBytes is raw data such as public keys, hashes, signatures and
	// pushed literals.
	KindBytes

	// KindBoolean is the result of comparison and verification opcodes.
	KindBoolean
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindBytes:
		return "Bytes"
	case KindBoolean:
		return "Boolean"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a single operand on the data or alternate stack.
//
// Values are immutable once created.  Byte values share their backing array
// with whoever created them, so callers must not modify a slice after handing
// it to Bytes.
type Value struct {
	kind Kind
	num  int64
	data []byte
	flag bool
}

// Int returns an integer value.
func Int(n int64) Value {
	return Value{kind: KindInteger, num: n}
}

// Bytes returns a raw data value.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, data: b}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBoolean, flag: b}
}

// Kind returns which variant the value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// Encode returns the canonical byte representation of the value.  Integers
// use the minimal little endian sign-magnitude encoding, booleans encode as
// [0x01] or an empty slice, and raw data is returned as is.
func (v Value) Encode() []byte {
	switch v.kind {
	case KindInteger:
		return scriptNum(v.num).Bytes()
	case KindBoolean:
		return fromBool(v.flag)
	default:
		return v.data
	}
}

// Int coerces the value to an integer.  Booleans become 1 or 0.  Raw data is
// only accepted when it is a minimally encoded number of at most eight bytes;
// anything else is an ErrTypeMismatch.
func (v Value) Int() (int64, error) {
	switch v.kind {
	case KindInteger:
		return v.num, nil
	case KindBoolean:
		if v.flag {
			return 1, nil
		}
		return 0, nil
	default:
		n, err := makeScriptNum(v.data)
		if err != nil {
			return 0, err
		}
		return int64(n), nil
	}
}

// Truthy coerces the value to a boolean.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInteger:
		return v.num != 0
	case KindBoolean:
		return v.flag
	default:
		return asBool(v.data)
	}
}

// Equal reports whether both values have exactly the same canonical byte
// representation.  Numerically equal operands with different encodings, such
// as Int(1) and Bytes([]byte{0x01, 0x00}), are not equal.
func (v Value) Equal(other Value) bool {
	return bytes.Equal(v.Encode(), other.Encode())
}

// String returns the value in the literal form accepted by Tokenize where one
// exists: decimal for integers and 0x-prefixed hex for raw data.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindBoolean:
		return strconv.FormatBool(v.flag)
	default:
		return "0x" + hex.EncodeToString(v.data)
	}
}

// asBool gets the boolean value of the byte array.
func asBool(t []byte) bool {
	for i := range t {
		if t[i] != 0 {
			// Negative 0 is also considered false.
			if i == len(t)-1 && t[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

// fromBool converts a boolean into the appropriate byte array.
func fromBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return nil
}
