// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"fmt"
)

const (
	// maxScriptNumLen is the maximum number of bytes data being interpreted
	// as an integer may be.  Eight bytes hold every int64 except
	// math.MinInt64, whose magnitude needs a ninth byte for the sign.
	maxScriptNumLen = 8
)

// scriptNum represents a numeric value used in the scripting engine.
//
// Numbers that live on the stacks as raw bytes are encoded as little endian
// with a sign bit in the most significant byte, and zero is encoded as an
// empty byte slice.  Whenever data is interpreted as an integer it is
// converted with makeScriptNum, which rejects encodings that are not minimal
// or longer than maxScriptNumLen.
type scriptNum int64

// checkMinimalDataEncoding returns whether or not the passed byte array
// adheres to the minimal encoding requirements.
func checkMinimalDataEncoding(v []byte) error {
	if len(v) == 0 {
		return nil
	}

	// Check that the number is encoded with the minimum possible
	// number of bytes.
	//
	// If the most-significant-byte - excluding the sign bit - is zero
	// then we're not minimal.  Note how this test also rejects the
	// negative-zero encoding, [0x80].
	if v[len(v)-1]&0x7f == 0 {
		// One exception: if there's more than one byte and the most
		// significant bit of the second-most-significant-byte is set
		// it would conflict with the sign bit.  An example of this case
		// is +-255, which encode to 0xff00 and 0xff80 respectively.
		// (big-endian).
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			str := fmt.Sprintf("numeric value encoded as %x is "+
				"not minimally encoded", v)
			return scriptError(ErrTypeMismatch, str)
		}
	}

	return nil
}

// Bytes returns the number serialized as a little endian with a sign bit.
//
// Example encodings:
//
//	   127 -> [0x7f]
//	  -127 -> [0xff]
//	   128 -> [0x80 0x00]
//	  -128 -> [0x80 0x80]
//	   129 -> [0x81 0x00]
//	  -129 -> [0x81 0x80]
//	   256 -> [0x00 0x01]
//	  -256 -> [0x00 0x81]
//	 32767 -> [0xff 0x7f]
//	-32767 -> [0xff 0xff]
//	 32768 -> [0x00 0x80 0x00]
//	-32768 -> [0x00 0x80 0x80]
func (n scriptNum) Bytes() []byte {
	// Zero encodes as an empty byte slice.
	if n == 0 {
		return nil
	}

	// Work on the magnitude as an unsigned value so math.MinInt64 does not
	// overflow when negated.
	isNegative := n < 0
	magnitude := uint64(n)
	if isNegative {
		magnitude = uint64(-(n + 1)) + 1
	}

	// Encode to little endian.  The maximum number of encoded bytes is 9
	// (8 bytes for max int64 plus a potential byte for sign extension).
	result := make([]byte, 0, 9)
	for magnitude > 0 {
		result = append(result, byte(magnitude&0xff))
		magnitude >>= 8
	}

	// When the most significant byte already has the high bit set, an
	// additional high byte is required to indicate whether the number is
	// negative or positive.  The additional byte is removed when converting
	// back to an integral and its high bit is used to denote the sign.
	//
	// Otherwise, when the most significant byte does not already have the
	// high bit set, use it to indicate the value is negative, if needed.
	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if isNegative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if isNegative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// makeScriptNum interprets the passed serialized bytes as an encoded integer
// and returns the result as a script number.
//
// An ErrTypeMismatch error is returned when the data is longer than
// maxScriptNumLen or is not minimally encoded, so byte strings that are not
// numbers never silently decode to zero.
func makeScriptNum(v []byte) (scriptNum, error) {
	if len(v) > maxScriptNumLen {
		str := fmt.Sprintf("numeric value encoded as %x is %d bytes "+
			"which exceeds the max allowed of %d", v, len(v),
			maxScriptNumLen)
		return 0, scriptError(ErrTypeMismatch, str)
	}

	if err := checkMinimalDataEncoding(v); err != nil {
		return 0, err
	}

	// Zero is encoded as an empty byte slice.
	if len(v) == 0 {
		return 0, nil
	}

	// Decode from little endian.
	var result uint64
	for i, val := range v {
		result |= uint64(val) << uint8(8*i)
	}

	// When the most significant byte of the input bytes has the sign bit
	// set, the result is negative.  So, remove the sign bit from the result
	// and make it negative.
	signMask := uint64(0x80) << uint8(8*(len(v)-1))
	if result&signMask != 0 {
		result &^= signMask
		return scriptNum(-int64(result)), nil
	}

	return scriptNum(result), nil
}
