// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"errors"
)

// ErrorKind identifies a kind of script error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ---------------------------------------
	// Failures related to malformed scripts.
	// ---------------------------------------

	// ErrUnknownToken is returned by Tokenize when a token is neither a
	// registered opcode mnemonic nor a representable literal.
	ErrUnknownToken = ErrorKind("ErrUnknownToken")

	// ErrMalformedLiteral is returned by Tokenize when a token looks like a
	// literal but cannot be decoded, such as an out of range decimal or
	// invalid hex.
	ErrMalformedLiteral = ErrorKind("ErrMalformedLiteral")

	// ErrMalformedPush is returned when a binary script contains a data push
	// that claims more bytes than the script has remaining.
	ErrMalformedPush = ErrorKind("ErrMalformedPush")

	// ErrUnknownOpcode is returned when an opcode identifier or mnemonic
	// has no entry in the opcode registry.
	ErrUnknownOpcode = ErrorKind("ErrUnknownOpcode")

	// ---------------------------------------
	// Failures related to improper API usage.
	// ---------------------------------------

	// ErrInvalidIndex is returned when an out-of-bounds index is passed to
	// a function.
	ErrInvalidIndex = ErrorKind("ErrInvalidIndex")

	// ErrInvalidProgramCounter is returned when an attempt to execute an
	// opcode is made once all of them have already been executed.  This can
	// happen due to things such as a second call to Execute or calling Step
	// after all opcodes have already been executed.
	ErrInvalidProgramCounter = ErrorKind("ErrInvalidProgramCounter")

	// ErrMissingCryptoDelegate is returned when a hashing or signature
	// opcode executes on an engine configured without a CryptoDelegate.
	ErrMissingCryptoDelegate = ErrorKind("ErrMissingCryptoDelegate")

	// ErrNotPushOnly is returned when an unlocking script passed to Verify
	// contains opcodes other than data pushes.
	ErrNotPushOnly = ErrorKind("ErrNotPushOnly")

	// ------------------------------------------
	// Failures related to final execution state.
	// ------------------------------------------

	// ErrEarlyReturn is returned when OP_RETURN is executed in the script.
	ErrEarlyReturn = ErrorKind("ErrEarlyReturn")

	// ErrEmptyStack is returned when the script evaluated without error,
	// but terminated with an empty stack.
	ErrEmptyStack = ErrorKind("ErrEmptyStack")

	// ErrEvalFalse is returned when the script evaluated without error but
	// terminated with a false top stack element.
	ErrEvalFalse = ErrorKind("ErrEvalFalse")

	// -----------------------------------------------------
	// Failures related to exceeding maximum allowed limits.
	// -----------------------------------------------------

	// ErrTooManyOperations is returned when a script steps through more
	// instructions than the configured quota allows.
	ErrTooManyOperations = ErrorKind("ErrTooManyOperations")

	// ErrNumOutOfRange is returned when an arithmetic result does not fit
	// in a signed 64-bit integer.
	ErrNumOutOfRange = ErrorKind("ErrNumOutOfRange")

	// --------------------------------------------
	// Failures related to operand types and stack.
	// --------------------------------------------

	// ErrStackUnderflow is returned when an opcode requires more items
	// than the stack holds.
	ErrStackUnderflow = ErrorKind("ErrStackUnderflow")

	// ErrTypeMismatch is returned when an operand cannot be coerced to the
	// type an opcode requires, such as a non-minimal byte string used as an
	// integer.
	ErrTypeMismatch = ErrorKind("ErrTypeMismatch")

	// ErrDivideByZero is returned when OP_DIV or OP_MOD is given a zero
	// divisor.
	ErrDivideByZero = ErrorKind("ErrDivideByZero")

	// ---------------------------------
	// Failures related to verification.
	// ---------------------------------

	// ErrScriptVerifyFailed is returned when OP_VERIFY or one of the
	// opcodes combined with it observes a false top stack element.
	ErrScriptVerifyFailed = ErrorKind("ErrScriptVerifyFailed")

	// ---------------------------------
	// Failures related to conditionals.
	// ---------------------------------

	// ErrUnbalancedConditional is returned when an OP_ELSE or OP_ENDIF is
	// encountered without a matching OP_IF or OP_NOTIF, or a script ends
	// with an open conditional.
	ErrUnbalancedConditional = ErrorKind("ErrUnbalancedConditional")

	// ErrDuplicateElse is returned when a conditional block contains more
	// than one OP_ELSE.
	ErrDuplicateElse = ErrorKind("ErrDuplicateElse")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a script-related error.  It is used to indicate three
// classes of errors:
// 1) Script parse failures, reported before any execution begins
// 2) Script execution failures due to violating one of the requirements
//    imposed by the script engine or evaluating to false
// 3) Improper API usage by callers
//
// Index is the instruction (or token) index the error refers to, or -1 when
// it does not refer to a single instruction.
//
// It has full support for errors.Is and errors.As, so the caller can ascertain
// the specific reason for the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
	Index       int
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// scriptError creates an Error given a set of arguments.  The index is left
// unset and filled in by the engine once the failing instruction is known.
func scriptError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc, Index: -1}
}

// withIndex returns err with its index set to idx when err is an Error that
// does not carry an index yet.  Other errors are returned unchanged.
func withIndex(err error, idx int) error {
	var serr Error
	if !errors.As(err, &serr) || serr.Index >= 0 {
		return err
	}
	serr.Index = idx
	return serr
}

// IsParseError returns whether or not the provided error is one of the error
// kinds reported while turning a script into instructions, before execution.
func IsParseError(err error) bool {
	var kind ErrorKind
	if !errors.As(err, &kind) {
		return false
	}

	switch kind {
	case ErrUnknownToken, ErrMalformedLiteral, ErrMalformedPush:
		return true
	}

	return false
}
