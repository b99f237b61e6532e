// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"
)

// An opcode defines the information related to a script opcode.  arity is the
// number of data stack items the opcode needs before it runs, and opfunc is
// the function to call to perform the opcode on the engine.
type opcode struct {
	value  byte
	name   string
	arity  int
	opfunc func(*opcode, *Engine) error
}

// displayName returns the opcode name, or a placeholder for identifiers with
// no registry entry.
func (op *opcode) displayName() string {
	if op.name == "" {
		return fmt.Sprintf("OP_UNKNOWN%d", op.value)
	}
	return op.name
}

// These constants are the values of the opcodes the engine understands.  They
// follow the conventional numbering so scripts assembled with other tooling
// decode to the same instructions.
const (
	OP_0                  = 0x00 // 0
	OP_FALSE              = 0x00 // 0 - AKA OP_0
	OP_DATA_1             = 0x01 // 1
	OP_DATA_75            = 0x4b // 75
	OP_PUSHDATA1          = 0x4c // 76
	OP_PUSHDATA2          = 0x4d // 77
	OP_PUSHDATA4          = 0x4e // 78
	OP_1NEGATE            = 0x4f // 79
	OP_1                  = 0x51 // 81 - AKA OP_TRUE
	OP_TRUE               = 0x51 // 81
	OP_2                  = 0x52 // 82
	OP_3                  = 0x53 // 83
	OP_4                  = 0x54 // 84
	OP_5                  = 0x55 // 85
	OP_6                  = 0x56 // 86
	OP_7                  = 0x57 // 87
	OP_8                  = 0x58 // 88
	OP_9                  = 0x59 // 89
	OP_10                 = 0x5a // 90
	OP_11                 = 0x5b // 91
	OP_12                 = 0x5c // 92
	OP_13                 = 0x5d // 93
	OP_14                 = 0x5e // 94
	OP_15                 = 0x5f // 95
	OP_16                 = 0x60 // 96
	OP_NOP                = 0x61 // 97
	OP_IF                 = 0x63 // 99
	OP_NOTIF              = 0x64 // 100
	OP_ELSE               = 0x67 // 103
	OP_ENDIF              = 0x68 // 104
	OP_VERIFY             = 0x69 // 105
	OP_RETURN             = 0x6a // 106
	OP_TOALTSTACK         = 0x6b // 107
	OP_FROMALTSTACK       = 0x6c // 108
	OP_2DROP              = 0x6d // 109
	OP_2DUP               = 0x6e // 110
	OP_IFDUP              = 0x73 // 115
	OP_DEPTH              = 0x74 // 116
	OP_DROP               = 0x75 // 117
	OP_DUP                = 0x76 // 118
	OP_NIP                = 0x77 // 119
	OP_OVER               = 0x78 // 120
	OP_ROT                = 0x7b // 123
	OP_SWAP               = 0x7c // 124
	OP_TUCK               = 0x7d // 125
	OP_SIZE               = 0x82 // 130
	OP_EQUAL              = 0x87 // 135
	OP_EQUALVERIFY        = 0x88 // 136
	OP_1ADD               = 0x8b // 139
	OP_1SUB               = 0x8c // 140
	OP_NEGATE             = 0x8f // 143
	OP_ABS                = 0x90 // 144
	OP_NOT                = 0x91 // 145
	OP_0NOTEQUAL          = 0x92 // 146
	OP_ADD                = 0x93 // 147
	OP_SUB                = 0x94 // 148
	OP_MUL                = 0x95 // 149
	OP_DIV                = 0x96 // 150
	OP_MOD                = 0x97 // 151
	OP_BOOLAND            = 0x9a // 154
	OP_BOOLOR             = 0x9b // 155
	OP_NUMEQUAL           = 0x9c // 156
	OP_NUMEQUALVERIFY     = 0x9d // 157
	OP_NUMNOTEQUAL        = 0x9e // 158
	OP_LESSTHAN           = 0x9f // 159
	OP_GREATERTHAN        = 0xa0 // 160
	OP_LESSTHANOREQUAL    = 0xa1 // 161
	OP_GREATERTHANOREQUAL = 0xa2 // 162
	OP_MIN                = 0xa3 // 163
	OP_MAX                = 0xa4 // 164
	OP_WITHIN             = 0xa5 // 165
	OP_RIPEMD160          = 0xa6 // 166
	OP_SHA256             = 0xa8 // 168
	OP_HASH160            = 0xa9 // 169
	OP_HASH256            = 0xaa // 170
	OP_CHECKSIG           = 0xac // 172
	OP_CHECKSIGVERIFY     = 0xad // 173
)

// opcodeArray holds details about every registered opcode such as its
// human-readable name, the number of stack items it needs and the handler
// function.  Entries with a nil opfunc are not registered.  The table is
// read-only once the package is initialized, so engines running in parallel
// share it freely.
var opcodeArray [256]opcode

// opcodeTable is the source the registry is built from.
var opcodeTable = []opcode{
	// Constants.
	{OP_0, "OP_0", 0, opcodeFalse},
	{OP_1NEGATE, "OP_1NEGATE", 0, opcode1Negate},
	{OP_1, "OP_1", 0, opcodeN},
	{OP_2, "OP_2", 0, opcodeN},
	{OP_3, "OP_3", 0, opcodeN},
	{OP_4, "OP_4", 0, opcodeN},
	{OP_5, "OP_5", 0, opcodeN},
	{OP_6, "OP_6", 0, opcodeN},
	{OP_7, "OP_7", 0, opcodeN},
	{OP_8, "OP_8", 0, opcodeN},
	{OP_9, "OP_9", 0, opcodeN},
	{OP_10, "OP_10", 0, opcodeN},
	{OP_11, "OP_11", 0, opcodeN},
	{OP_12, "OP_12", 0, opcodeN},
	{OP_13, "OP_13", 0, opcodeN},
	{OP_14, "OP_14", 0, opcodeN},
	{OP_15, "OP_15", 0, opcodeN},
	{OP_16, "OP_16", 0, opcodeN},

	// Control opcodes.
	{OP_NOP, "OP_NOP", 0, opcodeNop},
	{OP_IF, "OP_IF", 1, opcodeIf},
	{OP_NOTIF, "OP_NOTIF", 1, opcodeNotIf},
	{OP_ELSE, "OP_ELSE", 0, opcodeElse},
	{OP_ENDIF, "OP_ENDIF", 0, opcodeEndif},
	{OP_VERIFY, "OP_VERIFY", 1, opcodeVerify},
	{OP_RETURN, "OP_RETURN", 0, opcodeReturn},

	// Stack opcodes.
	{OP_TOALTSTACK, "OP_TOALTSTACK", 1, opcodeToAltStack},
	{OP_FROMALTSTACK, "OP_FROMALTSTACK", 0, opcodeFromAltStack},
	{OP_2DROP, "OP_2DROP", 2, opcode2Drop},
	{OP_2DUP, "OP_2DUP", 2, opcode2Dup},
	{OP_IFDUP, "OP_IFDUP", 1, opcodeIfDup},
	{OP_DEPTH, "OP_DEPTH", 0, opcodeDepth},
	{OP_DROP, "OP_DROP", 1, opcodeDrop},
	{OP_DUP, "OP_DUP", 1, opcodeDup},
	{OP_NIP, "OP_NIP", 2, opcodeNip},
	{OP_OVER, "OP_OVER", 2, opcodeOver},
	{OP_ROT, "OP_ROT", 3, opcodeRot},
	{OP_SWAP, "OP_SWAP", 2, opcodeSwap},
	{OP_TUCK, "OP_TUCK", 2, opcodeTuck},
	{OP_SIZE, "OP_SIZE", 1, opcodeSize},

	// Bitwise logic opcodes.
	{OP_EQUAL, "OP_EQUAL", 2, opcodeEqual},
	{OP_EQUALVERIFY, "OP_EQUALVERIFY", 2, opcodeEqualVerify},

	// Numeric related opcodes.
	{OP_1ADD, "OP_1ADD", 1, opcode1Add},
	{OP_1SUB, "OP_1SUB", 1, opcode1Sub},
	{OP_NEGATE, "OP_NEGATE", 1, opcodeNegate},
	{OP_ABS, "OP_ABS", 1, opcodeAbs},
	{OP_NOT, "OP_NOT", 1, opcodeNot},
	{OP_0NOTEQUAL, "OP_0NOTEQUAL", 1, opcode0NotEqual},
	{OP_ADD, "OP_ADD", 2, opcodeAdd},
	{OP_SUB, "OP_SUB", 2, opcodeSub},
	{OP_MUL, "OP_MUL", 2, opcodeMul},
	{OP_DIV, "OP_DIV", 2, opcodeDiv},
	{OP_MOD, "OP_MOD", 2, opcodeMod},
	{OP_BOOLAND, "OP_BOOLAND", 2, opcodeBoolAnd},
	{OP_BOOLOR, "OP_BOOLOR", 2, opcodeBoolOr},
	{OP_NUMEQUAL, "OP_NUMEQUAL", 2, opcodeNumEqual},
	{OP_NUMEQUALVERIFY, "OP_NUMEQUALVERIFY", 2, opcodeNumEqualVerify},
	{OP_NUMNOTEQUAL, "OP_NUMNOTEQUAL", 2, opcodeNumNotEqual},
	{OP_LESSTHAN, "OP_LESSTHAN", 2, opcodeLessThan},
	{OP_GREATERTHAN, "OP_GREATERTHAN", 2, opcodeGreaterThan},
	{OP_LESSTHANOREQUAL, "OP_LESSTHANOREQUAL", 2, opcodeLessThanOrEqual},
	{OP_GREATERTHANOREQUAL, "OP_GREATERTHANOREQUAL", 2, opcodeGreaterThanOrEqual},
	{OP_MIN, "OP_MIN", 2, opcodeMin},
	{OP_MAX, "OP_MAX", 2, opcodeMax},
	{OP_WITHIN, "OP_WITHIN", 3, opcodeWithin},

	// Crypto opcodes.
	{OP_RIPEMD160, "OP_RIPEMD160", 1, opcodeRipemd160},
	{OP_SHA256, "OP_SHA256", 1, opcodeSha256},
	{OP_HASH160, "OP_HASH160", 1, opcodeHash160},
	{OP_HASH256, "OP_HASH256", 1, opcodeHash256},
	{OP_CHECKSIG, "OP_CHECKSIG", 2, opcodeCheckSig},
	{OP_CHECKSIGVERIFY, "OP_CHECKSIGVERIFY", 2, opcodeCheckSigVerify},
}

// OpcodeByName is a map that can be used to lookup an opcode by its
// human-readable name (OP_CHECKSIG, OP_DUP, etc).
var OpcodeByName = make(map[string]byte)

func init() {
	for i := range opcodeArray {
		opcodeArray[i].value = byte(i)
	}

	// Initialize the registry and the opcode name to value map using the
	// contents of the opcode table.  Also add entries for "OP_FALSE" and
	// "OP_TRUE" since they are aliases for "OP_0" and "OP_1" respectively.
	for _, op := range opcodeTable {
		opcodeArray[op.value] = op
		OpcodeByName[op.name] = op.value
	}
	OpcodeByName["OP_FALSE"] = OP_FALSE
	OpcodeByName["OP_TRUE"] = OP_TRUE
}

// lookupOpcode returns the registry entry for id.  Identifiers without an
// entry are an ErrUnknownOpcode, never silently ignored.
func lookupOpcode(id byte) (*opcode, error) {
	op := &opcodeArray[id]
	if op.opfunc == nil {
		str := fmt.Sprintf("attempt to execute unknown opcode %s",
			op.displayName())
		return nil, scriptError(ErrUnknownOpcode, str)
	}
	return op, nil
}

// OpcodeName returns the human-readable name of the opcode identified by id.
func OpcodeName(id byte) string {
	return opcodeArray[id].displayName()
}

// IsRegistered reports whether id has an entry in the opcode registry.
func IsRegistered(id byte) bool {
	return opcodeArray[id].opfunc != nil
}

// isOpcodeConditional returns whether or not the opcode is a conditional opcode
// which changes the conditional execution stack when executed.
func isOpcodeConditional(opcode byte) bool {
	switch opcode {
	case OP_IF:
		return true
	case OP_NOTIF:
		return true
	case OP_ELSE:
		return true
	case OP_ENDIF:
		return true
	default:
		return false
	}
}

// *******************************************
// Opcode implementation functions start here.
// *******************************************

// opcodeFalse pushes the integer zero to the data stack.  Note that 0, when
// encoded as a number, is an empty array, which is also false.
func opcodeFalse(op *opcode, vm *Engine) error {
	vm.dstack.PushInt(0)
	return nil
}

// opcode1Negate pushes -1 to the data stack.
func opcode1Negate(op *opcode, vm *Engine) error {
	vm.dstack.PushInt(-1)
	return nil
}

// opcodeN is a common handler for the small integer data push opcodes.  It
// pushes the numeric value the opcode represents (which will be from 1 to 16)
// onto the data stack.
func opcodeN(op *opcode, vm *Engine) error {
	// The opcodes are all defined consecutively, so the numeric value is
	// the difference.
	vm.dstack.PushInt(int64(op.value - (OP_1 - 1)))
	return nil
}

// opcodeNop does nothing.
func opcodeNop(op *opcode, vm *Engine) error {
	return nil
}

// opcodeIf treats the top item on the data stack as a boolean and removes it.
//
// A new branch context is pushed depending on whether the boolean is true and
// whether this if is on an executing branch in order to allow proper
// execution of further opcodes depending on the conditional logic.  When the
// boolean is true, the first branch will be executed (unless this opcode is
// nested in a non-executed branch).
//
// <expression> if [statements] [else [statements]] endif
//
// Note that, unlike for all non-conditional opcodes, this is executed even when
// it is on a non-executing branch so proper nesting is maintained.  In that
// case the data stack is not touched at all.
//
// Data stack transformation: [... bool] -> [...]
// Conditional stack transformation: [...] -> [... branchContext]
func opcodeIf(op *opcode, vm *Engine) error {
	return vm.openBranch(false)
}

// opcodeNotIf treats the top item on the data stack as a boolean and removes
// it.  It behaves like opcodeIf except the first branch is executed when the
// boolean is false.
//
// <expression> notif [statements] [else [statements]] endif
//
// Data stack transformation: [... bool] -> [...]
// Conditional stack transformation: [...] -> [... branchContext]
func opcodeNotIf(op *opcode, vm *Engine) error {
	return vm.openBranch(true)
}

// opcodeElse switches execution to the other half of if/else/endif.
//
// An error is returned if there has not already been a matching OP_IF, or if
// the block already saw an OP_ELSE.
//
// Conditional stack transformation: [... ctx] -> [... ctx']
func opcodeElse(op *opcode, vm *Engine) error {
	if len(vm.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return scriptError(ErrUnbalancedConditional, str)
	}

	ctx := &vm.condStack[len(vm.condStack)-1]
	if ctx.hasElse {
		str := fmt.Sprintf("encountered second %s in the same "+
			"conditional block", op.name)
		return scriptError(ErrDuplicateElse, str)
	}

	ctx.executing = !ctx.branchTaken
	ctx.hasElse = true
	return nil
}

// opcodeEndif terminates a conditional block, removing the value from the
// conditional execution stack.
//
// An error is returned if there has not already been a matching OP_IF.
//
// Conditional stack transformation: [... ctx] -> [...]
func opcodeEndif(op *opcode, vm *Engine) error {
	if len(vm.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return scriptError(ErrUnbalancedConditional, str)
	}

	vm.condStack = vm.condStack[:len(vm.condStack)-1]
	return nil
}

// abstractVerify examines the top item on the data stack as a boolean value and
// verifies it evaluates to true.  An error is returned either when there is no
// item on the stack or when that item evaluates to false.
func abstractVerify(op *opcode, vm *Engine) error {
	verified, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}

	if !verified {
		str := fmt.Sprintf("%s failed", op.name)
		return scriptError(ErrScriptVerifyFailed, str)
	}
	return nil
}

// opcodeVerify examines the top item on the data stack as a boolean value and
// verifies it evaluates to true.  An error is returned if it does not.
//
// Stack transformation: [... bool] -> [...]
func opcodeVerify(op *opcode, vm *Engine) error {
	return abstractVerify(op, vm)
}

// opcodeReturn returns an appropriate error since it is always an error to
// return early from a script.
func opcodeReturn(op *opcode, vm *Engine) error {
	return scriptError(ErrEarlyReturn, "script returned early")
}

// opcodeToAltStack removes the top item from the main data stack and pushes it
// onto the alternate data stack.
//
// Main data stack transformation: [... x1 x2 x3] -> [... x1 x2]
// Alt data stack transformation:  [... y1 y2 y3] -> [... y1 y2 y3 x3]
func opcodeToAltStack(op *opcode, vm *Engine) error {
	so, err := vm.dstack.Pop()
	if err != nil {
		return err
	}
	vm.astack.Push(so)

	return nil
}

// opcodeFromAltStack removes the top item from the alternate data stack and
// pushes it onto the main data stack.
//
// Main data stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 y3]
// Alt data stack transformation:  [... y1 y2 y3] -> [... y1 y2]
func opcodeFromAltStack(op *opcode, vm *Engine) error {
	so, err := vm.astack.Pop()
	if err != nil {
		str := fmt.Sprintf("%s requires an item on the alternate "+
			"stack", op.name)
		return scriptError(ErrStackUnderflow, str)
	}
	vm.dstack.Push(so)

	return nil
}

// opcode2Drop removes the top 2 items from the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1]
func opcode2Drop(op *opcode, vm *Engine) error {
	return vm.dstack.DropN(2)
}

// opcode2Dup duplicates the top 2 items on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x2 x3]
func opcode2Dup(op *opcode, vm *Engine) error {
	return vm.dstack.DupN(2)
}

// opcodeIfDup duplicates the top item of the stack if it is not zero.
//
// Stack transformation (x1==0): [... x1] -> [... x1]
// Stack transformation (x1!=0): [... x1] -> [... x1 x1]
func opcodeIfDup(op *opcode, vm *Engine) error {
	so, err := vm.dstack.Peek(0)
	if err != nil {
		return err
	}

	// Push copy of data iff it isn't zero
	if so.Truthy() {
		vm.dstack.Push(so)
	}

	return nil
}

// opcodeDepth pushes the depth of the data stack prior to executing this
// opcode, encoded as a number, onto the data stack.
//
// Stack transformation: [...] -> [... <num of items on the stack>]
// Example with 2 items: [x1 x2] -> [x1 x2 2]
// Example with 3 items: [x1 x2 x3] -> [x1 x2 x3 3]
func opcodeDepth(op *opcode, vm *Engine) error {
	vm.dstack.PushInt(int64(vm.dstack.Depth()))
	return nil
}

// opcodeDrop removes the top item from the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func opcodeDrop(op *opcode, vm *Engine) error {
	return vm.dstack.DropN(1)
}

// opcodeDup duplicates the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x3]
func opcodeDup(op *opcode, vm *Engine) error {
	return vm.dstack.DupN(1)
}

// opcodeNip removes the item before the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x3]
func opcodeNip(op *opcode, vm *Engine) error {
	return vm.dstack.NipN(1)
}

// opcodeOver duplicates the item before the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x2]
func opcodeOver(op *opcode, vm *Engine) error {
	return vm.dstack.OverN(1)
}

// opcodeRot rotates the top 3 items on the data stack to the left.
//
// Stack transformation: [... x1 x2 x3] -> [... x2 x3 x1]
func opcodeRot(op *opcode, vm *Engine) error {
	return vm.dstack.RotN(1)
}

// opcodeSwap swaps the top two items on the stack.
//
// Stack transformation: [... x1 x2] -> [... x2 x1]
func opcodeSwap(op *opcode, vm *Engine) error {
	return vm.dstack.SwapN(1)
}

// opcodeTuck inserts a duplicate of the top item of the data stack before the
// second-to-top item.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func opcodeTuck(op *opcode, vm *Engine) error {
	return vm.dstack.Tuck()
}

// opcodeSize pushes the size of the top item of the data stack onto the data
// stack.
//
// Stack transformation: [... x1] -> [... x1 len(x1)]
func opcodeSize(op *opcode, vm *Engine) error {
	so, err := vm.dstack.Peek(0)
	if err != nil {
		return err
	}

	vm.dstack.PushInt(int64(len(so.Encode())))
	return nil
}

// opcodeEqual removes the top 2 items of the data stack, compares their
// canonical encodings, and pushes the result, as a boolean, back to the stack.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeEqual(op *opcode, vm *Engine) error {
	a, err := vm.dstack.Pop()
	if err != nil {
		return err
	}
	b, err := vm.dstack.Pop()
	if err != nil {
		return err
	}

	vm.dstack.PushBool(a.Equal(b))
	return nil
}

// opcodeEqualVerify is a combination of opcodeEqual and opcodeVerify.
// Specifically, it removes the top 2 items of the data stack, compares them,
// and pushes the result, encoded as a boolean, back to the stack.  Then, it
// examines the top item on the data stack as a boolean value and verifies it
// evaluates to true.  An error is returned if it does not.
//
// Stack transformation: [... x1 x2] -> [... bool] -> [...]
func opcodeEqualVerify(op *opcode, vm *Engine) error {
	err := opcodeEqual(op, vm)
	if err == nil {
		err = abstractVerify(op, vm)
	}
	return err
}

// numOutOfRange returns the error used when an arithmetic result does not fit
// in an int64.
func numOutOfRange(op *opcode) error {
	str := fmt.Sprintf("result of %s overflows a 64-bit integer", op.name)
	return scriptError(ErrNumOutOfRange, str)
}

// opcode1Add treats the top item on the data stack as an integer and replaces
// it with its incremented value (plus 1).
//
// Stack transformation: [... x1 x2] -> [... x1 x2+1]
func opcode1Add(op *opcode, vm *Engine) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	if m == math.MaxInt64 {
		return numOutOfRange(op)
	}
	vm.dstack.PushInt(m + 1)
	return nil
}

// opcode1Sub treats the top item on the data stack as an integer and replaces
// it with its decremented value (minus 1).
//
// Stack transformation: [... x1 x2] -> [... x1 x2-1]
func opcode1Sub(op *opcode, vm *Engine) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	if m == math.MinInt64 {
		return numOutOfRange(op)
	}
	vm.dstack.PushInt(m - 1)
	return nil
}

// opcodeNegate treats the top item on the data stack as an integer and replaces
// it with its negation.
//
// Stack transformation: [... x1 x2] -> [... x1 -x2]
func opcodeNegate(op *opcode, vm *Engine) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	if m == math.MinInt64 {
		return numOutOfRange(op)
	}
	vm.dstack.PushInt(-m)
	return nil
}

// opcodeAbs treats the top item on the data stack as an integer and replaces it
// it with its absolute value.
//
// Stack transformation: [... x1 x2] -> [... x1 abs(x2)]
func opcodeAbs(op *opcode, vm *Engine) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	if m == math.MinInt64 {
		return numOutOfRange(op)
	}
	if m < 0 {
		m = -m
	}
	vm.dstack.PushInt(m)
	return nil
}

// opcodeNot treats the top item on the data stack as an integer and replaces
// it with its "inverted" value (0 becomes 1, non-zero becomes 0).
//
// NOTE: While it would probably make more sense to treat the top item as a
// boolean, and push the opposite, which is really what the intention of this
// opcode is, the item is interpreted as an integer so non-numeric data is a
// type mismatch.
//
// Stack transformation (x2==0): [... x1 0] -> [... x1 1]
// Stack transformation (x2!=0): [... x1 1] -> [... x1 0]
// Stack transformation (x2!=0): [... x1 17] -> [... x1 0]
func opcodeNot(op *opcode, vm *Engine) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	if m == 0 {
		vm.dstack.PushInt(1)
	} else {
		vm.dstack.PushInt(0)
	}
	return nil
}

// opcode0NotEqual treats the top item on the data stack as an integer and
// replaces it with either a 0 if it is zero, or a 1 if it is not zero.
//
// Stack transformation (x2==0): [... x1 0] -> [... x1 0]
// Stack transformation (x2!=0): [... x1 1] -> [... x1 1]
// Stack transformation (x2!=0): [... x1 17] -> [... x1 1]
func opcode0NotEqual(op *opcode, vm *Engine) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	if m != 0 {
		m = 1
	}
	vm.dstack.PushInt(m)
	return nil
}

// popIntPair pops the top two items of the data stack as integers.  v0 is the
// top item and v1 the one below it.
func popIntPair(vm *Engine) (v0, v1 int64, err error) {
	v0, err = vm.dstack.PopInt()
	if err != nil {
		return 0, 0, err
	}

	v1, err = vm.dstack.PopInt()
	if err != nil {
		return 0, 0, err
	}
	return v0, v1, nil
}

// opcodeAdd treats the top two items on the data stack as integers and replaces
// them with their sum.
//
// Stack transformation: [... x1 x2] -> [... x1+x2]
func opcodeAdd(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	sum := v1 + v0
	if (v1^sum)&(v0^sum) < 0 {
		return numOutOfRange(op)
	}
	vm.dstack.PushInt(sum)
	return nil
}

// opcodeSub treats the top two items on the data stack as integers and replaces
// them with the result of subtracting the top entry from the second-to-top
// entry.
//
// Stack transformation: [... x1 x2] -> [... x1-x2]
func opcodeSub(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	diff := v1 - v0
	if (v1^v0)&(v1^diff) < 0 {
		return numOutOfRange(op)
	}
	vm.dstack.PushInt(diff)
	return nil
}

// opcodeMul treats the top two items on the data stack as integers and replaces
// them with their product.
//
// Stack transformation: [... x1 x2] -> [... x1*x2]
func opcodeMul(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	if v0 != 0 && v1 != 0 {
		if (v0 == -1 && v1 == math.MinInt64) ||
			(v1 == -1 && v0 == math.MinInt64) {
			return numOutOfRange(op)
		}
		if product := v1 * v0; product/v0 != v1 {
			return numOutOfRange(op)
		}
	}
	vm.dstack.PushInt(v1 * v0)
	return nil
}

// opcodeDiv treats the top two items on the data stack as integers and replaces
// them with the second-to-top entry divided by the top entry, truncated toward
// zero.
//
// Stack transformation: [... x1 x2] -> [... x1/x2]
func opcodeDiv(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	if v0 == 0 {
		return scriptError(ErrDivideByZero, "division by zero")
	}
	if v0 == -1 && v1 == math.MinInt64 {
		return numOutOfRange(op)
	}
	vm.dstack.PushInt(v1 / v0)
	return nil
}

// opcodeMod treats the top two items on the data stack as integers and replaces
// them with the remainder of dividing the second-to-top entry by the top
// entry.  The sign of the result follows the dividend.
//
// Stack transformation: [... x1 x2] -> [... x1%x2]
func opcodeMod(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	if v0 == 0 {
		return scriptError(ErrDivideByZero, "modulo by zero")
	}
	if v0 == -1 {
		vm.dstack.PushInt(0)
		return nil
	}
	vm.dstack.PushInt(v1 % v0)
	return nil
}

// opcodeBoolAnd treats the top two items on the data stack as integers.  When
// both of them are not zero, they are replaced with true, otherwise false.
//
// Stack transformation (x1==0, x2==0): [... 0 0] -> [... false]
// Stack transformation (x1!=0, x2==0): [... 5 0] -> [... false]
// Stack transformation (x1==0, x2!=0): [... 0 7] -> [... false]
// Stack transformation (x1!=0, x2!=0): [... 4 8] -> [... true]
func opcodeBoolAnd(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v0 != 0 && v1 != 0)
	return nil
}

// opcodeBoolOr treats the top two items on the data stack as integers.  When
// either of them are not zero, they are replaced with true, otherwise false.
//
// Stack transformation (x1==0, x2==0): [... 0 0] -> [... false]
// Stack transformation (x1!=0, x2==0): [... 5 0] -> [... true]
// Stack transformation (x1==0, x2!=0): [... 0 7] -> [... true]
// Stack transformation (x1!=0, x2!=0): [... 4 8] -> [... true]
func opcodeBoolOr(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v0 != 0 || v1 != 0)
	return nil
}

// opcodeNumEqual treats the top two items on the data stack as integers.  When
// they are equal, they are replaced with true, otherwise false.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeNumEqual(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v0 == v1)
	return nil
}

// opcodeNumEqualVerify is a combination of opcodeNumEqual and opcodeVerify.
//
// Stack transformation: [... x1 x2] -> [... bool] -> [...]
func opcodeNumEqualVerify(op *opcode, vm *Engine) error {
	err := opcodeNumEqual(op, vm)
	if err == nil {
		err = abstractVerify(op, vm)
	}
	return err
}

// opcodeNumNotEqual treats the top two items on the data stack as integers.
// When they are NOT equal, they are replaced with true, otherwise false.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeNumNotEqual(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v0 != v1)
	return nil
}

// opcodeLessThan treats the top two items on the data stack as integers.  When
// the second-to-top item is less than the top item, they are replaced with
// true, otherwise false.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeLessThan(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v1 < v0)
	return nil
}

// opcodeGreaterThan treats the top two items on the data stack as integers.
// When the second-to-top item is greater than the top item, they are replaced
// with true, otherwise false.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeGreaterThan(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v1 > v0)
	return nil
}

// opcodeLessThanOrEqual treats the top two items on the data stack as integers.
// When the second-to-top item is less than or equal to the top item, they are
// replaced with true, otherwise false.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeLessThanOrEqual(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v1 <= v0)
	return nil
}

// opcodeGreaterThanOrEqual treats the top two items on the data stack as
// integers.  When the second-to-top item is greater than or equal to the top
// item, they are replaced with true, otherwise false.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeGreaterThanOrEqual(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushBool(v1 >= v0)
	return nil
}

// opcodeMin treats the top two items on the data stack as integers and replaces
// them with the minimum of the two.
//
// Stack transformation: [... x1 x2] -> [... min(x1, x2)]
func opcodeMin(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushInt(min(v0, v1))
	return nil
}

// opcodeMax treats the top two items on the data stack as integers and replaces
// them with the maximum of the two.
//
// Stack transformation: [... x1 x2] -> [... max(x1, x2)]
func opcodeMax(op *opcode, vm *Engine) error {
	v0, v1, err := popIntPair(vm)
	if err != nil {
		return err
	}

	vm.dstack.PushInt(max(v0, v1))
	return nil
}

// opcodeWithin treats the top 3 items on the data stack as integers.  When the
// value to test is within the specified range (left inclusive), they are
// replaced with true.  Otherwise, they are replaced with false.
//
// The top item is the max value, the second-top-item is the minimum value, and
// the third-to-top item is the value to test.
//
// Stack transformation: [... x1 min max] -> [... bool]
func opcodeWithin(op *opcode, vm *Engine) error {
	maxVal, minVal, err := popIntPair(vm)
	if err != nil {
		return err
	}

	x, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	vm.dstack.PushBool(x >= minVal && x < maxVal)
	return nil
}

// calcHash calculates the hash of hasher over buf.
func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// opcodeRipemd160 treats the top item of the data stack as raw bytes and
// replaces it with ripemd160(data).
//
// Stack transformation: [... x1] -> [... ripemd160(x1)]
func opcodeRipemd160(op *opcode, vm *Engine) error {
	buf, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	vm.dstack.PushByteArray(calcHash(buf, ripemd160.New()))
	return nil
}

// opcodeSha256 treats the top item of the data stack as raw bytes and replaces
// it with sha256(data).
//
// Stack transformation: [... x1] -> [... sha256(x1)]
func opcodeSha256(op *opcode, vm *Engine) error {
	buf, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	hash := sha256.Sum256(buf)
	vm.dstack.PushByteArray(hash[:])
	return nil
}

// opcodeHash160 treats the top item of the data stack as raw bytes and replaces
// it with the digest computed by the engine's CryptoDelegate, conventionally
// ripemd160(sha256(data)).
//
// Stack transformation: [... x1] -> [... digest(x1)]
func opcodeHash160(op *opcode, vm *Engine) error {
	if err := vm.requireCrypto(op); err != nil {
		return err
	}

	buf, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	vm.dstack.PushByteArray(vm.crypto.Digest(buf))
	return nil
}

// opcodeHash256 treats the top item of the data stack as raw bytes and replaces
// it with sha256(sha256(data)).
//
// Stack transformation: [... x1] -> [... sha256(sha256(x1))]
func opcodeHash256(op *opcode, vm *Engine) error {
	buf, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	vm.dstack.PushByteArray(chainhash.DoubleHashB(buf))
	return nil
}

// opcodeCheckSig treats the top 2 items on the stack as a public key and a
// signature and replaces them with a bool which indicates if the signature
// was successfully verified over the engine's message.
//
// Verification itself is delegated to the CryptoDelegate, which reports
// malformed keys and signatures as a failed verification rather than an
// error.  That keeps the result in ordinary boolean stack logic; it is
// OP_VERIFY or OP_CHECKSIGVERIFY that turn a false into an abort.
//
// Stack transformation: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *opcode, vm *Engine) error {
	if err := vm.requireCrypto(op); err != nil {
		return err
	}

	pkBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	sigBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	valid := vm.crypto.VerifySignature(sigBytes, pkBytes, vm.message)
	vm.dstack.PushBool(valid)
	return nil
}

// opcodeCheckSigVerify is a combination of opcodeCheckSig and opcodeVerify.
// The opcodeCheckSig function is invoked followed by opcodeVerify.  See the
// documentation for each of those opcodes for more details.
//
// Stack transformation: signature pubkey] -> [... bool] -> [...]
func opcodeCheckSigVerify(op *opcode, vm *Engine) error {
	err := opcodeCheckSig(op, vm)
	if err == nil {
		err = abstractVerify(op, vm)
	}
	return err
}
