package script

import (
	"fmt"
	"strings"
)

// Instruction is a single step of a script: either a literal value to push or
// an opcode to execute.  Instructions are produced once by Tokenize or
// ParseScript and are never modified by the engine.
type Instruction struct {
	push  bool
	op    byte
	value Value
}

// Push returns an instruction that pushes v onto the data stack.
func Push(v Value) Instruction {
	return Instruction{push: true, value: v}
}

// Op returns an instruction that executes the opcode identified by id.  The
// identifier is resolved against the opcode registry when the instruction is
// executed.
func Op(id byte) Instruction {
	return Instruction{op: id}
}

// IsPush reports whether the instruction is a literal push.
func (i Instruction) IsPush() bool {
	return i.push
}

// Opcode returns the opcode identifier of an Op instruction.  It is zero for
// push instructions.
func (i Instruction) Opcode() byte {
	return i.op
}

// Value returns the literal of a Push instruction.
func (i Instruction) Value() Value {
	return i.value
}

// isPushOnly reports whether the instruction only places data on the stack:
// either a literal push or one of the small integer constant opcodes.
func (i Instruction) isPushOnly() bool {
	if i.push {
		return true
	}

	switch {
	case i.op == OP_0, i.op == OP_1NEGATE:
		return true
	case i.op >= OP_1 && i.op <= OP_16:
		return true
	}
	return false
}

// String returns the token form of the instruction as accepted by Tokenize.
func (i Instruction) String() string {
	if !i.push {
		return opcodeArray[i.op].displayName()
	}

	// Booleans have no literal form, so render them as the equivalent
	// constant opcode.
	if i.value.Kind() == KindBoolean {
		if i.value.Truthy() {
			return "OP_TRUE"
		}
		return "OP_FALSE"
	}
	return i.value.String()
}

// DisasmString returns the one-line disassembly of the instructions, with
// tokens separated by a single space.  The result tokenizes back into
// instructions that leave representation-equal values on the stack.
func DisasmString(instrs []Instruction) string {
	var buf strings.Builder
	for i, instr := range instrs {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(instr.String())
	}
	return buf.String()
}

// GoString makes instructions readable in test failure output.
func (i Instruction) GoString() string {
	if i.push {
		return fmt.Sprintf("Push(%s(%s))", i.value.Kind(), i.value)
	}
	return fmt.Sprintf("Op(%s)", opcodeArray[i.op].displayName())
}
