package script

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/btcsuite/btcd/txscript"
)

// Tokenize converts the textual form of a script into its instructions.
//
// Tokens are separated by whitespace and are interpreted, in order, as:
//
//   - a registered opcode mnemonic such as OP_DUP (OP_TRUE and OP_FALSE are
//     aliases of OP_1 and OP_0)
//   - a decimal integer with an optional leading minus sign
//   - raw data written as 0x-prefixed hex, as bare hex of even length, or as
//     a single-quoted string
//
// Any token with the OP_ prefix that is not registered is an ErrUnknownOpcode.
// Tokenizing never partially succeeds: on error no instructions are returned
// and the error Index is the offending token number.
func Tokenize(script string) ([]Instruction, error) {
	tokens, err := splitTokens(script)
	if err != nil {
		return nil, err
	}

	instrs := make([]Instruction, 0, len(tokens))
	for i, tok := range tokens {
		instr, err := parseToken(tok)
		if err != nil {
			return nil, withIndex(err, i)
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}

// splitTokens breaks the script into whitespace separated tokens.  A quoted
// string is kept as a single token including any whitespace it contains.
func splitTokens(script string) ([]string, error) {
	var (
		tokens []string
		start  = -1
		quoted bool
		closed bool
	)
	for i, r := range script {
		// A closing quote must be followed by whitespace or the end of
		// the script.
		if closed {
			closed = false
			if !unicode.IsSpace(r) {
				str := fmt.Sprintf("quoted string %s followed by %q",
					tokens[len(tokens)-1], r)
				return nil, withIndex(scriptError(
					ErrMalformedLiteral, str), len(tokens)-1)
			}
		}

		switch {
		case quoted:
			if r == '\'' {
				tokens = append(tokens, script[start:i+1])
				start, quoted, closed = -1, false, true
			}

		case unicode.IsSpace(r):
			if start >= 0 {
				tokens = append(tokens, script[start:i])
				start = -1
			}

		case start < 0:
			start = i
			quoted = r == '\''
		}
	}

	if quoted {
		str := fmt.Sprintf("unterminated quoted string %s",
			script[start:])
		return nil, withIndex(scriptError(ErrMalformedLiteral, str),
			len(tokens))
	}
	if start >= 0 {
		tokens = append(tokens, script[start:])
	}
	return tokens, nil
}

// parseToken converts a single token into an instruction.
func parseToken(tok string) (Instruction, error) {
	// Opcode mnemonics take precedence over everything else.
	if id, ok := OpcodeByName[tok]; ok {
		return Op(id), nil
	}
	if strings.HasPrefix(tok, "OP_") {
		str := fmt.Sprintf("opcode %s is not registered", tok)
		return Instruction{}, scriptError(ErrUnknownOpcode, str)
	}

	switch {
	case isDecimal(tok):
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			str := fmt.Sprintf("integer literal %s does not fit in "+
				"64 bits", tok)
			return Instruction{}, scriptError(ErrMalformedLiteral, str)
		}
		return Push(Int(n)), nil

	case strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X"):
		data, err := hex.DecodeString(tok[2:])
		if err != nil {
			str := fmt.Sprintf("hex literal %s is malformed: %v", tok,
				err)
			return Instruction{}, scriptError(ErrMalformedLiteral, str)
		}
		return Push(Bytes(data)), nil

	case len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'':
		return Push(Bytes([]byte(tok[1 : len(tok)-1]))), nil

	case len(tok)%2 == 0:
		if data, err := hex.DecodeString(tok); err == nil {
			return Push(Bytes(data)), nil
		}
	}

	str := fmt.Sprintf("unrecognized token %q", tok)
	return Instruction{}, scriptError(ErrUnknownToken, str)
}

// isDecimal reports whether tok is a run of decimal digits with an optional
// leading minus sign.
func isDecimal(tok string) bool {
	digits := strings.TrimPrefix(tok, "-")
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

// ScriptTokenizer provides a facility for easily and efficiently tokenizing
// binary scripts without creating allocations.  Each successive instruction is
// parsed with the Next function, which returns false when iteration is
// complete, either due to successfully tokenizing the entire script or
// encountering a parse error.  In the case of failure, the Err function may be
// used to obtain the specific parse error.
//
// Upon successfully parsing an instruction, it is available via the
// Instruction function.
type ScriptTokenizer struct {
	script    []byte
	offset    int
	opcodePos int
	instr     Instruction
	err       error
}

// MakeScriptTokenizer returns a new instance of a script tokenizer.  See the
// docs for ScriptTokenizer for more details.
func MakeScriptTokenizer(script []byte) ScriptTokenizer {
	// We start with a value of -1 so the first instruction is position 0.
	return ScriptTokenizer{script: script, opcodePos: -1}
}

// Done returns true when either all instructions have been exhausted or a
// parse failure was encountered and therefore the state has an associated
// error.
func (t *ScriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= len(t.script)
}

// Next attempts to parse the next instruction and returns whether or not it
// was successful.  It will not be successful if invoked when already at the
// end of the script, a parse failure is encountered, or an associated error
// already exists due to a previous parse failure.
//
// Data pushes (OP_DATA_1 through OP_DATA_75 and OP_PUSHDATA1/2/4) become
// Push instructions.  Every other byte becomes an Op instruction that is
// resolved against the registry when executed, so unknown opcodes only fail
// once the engine reaches them.
func (t *ScriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}
	t.opcodePos++

	id := t.script[t.offset]
	script := t.script[t.offset+1:]

	var prefixLen, dataLen int
	switch {
	case id >= OP_DATA_1 && id <= OP_DATA_75:
		dataLen = int(id)

	case id == OP_PUSHDATA1 || id == OP_PUSHDATA2 || id == OP_PUSHDATA4:
		prefixLen = 1 << (id - OP_PUSHDATA1)
		if len(script) < prefixLen {
			str := fmt.Sprintf("opcode %s requires %d bytes, but "+
				"script only has %d remaining", pushDataName(id),
				prefixLen, len(script))
			t.err = withIndex(scriptError(ErrMalformedPush, str),
				t.opcodePos)
			return false
		}

		// Next prefixLen bytes are the little endian length of the data.
		var n uint64
		switch prefixLen {
		case 1:
			n = uint64(script[0])
		case 2:
			n = uint64(binary.LittleEndian.Uint16(script))
		default:
			n = uint64(binary.LittleEndian.Uint32(script))
		}
		script = script[prefixLen:]
		if n > uint64(len(script)) {
			str := fmt.Sprintf("opcode %s pushes %d bytes, but "+
				"script only has %d remaining", pushDataName(id), n,
				len(script))
			t.err = withIndex(scriptError(ErrMalformedPush, str),
				t.opcodePos)
			return false
		}
		dataLen = int(n)

	default:
		// No additional data.  Note that some of the opcodes, notably
		// OP_1NEGATE, OP_0, and OP_[1-16] represent the data themselves.
		t.offset++
		t.instr = Op(id)
		return true
	}

	if len(script) < dataLen {
		str := fmt.Sprintf("opcode OP_DATA_%d requires %d bytes, but "+
			"script only has %d remaining", id, dataLen, len(script))
		t.err = withIndex(scriptError(ErrMalformedPush, str), t.opcodePos)
		return false
	}

	t.offset += 1 + prefixLen + dataLen
	t.instr = Push(Bytes(script[:dataLen:dataLen]))
	return true
}

// pushDataName returns the name of an OP_PUSHDATA opcode.
func pushDataName(id byte) string {
	switch id {
	case OP_PUSHDATA1:
		return "OP_PUSHDATA1"
	case OP_PUSHDATA2:
		return "OP_PUSHDATA2"
	default:
		return "OP_PUSHDATA4"
	}
}

// Instruction returns the most recently successfully parsed instruction.
func (t *ScriptTokenizer) Instruction() Instruction {
	return t.instr
}

// ByteIndex returns the current offset into the full script that will be
// parsed next and therefore also implies everything before it has already
// been parsed.
func (t *ScriptTokenizer) ByteIndex() int {
	return t.offset
}

// OpcodePosition returns the current instruction counter.  It is -1 when
// nothing has been parsed yet.
func (t *ScriptTokenizer) OpcodePosition() int {
	return t.opcodePos
}

// Err returns any errors currently associated with the tokenizer.  This will
// only be non-nil in the case a parsing error was encountered.
func (t *ScriptTokenizer) Err() error {
	return t.err
}

// ParseScript decodes a binary script into its instructions.
func ParseScript(script []byte) ([]Instruction, error) {
	var instrs []Instruction
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		instrs = append(instrs, tokenizer.Instruction())
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return instrs, nil
}

// Compile serializes instructions into the binary script form understood by
// ParseScript.  Pushes are written with the canonical push opcode for their
// encoding, so a small integer pushed as raw data comes back as the matching
// OP_N constant.
//
// Pushes larger than txscript.MaxScriptElementSize (520 bytes) cannot be
// encoded and make Compile fail, even though ParseScript accepts them.
func Compile(instrs []Instruction) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	for _, instr := range instrs {
		if instr.IsPush() {
			builder.AddData(instr.Value().Encode())
			continue
		}
		builder.AddOp(instr.Opcode())
	}
	return builder.Script()
}
