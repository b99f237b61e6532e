/*
Package script implements a stack-based virtual machine for locking and
unlocking scripts.

A script is a list of instructions, each of which either pushes a literal onto
the data stack or executes an opcode.  Scripts are written as whitespace
separated tokens and converted with Tokenize, or decoded from their binary
form with ParseScript:

	instrs, err := script.Tokenize("3 4 OP_ADD 2 OP_SUB")
	stack, err := script.ExecuteInstructions(instrs, script.Config{})
	// stack is [5]

Operands are tagged values: signed 64-bit integers, raw bytes and booleans.
Each has a canonical byte encoding, which is what OP_EQUAL compares and what
hashing and signature opcodes consume.  Integers encoded as bytes use the
minimal little endian sign-magnitude form, so 0 is empty and -1 is 0x81.

Conditional blocks (OP_IF or OP_NOTIF, optional OP_ELSE, OP_ENDIF) are
resolved in a single pass while executing.  Instructions inside a branch that
is not taken are skipped without touching the stack, but unknown opcodes are
still rejected there.

Hashing with OP_HASH160 and signature checks with OP_CHECKSIG are delegated to
a CryptoDelegate, see the crypto subpackage for the secp256k1 implementation.
Verify runs an unlocking script followed by a locking script, the usual way to
check that a spend satisfies its locking conditions:

	unlocking, _ := script.Tokenize(fmt.Sprintf("0x%x 0x%x", sig, pubKey))
	locking, _ := script.Tokenize(fmt.Sprintf(
		"OP_DUP OP_HASH160 0x%x OP_EQUALVERIFY OP_CHECKSIG", pubKeyHash))
	err := script.Verify(unlocking, locking, script.Config{
		Crypto:  crypto.New(0),
		Message: msg,
	})

# Errors

Every failure is an Error wrapping one of the ErrorKind constants, so callers
can test the error with errors.Is:

	if errors.Is(err, script.ErrScriptVerifyFailed) {
		// The locking conditions were not met.
	}

An Engine owns all of its state and is used for a single run.  The opcode
registry is read-only, so independent engines may execute concurrently.
*/
package script
