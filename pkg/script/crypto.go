package script

import "fmt"

// CryptoDelegate provides the hashing and signature primitives the engine
// does not implement itself.  Implementations must be deterministic, must not
// panic on malformed input and must be safe for concurrent use when shared
// between engines.
type CryptoDelegate interface {
	// Digest returns the hash OP_HASH160 replaces its operand with,
	// conventionally RIPEMD160(SHA256(data)).
	Digest(data []byte) []byte

	// VerifySignature reports whether signature is a valid signature by
	// publicKey over message.  Malformed keys or signatures are reported as
	// false.
	VerifySignature(signature, publicKey, message []byte) bool
}

// requireCrypto returns ErrMissingCryptoDelegate when the engine was created
// without a delegate.
func (vm *Engine) requireCrypto(op *opcode) error {
	if vm.crypto == nil {
		str := fmt.Sprintf("%s requires a crypto delegate", op.name)
		return scriptError(ErrMissingCryptoDelegate, str)
	}
	return nil
}
