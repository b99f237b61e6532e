// Package crypto provides the default script.CryptoDelegate, backed by the
// secp256k1 curve.
//
// OP_HASH160 digests are RIPEMD160(SHA256(data)).  OP_CHECKSIG verifies the
// signature over SHA256(message): 32 byte x-only public keys select BIP 340
// schnorr signatures, while 33 and 65 byte keys select DER encoded ECDSA
// signatures.  Either signature may carry one trailing sighash byte, which is
// ignored.
package crypto

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/sirupsen/logrus"

	"github.com/ArkLabsHQ/scriptvm/pkg/script"
)

var log = logrus.WithField("module", "crypto")

// Delegate implements script.CryptoDelegate.  It is safe for concurrent use.
type Delegate struct {
	// sigCache caches the results of signature verifications.  This is
	// useful since the same scripts are often verified more than once.
	sigCache *txscript.SigCache
}

// A compile-time assertion to ensure Delegate implements the
// script.CryptoDelegate interface.
var _ script.CryptoDelegate = (*Delegate)(nil)

// New returns a delegate that caches up to sigCacheSize valid signatures.  A
// size of zero disables the cache.
func New(sigCacheSize uint) *Delegate {
	var d Delegate
	if sigCacheSize > 0 {
		d.sigCache = txscript.NewSigCache(sigCacheSize)
	}
	return &d
}

// Digest returns RIPEMD160(SHA256(data)).
func (d *Delegate) Digest(data []byte) []byte {
	return btcutil.Hash160(data)
}

// VerifySignature reports whether signature is a valid signature by publicKey
// over SHA256(message).  Malformed keys and signatures are reported as false.
func (d *Delegate) VerifySignature(signature, publicKey, message []byte) bool {
	verifier, err := newSigVerifier(publicKey, signature, d.sigCache)
	if err != nil {
		log.WithError(err).Debug("rejecting unparsable signature")
		return false
	}

	return verifier.Verify(chainhash.HashB(message))
}
