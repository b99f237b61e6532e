package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// signatureVerifier is an abstract interface that allows the delegate to
// abstract over the _type_ of signature validation being executed.
type signatureVerifier interface {
	// Verify returns whether or not the signature is valid for the given
	// message digest.
	Verify(sigHash []byte) bool
}

// cachedVerifier wraps the verification of a parsed signature with a lookup
// in the signature cache, which is keyed by the message digest together with
// the raw signature and public key bytes.
type cachedVerifier struct {
	pkBytes      []byte
	fullSigBytes []byte

	sigCache *txscript.SigCache

	verify func(sigHash []byte) bool
}

// Verify returns whether or not the signature is valid for the given message
// digest.
//
// NOTE: This is part of the signatureVerifier interface.
func (c *cachedVerifier) Verify(sigHash []byte) bool {
	// At this point, we can check to see if this signature is already
	// included in the sigCache and is valid or not (if one was passed in).
	cacheKey, err := chainhash.NewHash(sigHash)
	if err != nil {
		return false
	}
	if c.sigCache != nil {
		if c.sigCache.Exists(*cacheKey, c.fullSigBytes, c.pkBytes) {
			return true
		}
	}

	// If we didn't find the entry in the cache, then we'll perform full
	// verification as normal, adding the entry to the cache if it's found
	// to be valid.
	if !c.verify(sigHash) {
		return false
	}
	if c.sigCache != nil {
		c.sigCache.Add(*cacheKey, c.fullSigBytes, c.pkBytes)
	}
	return true
}

// A compile-time assertion to ensure cachedVerifier implements the
// signatureVerifier interface.
var _ signatureVerifier = (*cachedVerifier)(nil)

// parseSchnorrSigAndPubKey attempts to parse an x-only public key and a BIP 340
// signature, which may or may not be appended with a sighash flag.
func parseSchnorrSigAndPubKey(pkBytes, rawSig []byte,
) (*btcec.PublicKey, *schnorr.Signature, error) {

	// Now that we have the raw key, we'll parse it into a schnorr public
	// key we can work with.
	pubKey, err := schnorr.ParsePubKey(pkBytes)
	if err != nil {
		return nil, nil, err
	}

	switch {
	// If the signature is exactly 64 bytes, then there is no sighash byte.
	case len(rawSig) == schnorr.SignatureSize:

	// Otherwise, if this is a signature, with a sighash looking byte
	// appended that isn't all zero, then snip off the last byte so we can
	// parse the signature.
	case len(rawSig) == schnorr.SignatureSize+1 && rawSig[64] != 0:
		rawSig = rawSig[:schnorr.SignatureSize]

	// Otherwise, this is an invalid signature, so we need to bail out.
	default:
		return nil, nil, fmt.Errorf("invalid sig len: %v", len(rawSig))
	}

	sig, err := schnorr.ParseSignature(rawSig)
	if err != nil {
		return nil, nil, err
	}
	return pubKey, sig, nil
}

// parseECDSASigAndPubKey attempts to parse a compressed or uncompressed public
// key and a DER encoded signature.  A trailing sighash byte is accepted and
// ignored.
func parseECDSASigAndPubKey(pkBytes, rawSig []byte,
) (*btcec.PublicKey, *ecdsa.Signature, error) {

	pubKey, err := btcec.ParsePubKey(pkBytes)
	if err != nil {
		return nil, nil, err
	}

	sig, err := ecdsa.ParseDERSignature(rawSig)
	if err != nil && len(rawSig) > 1 {
		sig, err = ecdsa.ParseDERSignature(rawSig[:len(rawSig)-1])
	}
	if err != nil {
		return nil, nil, err
	}
	return pubKey, sig, nil
}

// newSigVerifier returns a verifier for the signature scheme selected by the
// public key length: 32 byte x-only keys use BIP 340 schnorr signatures while
// 33 and 65 byte keys use ECDSA.  If the public key or signature aren't
// correctly formatted, an error is returned.
func newSigVerifier(pkBytes, rawSig []byte,
	sigCache *txscript.SigCache) (signatureVerifier, error) {

	verifier := &cachedVerifier{
		pkBytes:      pkBytes,
		fullSigBytes: rawSig,
		sigCache:     sigCache,
	}

	switch len(pkBytes) {
	// If the public key is zero bytes, then this is invalid, and will fail
	// immediately.
	case 0:
		return nil, fmt.Errorf("public key is empty")

	case schnorr.PubKeyBytesLen:
		pubKey, sig, err := parseSchnorrSigAndPubKey(pkBytes, rawSig)
		if err != nil {
			return nil, err
		}
		verifier.verify = func(sigHash []byte) bool {
			return sig.Verify(sigHash, pubKey)
		}

	case secp256k1.PubKeyBytesLenCompressed,
		secp256k1.PubKeyBytesLenUncompressed:
		pubKey, sig, err := parseECDSASigAndPubKey(pkBytes, rawSig)
		if err != nil {
			return nil, err
		}
		verifier.verify = func(sigHash []byte) bool {
			return sig.Verify(sigHash, pubKey)
		}

	// Unknown public key type, always reject.
	default:
		return nil, fmt.Errorf("pubkey of length %v was used",
			len(pkBytes))
	}

	return verifier, nil
}
