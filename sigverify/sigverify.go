// Package sigverify decides whether a presented signature proves control of
// a claimed wallet address. Two schemes are supported without the client
// declaring which one it used: ECDSA personal-message recovery (EVM wallets)
// and detached Ed25519 (Hedera-native keys).
package sigverify

import (
	"crypto/ed25519"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const ecdsaSignatureLen = 65

// Verify reports whether signature proves control of address over message.
// publicKey is required for Ed25519 (the scheme cannot recover a signer) and
// ignored for ECDSA recovery.
//
// A 0x-prefixed signature is first attempted as an ECDSA personal-sign
// recovery; on any failure it falls through to the Ed25519 path, where the
// decode chain treats it as hex. Nothing verifies unless one scheme accepts.
//
// Verify never panics and never returns an error: malformed input, wrong
// encodings and library failures all coerce to false at this boundary.
func Verify(address, message, signature, publicKey string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if strings.HasPrefix(signature, "0x") && verifyECDSA(address, message, signature) {
		return true
	}
	return verifyEd25519(message, signature, publicKey)
}

// verifyECDSA recovers the signing address from an EIP-191 personal-sign
// signature and compares it to the claimed address, case-insensitively.
func verifyECDSA(address, message, signature string) bool {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != ecdsaSignatureLen {
		return false
	}

	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	if sig[ecdsaSignatureLen-1] >= 27 {
		sig[ecdsaSignatureLen-1] -= 27
	}
	if sig[ecdsaSignatureLen-1] > 1 {
		return false
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return strings.EqualFold(recovered.Hex(), address)
}

// verifyEd25519 runs detached Ed25519 verification of the raw UTF-8 message
// bytes. It fails closed when no public key was supplied, since Ed25519
// cannot recover a signer identity from the signature alone.
func verifyEd25519(message, signature, publicKey string) bool {
	if publicKey == "" {
		return false
	}

	sig := decodeFlexible(signature)
	key := decodeFlexible(publicKey)
	if len(key) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(key), []byte(message), sig)
}
