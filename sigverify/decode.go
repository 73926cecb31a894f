package sigverify

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Clients encode Ed25519 signatures and keys inconsistently, so decoding
// tries a fixed, ordered chain of conventions rather than requiring the
// client to declare one. The order is part of the contract:
//
//	1. 0x-prefixed hex
//	2. standard base64 (padded, then unpadded)
//	3. the literal UTF-8 bytes of the string
//
// Each tier falls through to the next on failure; the final tier cannot
// fail, so decodeFlexible always returns something (length checks at the
// verification site reject garbage).
func decodeFlexible(s string) []byte {
	if strings.HasPrefix(s, "0x") {
		if b, err := hex.DecodeString(s[2:]); err == nil {
			return b
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b
	}
	return []byte(s)
}
