package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// DefaultClaimSalt is the build-time fallback; deployments override it via
// CLAIM_CODE_SALT. The salt is not a per-code secret: its job is to keep raw
// claim codes out of the database, not to resist offline brute force.
const DefaultClaimSalt = "echodeed-claim-v1"

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HashClaimCode computes hex(SHA-256(salt || code || salt)). Deterministic,
// so stored codes can be found by hash equality without keeping plaintext.
func HashClaimCode(code, salt string) string {
	if salt == "" {
		salt = DefaultClaimSalt
	}
	sum := sha256.Sum256([]byte(salt + code + salt))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeCompare compares two hex-encoded digests without an early
// exit on the first differing byte. The length check is a side channel,
// but digest length is fixed and public. Malformed hex is "not equal",
// never an error, so a bad input cannot become a distinguishable path.
func ConstantTimeCompare(hashA, hashB string) bool {
	if len(hashA) != len(hashB) {
		return false
	}
	a, err := hex.DecodeString(hashA)
	if err != nil {
		return false
	}
	b, err := hex.DecodeString(hashB)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ValidateClaimCodeHash checks a plaintext claim code against its stored
// hash. Validation gates a privileged one-time action, so the comparison
// runs over fixed-length digests in constant time.
func ValidateClaimCodeHash(plainCode, storedHash, salt string) bool {
	return ConstantTimeCompare(HashClaimCode(plainCode, salt), storedHash)
}

// GenerateSecureCode builds a human-readable claim code of length random
// characters from A-Z0-9, grouped by dashes every 4 characters
// (AB3D-7F2K-QRS9 for the default length of 12). The modulo mapping
// carries a slight bias toward the low end of the alphabet; for 36
// symbols over 256 byte values that skew is accepted.
func GenerateSecureCode(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, v := range raw {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
	}
	return b.String(), nil
}
