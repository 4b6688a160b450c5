// Package otp generates and checks one-time passcodes for the
// second-factor challenge.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const saltLen = 16

// GenerateCode returns a numeric one-time code of the given length.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("otp: invalid code length %d", length)
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("otp: generate code: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// SaltedHash returns a fresh random salt and the hex sha256 of salt+code.
// Only the salted hash is ever cached; the plaintext code exists solely in
// the email payload.
func SaltedHash(code string) (salt, hash string, err error) {
	raw := make([]byte, saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("otp: generate salt: %w", err)
	}
	salt = hex.EncodeToString(raw)
	return salt, hashWith(salt, code), nil
}

// Verify recomputes the salted hash of a submitted code and compares it in
// constant time against the stored hash.
func Verify(code, salt, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashWith(salt, code)), []byte(hash)) == 1
}

func hashWith(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + code))
	return hex.EncodeToString(sum[:])
}
