package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const resetSecretSize = 32

// NewResetToken returns a random password-reset token in its raw,
// URL-safe form. Only a one-way hash of it is ever persisted.
func NewResetToken() (string, error) {
	var secret [resetSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(secret[:]), nil
}

// HashRefreshToken produces the deterministic digest under which a raw
// refresh token is stored and later compared. Determinism is required:
// rotation resolves races with a conditional delete keyed by this value.
func HashRefreshToken(raw string) [32]byte {
	return sha256.Sum256([]byte(raw))
}

// NewOTP generates a numeric one-time code of the given length using
// crypto/rand. Lengths outside 6..10 are rejected.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
