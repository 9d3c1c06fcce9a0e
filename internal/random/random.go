// Package random provides cryptographic randomness helpers for tokens
// and numeric codes.
package random

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// HexToken returns n random bytes encoded as lowercase hex.
func HexToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Digits returns a random decimal string of exactly length digits with no
// leading zero.
func Digits(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("digit length must be positive, got %d", length)
	}
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	hi := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	span := new(big.Int).Sub(hi, lo)
	n, err := crand.Int(crand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("read random digits: %w", err)
	}
	return n.Add(n, lo).String(), nil
}
