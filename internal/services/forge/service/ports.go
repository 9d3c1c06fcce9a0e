package service

import (
	"fmt"

	"github.com/andysmith26/forge/internal/random"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes secrets with bcrypt. A zero Cost uses
// bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// Compare reports whether secret matches hash.
func (BcryptHasher) Compare(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// RandomTokens draws tokens and digits from crypto/rand.
type RandomTokens struct{}

// Token returns 32 random bytes as hex.
func (RandomTokens) Token() (string, error) { return random.HexToken(32) }

func (RandomTokens) Digits(length int) (string, error) { return random.Digits(length) }
