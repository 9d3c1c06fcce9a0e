package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Generator produces identifiers for use cases.
type Generator struct{}

// Generate returns a new identifier, panicking only if the system entropy
// source fails.
func (Generator) Generate() string {
	value, err := NewID()
	if err != nil {
		panic(err)
	}
	return value
}
