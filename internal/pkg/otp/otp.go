package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Digits is the length of every generated code.
const Digits = 6

var upper = big.NewInt(1_000_000)

// New returns a uniformly random six-digit numeric code. Leading zeros are kept.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Valid reports whether s has the shape of a code produced by New.
func Valid(s string) bool {
	if len(s) != Digits {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
