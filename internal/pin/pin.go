// Package pin hashes and checks account PINs.
package pin

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Length is the number of digits in a PIN.
const Length = 4

// Scheme names a verifier implementation.
const (
	SchemeBcrypt = "bcrypt"
	SchemePlain  = "plain"
)

// Verifier turns PINs into stored verifiers and checks candidates against them.
type Verifier interface {
	Hash(pin string) (string, error)
	Verify(hash, pin string) (bool, error)
}

// Valid reports whether p is exactly Length ASCII digits.
func Valid(p string) bool {
	if len(p) != Length {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}

// New returns the verifier for scheme. cost applies to bcrypt only; zero
// means bcrypt.DefaultCost.
func New(scheme string, cost int) (Verifier, error) {
	switch scheme {
	case "", SchemeBcrypt:
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return Bcrypt{Cost: cost}, nil
	case SchemePlain:
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("unknown pin scheme %q", scheme)
	}
}

// Bcrypt stores a salted bcrypt hash.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(p string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(p), b.Cost)
	if err != nil {
		return "", fmt.Errorf("hashing pin: %w", err)
	}
	return string(h), nil
}

func (b Bcrypt) Verify(hash, p string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(p))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking pin: %w", err)
	}
	return true, nil
}

// Plain stores the PIN as-is. Only for databases written by older tooling.
type Plain struct{}

func (Plain) Hash(p string) (string, error) { return p, nil }

func (Plain) Verify(hash, p string) (bool, error) { return hash == p, nil }
