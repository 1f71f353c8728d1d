// Package sessioncode mints short human-typable join codes for sessions and
// resolves them to codes not currently held by any session.
package sessioncode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

const (
	// Alphabet is the 32-symbol code alphabet. 0, 1, I and O are excluded
	// because they are ambiguous when read aloud or typed.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// Length is the fixed code length.
	Length = 6
	// MaxAttempts bounds ResolveUnique: 1 initial generation + 4 retries.
	MaxAttempts = 5
)

// ErrGenerationExhausted is returned by ResolveUnique when every attempt
// collided with an existing code. The last candidate is still returned with
// it; the persistence layer's unique constraint remains the authoritative
// guard.
var ErrGenerationExhausted = errors.New("session code generation exhausted")

// ExistenceCheck reports whether a session currently holds the given code.
// Errors must be propagated by callers, never treated as "not colliding".
type ExistenceCheck func(ctx context.Context, code string) (bool, error)

// Generate returns a random 6-character code over Alphabet. Selection is
// uniform: one random byte per character, reduced modulo 32, which carries
// no bias because 256 is a multiple of 32.
func Generate() string {
	var buf [Length]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// there is no meaningful recovery.
		panic(fmt.Sprintf("sessioncode: read random: %v", err))
	}
	out := make([]byte, Length)
	for i, b := range buf {
		out[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(out)
}

// IsValid reports whether code is exactly Length characters, all drawn from
// Alphabet.
func IsValid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

// IsUnique reports whether no session currently holds code. A check failure
// propagates as an error; assuming "not colliding" on failure could accept a
// duplicate.
func IsUnique(ctx context.Context, code string, check ExistenceCheck) (bool, error) {
	exists, err := check(ctx, code)
	if err != nil {
		return false, fmt.Errorf("code existence check: %w", err)
	}
	return !exists, nil
}

// ResolveUnique generates candidate codes until one passes the existence
// check, trying at most MaxAttempts times. Attempts are strictly sequential.
// If every attempt collides, the last candidate is returned along with
// ErrGenerationExhausted so the caller can decide whether to proceed
// best-effort (the write-time unique constraint still guards correctness)
// or surface a conflict.
func ResolveUnique(ctx context.Context, check ExistenceCheck) (string, error) {
	var code string
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code = Generate()
		unique, err := IsUnique(ctx, code, check)
		if err != nil {
			return "", err
		}
		if unique {
			return code, nil
		}
	}
	return code, ErrGenerationExhausted
}
