package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"vacations-api/internal/apperror"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = 12

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// Hasher derives and checks password hashes.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher stores passwords as salted bcrypt digests.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given work factor. Zero selects
// DefaultCost; other values are clamped to the range bcrypt supports.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", apperror.InvalidField("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares in constant time. A malformed stored hash never matches,
// and neither does input longer than Hash accepts, since bcrypt would only
// look at its first 72 bytes.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

var _ Hasher = (*BcryptHasher)(nil)
