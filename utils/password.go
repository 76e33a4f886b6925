package utils

import (
	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// BcryptHasher hashes with bcrypt at Cost. Zero means bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func (h *BcryptHasher) Compare(hash, password string) bool {
	// a corrupt stored hash counts as a mismatch
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
