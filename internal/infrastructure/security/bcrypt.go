package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/campus-coord/internal/domain"
)

// bcrypt ignores (newer versions reject) input past 72 bytes.
const bcryptMaxInput = 72

type BcryptHasher struct {
	cost  int
	dummy []byte
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	h := &BcryptHasher{cost: cost}
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("campus-coord-dummy"), cost)
	}
	return h
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prepare(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Compare returns ErrInvalidCredentials on mismatch and ErrHashFailed on a corrupt hash.
func (h *BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), prepare(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return domain.ErrInvalidCredentials()
	default:
		return domain.ErrHashFailed(err)
	}
}

// CompareDummy burns the same time as a real comparison so unknown emails
// are indistinguishable from wrong passwords.
func (h *BcryptHasher) CompareDummy(password string) {
	if h.dummy != nil {
		_ = bcrypt.CompareHashAndPassword(h.dummy, prepare(password))
	}
}

func prepare(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}
