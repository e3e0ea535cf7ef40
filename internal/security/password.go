package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var ErrUnknownAlgorithm = errors.New("unknown password hash algorithm")

// Hasher hashes new passwords with one algorithm and verifies digests of
// either supported algorithm, picked by the digest prefix.
type Hasher struct {
	algorithm  string
	bcryptCost int
	argon      argon2.Config
}

func NewHasher(algorithm string, bcryptCost int) (*Hasher, error) {
	if algorithm == "" {
		algorithm = AlgorithmBcrypt
	}
	if algorithm != AlgorithmBcrypt && algorithm != AlgorithmArgon2id {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &Hasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon:      argon2.DefaultConfig(),
	}, nil
}

// Hash password hashes a plain text password with the configured algorithm.
func (h *Hasher) Hash(plain string) (string, error) {
	if h.algorithm == AlgorithmArgon2id {
		encoded, err := h.argon.HashEncoded([]byte(plain))
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether plain matches digest. Any error is a mismatch.
func (h *Hasher) Verify(plain, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2"):
		ok, err := argon2.VerifyEncoded([]byte(plain), []byte(digest))
		return err == nil && ok
	case strings.HasPrefix(digest, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
	default:
		return false
	}
}
