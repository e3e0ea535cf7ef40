package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const ResetTokenTTL = 10 * time.Minute

// ResetToken is a one-time password reset secret. Only Hash is stored; Plain
// goes out by email.
type ResetToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

func NewResetToken(now time.Time) (ResetToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, err
	}

	plain := hex.EncodeToString(buf)

	return ResetToken{
		Plain:     plain,
		Hash:      HashResetToken(plain),
		ExpiresAt: now.UTC().Add(ResetTokenTTL),
	}, nil
}

func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
