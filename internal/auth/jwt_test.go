package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestManagerIssueAndVerify(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	issued := time.Now().UTC().Truncate(time.Second)
	tok, err := m.Issue("user-1", issued)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.SubjectID != "user-1" || !claims.IssuedAt.Equal(issued) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestManagerKeepsMillisecondIssuedAt(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 900_123_456, time.UTC)
	m, _ := NewManager("test-secret", time.Hour)
	m = m.WithClock(func() time.Time { return issued })

	tok, err := m.Issue("user-1", issued)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	want := time.Date(2026, 1, 1, 12, 0, 0, 900_000_000, time.UTC)
	if !claims.IssuedAt.Equal(want) {
		t.Fatalf("iat = %v, want %v", claims.IssuedAt, want)
	}
}

func TestManagerRejectsExpired(t *testing.T) {
	m, _ := NewManager("test-secret", time.Minute)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tok, err := m.Issue("user-1", issued)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	later := m.WithClock(func() time.Time { return issued.Add(2 * time.Minute) })
	if _, err := later.Verify(tok); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestManagerRejectsTampering(t *testing.T) {
	m, _ := NewManager("test-secret", time.Hour)
	other, _ := NewManager("other-secret", time.Hour)

	tok, _ := other.Issue("user-1", time.Now())
	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign key, got %v", err)
	}

	if _, err := m.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg none, got %v", err)
	}

	empty, _ := m.Issue("", time.Now())
	if _, err := m.Verify(empty); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty subject, got %v", err)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("", time.Hour); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}
