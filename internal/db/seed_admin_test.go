package db

import (
	"context"
	"testing"

	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/repo/memory"
)

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	cfg := config.Config{
		AdminName:     "Root Admin",
		AdminEmail:    "Root@Example.com",
		AdminPassword: "supersecret",
		AdminRole:     "admin",
	}

	if err := EnsureAdminUser(ctx, repo, plainHasher{}, cfg); err != nil {
		t.Fatalf("seed: %v", err)
	}

	u, err := repo.GetByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if u.Role != user.RoleAdmin {
		t.Fatalf("expected admin role, got %q", u.Role)
	}
	if u.PasswordHash != "hashed:supersecret" {
		t.Fatalf("expected hashed password, got %q", u.PasswordHash)
	}

	// second run is a no-op
	if err := EnsureAdminUser(ctx, repo, plainHasher{}, cfg); err != nil {
		t.Fatalf("second seed: %v", err)
	}
}

func TestEnsureAdminUserSkipsWithoutCredentials(t *testing.T) {
	repo := memory.NewUsersRepo()

	if err := EnsureAdminUser(context.Background(), repo, plainHasher{}, config.Config{AdminEmail: "a@b.c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.GetByEmail(context.Background(), "a@b.c"); err != user.ErrNotFound {
		t.Fatalf("expected no user, got %v", err)
	}
}

func TestEnsureAdminUserRejectsUnknownRole(t *testing.T) {
	cfg := config.Config{AdminName: "x admin", AdminEmail: "x@y.z", AdminPassword: "pw123456", AdminRole: "root"}

	if err := EnsureAdminUser(context.Background(), memory.NewUsersRepo(), plainHasher{}, cfg); err != user.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}
