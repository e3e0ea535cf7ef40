package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/domain/user"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. It is a no-op
// when ADMIN_EMAIL or ADMIN_PASSWORD is unset or the account already exists.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher user.PasswordHasher, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists
	_, err := store.GetByEmail(ctx, user.NormalizeEmail(cfg.AdminEmail))

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	u, err := user.New(user.NewUser{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Role:     user.Role(cfg.AdminRole),
		Password: cfg.AdminPassword,
	}, hasher, time.Now())

	if err != nil {
		return err
	}

	_, err = store.Create(ctx, u)

	var dup *user.DuplicateError
	if errors.As(err, &dup) {
		// another instance seeded first
		return nil
	}

	return err
}
