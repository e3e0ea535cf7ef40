package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/query"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Ping(ctx context.Context) error { return nil }

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(u.ID, u.Name, u.Email); err != nil {
		return user.User{}, err
	}

	r.items[u.ID] = u
	return u, nil
}

// checkUnique must be called with the lock held. Inactive users still own
// their name and email.
func (r *UsersRepo) checkUnique(id, name, email string) error {
	for _, existing := range r.items {
		if existing.ID == id {
			continue
		}
		if existing.Email == email {
			return &user.DuplicateError{Field: "email"}
		}
		if existing.Name == name {
			return &user.DuplicateError{Field: "name"}
		}
	}
	return nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email && u.Active {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(ctx context.Context, spec query.Resolved) ([]user.User, error) {
	r.mu.RLock()
	active := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		if u.Active {
			active = append(active, u)
		}
	}
	r.mu.RUnlock()

	return apply(active, func(u user.User) string { return u.ID }, spec)
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.User{}, user.ErrNotFound
	}

	updated := patch.Apply(u, now)
	if err := r.checkUnique(updated.ID, updated.Name, updated.Email); err != nil {
		return user.User{}, err
	}

	r.items[id] = updated
	return updated, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.User{}, user.ErrNotFound
	}

	changedAt = changedAt.UTC()
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	u.UpdatedAt = time.Now().UTC()
	u.Version++

	r.items[id] = u
	return u, nil
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.ErrNotFound
	}

	expiresAt = expiresAt.UTC()
	u.PasswordResetToken = tokenHash
	u.PasswordResetExpires = &expiresAt

	r.items[id] = u
	return nil
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil

	r.items[id] = u
	return nil
}

func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newHash string, changedAt time.Time) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.items {
		if !u.Active || u.PasswordResetToken != tokenHash || !u.HasLiveResetToken(now) {
			continue
		}

		changedAt = changedAt.UTC()
		u.PasswordHash = newHash
		u.PasswordChangedAt = &changedAt
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		u.UpdatedAt = now.UTC()
		u.Version++

		r.items[id] = u
		return u, nil
	}

	return user.User{}, user.ErrNotFound
}

// ClearExpiredResetTokens drops reset fields whose window has closed.
func (r *UsersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, u := range r.items {
		if u.PasswordResetExpires == nil || u.PasswordResetExpires.After(now) {
			continue
		}
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		r.items[id] = u
		n++
	}
	return n, nil
}

func (r *UsersRepo) Deactivate(ctx context.Context, id string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.User{}, user.ErrNotFound
	}

	u.Active = false
	r.items[id] = u
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)
	return nil
}
