package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/query"
)

const userColumns = `id, name, email, image, role, password_hash, password_changed_at,
	password_reset_token, password_reset_expires, active, created_at, updated_at, version`

var usersTable = table{
	columns: map[string]string{
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
}

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Image,
		&u.Role,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.PasswordResetToken,
		&u.PasswordResetExpires,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Version,
	)
	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			u.ID, u.Name, u.Email, u.Image, u.Role, u.PasswordHash, u.PasswordChangedAt,
			u.PasswordResetToken, u.PasswordResetExpires, u.Active, u.CreatedAt, u.UpdatedAt, u.Version,
		)
		return err
	})
	if err != nil {
		return user.User{}, userWriteError(err)
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.queryOne(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND active`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.queryOne(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND active`, email)
}

func (r *UsersRepo) List(ctx context.Context, spec query.Resolved) ([]user.User, error) {
	where, args := usersTable.where([]string{"active"}, spec.Conditions)
	window, args := page(args, spec)
	sql := `SELECT ` + userColumns + ` FROM users` + where + usersTable.orderBy(spec.Sort) + window

	out := make([]user.User, 0)
	err := r.prom.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error) {
	sets := []string{"updated_at = $2", "version = version + 1"}
	args := []any{id, now.UTC()}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Image != nil {
		add("image", *patch.Image)
	}
	if patch.Role != nil {
		add("role", *patch.Role)
	}

	u, err := r.queryOne(ctx, "users.update_profile",
		`UPDATE users SET `+strings.Join(sets, ", ")+`
		WHERE id = $1 AND active
		RETURNING `+userColumns,
		args...,
	)
	if err != nil {
		return user.User{}, userWriteError(err)
	}
	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) (user.User, error) {
	return r.queryOne(ctx, "users.update_password",
		`UPDATE users
		SET password_hash = $2,
			password_changed_at = $3,
			password_reset_token = '',
			password_reset_expires = NULL,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $1 AND active
		RETURNING `+userColumns,
		id, hash, changedAt.UTC(),
	)
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.exec(ctx, "users.set_reset_token",
		`UPDATE users SET password_reset_token = $2, password_reset_expires = $3
		WHERE id = $1 AND active`,
		id, tokenHash, expiresAt.UTC(),
	)
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.exec(ctx, "users.clear_reset_token",
		`UPDATE users SET password_reset_token = '', password_reset_expires = NULL
		WHERE id = $1`,
		id,
	)
}

// ConsumeResetToken matches and clears the reset fields in one UPDATE, so a
// token can be redeemed at most once.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newHash string, changedAt time.Time) (user.User, error) {
	return r.queryOne(ctx, "users.consume_reset_token",
		`UPDATE users
		SET password_hash = $3,
			password_changed_at = $4,
			password_reset_token = '',
			password_reset_expires = NULL,
			updated_at = $2,
			version = version + 1
		WHERE password_reset_token = $1
			AND password_reset_token <> ''
			AND password_reset_expires > $2
			AND active
		RETURNING `+userColumns,
		tokenHash, now.UTC(), newHash, changedAt.UTC(),
	)
}

func (r *UsersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.prom.ObserveDB("users.clear_expired_reset_tokens", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET password_reset_token = '', password_reset_expires = NULL
			WHERE password_reset_expires <= $1`,
			now.UTC(),
		)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

func (r *UsersRepo) Deactivate(ctx context.Context, id string) (user.User, error) {
	return r.queryOne(ctx, "users.deactivate",
		`UPDATE users SET active = FALSE, updated_at = NOW()
		WHERE id = $1 AND active
		RETURNING `+userColumns,
		id,
	)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "users.delete", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) queryOne(ctx context.Context, op, sql string, args ...any) (user.User, error) {
	var u user.User
	err := r.prom.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// exec reports user.ErrNotFound when no row was touched.
func (r *UsersRepo) exec(ctx context.Context, op, sql string, args ...any) error {
	var affected int64
	err := r.prom.ObserveDB(op, func() error {
		tag, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func userWriteError(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	if strings.Contains(constraint, "email") {
		return &user.DuplicateError{Field: "email"}
	}
	return &user.DuplicateError{Field: "name"}
}
