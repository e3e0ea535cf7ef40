package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/domain/media"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/query"
	"github.com/geocoder89/mediahub/internal/repo/memory"
	"github.com/geocoder89/mediahub/internal/repo/mongodb"
	"github.com/geocoder89/mediahub/internal/repo/postgres"
)

// UserStore is everything the API and the sweeper need from user
// persistence. Every driver implements it.
type UserStore interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context, spec query.Resolved) ([]user.User, error)
	UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error)
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) (user.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newHash string, changedAt time.Time) (user.User, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	Deactivate(ctx context.Context, id string) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type MediaStore interface {
	Create(ctx context.Context, m media.Media) (media.Media, error)
	GetByID(ctx context.Context, id string) (media.Media, error)
	List(ctx context.Context, spec query.Resolved) ([]media.Media, error)
	Update(ctx context.Context, m media.Media, expectedVersion int) (media.Media, error)
	Delete(ctx context.Context, id string) (media.Media, error)
	Stats(ctx context.Context, q media.StatsQuery) ([]media.Stat, error)
}

var (
	_ UserStore  = (*memory.UsersRepo)(nil)
	_ UserStore  = (*mongodb.UsersRepo)(nil)
	_ UserStore  = (*postgres.UsersRepo)(nil)
	_ MediaStore = (*memory.MediaRepo)(nil)
	_ MediaStore = (*mongodb.MediaRepo)(nil)
	_ MediaStore = (*postgres.MediaRepo)(nil)
)

// Stores bundles the repositories of the configured driver. Close releases
// the underlying connection.
type Stores struct {
	Users UserStore
	Media MediaStore
	Close func()
}

// Open connects the driver named by cfg.StoreDriver. Postgres migrations run
// before the repositories are returned.
func Open(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (Stores, error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, database, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return Stores{}, err
		}
		closeFn := func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Error("mongo disconnect failed", "err", err)
			}
		}

		users, err := mongodb.NewUsersRepo(ctx, database, prom)
		if err != nil {
			closeFn()
			return Stores{}, fmt.Errorf("users indexes: %w", err)
		}
		mediaRepo, err := mongodb.NewMediaRepo(ctx, database, prom)
		if err != nil {
			closeFn()
			return Stores{}, fmt.Errorf("media indexes: %w", err)
		}

		log.Info("store connected", "driver", "mongo", "db", cfg.MongoDB)
		return Stores{Users: users, Media: mediaRepo, Close: closeFn}, nil

	case "postgres":
		pool, err := NewPool(ctx, cfg.DBURL)
		if err != nil {
			return Stores{}, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return Stores{}, fmt.Errorf("postgres migrate: %w", err)
		}

		log.Info("store connected", "driver", "postgres")
		return Stores{
			Users: postgres.NewUsersRepo(pool, prom),
			Media: postgres.NewMediaRepo(pool, prom),
			Close: pool.Close,
		}, nil

	default:
		log.Warn("using in-memory store; data is lost on restart")
		return Stores{
			Users: memory.NewUsersRepo(),
			Media: memory.NewMediaRepo(),
			Close: func() {},
		}, nil
	}
}
