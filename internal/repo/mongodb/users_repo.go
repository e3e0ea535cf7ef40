package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/query"
)

type UsersRepo struct {
	coll *mongo.Collection
	prom *observability.Prom
}

// NewUsersRepo ensures the unique and lookup indexes before returning.
func NewUsersRepo(ctx context.Context, db *mongo.Database, prom *observability.Prom) (*UsersRepo, error) {
	coll := db.Collection(usersCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "passwordResetToken", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, err
	}

	return &UsersRepo{coll: coll, prom: prom}, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.coll.InsertOne(ctx, u)
		return err
	})
	if err != nil {
		return user.User{}, userWriteError(err)
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": id, "active": true})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": email, "active": true})
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var u user.User
	err := r.prom.ObserveDB(op, func() error {
		return r.coll.FindOne(ctx, filter).Decode(&u)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) List(ctx context.Context, spec query.Resolved) ([]user.User, error) {
	filter := buildFilter(bson.M{"active": true}, spec.Conditions)

	out := []user.User{}
	err := r.prom.ObserveDB("users.list", func() error {
		cursor, err := r.coll.Find(ctx, filter, findOptions(spec))
		if err != nil {
			return err
		}
		return cursor.All(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error) {
	set := bson.M{"updatedAt": now.UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}

	u, err := r.findOneAndUpdate(ctx, "users.update_profile",
		bson.M{"_id": id, "active": true},
		bson.M{"$set": set, "$inc": bson.M{"__v": 1}},
	)
	if err != nil {
		return user.User{}, userWriteError(err)
	}
	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) (user.User, error) {
	return r.findOneAndUpdate(ctx, "users.update_password",
		bson.M{"_id": id, "active": true},
		passwordUpdate(hash, changedAt, time.Now()),
	)
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.updateOne(ctx, "users.set_reset_token",
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{
			"passwordResetToken":   tokenHash,
			"passwordResetExpires": expiresAt.UTC(),
		}},
	)
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.updateOne(ctx, "users.clear_reset_token",
		bson.M{"_id": id},
		bson.M{"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""}},
	)
}

// ConsumeResetToken matches hash, expiry and active state in one
// findAndModify, so a token can be redeemed at most once.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newHash string, changedAt time.Time) (user.User, error) {
	return r.findOneAndUpdate(ctx, "users.consume_reset_token",
		bson.M{
			"passwordResetToken":   tokenHash,
			"passwordResetExpires": bson.M{"$gt": now.UTC()},
			"active":               true,
		},
		passwordUpdate(newHash, changedAt, now),
	)
}

func (r *UsersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.prom.ObserveDB("users.clear_expired_reset_tokens", func() error {
		res, err := r.coll.UpdateMany(ctx,
			bson.M{"passwordResetExpires": bson.M{"$lte": now.UTC()}},
			bson.M{"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""}},
		)
		if err != nil {
			return err
		}
		n = res.ModifiedCount
		return nil
	})
	return n, err
}

func (r *UsersRepo) Deactivate(ctx context.Context, id string) (user.User, error) {
	return r.findOneAndUpdate(ctx, "users.deactivate",
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"active": false, "updatedAt": time.Now().UTC()}},
	)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := r.prom.ObserveDB("users.delete", func() error {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) findOneAndUpdate(ctx context.Context, op string, filter, update bson.M) (user.User, error) {
	var u user.User
	err := r.prom.ObserveDB(op, func() error {
		return r.coll.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&u)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) updateOne(ctx context.Context, op string, filter, update bson.M) error {
	var matched int64
	err := r.prom.ObserveDB(op, func() error {
		res, err := r.coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched == 0 {
		return user.ErrNotFound
	}
	return nil
}

func passwordUpdate(hash string, changedAt, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"password":          hash,
			"passwordChangedAt": changedAt.UTC(),
			"updatedAt":         now.UTC(),
		},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
		"$inc":   bson.M{"__v": 1},
	}
}

func userWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return &user.DuplicateError{Field: duplicateField(err, "email", "name")}
	}
	return err
}
