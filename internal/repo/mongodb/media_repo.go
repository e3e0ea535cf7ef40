package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/geocoder89/mediahub/internal/domain/media"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/query"
)

// secret items are invisible to every read and write.
var notSecret = bson.M{"secretNft": bson.M{"$ne": true}}

type MediaRepo struct {
	coll *mongo.Collection
	prom *observability.Prom
}

func NewMediaRepo(ctx context.Context, db *mongo.Database, prom *observability.Prom) (*MediaRepo, error) {
	coll := db.Collection(mediaCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingAverage", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "slug", Value: 1}},
		},
	}

	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, err
	}

	return &MediaRepo{coll: coll, prom: prom}, nil
}

func byID(id string) bson.M {
	return bson.M{"_id": id, "secretNft": bson.M{"$ne": true}}
}

func (r *MediaRepo) Create(ctx context.Context, m media.Media) (media.Media, error) {
	err := r.prom.ObserveDB("media.create", func() error {
		_, err := r.coll.InsertOne(ctx, m)
		return err
	})
	if err != nil {
		return media.Media{}, mediaWriteError(err)
	}
	return m, nil
}

func (r *MediaRepo) GetByID(ctx context.Context, id string) (media.Media, error) {
	var m media.Media
	err := r.prom.ObserveDB("media.get_by_id", func() error {
		return r.coll.FindOne(ctx, byID(id)).Decode(&m)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return media.Media{}, media.ErrNotFound
		}
		return media.Media{}, err
	}
	return m, nil
}

func (r *MediaRepo) List(ctx context.Context, spec query.Resolved) ([]media.Media, error) {
	filter := buildFilter(notSecret, spec.Conditions)

	out := []media.Media{}
	err := r.prom.ObserveDB("media.list", func() error {
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

// Update replaces the document only while its stored version still equals
// expectedVersion.
func (r *MediaRepo) Update(ctx context.Context, m media.Media, expectedVersion int) (media.Media, error) {
	filter := byID(m.ID)
	filter["__v"] = expectedVersion

	var out media.Media
	err := r.prom.ObserveDB("media.update", func() error {
		return r.coll.FindOneAndReplace(ctx, filter, m,
			options.FindOneAndReplace().SetReturnDocument(options.After),
		).Decode(&out)
	})
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return media.Media{}, mediaWriteError(err)
	}

	n, err := r.coll.CountDocuments(ctx, byID(m.ID))
	if err != nil {
		return media.Media{}, err
	}
	if n == 0 {
		return media.Media{}, media.ErrNotFound
	}
	return media.Media{}, media.ErrConflict
}

func (r *MediaRepo) Delete(ctx context.Context, id string) (media.Media, error) {
	var m media.Media
	err := r.prom.ObserveDB("media.delete", func() error {
		return r.coll.FindOneAndDelete(ctx, byID(id)).Decode(&m)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return media.Media{}, media.ErrNotFound
		}
		return media.Media{}, err
	}
	return m, nil
}

func (r *MediaRepo) Stats(ctx context.Context, q media.StatsQuery) ([]media.Stat, error) {
	out := []media.Stat{}
	err := r.prom.ObserveDB("media.stats", func() error {
		cursor, err := r.coll.Aggregate(ctx, statsPipeline(q))
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

func statsPipeline(q media.StatsQuery) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"rating":    bson.M{"$gte": media.StatsMinRating},
			"secretNft": bson.M{"$ne": true},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":          bson.M{"$toUpper": "$" + q.GroupBy},
			"numMedia":     bson.M{"$sum": 1},
			"numOfRatings": bson.M{"$sum": "$rating"},
			"avgRating":    bson.M{"$avg": "$ratingAverage"},
			"avgPrice":     bson.M{"$avg": "$price"},
			"minPrice":     bson.M{"$min": "$price"},
			"maxPrice":     bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: q.SortBy, Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

func mediaWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return &media.DuplicateError{Field: "name"}
	}
	return err
}
