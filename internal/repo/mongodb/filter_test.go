package mongodb

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/geocoder89/mediahub/internal/domain/media"
	"github.com/geocoder89/mediahub/internal/query"
)

func resolveMedia(t *testing.T, raw string) query.Resolved {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	spec, err := query.New(values).Filter().Sort().LimitFields().Paginate().Spec()
	require.NoError(t, err)
	r, err := media.QuerySchema.Resolve(spec)
	require.NoError(t, err)
	return r
}

func TestBuildFilterMergesOperatorsPerField(t *testing.T) {
	r := resolveMedia(t, "price[gte]=10&price[lt]=50&mediaType=jpg")

	got := buildFilter(notSecret, r.Conditions)

	assert.Equal(t, bson.M{"$gte": 10.0, "$lt": 50.0}, got["price"])
	assert.Equal(t, bson.M{"$eq": "jpg"}, got["mediaType"])
	assert.Equal(t, bson.M{"$ne": true}, got["secretNft"])
}

func TestBuildFilterDoesNotMutateBase(t *testing.T) {
	base := bson.M{"secretNft": bson.M{"$ne": true}}
	cond := query.ResolvedCondition{
		Field: query.Field{Name: "secretNft", Column: "secretNft", Type: query.Bool},
		Op:    query.OpEq,
		Value: false,
	}

	got := buildFilter(base, []query.ResolvedCondition{cond})

	assert.Equal(t, bson.M{"$ne": true, "$eq": false}, got["secretNft"])
	assert.Equal(t, bson.M{"$ne": true}, base["secretNft"])
}

func TestBuildFilterIn(t *testing.T) {
	r := resolveMedia(t, "price=10&price=90")

	got := buildFilter(bson.M{}, r.Conditions)

	assert.Equal(t, bson.M{"$in": bson.A{10.0, 90.0}}, got["price"])
}

func TestFindOptionsSortAndWindow(t *testing.T) {
	r := resolveMedia(t, "sort=-price,name&limit=5&page=3")

	assert.Equal(t, bson.D{
		{Key: "price", Value: -1},
		{Key: "name", Value: 1},
		{Key: "_id", Value: 1},
	}, buildSort(r.Sort))
	assert.Equal(t, 10, r.Skip)
}

func TestVersionSortUsesDocumentField(t *testing.T) {
	r := resolveMedia(t, "sort=version")

	assert.Equal(t, "__v", buildSort(r.Sort)[0].Key)
}

func TestStatsPipeline(t *testing.T) {
	p := statsPipeline(media.StatsQuery{GroupBy: "category", SortBy: "avgPrice"})
	require.Len(t, p, 3)

	group := p[1][0].Value.(bson.M)
	assert.Equal(t, bson.M{"$toUpper": "$category"}, group["_id"])

	sort := p[2][0].Value.(bson.D)
	assert.Equal(t, "avgPrice", sort[0].Key)
	assert.Equal(t, -1, sort[0].Value)
}

func TestDuplicateField(t *testing.T) {
	err := errors.New(`E11000 duplicate key error collection: mediahub.users index: name_1 dup key: { name: "ada" }`)
	assert.Equal(t, "name", duplicateField(err, "email", "name"))

	err = errors.New(`E11000 duplicate key error collection: mediahub.users index: email_1 dup key: { email: "a@b.c" }`)
	assert.Equal(t, "email", duplicateField(err, "email", "name"))
}
