package memory

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/mediahub/internal/domain/media"
	"github.com/geocoder89/mediahub/internal/query"
)

// seedMedia stores an item whose rating and ratingAverage are both rating.
func seedMedia(t *testing.T, r *MediaRepo, name string, mt media.Type, price, rating float64, secret bool) media.Media {
	t.Helper()
	m, err := media.NewFromCreateRequest(media.CreateMediaRequest{
		Name:          name,
		Price:         price,
		RatingAverage: &rating,
		Rating:        &rating,
		MediaType:     string(mt),
		Media:         &media.AssetRequest{Type: "image"},
		Category:      "art",
		Creator:       "ada",
		SecretNft:     secret,
	}, time.Now())
	require.NoError(t, err)

	created, err := r.Create(context.Background(), m)
	require.NoError(t, err)
	return created
}

func resolve(t *testing.T, raw string) query.Resolved {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	spec, err := query.New(values).Filter().Sort().LimitFields().Paginate().Spec()
	require.NoError(t, err)
	r, err := media.QuerySchema.Resolve(spec)
	require.NoError(t, err)
	return r
}

func TestMediaRepoListFiltersSortsAndHidesSecret(t *testing.T) {
	r := NewMediaRepo()
	seedMedia(t, r, "Cheap Photo", media.TypeJPG, 10, 4, false)
	seedMedia(t, r, "Mid Photo A", media.TypeJPG, 60, 4, false)
	seedMedia(t, r, "Top Photo B", media.TypePNG, 90, 4, false)
	seedMedia(t, r, "Secret Drop", media.TypePNG, 500, 4, true)

	got, err := r.List(context.Background(), resolve(t, "price[gte]=50&sort=-price"))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Top Photo B", got[0].Name)
	assert.Equal(t, "Mid Photo A", got[1].Name)

	got, err = r.List(context.Background(), resolve(t, "price=10&price=90&sort=price"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Price)

	got, err = r.List(context.Background(), resolve(t, "sort=price&limit=1&page=2"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mid Photo A", got[0].Name)
}

func TestMediaRepoOptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewMediaRepo()
	m := seedMedia(t, r, "Some Photo", media.TypeJPG, 10, 4, false)

	price := 20.0
	next, err := media.ApplyUpdate(m, media.UpdateMediaRequest{Price: &price})
	require.NoError(t, err)

	_, err = r.Update(ctx, next, m.Version)
	require.NoError(t, err)

	_, err = r.Update(ctx, next, m.Version)
	require.ErrorIs(t, err, media.ErrConflict)
}

func TestMediaRepoStats(t *testing.T) {
	r := NewMediaRepo()
	seedMedia(t, r, "Photo One A", media.TypeJPG, 10, 4, false)
	seedMedia(t, r, "Photo Two B", media.TypeJPG, 30, 5, false)
	seedMedia(t, r, "Photo Three", media.TypePNG, 100, 3.5, false)
	seedMedia(t, r, "Low Rated X", media.TypePNG, 100, 2, false)
	seedMedia(t, r, "Secret Item", media.TypeMP4, 100, 5, true)

	stats, err := r.Stats(context.Background(), media.StatsQuery{GroupBy: "mediaType", SortBy: "avgPrice"})
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, "PNG", stats[0].Group)
	assert.Equal(t, 1, stats[0].NumMedia)
	assert.Equal(t, "JPG", stats[1].Group)
	assert.Equal(t, 2, stats[1].NumMedia)
	assert.InDelta(t, 4.5, stats[1].AvgRating, 1e-9)
	assert.Equal(t, 10.0, stats[1].MinPrice)
	assert.Equal(t, 30.0, stats[1].MaxPrice)
}
