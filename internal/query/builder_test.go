package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/mediahub/internal/apperr"
)

func build(t *testing.T, raw string) (Spec, error) {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return New(values).Filter().Sort().LimitFields().Paginate().Spec()
}

func TestBuilderTranslatesOperatorsSortFieldsAndPaging(t *testing.T) {
	spec, err := build(t, "price[gte]=50&sort=-rating&limit=5&fields=name,price")
	require.NoError(t, err)

	assert.Equal(t, []Condition{{Field: "price", Op: OpGte, Value: "50"}}, spec.Conditions)
	assert.Equal(t, []SortKey{{Field: "rating", Desc: true}}, spec.Sort)
	assert.Equal(t, Projection{Fields: []string{"name", "price"}}, spec.Projection)
	assert.Equal(t, 5, spec.Limit)
	assert.Equal(t, 1, spec.Page)
	assert.Equal(t, 0, spec.Skip())
}

func TestBuilderDefaults(t *testing.T) {
	spec, err := build(t, "page=abc")
	require.NoError(t, err)

	assert.Equal(t, DefaultPage, spec.Page)
	assert.Equal(t, DefaultLimit, spec.Limit)
	assert.Equal(t, []SortKey{{Field: "createdAt", Desc: true}}, spec.Sort)
	assert.Empty(t, spec.Conditions)
	assert.Empty(t, spec.Projection.Fields)
}

func TestBuilderPaging(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPage  int
		wantLimit int
		wantSkip  int
	}{
		{"third page", "page=3&limit=10", 3, 10, 20},
		{"negative falls back", "page=-2&limit=0", 1, 100, 0},
		{"limit clamp", "limit=5000", 1, MaxLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := build(t, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, spec.Page)
			assert.Equal(t, tt.wantLimit, spec.Limit)
			assert.Equal(t, tt.wantSkip, spec.Skip())
		})
	}
}

func TestBuilderUnknownOperatorStaysLiteral(t *testing.T) {
	spec, err := build(t, "price[foo]=3")
	require.NoError(t, err)

	assert.Equal(t, []Condition{{Field: "price[foo]", Op: OpEq, Value: "3"}}, spec.Conditions)
}

func TestBuilderRepeatedKeys(t *testing.T) {
	spec, err := build(t, "price=10&price=20&name=a&name=b")
	require.NoError(t, err)

	assert.Equal(t, []Condition{
		{Field: "name", Op: OpEq, Value: "b"},
		{Field: "price", Op: OpIn, Values: []string{"10", "20"}},
	}, spec.Conditions)
}

func TestBuilderReservedKeysNeverFilter(t *testing.T) {
	spec, err := build(t, "page=2&sort=name&limit=3&fields=name")
	require.NoError(t, err)
	assert.Empty(t, spec.Conditions)
}

func TestBuilderFieldsExclusionAndMixing(t *testing.T) {
	spec, err := build(t, "fields=-description,,-tags")
	require.NoError(t, err)
	assert.Equal(t, Projection{Fields: []string{"description", "tags"}, Exclude: true}, spec.Projection)

	_, err = build(t, "fields=name,-price")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCacheKeyIsStable(t *testing.T) {
	a, err := build(t, "rating=4&price[lt]=9&sort=name")
	require.NoError(t, err)
	b, err := build(t, "sort=name&price[lt]=9&rating=4")
	require.NoError(t, err)
	c, err := build(t, "sort=name&price[lt]=9&rating=5")
	require.NoError(t, err)

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}
