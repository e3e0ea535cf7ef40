package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/geocoder89/mediahub/internal/domain/media"
	"github.com/geocoder89/mediahub/internal/query"
)

type MediaRepo struct {
	mu    sync.RWMutex
	items map[string]media.Media
}

func NewMediaRepo() *MediaRepo {
	return &MediaRepo{
		items: make(map[string]media.Media),
	}
}

func (r *MediaRepo) Create(ctx context.Context, m media.Media) (media.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Name == m.Name {
			return media.Media{}, &media.DuplicateError{Field: "name"}
		}
	}

	r.items[m.ID] = m
	return m, nil
}

func (r *MediaRepo) GetByID(ctx context.Context, id string) (media.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[id]
	if !ok || m.SecretNft {
		return media.Media{}, media.ErrNotFound
	}
	return m, nil
}

func (r *MediaRepo) List(ctx context.Context, spec query.Resolved) ([]media.Media, error) {
	r.mu.RLock()
	visible := make([]media.Media, 0, len(r.items))
	for _, m := range r.items {
		if !m.SecretNft {
			visible = append(visible, m)
		}
	}
	r.mu.RUnlock()

	return apply(visible, func(m media.Media) string { return m.ID }, spec)
}

// Update replaces the stored item when its version still equals
// expectedVersion.
func (r *MediaRepo) Update(ctx context.Context, m media.Media, expectedVersion int) (media.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[m.ID]
	if !ok || current.SecretNft {
		return media.Media{}, media.ErrNotFound
	}
	if current.Version != expectedVersion {
		return media.Media{}, media.ErrConflict
	}
	for id, existing := range r.items {
		if id != m.ID && existing.Name == m.Name {
			return media.Media{}, &media.DuplicateError{Field: "name"}
		}
	}

	r.items[m.ID] = m
	return m, nil
}

func (r *MediaRepo) Delete(ctx context.Context, id string) (media.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.items[id]
	if !ok || m.SecretNft {
		return media.Media{}, media.ErrNotFound
	}

	delete(r.items, id)
	return m, nil
}

func (r *MediaRepo) Stats(ctx context.Context, q media.StatsQuery) ([]media.Stat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type acc struct {
		stat     media.Stat
		ratings  float64
		prices   float64
		hasPrice bool
	}
	groups := map[string]*acc{}

	for _, m := range r.items {
		if m.SecretNft || m.Rating < media.StatsMinRating {
			continue
		}

		key := strings.ToUpper(groupValue(m, q.GroupBy))
		a, ok := groups[key]
		if !ok {
			a = &acc{stat: media.Stat{Group: key}}
			groups[key] = a
		}

		a.stat.NumMedia++
		a.ratings += m.RatingAverage
		a.stat.NumOfRatings += m.Rating
		a.prices += m.Price
		if !a.hasPrice || m.Price < a.stat.MinPrice {
			a.stat.MinPrice = m.Price
		}
		if !a.hasPrice || m.Price > a.stat.MaxPrice {
			a.stat.MaxPrice = m.Price
		}
		a.hasPrice = true
	}

	out := make([]media.Stat, 0, len(groups))
	for _, a := range groups {
		n := float64(a.stat.NumMedia)
		a.stat.AvgRating = a.ratings / n
		a.stat.AvgPrice = a.prices / n
		out = append(out, a.stat)
	}

	sort.Slice(out, func(i, j int) bool {
		vi, vj := out[i].SortValue(q.SortBy), out[j].SortValue(q.SortBy)
		if vi != vj {
			return vi > vj
		}
		return out[i].Group < out[j].Group
	})

	return out, nil
}

func groupValue(m media.Media, field string) string {
	switch field {
	case "category":
		return m.Category
	case "creator":
		return m.Creator
	default:
		return string(m.MediaType)
	}
}
