package media

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	DefaultRatingAverage = 4.5
	DefaultRating        = 2.5
)

// NewFromCreateRequest derives id, slug, defaults and createdAt, then
// validates the result.
func NewFromCreateRequest(req CreateMediaRequest, now time.Time) (Media, error) {
	name := strings.TrimSpace(req.Name)

	m := Media{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            slug.Make(name),
		RatingAverage:   DefaultRatingAverage,
		Rating:          DefaultRating,
		Description:     strings.TrimSpace(req.Description),
		Price:           req.Price,
		Discount:        req.Discount,
		CoverImage:      req.CoverImage,
		BackGroundImage: req.BackGroundImage,
		MediaType:       Type(req.MediaType),
		CreatedAt:       now.UTC(),
		SecretNft:       req.SecretNft,
		Tags:            nonNilStrings(req.Tags),
		Category:        strings.TrimSpace(req.Category),
		Creator:         strings.TrimSpace(req.Creator),
		MaxGroupSize:    req.MaxGroupSize,
		StartDates:      nonNilTimes(req.StartDates),
		Duration:        req.Duration,
	}

	if req.RatingAverage != nil {
		m.RatingAverage = *req.RatingAverage
	}
	if req.Rating != nil {
		m.Rating = *req.Rating
	}
	if req.RatingQuantity != nil {
		m.RatingQuantity = *req.RatingQuantity
	}
	if req.Media != nil {
		m.Media = Asset{URL: req.Media.URL, Type: req.Media.Type}
	}

	if err := m.Validate(); err != nil {
		return Media{}, err
	}

	return m, nil
}

// ApplyUpdate returns a copy of m with the update applied, the slug
// recomputed and the version bumped. The result is validated as a whole.
func ApplyUpdate(m Media, req UpdateMediaRequest) (Media, error) {
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
		m.Slug = slug.Make(m.Name)
	}
	if req.RatingAverage != nil {
		m.RatingAverage = *req.RatingAverage
	}
	if req.RatingQuantity != nil {
		m.RatingQuantity = *req.RatingQuantity
	}
	if req.Rating != nil {
		m.Rating = *req.Rating
	}
	if req.Description != nil {
		m.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		m.Price = *req.Price
	}
	if req.Discount != nil {
		m.Discount = req.Discount
	}
	if req.CoverImage != nil {
		m.CoverImage = *req.CoverImage
	}
	if req.BackGroundImage != nil {
		m.BackGroundImage = *req.BackGroundImage
	}
	if req.MediaType != nil {
		m.MediaType = Type(*req.MediaType)
	}
	if req.Media != nil {
		m.Media = Asset{URL: req.Media.URL, Type: req.Media.Type}
	}
	if req.SecretNft != nil {
		m.SecretNft = *req.SecretNft
	}
	if req.Tags != nil {
		m.Tags = req.Tags
	}
	if req.Category != nil {
		m.Category = strings.TrimSpace(*req.Category)
	}
	if req.Creator != nil {
		m.Creator = strings.TrimSpace(*req.Creator)
	}
	if req.MaxGroupSize != nil {
		m.MaxGroupSize = req.MaxGroupSize
	}
	if req.StartDates != nil {
		m.StartDates = req.StartDates
	}
	if req.Duration != nil {
		m.Duration = req.Duration
	}

	if err := m.Validate(); err != nil {
		return Media{}, err
	}

	m.Version++
	return m, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilTimes(in []time.Time) []time.Time {
	if in == nil {
		return []time.Time{}
	}
	return in
}
