package media

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeJPG Type = "jpg"
	TypePNG Type = "png"
	TypeMP4 Type = "mp4"
	TypeMP3 Type = "mp3"
)

func (t Type) Valid() bool {
	switch t {
	case TypeJPG, TypePNG, TypeMP4, TypeMP3:
		return true
	}
	return false
}

type Asset struct {
	URL  string `json:"url,omitempty" bson:"url,omitempty"`
	Type string `json:"type" bson:"type"`
}

func validAssetType(t string) bool {
	return t == "image" || t == "video" || t == "audio"
}

type Media struct {
	ID              string      `json:"id" bson:"_id"`
	Name            string      `json:"name" bson:"name"`
	Slug            string      `json:"slug" bson:"slug"`
	RatingAverage   float64     `json:"ratingAverage" bson:"ratingAverage"`
	RatingQuantity  int         `json:"ratingQuantity" bson:"ratingQuantity"`
	Rating          float64     `json:"rating" bson:"rating"`
	Description     string      `json:"description,omitempty" bson:"description,omitempty"`
	Price           float64     `json:"price" bson:"price"`
	Discount        *float64    `json:"discount,omitempty" bson:"discount,omitempty"`
	CoverImage      string      `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	BackGroundImage string      `json:"backGroundImage,omitempty" bson:"backGroundImage,omitempty"`
	MediaType       Type        `json:"mediaType" bson:"mediaType"`
	Media           Asset       `json:"media" bson:"media"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt"`
	SecretNft       bool        `json:"-" bson:"secretNft"`
	Tags            []string    `json:"tags" bson:"tags"`
	Category        string      `json:"category" bson:"category"`
	Creator         string      `json:"creator" bson:"creator"`
	MaxGroupSize    *int        `json:"maxGroupSize,omitempty" bson:"maxGroupSize,omitempty"`
	StartDates      []time.Time `json:"startDates" bson:"startDates"`
	Duration        *float64    `json:"duration,omitempty" bson:"duration,omitempty"`
	Version         int         `json:"version" bson:"__v"`
}

var (
	ErrNotFound = errors.New("media not found")
	ErrConflict = errors.New("media was modified concurrently")
)

// DuplicateError is returned by stores when the media name is already taken.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return "duplicate value for " + e.Field
}

// ValidationError lists every invariant a media item violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid media: " + strings.Join(e.Problems, ". ")
}

// Validate checks the invariants that binding tags cannot express on their
// own (trimmed lengths, cross-field rules, enums on updated values).
func (m Media) Validate() error {
	var problems []string

	if n := len([]rune(m.Name)); n < 6 || n > 40 {
		problems = append(problems, "Name must be between 6 and 40 characters")
	}
	if m.RatingAverage < 1 || m.RatingAverage > 5 {
		problems = append(problems, "Rating average must be between 1 and 5")
	}
	if m.Rating < 1 || m.Rating > 5 {
		problems = append(problems, "Rating must be between 1 and 5")
	}
	if m.Description != "" {
		if n := len([]rune(m.Description)); n < 10 || n > 200 {
			problems = append(problems, "Description must be between 10 and 200 characters")
		}
	}
	if m.Price < 1 {
		problems = append(problems, "Price must be at least 1")
	}
	if m.Discount != nil && *m.Discount >= m.Price {
		problems = append(problems, fmt.Sprintf("Discount of (%v) should be lower than the price", *m.Discount))
	}
	if !m.MediaType.Valid() {
		problems = append(problems, "Incorrect media format, accepted formats: jpg, png, mp4, or mp3")
	}
	if !validAssetType(m.Media.Type) {
		problems = append(problems, "Media type must be image, video, or audio")
	}
	if strings.TrimSpace(m.Category) == "" {
		problems = append(problems, "Media must have a category")
	}
	if strings.TrimSpace(m.Creator) == "" {
		problems = append(problems, "Media must have a creator")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

type AssetRequest struct {
	URL  string `json:"url" binding:"omitempty,url"`
	Type string `json:"type" binding:"required,oneof=image video audio"`
}

type CreateMediaRequest struct {
	Name            string        `json:"name" binding:"required,min=6,max=40"`
	RatingAverage   *float64      `json:"ratingAverage" binding:"omitempty,min=1,max=5"`
	RatingQuantity  *int          `json:"ratingQuantity" binding:"omitempty,min=0"`
	Rating          *float64      `json:"rating" binding:"omitempty,min=1,max=5"`
	Description     string        `json:"description" binding:"omitempty,min=10,max=200"`
	Price           float64       `json:"price" binding:"required,min=1"`
	Discount        *float64      `json:"discount" binding:"omitempty,min=0"`
	CoverImage      string        `json:"coverImage"`
	BackGroundImage string        `json:"backGroundImage"`
	MediaType       string        `json:"mediaType" binding:"required,oneof=jpg png mp4 mp3"`
	Media           *AssetRequest `json:"media" binding:"required"`
	SecretNft       bool          `json:"secretNft"`
	Tags            []string      `json:"tags"`
	Category        string        `json:"category" binding:"required"`
	Creator         string        `json:"creator" binding:"required"`
	MaxGroupSize    *int          `json:"maxGroupSize" binding:"omitempty,min=1"`
	StartDates      []time.Time   `json:"startDates"`
	Duration        *float64      `json:"duration" binding:"omitempty,min=0"`
}

// a partial update: nil fields are left untouched.
type UpdateMediaRequest struct {
	Name            *string       `json:"name" binding:"omitempty,min=6,max=40"`
	RatingAverage   *float64      `json:"ratingAverage" binding:"omitempty,min=1,max=5"`
	RatingQuantity  *int          `json:"ratingQuantity" binding:"omitempty,min=0"`
	Rating          *float64      `json:"rating" binding:"omitempty,min=1,max=5"`
	Description     *string       `json:"description" binding:"omitempty,max=200"`
	Price           *float64      `json:"price" binding:"omitempty,min=1"`
	Discount        *float64      `json:"discount" binding:"omitempty,min=0"`
	CoverImage      *string       `json:"coverImage"`
	BackGroundImage *string       `json:"backGroundImage"`
	MediaType       *string       `json:"mediaType" binding:"omitempty,oneof=jpg png mp4 mp3"`
	Media           *AssetRequest `json:"media"`
	SecretNft       *bool         `json:"secretNft"`
	Tags            []string      `json:"tags"`
	Category        *string       `json:"category" binding:"omitempty,min=1"`
	Creator         *string       `json:"creator" binding:"omitempty,min=1"`
	MaxGroupSize    *int          `json:"maxGroupSize" binding:"omitempty,min=1"`
	StartDates      []time.Time   `json:"startDates"`
	Duration        *float64      `json:"duration" binding:"omitempty,min=0"`
}
