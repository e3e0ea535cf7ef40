package media

import "github.com/geocoder89/mediahub/internal/query"

// QuerySchema is the list-endpoint allow-list. Columns are document field
// names.
var QuerySchema = query.NewSchema(
	query.Field{Name: "id", Column: "_id", Key: true},
	query.Field{Name: "name"},
	query.Field{Name: "slug"},
	query.Field{Name: "ratingAverage", Type: query.Number},
	query.Field{Name: "ratingQuantity", Type: query.Int},
	query.Field{Name: "rating", Type: query.Number},
	query.Field{Name: "description"},
	query.Field{Name: "price", Type: query.Number},
	query.Field{Name: "discount", Type: query.Number},
	query.Field{Name: "coverImage"},
	query.Field{Name: "backGroundImage"},
	query.Field{Name: "mediaType"},
	query.Field{Name: "media", ProjectOnly: true},
	query.Field{Name: "createdAt", Type: query.Time},
	query.Field{Name: "secretNft", Type: query.Bool, Hidden: true},
	query.Field{Name: "tags"},
	query.Field{Name: "category"},
	query.Field{Name: "creator"},
	query.Field{Name: "maxGroupSize", Type: query.Int},
	query.Field{Name: "startDates", ProjectOnly: true},
	query.Field{Name: "duration", Type: query.Number},
	query.Field{Name: "version", Column: "__v", Type: query.Int},
).WithDefaultExcluded("version")
