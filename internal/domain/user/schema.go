package user

import "github.com/geocoder89/mediahub/internal/query"

var QuerySchema = query.NewSchema(
	query.Field{Name: "id", Column: "_id", Key: true},
	query.Field{Name: "name"},
	query.Field{Name: "email"},
	query.Field{Name: "image"},
	query.Field{Name: "role"},
	query.Field{Name: "createdAt", Type: query.Time},
	query.Field{Name: "updatedAt", Type: query.Time},
	query.Field{Name: "version", Column: "__v", Type: query.Int},
).WithDefaultExcluded("version")
