package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/mediahub/internal/domain/media"
	"github.com/geocoder89/mediahub/internal/observability"
	"github.com/geocoder89/mediahub/internal/query"
)

const mediaColumns = `id, name, slug, rating_average, rating_quantity, rating, description,
	price, discount, cover_image, back_ground_image, media_type, asset_url, asset_type,
	created_at, secret_nft, tags, category, creator, max_group_size, start_dates, duration, version`

var mediaTable = table{
	columns: map[string]string{
		"ratingAverage":   "rating_average",
		"ratingQuantity":  "rating_quantity",
		"coverImage":      "cover_image",
		"backGroundImage": "back_ground_image",
		"mediaType":       "media_type",
		"createdAt":       "created_at",
		"maxGroupSize":    "max_group_size",
	},
	arrays: map[string]bool{"tags": true},
}

var statsGroupColumns = map[string]string{
	"mediaType": "media_type",
	"category":  "category",
	"creator":   "creator",
}

var statsSortColumns = map[string]string{
	"numMedia":     "num_media",
	"avgRating":    "avg_rating",
	"numOfRatings": "num_of_ratings",
	"avgPrice":     "avg_price",
	"minPrice":     "min_price",
	"maxPrice":     "max_price",
}

type MediaRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMediaRepo(pool *pgxpool.Pool, prom *observability.Prom) *MediaRepo {
	return &MediaRepo{pool: pool, prom: prom}
}

func scanMedia(row pgx.Row) (media.Media, error) {
	var m media.Media
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Slug,
		&m.RatingAverage,
		&m.RatingQuantity,
		&m.Rating,
		&m.Description,
		&m.Price,
		&m.Discount,
		&m.CoverImage,
		&m.BackGroundImage,
		&m.MediaType,
		&m.Media.URL,
		&m.Media.Type,
		&m.CreatedAt,
		&m.SecretNft,
		&m.Tags,
		&m.Category,
		&m.Creator,
		&m.MaxGroupSize,
		&m.StartDates,
		&m.Duration,
		&m.Version,
	)
	return m, err
}

func mediaArgs(m media.Media) []any {
	return []any{
		m.ID, m.Name, m.Slug, m.RatingAverage, m.RatingQuantity, m.Rating, m.Description,
		m.Price, m.Discount, m.CoverImage, m.BackGroundImage, m.MediaType, m.Media.URL, m.Media.Type,
		m.CreatedAt, m.SecretNft, m.Tags, m.Category, m.Creator, m.MaxGroupSize, m.StartDates, m.Duration, m.Version,
	}
}

func (r *MediaRepo) Create(ctx context.Context, m media.Media) (media.Media, error) {
	err := r.prom.ObserveDB("media.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO media (`+mediaColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
			mediaArgs(m)...,
		)
		return err
	})
	if err != nil {
		return media.Media{}, mediaWriteError(err)
	}
	return m, nil
}

func (r *MediaRepo) GetByID(ctx context.Context, id string) (media.Media, error) {
	return r.queryOne(ctx, "media.get_by_id",
		`SELECT `+mediaColumns+` FROM media WHERE id = $1 AND NOT secret_nft`, id)
}

func (r *MediaRepo) List(ctx context.Context, spec query.Resolved) ([]media.Media, error) {
	where, args := mediaTable.where([]string{"NOT secret_nft"}, spec.Conditions)
	window, args := page(args, spec)
	sql := `SELECT ` + mediaColumns + ` FROM media` + where + mediaTable.orderBy(spec.Sort) + window

	out := make([]media.Media, 0)
	err := r.prom.ObserveDB("media.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMedia(rows)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes m only while the stored version still equals
// expectedVersion.
func (r *MediaRepo) Update(ctx context.Context, m media.Media, expectedVersion int) (media.Media, error) {
	args := append(mediaArgs(m), expectedVersion)

	out, err := r.queryOne(ctx, "media.update",
		`UPDATE media SET
			name = $2, slug = $3, rating_average = $4, rating_quantity = $5, rating = $6,
			description = $7, price = $8, discount = $9, cover_image = $10, back_ground_image = $11,
			media_type = $12, asset_url = $13, asset_type = $14, created_at = $15, secret_nft = $16,
			tags = $17, category = $18, creator = $19, max_group_size = $20, start_dates = $21,
			duration = $22, version = $23
		WHERE id = $1 AND version = $24 AND NOT secret_nft
		RETURNING `+mediaColumns,
		args...,
	)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, media.ErrNotFound) {
		return media.Media{}, mediaWriteError(err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM media WHERE id = $1 AND NOT secret_nft)`, m.ID,
	).Scan(&exists); err != nil {
		return media.Media{}, err
	}
	if !exists {
		return media.Media{}, media.ErrNotFound
	}
	return media.Media{}, media.ErrConflict
}

func (r *MediaRepo) Delete(ctx context.Context, id string) (media.Media, error) {
	return r.queryOne(ctx, "media.delete",
		`DELETE FROM media WHERE id = $1 AND NOT secret_nft RETURNING `+mediaColumns, id)
}

func (r *MediaRepo) Stats(ctx context.Context, q media.StatsQuery) ([]media.Stat, error) {
	sql, args := statsQuery(q)

	out := make([]media.Stat, 0)
	err := r.prom.ObserveDB("media.stats", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s media.Stat
			if err := rows.Scan(&s.Group, &s.NumMedia, &s.AvgRating, &s.NumOfRatings, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// statsQuery only interpolates column names taken from fixed maps.
func statsQuery(q media.StatsQuery) (string, []any) {
	group, ok := statsGroupColumns[q.GroupBy]
	if !ok {
		group = statsGroupColumns[media.DefaultStatsGroup]
	}
	sortCol, ok := statsSortColumns[q.SortBy]
	if !ok {
		sortCol = statsSortColumns[media.DefaultStatsSort]
	}

	sql := fmt.Sprintf(`SELECT UPPER(%s) AS grp,
			COUNT(*)::int AS num_media,
			AVG(rating_average) AS avg_rating,
			SUM(rating) AS num_of_ratings,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price
		FROM media
		WHERE rating >= $1 AND NOT secret_nft
		GROUP BY grp
		ORDER BY %s DESC, grp ASC`, group, sortCol)

	return sql, []any{media.StatsMinRating}
}

func (r *MediaRepo) queryOne(ctx context.Context, op, sql string, args ...any) (media.Media, error) {
	var m media.Media
	err := r.prom.ObserveDB(op, func() error {
		var err error
		m, err = scanMedia(r.pool.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return media.Media{}, media.ErrNotFound
		}
		return media.Media{}, err
	}
	return m, nil
}

func mediaWriteError(err error) error {
	if _, ok := uniqueViolation(err); ok {
		return &media.DuplicateError{Field: "name"}
	}
	return err
}
