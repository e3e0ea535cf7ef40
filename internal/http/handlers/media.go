package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/mediahub/internal/apperr"
	"github.com/geocoder89/mediahub/internal/cache"
	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/domain/media"
	"github.com/geocoder89/mediahub/internal/query"
	"github.com/geocoder89/mediahub/internal/utils"
	"github.com/gin-gonic/gin"
)

type MediaStore interface {
	Create(ctx context.Context, m media.Media) (media.Media, error)
	GetByID(ctx context.Context, id string) (media.Media, error)
	List(ctx context.Context, spec query.Resolved) ([]media.Media, error)
	Update(ctx context.Context, m media.Media, expectedVersion int) (media.Media, error)
	Delete(ctx context.Context, id string) (media.Media, error)
	Stats(ctx context.Context, q media.StatsQuery) ([]media.Stat, error)
}

const mediaListCacheTTL = 5 * time.Second

type MediaHandler struct {
	repo  MediaStore
	cache *cache.Cache[gin.H]
	now   func() time.Time
}

func NewMediaHandler(repo MediaStore) *MediaHandler {
	return NewMediaHandlerWithCache(repo, cache.New[gin.H](mediaListCacheTTL))
}

func NewMediaHandlerWithCache(repo MediaStore, c *cache.Cache[gin.H]) *MediaHandler {
	return &MediaHandler{repo: repo, cache: c, now: time.Now}
}

func (h *MediaHandler) CreateMedia(ctx *gin.Context) {
	var req media.CreateMediaRequest

	if !BindJSON(ctx, &req) {
		return
	}

	m, err := media.NewFromCreateRequest(req, h.now())
	if err != nil {
		RespondAppError(ctx, mediaError("create media", err))
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, m)
	if err != nil {
		RespondAppError(ctx, mediaError("create media", err))
		return
	}

	h.cache.Purge()

	RespondSuccess(ctx, http.StatusCreated, gin.H{
		"message": "Media uploaded successfully",
		"data":    created,
	})
}

func (h *MediaHandler) ListMedia(ctx *gin.Context) {
	h.list(ctx, ctx.Request.URL.Query())
}

// TopFive lists the five best rated items with a short projection. Any other
// filter in the query string still applies.
func (h *MediaHandler) TopFive(ctx *gin.Context) {
	values := url.Values{}
	for k, v := range ctx.Request.URL.Query() {
		values[k] = v
	}
	values.Set("limit", "5")
	values.Set("sort", "-rating")
	values.Set("fields", "name,price,rating")

	h.list(ctx, values)
}

func (h *MediaHandler) list(ctx *gin.Context, values url.Values) {
	spec, err := query.New(values).Filter().Sort().LimitFields().Paginate().Spec()
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	cacheKey := utils.BuildMediaListCacheKey(spec)

	if payload, ok := h.cache.Get(cacheKey); ok {
		ctx.Header("X-Cache", "HIT")
		respondWithETag(ctx, http.StatusOK, "", payload)
		return
	}

	resolved, err := media.QuerySchema.Resolve(spec)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, resolved)
	if err != nil {
		RespondAppError(ctx, mediaError("list media", err))
		return
	}

	projected, err := query.ProjectAll(items, resolved.Fields)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	payload := gin.H{
		"status":  "success",
		"total":   len(projected),
		"message": "All media fetched successfully",
		"data":    projected,
	}

	h.cache.Set(cacheKey, payload)
	ctx.Header("X-Cache", "MISS")
	respondWithETag(ctx, http.StatusOK, "", payload)
}

func (h *MediaHandler) GetMediaByID(ctx *gin.Context) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	m, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAppError(ctx, mediaError("get media", err))
		return
	}

	respondWithETag(ctx, http.StatusOK, versionETag(m.ID, m.Version), gin.H{
		"status":  "success",
		"message": "Media fetched successfully",
		"data":    m,
	})
}

// UpdateMedia applies a partial update. When the body carries a version, or
// If-Match carries the item's ETag, the write only lands if the stored item
// is still at that version.
func (h *MediaHandler) UpdateMedia(ctx *gin.Context) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	var req struct {
		media.UpdateMediaRequest
		Version *int `json:"version" binding:"omitempty,min=0"`
	}
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	current, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAppError(ctx, mediaError("update media", err))
		return
	}

	expected := current.Version
	if v, ok, valid := ifMatchVersion(ctx.GetHeader("If-Match"), id); ok {
		if !valid {
			RespondError(ctx, http.StatusPreconditionFailed, "precondition_failed", "If-Match does not name this media item", nil)
			return
		}
		expected = v
	}
	if req.Version != nil {
		expected = *req.Version
	}

	next, err := media.ApplyUpdate(current, req.UpdateMediaRequest)
	if err != nil {
		RespondAppError(ctx, mediaError("update media", err))
		return
	}

	updated, err := h.repo.Update(cctx, next, expected)
	if err != nil {
		RespondAppError(ctx, mediaError("update media", err))
		return
	}

	h.cache.Purge()

	ctx.Header("ETag", versionETag(updated.ID, updated.Version))
	RespondSuccess(ctx, http.StatusOK, gin.H{
		"message": "Media updated successfully",
		"data":    updated,
	})
}

func (h *MediaHandler) DeleteMedia(ctx *gin.Context) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	deleted, err := h.repo.Delete(cctx, id)
	if err != nil {
		RespondAppError(ctx, mediaError("delete media", err))
		return
	}

	h.cache.Purge()

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"message": "Media deleted successfully",
		"data": gin.H{
			"mediaId": id,
			"media":   deleted,
		},
	})
}

func (h *MediaHandler) Stats(ctx *gin.Context) {
	q, err := media.StatsQuery{
		GroupBy: ctx.Query("groupBy"),
		SortBy:  ctx.Query("sort"),
	}.Normalize()
	if err != nil {
		RespondAppError(ctx, mediaError("media stats", err))
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.repo.Stats(cctx, q)
	if err != nil {
		RespondAppError(ctx, mediaError("media stats", err))
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"data": gin.H{"stats": stats},
	})
}

func mediaID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", "Invalid id: "+id, nil)
		return "", false
	}
	return id, true
}

// mediaError maps domain and store failures onto operational errors.
func mediaError(op string, err error) error {
	var (
		validation *media.ValidationError
		dup        *media.DuplicateError
		appErr     *apperr.Error
	)

	switch {
	case errors.As(err, &appErr):
		return err
	case errors.As(err, &validation):
		return apperr.ValidationDetails("invalid_media", "Invalid input data", gin.H{"problems": validation.Problems})
	case errors.As(err, &dup):
		return apperr.Conflict("duplicate_field", "Duplicate field value for "+dup.Field+", please use another value")
	case errors.Is(err, media.ErrNotFound):
		return apperr.NotFound("media_not_found", "Media not found")
	case errors.Is(err, media.ErrConflict):
		return apperr.Conflict("version_conflict", "Media was modified by another request, reload and try again")
	default:
		return apperr.Internal(op, err)
	}
}
