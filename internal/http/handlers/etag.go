package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Lists are validated by a digest of the rendered payload. A single media
// item is validated by its id and version, which also makes the tag usable
// in If-Match for optimistic updates.

func contentETag(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func versionETag(id string, version int) string {
	return `"` + id + ".v" + strconv.Itoa(version) + `"`
}

// respondWithETag writes payload, or 304 when If-None-Match already holds
// etag. An empty etag falls back to hashing the payload.
func respondWithETag(ctx *gin.Context, status int, etag string, payload any) {
	if etag == "" {
		var err error
		if etag, err = contentETag(payload); err != nil {
			ctx.JSON(status, payload)
			return
		}
	}

	ctx.Header("ETag", etag)

	if etagListHas(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func etagListHas(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" || etag == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := opaqueTag(etag)
	for _, part := range strings.Split(header, ",") {
		if opaqueTag(part) == want {
			return true
		}
	}
	return false
}

// ifMatchVersion extracts the version from an If-Match value produced by
// versionETag for id. ok is false when the header is absent; valid is false
// when it is present but names another item or is malformed.
func ifMatchVersion(header, id string) (version int, ok, valid bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false, false
	}

	tag := strings.Trim(opaqueTag(header), `"`)
	rest, found := strings.CutPrefix(tag, id+".v")
	if !found {
		return 0, true, false
	}

	v, err := strconv.Atoi(rest)
	if err != nil || v < 0 {
		return 0, true, false
	}
	return v, true, true
}

// weak validators (W/"...") compare equal to their strong form
func opaqueTag(raw string) string {
	v := strings.TrimSpace(raw)
	return strings.TrimSpace(strings.TrimPrefix(v, "W/"))
}
