package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/mediahub/internal/apperr"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func statusText(status int) string {
	if status >= 500 {
		return "error"
	}
	return "fail"
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"status": statusText(status),
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

// RespondAppError renders err. Operational errors keep their message;
// anything else is logged and hidden behind a generic one, with the cause
// exposed only in debug mode.
func RespondAppError(ctx *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Operational() {
		if appErr.Kind == apperr.KindDependency {
			slog.Default().ErrorContext(ctx.Request.Context(), "dependency_error",
				"code", appErr.Code, "err", err, "request_id", requestIDFrom(ctx))
		}
		RespondError(ctx, appErr.Status(), appErr.Code, appErr.Message, appErr.Details)
		return
	}

	slog.Default().ErrorContext(ctx.Request.Context(), "unhandled_error",
		"err", err, "route", ctx.FullPath(), "request_id", requestIDFrom(ctx))

	var details interface{}
	if gin.Mode() == gin.DebugMode {
		details = gin.H{"reason": err.Error()}
	}
	RespondError(ctx, http.StatusInternalServerError, "internal_error", "Something went wrong!", details)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

// RespondSuccess writes the {"status":"success", ...} envelope used by every
// resource endpoint.
func RespondSuccess(ctx *gin.Context, status int, body gin.H) {
	out := gin.H{"status": "success"}
	for k, v := range body {
		out[k] = v
	}
	ctx.JSON(status, out)
}
