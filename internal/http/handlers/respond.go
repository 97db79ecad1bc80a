package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildhubhq/buildhub/internal/upstream"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("requestID")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"ok": false,
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusForbidden, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondUpstream folds an upstream failure into this API's envelope. A
// business error keeps its message (shown verbatim) and its status when it
// was a client-class one; everything else reads as a bad gateway.
func RespondUpstream(ctx *gin.Context, err error, fallback string) {
	var apiErr *upstream.APIError

	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway

		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}

		RespondError(ctx, status, "upstream_error", apiErr.Message, nil)
		return
	}

	RespondError(ctx, http.StatusBadGateway, "upstream_unavailable", fallback, nil)
}
