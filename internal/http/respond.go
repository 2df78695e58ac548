package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nexus-support-service/internal/apperrors"
)

// respondError writes err as an AppError envelope.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("requestId", requestID(c)).
			Str("code", string(appErr.Code)).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// bodyError maps a failed body read or bind.
func bodyError(err error) *apperrors.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.PayloadTooLarge(tooLarge.Limit)
	}
	return apperrors.InvalidInput("body", "invalid request body").WithCause(err)
}

// bindJSON decodes the JSON body into v, writing the error response on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, bodyError(err))
		return false
	}
	return true
}
