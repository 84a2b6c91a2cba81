package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/coachpulse/engage-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		lastErr := c.Errors.Last()
		status, retryable := httpStatus(lastErr.Err)

		c.JSON(status, ErrorResponse{
			Code:      status,
			Message:   lastErr.Error(),
			RequestID: requestID,
			Retryable: retryable,
		})
	}
}

// httpStatus maps the application error taxonomy onto HTTP. Transient
// upstream failures are flagged retryable so clients can back off and try
// again.
func httpStatus(err error) (int, bool) {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		return http.StatusNotFound, false
	case apperrors.ErrBadRequest:
		return http.StatusBadRequest, false
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized, false
	case apperrors.ErrForbidden:
		return http.StatusForbidden, false
	case apperrors.ErrConflict:
		return http.StatusConflict, false
	case apperrors.ErrUnavailable:
		return http.StatusServiceUnavailable, true
	default:
		return http.StatusInternalServerError, false
	}
}
