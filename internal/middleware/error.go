// File: internal/middleware/error.go
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// legacyErrorBody is the wire shape of the original companies API:
// a bare message plus a stack trace that is null in release mode.
type legacyErrorBody struct {
	Message string  `json:"message"`
	Stack   *string `json:"stack"`
}

// LegacyErrorHandler centralizes error rendering for the /api/companies
// surface. Handlers attach errors via c.Error (optionally setting a
// status first); anything unmapped falls through to a 500.
func LegacyErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		ginErr := c.Errors.Last()
		statusCode := c.Writer.Status()

		if apiErr, ok := common.IsAPIError(ginErr.Err); ok {
			statusCode = apiErr.StatusCode
		} else if statusCode < http.StatusBadRequest {
			statusCode = http.StatusInternalServerError
		}

		message := legacyMessage(ginErr.Err)

		if statusCode >= http.StatusInternalServerError {
			logger.Error("Unhandled legacy API error",
				zap.Error(ginErr.Err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDContextKey)),
			)
		}

		body := legacyErrorBody{Message: message}
		if gin.Mode() != gin.ReleaseMode {
			stack := string(debug.Stack())
			body.Stack = &stack
		}
		c.AbortWithStatusJSON(statusCode, body)
	}
}

// legacyMessage prefers the APIError detail text when present, since the
// original API exposed the human-readable validation message directly.
func legacyMessage(err error) string {
	if apiErr, ok := common.IsAPIError(err); ok {
		if s, ok := apiErr.Details.(string); ok && s != "" {
			return s
		}
		return apiErr.Message
	}
	return err.Error()
}
