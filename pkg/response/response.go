package response

import (
	"errors"
	"fmt"
	"net/http"

	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/logger"
	"anoa.com/fandomspace/pkg/ratelimiter"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ParamUUID parses a path parameter as uuid, reporting ErrInvalidInput on failure.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, apperror.ErrInvalidInput)
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	var rateLimitErr *ratelimiter.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
	}

	// Log internal errors
	if code == http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("path", c.FullPath()).Error("internal error")
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// BindError renders a gin binding failure as a bad request.
func BindError(c *gin.Context, err error) {
	ResponseError(c, fmt.Errorf("%s: %w", validator.FormatValidationError(err), apperror.ErrInvalidInput))
}
