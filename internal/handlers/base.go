package handlers

import (
	"agora/internal/services"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidTarget):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidVote),
		errors.Is(err, services.ErrInvalidParent),
		errors.Is(err, services.ErrInvalidContent):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrWriteConflict):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Internal errors are logged and
// replaced by a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	_ = c.Error(err)
	status := errorStatus(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		message = "internal server error"
	case http.StatusServiceUnavailable:
		message = "vote is busy, try again"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
