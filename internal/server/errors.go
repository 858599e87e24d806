package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marinesafe/safety-advisor/internal/auth"
	"github.com/marinesafe/safety-advisor/internal/common"
	"github.com/marinesafe/safety-advisor/internal/extract"
	"github.com/marinesafe/safety-advisor/internal/raster"
	"github.com/marinesafe/safety-advisor/internal/repository"
)

// writeError maps internal failures onto HTTP statuses without leaking
// internals to the client.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		convErr  *raster.ConversionError
		exhErr   *extract.ExhaustedError
		authErr  *auth.AuthError
		storeErr *repository.StoreError
	)

	switch {
	case errors.As(err, &convErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input document"})
	case errors.As(err, &exhErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not extract structured data from document"})
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication token"})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &storeErr):
		logger.Error("http.store_error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		logger.Error("http.internal_error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
