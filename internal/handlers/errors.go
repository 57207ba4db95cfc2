package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"gatechat/internal/apperr"
)

// respondError writes err with its mapped status. Causes of internal errors are logged, not returned.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		logger.Error("request failed",
			slog.String("route", c.FullPath()),
			slog.String("request_id", requestIDFromContext(c)),
			slog.Any("error", err),
		)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
