package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-zoned/internal/api/models"
)

// Health reports that the process is serving.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Reload re-reads the configuration and publishes a new zone table.
func (h *Handler) Reload(c *gin.Context) {
	if h.reload == nil {
		abort(c, h.classifier.Classify(errReloadUnavailable, ""))
		return
	}
	if cl := h.reload(); cl != nil {
		abort(c, cl)
		return
	}
	h.logger.Info(map[string]any{"user": user(c)}, "configuration reloaded")
	c.JSON(http.StatusOK, models.StatusResponse{Status: "reloaded"})
}
