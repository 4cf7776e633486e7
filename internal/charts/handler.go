package charts

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/charts")

	g.GET("/playlists", h.GetPlaylistChart)
}

// GetPlaylistChart serves the current ranked playlist chart, cache-first.
// GET /charts/playlists
func (h *Handler) GetPlaylistChart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	snap, err := h.service.Current(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch charts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chart": snap})
}
