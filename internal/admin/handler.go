package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"resona/api/internal/charts"
	"resona/api/internal/events"
	"resona/api/internal/middleware"
	"resona/api/internal/playlist"

	"github.com/gin-gonic/gin"
)

// Handler exposes the maintenance operations the scheduler also runs, so an
// operator can invoke them on demand.
type Handler struct {
	playlists *playlist.Store
	charts    *charts.Service
	events    *events.Publisher
}

func NewHandler(playlists *playlist.Store, chartService *charts.Service, publisher *events.Publisher) *Handler {
	return &Handler{playlists: playlists, charts: chartService, events: publisher}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, adminKeyHash string) {
	g := r.Group("/admin")
	g.Use(middleware.AdminRateLimit(), middleware.RequireAdminKey(adminKeyHash))

	g.POST("/cleanup-drafts", h.CleanupDrafts)
	g.POST("/charts/refresh", h.RefreshCharts)
}

// CleanupDrafts deletes abandoned empty draft playlists older than the given
// threshold and reports how many went away.
// POST /admin/cleanup-drafts?days=7
func (h *Handler) CleanupDrafts(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
			return
		}
		days = v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	deleted, err := h.playlists.CleanupOldDrafts(ctx, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up drafts"})
		return
	}

	if deleted > 0 {
		h.events.Publish(ctx, events.EventTypeDraftsReaped, "", map[string]any{"deleted": deleted})
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// RefreshCharts rebuilds the chart snapshot immediately.
// POST /admin/charts/refresh
func (h *Handler) RefreshCharts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	snap, err := h.charts.Refresh(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh charts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": len(snap.Entries), "generatedAt": snap.GeneratedAt})
}
