package scheduler

import (
	"context"
	"log/slog"
	"time"

	"resona/api/internal/charts"
	"resona/api/internal/events"
	"resona/api/internal/playlist"
)

// Scheduler drives the periodic maintenance jobs: reaping abandoned draft
// playlists and refreshing the chart snapshot. The jobs themselves are plain
// idempotent operations; this is only the clock that invokes them.
type Scheduler struct {
	playlists *playlist.Store
	charts    *charts.Service
	events    *events.Publisher

	draftMaxAgeDays int
	reapEvery       time.Duration
	refreshEvery    time.Duration
}

func New(playlists *playlist.Store, chartService *charts.Service, publisher *events.Publisher, draftMaxAgeDays int) *Scheduler {
	return &Scheduler{
		playlists:       playlists,
		charts:          chartService,
		events:          publisher,
		draftMaxAgeDays: draftMaxAgeDays,
		reapEvery:       24 * time.Hour,
		refreshEvery:    15 * time.Minute,
	}
}

// Start launches the background loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, s.reapEvery, s.reapDrafts)
	go s.loop(ctx, s.refreshEvery, s.refreshCharts)
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, job func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	// run once at startup so a freshly deployed instance has data
	job(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

func (s *Scheduler) reapDrafts(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := s.playlists.CleanupOldDrafts(opCtx, s.draftMaxAgeDays)
	if err != nil {
		slog.Error("draft cleanup failed", "err", err)
		return
	}
	if deleted > 0 {
		slog.Info("reaped stale draft playlists", "deleted", deleted, "maxAgeDays", s.draftMaxAgeDays)
		s.events.Publish(opCtx, events.EventTypeDraftsReaped, "", map[string]any{"deleted": deleted})
	}
}

func (s *Scheduler) refreshCharts(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	snap, err := s.charts.Refresh(opCtx)
	if err != nil {
		slog.Error("chart refresh failed", "err", err)
		return
	}
	slog.Info("chart snapshot refreshed", "entries", len(snap.Entries), "windowDays", snap.WindowDays)
	s.events.Publish(opCtx, events.EventTypeChartRefreshed, "", map[string]any{"entries": len(snap.Entries)})
}
