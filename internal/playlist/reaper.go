package playlist

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// DefaultDraftMaxAgeDays is the reap threshold used when the caller does not
// supply one.
const DefaultDraftMaxAgeDays = 7

// CleanupOldDrafts deletes playlists that were created as drafts, never
// received a track, and have seen no activity for maxAgeDays. A draft holding
// at least one track is never reaped regardless of age. The operation is
// idempotent; calling it again deletes nothing new. Returns the number of
// playlists removed.
func (s *Store) CleanupOldDrafts(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultDraftMaxAgeDays
	}
	cutoff := s.now().AddDate(0, 0, -maxAgeDays)

	result, err := s.playlists.DeleteMany(ctx, draftReapFilter(cutoff))
	if err != nil {
		return 0, fmt.Errorf("reap stale drafts: %w", err)
	}
	return result.DeletedCount, nil
}

func draftReapFilter(cutoff time.Time) bson.M {
	return bson.M{
		"isDraft":      true,
		"tracks":       bson.M{"$size": 0},
		"lastActivity": bson.M{"$lt": cutoff},
	}
}
