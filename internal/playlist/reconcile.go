package playlist

import (
	"context"
	"fmt"
	"slices"
	"time"

	"resona/api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackDurationLookup resolves durations for a batch of track ids in a single
// query. Tracks the store does not know about are simply absent from the
// result map.
type TrackDurationLookup interface {
	Durations(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int, error)
}

// bson field names used by the diff and the update documents.
const (
	fieldName          = "name"
	fieldDescription   = "description"
	fieldTracks        = "tracks"
	fieldTrackCount    = "trackCount"
	fieldTotalDuration = "totalDuration"
	fieldTags          = "tags"
	fieldCategory      = "category"
	fieldPrivacy       = "privacy"
	fieldIsDraft       = "isDraft"
	fieldCoverImage    = "coverImage"
	fieldLastActivity  = "lastActivity"
)

// ReconcileAggregates rewrites trackCount and totalDuration from the current
// track list. An empty list short-circuits to zero without a lookup; a track
// with no recorded duration (or a dangling reference) contributes zero. A
// failed lookup aborts the save so stale aggregates are never committed.
func ReconcileAggregates(ctx context.Context, pl *models.Playlist, lookup TrackDurationLookup) error {
	pl.TrackCount = len(pl.Tracks)

	if len(pl.Tracks) == 0 {
		pl.TotalDuration = 0
		return nil
	}

	durations, err := lookup.Durations(ctx, uniqueIDs(pl.Tracks))
	if err != nil {
		return fmt.Errorf("resolve track durations: %w", err)
	}

	total := 0
	for _, id := range pl.Tracks {
		total += durations[id]
	}
	pl.TotalDuration = total
	return nil
}

// StampActivity advances lastActivity when anything other than lastActivity
// itself changed. A save that only touches the activity timestamp must not
// look like new activity, otherwise stale drafts would never qualify for
// reaping. The timestamp never moves backwards.
func StampActivity(pl *models.Playlist, changed []string, now time.Time) {
	if len(changed) == 0 {
		return
	}
	if len(changed) == 1 && changed[0] == fieldLastActivity {
		return
	}
	if now.After(pl.LastActivity) {
		pl.LastActivity = now
	}
}

// changedFields diffs the caller-mutable and derived fields of two playlist
// snapshots. likeCount/followCount are excluded: those counters are kept with
// $inc updates by the social endpoints and must not be clobbered here.
func changedFields(prev, next *models.Playlist) []string {
	var changed []string

	if prev.Name != next.Name {
		changed = append(changed, fieldName)
	}
	if prev.Description != next.Description {
		changed = append(changed, fieldDescription)
	}
	if !slices.Equal(prev.Tracks, next.Tracks) {
		changed = append(changed, fieldTracks)
	}
	if !slices.Equal(prev.Tags, next.Tags) {
		changed = append(changed, fieldTags)
	}
	if prev.Category != next.Category {
		changed = append(changed, fieldCategory)
	}
	if prev.Privacy != next.Privacy {
		changed = append(changed, fieldPrivacy)
	}
	if prev.IsDraft != next.IsDraft {
		changed = append(changed, fieldIsDraft)
	}
	if !coverEqual(prev.CoverImage, next.CoverImage) {
		changed = append(changed, fieldCoverImage)
	}
	if !prev.LastActivity.Equal(next.LastActivity) {
		changed = append(changed, fieldLastActivity)
	}

	return changed
}

func coverEqual(a, b *models.CoverImage) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
