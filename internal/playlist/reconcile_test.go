package playlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"resona/api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReconcileAggregates(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := primitive.NewObjectID()

	lookup := &fakeLookup{durations: map[primitive.ObjectID]int{
		a: 180,
		b: 240,
		c: 95,
	}}

	pl := &models.Playlist{
		Tracks:        []primitive.ObjectID{a, b, c},
		TrackCount:    99,
		TotalDuration: 99999,
	}

	require.NoError(t, ReconcileAggregates(context.Background(), pl, lookup))
	assert.Equal(t, 3, pl.TrackCount)
	assert.Equal(t, 515, pl.TotalDuration)
	assert.Equal(t, 1, lookup.calls)
}

func TestReconcileAggregatesDuplicateTrack(t *testing.T) {
	a := primitive.NewObjectID()
	lookup := &fakeLookup{durations: map[primitive.ObjectID]int{a: 200}}

	pl := &models.Playlist{Tracks: []primitive.ObjectID{a, a, a}}

	require.NoError(t, ReconcileAggregates(context.Background(), pl, lookup))

	// Every occurrence counts, but the id is looked up once.
	assert.Equal(t, 3, pl.TrackCount)
	assert.Equal(t, 600, pl.TotalDuration)
	assert.Equal(t, []primitive.ObjectID{a}, lookup.lastIDs)
}

func TestReconcileAggregatesEmptyList(t *testing.T) {
	lookup := &fakeLookup{}

	pl := &models.Playlist{
		Tracks:        []primitive.ObjectID{},
		TrackCount:    12,
		TotalDuration: 3600,
	}

	require.NoError(t, ReconcileAggregates(context.Background(), pl, lookup))
	assert.Equal(t, 0, pl.TrackCount)
	assert.Equal(t, 0, pl.TotalDuration)
	assert.Zero(t, lookup.calls, "empty track list must not hit the track store")
}

func TestReconcileAggregatesUnknownTrack(t *testing.T) {
	known := primitive.NewObjectID()
	dangling := primitive.NewObjectID()
	lookup := &fakeLookup{durations: map[primitive.ObjectID]int{known: 120}}

	pl := &models.Playlist{Tracks: []primitive.ObjectID{known, dangling}}

	require.NoError(t, ReconcileAggregates(context.Background(), pl, lookup))
	assert.Equal(t, 2, pl.TrackCount)
	assert.Equal(t, 120, pl.TotalDuration, "dangling reference contributes zero duration")
}

func TestReconcileAggregatesLookupFailure(t *testing.T) {
	boom := errors.New("mongo: network timeout")
	lookup := &fakeLookup{err: boom}

	pl := &models.Playlist{
		Tracks:        []primitive.ObjectID{primitive.NewObjectID()},
		TotalDuration: 777,
	}

	err := ReconcileAggregates(context.Background(), pl, lookup)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 777, pl.TotalDuration, "failed lookup must not rewrite the committed duration")
}

func TestStampActivityAdvances(t *testing.T) {
	before := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := before.Add(48 * time.Hour)

	pl := &models.Playlist{LastActivity: before}
	StampActivity(pl, []string{fieldTracks}, now)

	assert.True(t, pl.LastActivity.Equal(now))
}

func TestStampActivityNoChanges(t *testing.T) {
	before := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	pl := &models.Playlist{LastActivity: before}
	StampActivity(pl, nil, before.Add(time.Hour))

	assert.True(t, pl.LastActivity.Equal(before))
}

func TestStampActivityIgnoresActivityOnlySave(t *testing.T) {
	before := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// A save that only rewrites lastActivity is not user activity; stamping
	// it would keep empty drafts alive forever.
	pl := &models.Playlist{LastActivity: before}
	StampActivity(pl, []string{fieldLastActivity}, before.Add(time.Hour))

	assert.True(t, pl.LastActivity.Equal(before))
}

func TestStampActivityNeverMovesBackwards(t *testing.T) {
	ahead := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	pl := &models.Playlist{LastActivity: ahead}
	StampActivity(pl, []string{fieldName}, ahead.Add(-time.Hour))

	assert.True(t, pl.LastActivity.Equal(ahead))
}

func TestChangedFields(t *testing.T) {
	base := func() *models.Playlist {
		return &models.Playlist{
			Name:        "Morning Mix",
			Description: "coffee tunes",
			Tracks:      []primitive.ObjectID{},
			Tags:        []string{"chill"},
			Category:    "user",
			Privacy:     "public",
		}
	}

	t.Run("identical snapshots", func(t *testing.T) {
		assert.Empty(t, changedFields(base(), base()))
	})

	t.Run("track list", func(t *testing.T) {
		next := base()
		next.Tracks = []primitive.ObjectID{primitive.NewObjectID()}
		assert.Equal(t, []string{fieldTracks}, changedFields(base(), next))
	})

	t.Run("several fields", func(t *testing.T) {
		next := base()
		next.Name = "Evening Mix"
		next.IsDraft = true
		changed := changedFields(base(), next)
		assert.ElementsMatch(t, []string{fieldName, fieldIsDraft}, changed)
	})

	t.Run("cover image", func(t *testing.T) {
		next := base()
		next.CoverImage = &models.CoverImage{URL: "https://cdn/img.jpg", PublicID: "img"}
		assert.Equal(t, []string{fieldCoverImage}, changedFields(base(), next))
	})

	t.Run("engagement counters ignored", func(t *testing.T) {
		next := base()
		next.LikeCount = 42
		next.FollowCount = 7
		assert.Empty(t, changedFields(base(), next),
			"counters belong to the $inc path and must not trigger a save")
	})
}
