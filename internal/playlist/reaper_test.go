package playlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestCleanupOldDrafts(t *testing.T) {
	var gotFilter bson.M
	col := &mockCollection{
		DeleteManyFunc: func(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
			gotFilter = filter.(bson.M)
			return &mongo.DeleteResult{DeletedCount: 4}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	deleted, err := store.CleanupOldDrafts(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	// Only draft playlists that never received a track qualify.
	assert.Equal(t, true, gotFilter["isDraft"])
	assert.Equal(t, bson.M{"$size": 0}, gotFilter["tracks"])

	cutoff := gotFilter["lastActivity"].(bson.M)["$lt"].(time.Time)
	assert.True(t, cutoff.Equal(testNow.AddDate(0, 0, -30)))
}

func TestCleanupOldDraftsDefaultThreshold(t *testing.T) {
	var gotFilter bson.M
	col := &mockCollection{
		DeleteManyFunc: func(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
			gotFilter = filter.(bson.M)
			return &mongo.DeleteResult{}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	_, err := store.CleanupOldDrafts(context.Background(), 0)
	require.NoError(t, err)

	cutoff := gotFilter["lastActivity"].(bson.M)["$lt"].(time.Time)
	assert.True(t, cutoff.Equal(testNow.AddDate(0, 0, -DefaultDraftMaxAgeDays)))
}

func TestCleanupOldDraftsIdempotent(t *testing.T) {
	calls := 0
	col := &mockCollection{
		DeleteManyFunc: func(_ context.Context, _ interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
			calls++
			if calls == 1 {
				return &mongo.DeleteResult{DeletedCount: 2}, nil
			}
			// Everything matching is already gone.
			return &mongo.DeleteResult{DeletedCount: 0}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	first, err := store.CleanupOldDrafts(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first)

	second, err := store.CleanupOldDrafts(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestCleanupOldDraftsError(t *testing.T) {
	boom := errors.New("server selection timeout")
	col := &mockCollection{
		DeleteManyFunc: func(_ context.Context, _ interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
			return nil, boom
		},
	}
	store := newTestStore(col, &fakeLookup{})

	deleted, err := store.CleanupOldDrafts(context.Background(), 7)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, deleted)
}
