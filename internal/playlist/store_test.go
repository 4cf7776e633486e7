package playlist

import (
	"context"
	"testing"
	"time"

	"resona/api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(col Collection, lookup TrackDurationLookup) *Store {
	return &Store{
		playlists: col,
		durations: lookup,
		now:       func() time.Time { return testNow },
	}
}

func committedPlaylist() *models.Playlist {
	return &models.Playlist{
		ID:           primitive.NewObjectID(),
		Name:         "Road Trip",
		Owner:        primitive.NewObjectID(),
		Tracks:       []primitive.ObjectID{},
		Tags:         []string{},
		Category:     "user",
		Privacy:      "public",
		Version:      3,
		CreatedAt:    testNow.Add(-72 * time.Hour),
		LastModified: testNow.Add(-72 * time.Hour),
		LastActivity: testNow.Add(-72 * time.Hour),
	}
}

func singleResult(pl *models.Playlist) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(pl, nil, nil)
}

func TestStoreCreate(t *testing.T) {
	trackID := primitive.NewObjectID()
	lookup := &fakeLookup{durations: map[primitive.ObjectID]int{trackID: 210}}

	var inserted *models.Playlist
	col := &mockCollection{
		InsertOneFunc: func(_ context.Context, doc interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
			inserted = doc.(*models.Playlist)
			return &mongo.InsertOneResult{InsertedID: inserted.ID}, nil
		},
	}

	store := newTestStore(col, lookup)
	pl := &models.Playlist{
		Name:   "Workout",
		Owner:  primitive.NewObjectID(),
		Tracks: []primitive.ObjectID{trackID},
	}

	require.NoError(t, store.Create(context.Background(), pl))
	require.NotNil(t, inserted)
	assert.Equal(t, int64(1), inserted.Version)
	assert.Equal(t, 1, inserted.TrackCount)
	assert.Equal(t, 210, inserted.TotalDuration)
	assert.True(t, inserted.CreatedAt.Equal(testNow))
	assert.True(t, inserted.LastActivity.Equal(testNow))
	assert.Equal(t, "user", inserted.Category)
	assert.Equal(t, "public", inserted.Privacy)
}

func TestStoreCreateValidation(t *testing.T) {
	store := newTestStore(&mockCollection{}, &fakeLookup{})

	err := store.Create(context.Background(), &models.Playlist{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidName)

	err = store.Create(context.Background(), &models.Playlist{Name: "ok", Category: "banana"})
	assert.ErrorIs(t, err, ErrInvalidField)

	err = store.Create(context.Background(), &models.Playlist{Name: "ok", Privacy: "secret"})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestStoreGetNotFound(t *testing.T) {
	col := &mockCollection{
		FindOneFunc: func(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
			return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
		},
	}
	store := newTestStore(col, &fakeLookup{})

	_, err := store.Get(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSaveTracksChanged(t *testing.T) {
	prev := committedPlaylist()
	trackID := primitive.NewObjectID()
	lookup := &fakeLookup{durations: map[primitive.ObjectID]int{trackID: 300}}

	var gotFilter, gotUpdate bson.M
	col := &mockCollection{
		FindOneFunc: func(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
			return singleResult(prev)
		},
		UpdateOneFunc: func(_ context.Context, filter, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			gotFilter = filter.(bson.M)
			gotUpdate = update.(bson.M)
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	}
	store := newTestStore(col, lookup)

	next := committedPlaylist()
	next.ID = prev.ID
	next.Owner = prev.Owner
	next.Tracks = []primitive.ObjectID{trackID}

	require.NoError(t, store.Save(context.Background(), next))

	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, 1, next.TrackCount)
	assert.Equal(t, 300, next.TotalDuration)
	assert.True(t, next.LastActivity.Equal(testNow), "adding a track is activity")
	assert.Equal(t, int64(4), next.Version)

	// The commit is guarded by the version we read.
	assert.Equal(t, prev.ID, gotFilter["_id"])
	assert.Equal(t, int64(3), gotFilter["version"])

	set := gotUpdate["$set"].(bson.M)
	assert.Equal(t, 1, set[fieldTrackCount])
	assert.Equal(t, 300, set[fieldTotalDuration])
	assert.Equal(t, int64(4), set["version"])
}

func TestStoreSaveTracksUnchangedSkipsLookup(t *testing.T) {
	prev := committedPlaylist()
	lookup := &fakeLookup{}

	col := &mockCollection{
		FindOneFunc: func(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
			return singleResult(prev)
		},
	}
	store := newTestStore(col, lookup)

	next := committedPlaylist()
	next.ID = prev.ID
	next.Owner = prev.Owner
	next.Name = "Road Trip 2"

	require.NoError(t, store.Save(context.Background(), next))
	assert.Zero(t, lookup.calls, "renaming must not issue a duration lookup")
}

func TestStoreSaveNoChanges(t *testing.T) {
	prev := committedPlaylist()

	updates := 0
	col := &mockCollection{
		FindOneFunc: func(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
			return singleResult(prev)
		},
		UpdateOneFunc: func(_ context.Context, _, _ interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			updates++
			return &mongo.UpdateResult{MatchedCount: 1}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	next := committedPlaylist()
	next.ID = prev.ID
	next.Owner = prev.Owner

	require.NoError(t, store.Save(context.Background(), next))
	assert.Zero(t, updates, "an identical snapshot commits nothing")
	assert.Equal(t, int64(3), next.Version)
}

func TestStoreSaveVersionConflict(t *testing.T) {
	prev := committedPlaylist()

	col := &mockCollection{
		FindOneFunc: func(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
			return singleResult(prev)
		},
		UpdateOneFunc: func(_ context.Context, _, _ interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			// A concurrent writer already bumped the version.
			return &mongo.UpdateResult{MatchedCount: 0}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	next := committedPlaylist()
	next.ID = prev.ID
	next.Owner = prev.Owner
	next.Name = "renamed"

	err := store.Save(context.Background(), next)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestStoreUpdateRetriesOnConflict(t *testing.T) {
	prev := committedPlaylist()

	attempts := 0
	col := &mockCollection{
		FindOneFunc: func(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
			return singleResult(prev)
		},
		UpdateOneFunc: func(_ context.Context, _, _ interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			attempts++
			if attempts == 1 {
				return &mongo.UpdateResult{MatchedCount: 0}, nil
			}
			return &mongo.UpdateResult{MatchedCount: 1}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	mutations := 0
	pl, err := store.Update(context.Background(), prev.ID, func(p *models.Playlist) error {
		mutations++
		p.Name = "renamed"
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, mutations, "mutate reruns against a fresh snapshot")
	assert.Equal(t, "renamed", pl.Name)
}

func TestStoreUpdateGivesUpAfterMaxAttempts(t *testing.T) {
	prev := committedPlaylist()

	attempts := 0
	col := &mockCollection{
		FindOneFunc: func(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
			return singleResult(prev)
		},
		UpdateOneFunc: func(_ context.Context, _, _ interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			attempts++
			return &mongo.UpdateResult{MatchedCount: 0}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	_, err := store.Update(context.Background(), prev.ID, func(p *models.Playlist) error {
		p.Name = "renamed"
		return nil
	})

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 3, attempts)
}

func TestStoreDeleteWrongOwner(t *testing.T) {
	col := &mockCollection{
		DeleteOneFunc: func(_ context.Context, _ interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
			return &mongo.DeleteResult{DeletedCount: 0}, nil
		},
	}
	store := newTestStore(col, &fakeLookup{})

	err := store.Delete(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}
