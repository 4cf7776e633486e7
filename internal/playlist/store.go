package playlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"resona/api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound        = errors.New("playlist not found")
	ErrVersionConflict = errors.New("playlist was modified concurrently")
	ErrInvalidName     = errors.New("playlist name must be 1-100 characters")
	ErrInvalidField    = errors.New("invalid playlist field value")
)

// Collection is the subset of *mongo.Collection the store uses; tests swap in
// a mock.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// Store owns every playlist write. All mutations funnel through Save so the
// aggregate fields and the activity timestamp can never drift from the track
// list that produced them.
type Store struct {
	playlists Collection
	durations TrackDurationLookup
	now       func() time.Time
}

func NewStore(db *mongo.Database, durations TrackDurationLookup) *Store {
	return &Store{
		playlists: db.Collection(models.PlaylistsCollection),
		durations: durations,
		now:       time.Now,
	}
}

// Create validates and inserts a new playlist at version 1 with reconciled
// aggregates.
func (s *Store) Create(ctx context.Context, pl *models.Playlist) error {
	if err := validate(pl); err != nil {
		return err
	}

	if pl.ID.IsZero() {
		pl.ID = primitive.NewObjectID()
	}
	if pl.Tracks == nil {
		pl.Tracks = []primitive.ObjectID{}
	}
	if pl.Tags == nil {
		pl.Tags = []string{}
	}

	if err := ReconcileAggregates(ctx, pl, s.durations); err != nil {
		return err
	}

	now := s.now()
	pl.Version = 1
	pl.CreatedAt = now
	pl.LastModified = now
	pl.LastActivity = now

	if _, err := s.playlists.InsertOne(ctx, pl); err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	return nil
}

// Get loads the committed playlist document.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Playlist, error) {
	var pl models.Playlist
	err := s.playlists.FindOne(ctx, bson.M{"_id": id}).Decode(&pl)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load playlist: %w", err)
	}
	return &pl, nil
}

// Save commits a mutated playlist. It diffs against the committed version,
// recomputes the aggregates only when the track list changed (an unchanged
// list issues no duration lookup), stamps activity, and commits with a
// compare-and-increment on version. A concurrent writer having bumped the
// version surfaces as ErrVersionConflict; nothing is written in that case.
func (s *Store) Save(ctx context.Context, next *models.Playlist) error {
	if err := validate(next); err != nil {
		return err
	}

	prev, err := s.Get(ctx, next.ID)
	if err != nil {
		return err
	}

	changed := changedFields(prev, next)
	if len(changed) == 0 {
		return nil
	}

	if slices.Contains(changed, fieldTracks) {
		if err := ReconcileAggregates(ctx, next, s.durations); err != nil {
			return err
		}
	}

	now := s.now()
	StampActivity(next, changed, now)
	next.LastModified = now

	update := bson.M{
		fieldName:          next.Name,
		fieldDescription:   next.Description,
		fieldTracks:        next.Tracks,
		fieldTrackCount:    next.TrackCount,
		fieldTotalDuration: next.TotalDuration,
		fieldTags:          next.Tags,
		fieldCategory:      next.Category,
		fieldPrivacy:       next.Privacy,
		fieldIsDraft:       next.IsDraft,
		fieldLastActivity:  next.LastActivity,
		"lastModified":     next.LastModified,
		"version":          prev.Version + 1,
	}
	if next.CoverImage != nil {
		update[fieldCoverImage] = next.CoverImage
	}

	result, err := s.playlists.UpdateOne(ctx,
		bson.M{"_id": next.ID, "version": prev.Version},
		bson.M{"$set": update},
	)
	if err != nil {
		return fmt.Errorf("commit playlist: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}

	next.Version = prev.Version + 1
	return nil
}

// Delete removes a playlist owned by the given user.
func (s *Store) Delete(ctx context.Context, id, owner primitive.ObjectID) error {
	result, err := s.playlists.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Update loads, mutates and saves a playlist, retrying on version conflicts.
// mutate runs against a fresh snapshot on every attempt.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, mutate func(*models.Playlist) error) (*models.Playlist, error) {
	const maxAttempts = 3

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pl, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(pl); err != nil {
			return nil, err
		}

		err = s.Save(ctx, pl)
		if err == nil {
			return pl, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func validate(pl *models.Playlist) error {
	if n := len([]rune(pl.Name)); n < 1 || n > 100 {
		return ErrInvalidName
	}
	if len([]rune(pl.Description)) > 500 {
		return fmt.Errorf("%w: description exceeds 500 characters", ErrInvalidField)
	}
	if pl.Category == "" {
		pl.Category = "user"
	}
	if pl.Privacy == "" {
		pl.Privacy = "public"
	}
	if !slices.Contains(models.PlaylistCategories, pl.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidField, pl.Category)
	}
	if !slices.Contains(models.PrivacyLevels, pl.Privacy) {
		return fmt.Errorf("%w: unknown privacy %q", ErrInvalidField, pl.Privacy)
	}
	return nil
}
