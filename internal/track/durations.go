package track

import (
	"context"
	"fmt"

	"resona/api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DurationProvider resolves track durations for the playlist store with one
// batched $in query. It satisfies playlist.TrackDurationLookup.
type DurationProvider struct {
	tracks *mongo.Collection
}

func NewDurationProvider(db *mongo.Database) *DurationProvider {
	return &DurationProvider{tracks: db.Collection(models.TracksCollection)}
}

func (p *DurationProvider) Durations(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	if len(ids) == 0 {
		return map[primitive.ObjectID]int{}, nil
	}

	opts := options.Find().SetProjection(bson.M{"duration": 1})
	cursor, err := p.tracks.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("query track durations: %w", err)
	}
	defer cursor.Close(ctx)

	type row struct {
		ID       primitive.ObjectID `bson:"_id"`
		Duration int                `bson:"duration"`
	}

	durations := make(map[primitive.ObjectID]int, len(ids))
	for cursor.Next(ctx) {
		var r row
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode track duration: %w", err)
		}
		durations[r.ID] = r.Duration
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate track durations: %w", err)
	}
	return durations, nil
}
