package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const TracksCollection = "tracks"

var TrackCategories = []string{
	"Pop", "Rock", "Hip-Hop", "Electronic", "Jazz", "Classical",
	"R&B", "Country", "Latin", "Folk", "Metal", "Others",
}

type TrackFile struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"`
}

type Track struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title  string             `bson:"title" json:"title"`
	About  string             `bson:"about" json:"about"`
	Owner  primitive.ObjectID `bson:"owner" json:"owner"`
	File   TrackFile          `bson:"file" json:"file"`
	Poster *TrackFile         `bson:"poster,omitempty" json:"poster,omitempty"`
	// Duration is in seconds; 0 means unknown (not yet probed).
	Duration  int                  `bson:"duration" json:"duration"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Category  string               `bson:"category" json:"category"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}
