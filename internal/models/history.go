package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const HistoriesCollection = "histories"

// HistoryItem records one listen. Playlist is set when the track was played
// from a playlist; chart generation counts those plays per playlist.
type HistoryItem struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Track    primitive.ObjectID  `bson:"track" json:"track"`
	Playlist *primitive.ObjectID `bson:"playlist,omitempty" json:"playlist,omitempty"`
	Progress float64             `bson:"progress" json:"progress"`
	Date     time.Time           `bson:"date" json:"date"`
}

type History struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner primitive.ObjectID `bson:"owner" json:"owner"`
	Last  *HistoryItem       `bson:"last,omitempty" json:"last,omitempty"`
	All   []HistoryItem      `bson:"all" json:"all"`
}
