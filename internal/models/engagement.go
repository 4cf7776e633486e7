package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const EngagementsCollection = "engagements"

// Engagement is a per-user record of which playlists they have liked or
// followed. The aggregate likeCount/followCount on the playlist itself is
// maintained alongside it with $inc updates.
type Engagement struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Owner    primitive.ObjectID   `bson:"owner" json:"owner"`
	Liked    []primitive.ObjectID `bson:"liked" json:"liked"`
	Followed []primitive.ObjectID `bson:"followed" json:"followed"`
}
