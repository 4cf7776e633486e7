package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const PlaylistsCollection = "playlists"

var (
	PlaylistCategories = []string{"user", "featured", "genre", "mood", "activity"}
	PrivacyLevels      = []string{"public", "private", "unlisted"}
)

type CoverImage struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"`
}

// Playlist is the MongoDB document struct. TrackCount and TotalDuration are
// derived from Tracks and are written only by the playlist store's save path;
// callers must never set them directly.
type Playlist struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Owner       primitive.ObjectID   `bson:"owner" json:"owner"`
	Tracks      []primitive.ObjectID `bson:"tracks" json:"tracks"`

	TrackCount    int `bson:"trackCount" json:"trackCount"`
	TotalDuration int `bson:"totalDuration" json:"totalDuration"`

	Tags       []string    `bson:"tags" json:"tags"`
	Category   string      `bson:"category" json:"category"`
	Privacy    string      `bson:"privacy" json:"privacy"`
	IsDraft    bool        `bson:"isDraft" json:"isDraft"`
	CoverImage *CoverImage `bson:"coverImage,omitempty" json:"coverImage,omitempty"`

	LikeCount   int `bson:"likeCount" json:"likeCount"`
	FollowCount int `bson:"followCount" json:"followCount"`

	// Version is bumped on every save; the store refuses to commit over a
	// concurrent write (compare-and-increment).
	Version int64 `bson:"version" json:"version"`

	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	LastModified time.Time `bson:"lastModified" json:"lastModified"`
	// LastActivity marks the most recent change to any field other than
	// itself. The draft reaper uses it to detect abandoned playlists.
	LastActivity time.Time `bson:"lastActivity" json:"lastActivity"`
}

// PlaylistInfo is the compact DTO returned by list endpoints.
type PlaylistInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TrackCount    int    `json:"trackCount"`
	TotalDuration int    `json:"totalDuration"`
	Category      string `json:"category"`
	Privacy       string `json:"privacy"`
	IsDraft       bool   `json:"isDraft"`
	LikeCount     int    `json:"likeCount"`
	FollowCount   int    `json:"followCount"`
	CoverImage    string `json:"coverImage,omitempty"`
}

func (p *Playlist) ToInfo() PlaylistInfo {
	info := PlaylistInfo{
		ID:            p.ID.Hex(),
		Name:          p.Name,
		TrackCount:    p.TrackCount,
		TotalDuration: p.TotalDuration,
		Category:      p.Category,
		Privacy:       p.Privacy,
		IsDraft:       p.IsDraft,
		LikeCount:     p.LikeCount,
		FollowCount:   p.FollowCount,
	}
	if p.CoverImage != nil {
		info.CoverImage = p.CoverImage.URL
	}
	return info
}
