package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"resona/api/internal/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Score weights. Follows signal lasting interest and weigh the most, likes
// sit in between, a play inside the window counts once.
const (
	playWeight   = 1.0
	likeWeight   = 3.0
	followWeight = 5.0
)

type Entry struct {
	PlaylistID    string  `json:"playlistId"`
	Name          string  `json:"name"`
	Owner         string  `json:"owner"`
	TrackCount    int     `json:"trackCount"`
	TotalDuration int     `json:"totalDuration"`
	Plays         int64   `json:"plays"`
	Likes         int     `json:"likes"`
	Follows       int     `json:"follows"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
}

type Snapshot struct {
	GeneratedAt time.Time `json:"generatedAt"`
	WindowDays  int       `json:"windowDays"`
	Entries     []Entry   `json:"entries"`
}

// Service builds ranked playlist charts from engagement counters and the
// listen history, and caches the snapshot in Redis so chart pages do not
// recompute on every request.
type Service struct {
	db         *mongo.Database
	cache      *redis.Client
	windowDays int
	size       int
	ttl        time.Duration
	now        func() time.Time
}

func NewService(db *mongo.Database, cache *redis.Client, windowDays, size, ttlSeconds int) *Service {
	if windowDays <= 0 {
		windowDays = 7
	}
	if size <= 0 {
		size = 50
	}
	return &Service{
		db:         db,
		cache:      cache,
		windowDays: windowDays,
		size:       size,
		ttl:        time.Duration(ttlSeconds) * time.Second,
		now:        time.Now,
	}
}

func (s *Service) cacheKey() string {
	return fmt.Sprintf("charts:playlists:%dd", s.windowDays)
}

// Current returns the cached snapshot, rebuilding it on a cache miss.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	raw, err := s.cache.Get(ctx, s.cacheKey()).Bytes()
	if err == nil {
		var snap Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return &snap, nil
		}
		// corrupt cache entry, fall through to a rebuild
	} else if err != redis.Nil {
		return nil, fmt.Errorf("read chart cache: %w", err)
	}

	return s.Refresh(ctx)
}

// Refresh recomputes the chart and replaces the cached snapshot.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal chart snapshot: %w", err)
	}
	if err := s.cache.Set(ctx, s.cacheKey(), raw, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("write chart cache: %w", err)
	}
	return snap, nil
}

func (s *Service) build(ctx context.Context) (*Snapshot, error) {
	since := s.now().AddDate(0, 0, -s.windowDays)

	plays, err := s.playCounts(ctx, since)
	if err != nil {
		return nil, err
	}

	cursor, err := s.db.Collection(models.PlaylistsCollection).Find(ctx,
		bson.M{"privacy": "public", "isDraft": false, "trackCount": bson.M{"$gt": 0}},
		options.Find().SetProjection(bson.M{
			"name": 1, "owner": 1, "trackCount": 1, "totalDuration": 1,
			"likeCount": 1, "followCount": 1,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("query chart candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.Playlist
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("decode chart candidates: %w", err)
	}

	entries := make([]Entry, 0, len(candidates))
	for i := range candidates {
		pl := &candidates[i]
		playCount := plays[pl.ID]
		entries = append(entries, Entry{
			PlaylistID:    pl.ID.Hex(),
			Name:          pl.Name,
			Owner:         pl.Owner.Hex(),
			TrackCount:    pl.TrackCount,
			TotalDuration: pl.TotalDuration,
			Plays:         playCount,
			Likes:         pl.LikeCount,
			Follows:       pl.FollowCount,
			Score:         score(playCount, pl.LikeCount, pl.FollowCount),
		})
	}

	entries = rank(entries, s.size)

	return &Snapshot{
		GeneratedAt: s.now().UTC(),
		WindowDays:  s.windowDays,
		Entries:     entries,
	}, nil
}

// playCounts aggregates listen-history entries inside the window, grouped by
// the playlist the track was played from.
func (s *Service) playCounts(ctx context.Context, since time.Time) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$all"}},
		{{Key: "$match", Value: bson.D{
			{Key: "all.playlist", Value: bson.D{{Key: "$exists", Value: true}}},
			{Key: "all.date", Value: bson.D{{Key: "$gte", Value: since}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$all.playlist"},
			{Key: "plays", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.db.Collection(models.HistoriesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate play counts: %w", err)
	}
	defer cursor.Close(ctx)

	type row struct {
		ID    primitive.ObjectID `bson:"_id"`
		Plays int64              `bson:"plays"`
	}

	counts := make(map[primitive.ObjectID]int64)
	for cursor.Next(ctx) {
		var r row
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode play count: %w", err)
		}
		counts[r.ID] = r.Plays
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate play counts: %w", err)
	}
	return counts, nil
}

func score(plays int64, likes, follows int) float64 {
	return playWeight*float64(plays) + likeWeight*float64(likes) + followWeight*float64(follows)
}

// rank sorts by score descending (plays, then name break ties for a stable
// chart), assigns 1-based ranks and truncates to size.
func rank(entries []Entry, size int) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Plays != entries[j].Plays {
			return entries[i].Plays > entries[j].Plays
		}
		return entries[i].Name < entries[j].Name
	})

	if len(entries) > size {
		entries = entries[:size]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
