package charts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, score(0, 0, 0))
	assert.Equal(t, 10.0, score(10, 0, 0))
	assert.Equal(t, 3.0, score(0, 1, 0))
	assert.Equal(t, 5.0, score(0, 0, 1))
	// 12 plays + 4 likes + 2 follows = 12 + 12 + 10
	assert.Equal(t, 34.0, score(12, 4, 2))
}

func TestRankOrdersByScore(t *testing.T) {
	entries := []Entry{
		{Name: "low", Score: 5},
		{Name: "high", Score: 50},
		{Name: "mid", Score: 20},
	}

	ranked := rank(entries, 50)

	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].Name)
	assert.Equal(t, "mid", ranked[1].Name)
	assert.Equal(t, "low", ranked[2].Name)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, 3, ranked[2].Rank)
}

func TestRankTieBreaks(t *testing.T) {
	entries := []Entry{
		{Name: "beta", Score: 10, Plays: 2},
		{Name: "alpha", Score: 10, Plays: 2},
		{Name: "gamma", Score: 10, Plays: 7},
	}

	ranked := rank(entries, 50)

	// Equal score: more plays first, then name.
	assert.Equal(t, "gamma", ranked[0].Name)
	assert.Equal(t, "alpha", ranked[1].Name)
	assert.Equal(t, "beta", ranked[2].Name)
}

func TestRankTruncates(t *testing.T) {
	entries := make([]Entry, 10)
	for i := range entries {
		entries[i] = Entry{Name: "pl", Score: float64(i)}
	}

	ranked := rank(entries, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, 9.0, ranked[0].Score)
	assert.Equal(t, 3, ranked[2].Rank)
}

func TestCurrentServesCachedSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// db stays nil: a cache hit must never reach Mongo.
	svc := NewService(nil, cache, 7, 50, 900)

	want := &Snapshot{
		GeneratedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		WindowDays:  7,
		Entries: []Entry{
			{PlaylistID: "656e0000000000000000aaaa", Name: "Top Mix", Score: 42, Rank: 1},
		},
	}
	raw, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, mr.Set("charts:playlists:7d", string(raw)))

	got, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.WindowDays, got.WindowDays)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Top Mix", got.Entries[0].Name)
	assert.Equal(t, 42.0, got.Entries[0].Score)
}

func TestCacheKeyEncodesWindow(t *testing.T) {
	svc := NewService(nil, nil, 30, 50, 900)
	assert.Equal(t, "charts:playlists:30d", svc.cacheKey())
}
