package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherNoBrokers(t *testing.T) {
	p := NewPublisher(nil, "playlist-events")
	assert.Nil(t, p)
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher

	require.NotPanics(t, func() {
		p.Publish(context.Background(), EventTypePlaylistCreated, "abc", map[string]any{"k": "v"})
	})
	assert.NoError(t, p.Close())
}
