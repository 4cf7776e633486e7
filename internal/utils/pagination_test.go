package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name      string
		limit     string
		page      string
		wantLimit int64
		wantSkip  int64
	}{
		{"defaults", "", "", 20, 0},
		{"explicit", "10", "3", 10, 30},
		{"limit capped", "500", "0", 20, 0},
		{"negative page", "10", "-2", 10, 0},
		{"garbage input", "abc", "xyz", 20, 0},
		{"zero limit", "0", "1", 20, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePagination(tt.limit, tt.page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantSkip, p.Skip)
		})
	}
}
