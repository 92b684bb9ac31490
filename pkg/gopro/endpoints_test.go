package gopro

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaTypeFilter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "all types",
			input:    "all",
			expected: "Burst,BurstVideo,Continuous,LoopedVideo,Photo,TimeLapse,TimeLapseVideo,Video",
		},
		{
			name:     "empty defaults to all",
			input:    "",
			expected: "Burst,BurstVideo,Continuous,LoopedVideo,Photo,TimeLapse,TimeLapseVideo,Video",
		},
		{
			name:     "videos",
			input:    "Videos",
			expected: "Video,BurstVideo,TimeLapse,TimeLapseVideo,LoopedVideo",
		},
		{
			name:     "photos",
			input:    "Photos",
			expected: "Photo,Burst",
		},
		{
			name:     "case insensitive",
			input:    "PHOTOS",
			expected: "Photo,Burst",
		},
		{
			name:    "unknown type",
			input:   "music",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MediaTypeFilter(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSearchURL(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		raw := SearchURL("https://api.gopro.com", SearchOptions{}, 1)

		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "/media/search", parsed.Path)

		params := parsed.Query()
		assert.Equal(t, "1", params.Get("page"))
		assert.Equal(t, "30", params.Get("per_page"))
		assert.Equal(t, "rendering,pretranscoding,transcoding,ready", params.Get("processing_states"))
		assert.Contains(t, params.Get("fields"), "captured_at")
		assert.Contains(t, params.Get("type"), "Video")
		assert.Empty(t, params.Get("range"))
	})

	t.Run("custom options", func(t *testing.T) {
		opts := SearchOptions{
			DateRange:  "2024-07-01,2024-07-31",
			MediaTypes: "Photo,Burst",
			PerPage:    100,
		}
		raw := SearchURL("https://api.gopro.com", opts, 3)

		parsed, err := url.Parse(raw)
		require.NoError(t, err)

		params := parsed.Query()
		assert.Equal(t, "3", params.Get("page"))
		assert.Equal(t, "100", params.Get("per_page"))
		assert.Equal(t, "Photo,Burst", params.Get("type"))
		assert.Equal(t, "2024-07-01,2024-07-31", params.Get("range"))
	})
}

func TestSourceURL(t *testing.T) {
	assert.Equal(t,
		"https://api.gopro.com/media/abc123/download/source",
		SourceURL("https://api.gopro.com", "abc123"))
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{
			name:      "valid range",
			input:     "2024-07-01,2024-07-31",
			wantStart: "2024-07-01",
			wantEnd:   "2024-07-31",
		},
		{
			name:      "single day range",
			input:     "2024-07-01,2024-07-01",
			wantStart: "2024-07-01",
			wantEnd:   "2024-07-01",
		},
		{
			name:    "start after end",
			input:   "2024-08-01,2024-07-01",
			wantErr: true,
		},
		{
			name:    "wrong format",
			input:   "2024/07/01,2024/07/31",
			wantErr: true,
		},
		{
			name:    "missing end date",
			input:   "2024-07-01",
			wantErr: true,
		},
		{
			name:    "impossible calendar date",
			input:   "2024-13-01,2024-13-31",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseDateRange(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start.Format(time.DateOnly))
			assert.Equal(t, tt.wantEnd, end.Format(time.DateOnly))
		})
	}
}
