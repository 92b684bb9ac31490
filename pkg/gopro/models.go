package gopro

import "strings"

// SearchResponse represents the top-level response from the media search API
type SearchResponse struct {
	Embedded Embedded `json:"_embedded"`
	Pages    Pages    `json:"_pages"`
}

// Embedded wraps the media list in the response
type Embedded struct {
	Media []MediaItem `json:"media"`
}

// Pages contains pagination information
type Pages struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// MediaItem represents a single photo or video in the GoPro cloud
type MediaItem struct {
	ID            string `json:"id"`
	CapturedAt    string `json:"captured_at"`
	Filename      string `json:"filename"`
	FileExtension string `json:"file_extension"`
	FileSize      int64  `json:"file_size"`
	Type          string `json:"type"`
}

// CapturedDay returns the date part of the capture timestamp (YYYY-MM-DD).
// Capture timestamps arrive as RFC3339 strings; the day is the grouping key
// for archives.
func (m MediaItem) CapturedDay() string {
	day, _, _ := strings.Cut(m.CapturedAt, "T")
	return day
}

// ArchiveName returns the name the item gets inside a ZIP archive
func (m MediaItem) ArchiveName() string {
	if m.Filename != "" {
		return m.Filename
	}
	if m.FileExtension != "" {
		return m.ID + "." + strings.ToLower(m.FileExtension)
	}
	return m.ID
}
