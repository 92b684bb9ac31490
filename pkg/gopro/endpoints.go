package gopro

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the base URL for the GoPro Plus cloud API
	DefaultBaseURL = "https://api.gopro.com"

	// SearchEndpoint is the endpoint for paginated media search
	SearchEndpoint = "/media/search"

	// SearchAccept is the versioned media type the search endpoint requires
	SearchAccept = "application/vnd.gopro.jk.media.search+json; version=2.0.0"

	// processingStates restricts results to items that are actually fetchable
	processingStates = "rendering,pretranscoding,transcoding,ready"

	// searchFields is the field list requested from the search endpoint
	searchFields = "captured_at,content_type,created_at,filename,file_extension,file_size,id,type"

	// DefaultPerPage is the default number of items requested per page
	DefaultPerPage = 30
)

// Vendor media type sets behind the CLI-level media type names.
const (
	allTypes   = "Burst,BurstVideo,Continuous,LoopedVideo,Photo,TimeLapse,TimeLapseVideo,Video"
	videoTypes = "Video,BurstVideo,TimeLapse,TimeLapseVideo,LoopedVideo"
	photoTypes = "Photo,Burst"
)

// MediaTypeFilter maps a CLI media type name to the vendor's type list
func MediaTypeFilter(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "all":
		return allTypes, nil
	case "videos":
		return videoTypes, nil
	case "photos":
		return photoTypes, nil
	default:
		return "", fmt.Errorf("unknown media type %q (expected Videos, Photos or all)", name)
	}
}

// SearchOptions describes one media search
type SearchOptions struct {
	// DateRange in the form "YYYY-MM-DD,YYYY-MM-DD", empty for no filter
	DateRange string

	// MediaTypes is the vendor type list, as produced by MediaTypeFilter
	MediaTypes string

	// PerPage is the page size; DefaultPerPage when zero
	PerPage int
}

// SearchURL constructs the URL for one page of a media search
func SearchURL(baseURL string, opts SearchOptions, page int) string {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	mediaTypes := opts.MediaTypes
	if mediaTypes == "" {
		mediaTypes = allTypes
	}

	params := url.Values{}
	params.Set("processing_states", processingStates)
	params.Set("fields", searchFields)
	params.Set("type", mediaTypes)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	if opts.DateRange != "" {
		params.Set("range", opts.DateRange)
	}

	return fmt.Sprintf("%s%s?%s", baseURL, SearchEndpoint, params.Encode())
}

// SourceURL constructs the download URL for a single media item
func SourceURL(baseURL, mediaID string) string {
	return fmt.Sprintf("%s/media/%s/download/source", baseURL, mediaID)
}

var dateRangePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2},\d{4}-\d{2}-\d{2}$`)

// ParseDateRange validates a "YYYY-MM-DD,YYYY-MM-DD" date range string and
// returns its bounds. Both endpoints are inclusive and the start must not be
// after the end.
func ParseDateRange(s string) (start, end time.Time, err error) {
	if !dateRangePattern.MatchString(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date range %q (expected YYYY-MM-DD,YYYY-MM-DD)", s)
	}

	startStr, endStr, _ := strings.Cut(s, ",")
	start, err = time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
	}
	end, err = time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", startStr, endStr)
	}

	return start, end, nil
}
