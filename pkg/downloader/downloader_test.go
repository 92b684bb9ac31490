package downloader

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goprodl/pkg/config"
	"goprodl/pkg/gopro"
	"goprodl/pkg/logger"
	"goprodl/pkg/store"
)

// mediaServer is a fake GoPro cloud serving a fixed media library
type mediaServer struct {
	media     []gopro.MediaItem
	content   map[string]string
	failIDs   map[string]int // media id -> status code for the download endpoint
	perPage   int
	downloads map[string]int // download request counts by media id
}

func newMediaServer(perPage int, items ...gopro.MediaItem) *mediaServer {
	content := make(map[string]string, len(items))
	for _, item := range items {
		content[item.ID] = "content-of-" + item.ID
	}
	return &mediaServer{
		media:     items,
		content:   content,
		failIDs:   make(map[string]int),
		perPage:   perPage,
		downloads: make(map[string]int),
	}
}

func (m *mediaServer) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == gopro.SearchEndpoint:
			m.serveSearch(t, w, r)
		case strings.HasPrefix(r.URL.Path, "/media/") && strings.HasSuffix(r.URL.Path, "/download/source"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/media/"), "/download/source")
			m.serveDownload(w, id)
		default:
			http.NotFound(w, r)
		}
	}
}

func (m *mediaServer) serveSearch(t *testing.T, w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	require.NoError(t, err)

	totalPages := (len(m.media) + m.perPage - 1) / m.perPage
	start := (page - 1) * m.perPage
	end := start + m.perPage
	if start > len(m.media) {
		start = len(m.media)
	}
	if end > len(m.media) {
		end = len(m.media)
	}

	resp := gopro.SearchResponse{
		Embedded: gopro.Embedded{Media: m.media[start:end]},
		Pages: gopro.Pages{
			CurrentPage: page,
			PerPage:     m.perPage,
			TotalItems:  len(m.media),
			TotalPages:  totalPages,
		},
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func (m *mediaServer) serveDownload(w http.ResponseWriter, id string) {
	m.downloads[id]++
	if status, ok := m.failIDs[id]; ok {
		w.WriteHeader(status)
		return
	}
	fmt.Fprint(w, m.content[id])
}

func item(id, capturedAt, filename string) gopro.MediaItem {
	return gopro.MediaItem{
		ID:         id,
		CapturedAt: capturedAt,
		Filename:   filename,
		Type:       "Video",
	}
}

// newTestDownloader wires a Downloader against the fake server with
// everything placed in a temp directory
func newTestDownloader(t *testing.T, server *mediaServer) (*Downloader, *config.Config, *store.Store) {
	t.Helper()

	ts := httptest.NewServer(server.handler(t))
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = ts.URL
	cfg.API.PerPage = server.perPage
	cfg.Output.Directory = filepath.Join(dir, "downloads")
	cfg.Store.Path = filepath.Join(dir, "db.json")

	log := logger.NewTestLogger()
	st, err := store.Open(cfg.Store.Path, log)
	require.NoError(t, err)

	client := gopro.NewClient(ts.URL, 5*time.Second, log)
	return New(cfg, client, st), cfg, st
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestRunDownloadsEverything(t *testing.T) {
	server := newMediaServer(2,
		item("m-1", "2024-07-14T09:15:00Z", "GX010001.MP4"),
		item("m-2", "2024-07-14T10:30:00Z", "GX010002.MP4"),
		item("m-3", "2024-07-15T08:00:00Z", "GOPR0003.JPG"),
	)
	d, cfg, st := newTestDownloader(t, server)

	summary, err := d.Run(gopro.SearchOptions{PerPage: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Listed)
	assert.Equal(t, 3, summary.Downloaded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Positive(t, summary.Bytes)

	// One archive per capture date
	assert.ElementsMatch(t, []string{"GX010001.MP4", "GX010002.MP4"},
		zipEntries(t, filepath.Join(cfg.Output.Directory, "2024-07-14_1_GoPro.zip")))
	assert.ElementsMatch(t, []string{"GOPR0003.JPG"},
		zipEntries(t, filepath.Join(cfg.Output.Directory, "2024-07-15_1_GoPro.zip")))

	assert.Equal(t, 3, st.DoneCount())
}

func TestRerunDownloadsNothing(t *testing.T) {
	server := newMediaServer(30,
		item("m-1", "2024-07-14T09:15:00Z", "GX010001.MP4"),
		item("m-2", "2024-07-15T08:00:00Z", "GOPR0002.JPG"),
	)
	d, cfg, _ := newTestDownloader(t, server)

	_, err := d.Run(gopro.SearchOptions{})
	require.NoError(t, err)

	// Second run over the same library
	summary, err := d.Run(gopro.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Listed)
	assert.Equal(t, 0, summary.Downloaded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, server.downloads["m-1"], "each item downloaded exactly once")
	assert.Equal(t, 1, server.downloads["m-2"])

	// The second run creates no new archives
	entries, err := os.ReadDir(cfg.Output.Directory)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestResumeAfterDeletedStore(t *testing.T) {
	server := newMediaServer(30, item("m-1", "2024-07-14T09:15:00Z", "GX010001.MP4"))
	d, cfg, _ := newTestDownloader(t, server)

	_, err := d.Run(gopro.SearchOptions{})
	require.NoError(t, err)

	// Deleting the store resets all dedup state
	require.NoError(t, os.Remove(cfg.Store.Path))
	fresh, err := store.Open(cfg.Store.Path, logger.NewTestLogger())
	require.NoError(t, err)

	client := gopro.NewClient(cfg.API.BaseURL, 5*time.Second, logger.NewTestLogger())
	summary, err := New(cfg, client, fresh).Run(gopro.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 2, server.downloads["m-1"])
}

func TestPerItemFailureContinues(t *testing.T) {
	server := newMediaServer(30,
		item("m-1", "2024-07-14T09:15:00Z", "GX010001.MP4"),
		item("m-2", "2024-07-14T10:30:00Z", "GX010002.MP4"),
		item("m-3", "2024-07-15T08:00:00Z", "GOPR0003.JPG"),
	)
	server.failIDs["m-2"] = http.StatusInternalServerError

	d, cfg, st := newTestDownloader(t, server)

	summary, err := d.Run(gopro.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Listed)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)

	// The failed item stays pending for the next run
	assert.False(t, st.Has("m-2"))
	assert.True(t, st.Has("m-1"))
	assert.True(t, st.Has("m-3"))

	// The failed item leaves no trace in its date's archive
	assert.ElementsMatch(t, []string{"GX010001.MP4"},
		zipEntries(t, filepath.Join(cfg.Output.Directory, "2024-07-14_1_GoPro.zip")))
}

func TestFailedItemRetriedOnNextRun(t *testing.T) {
	server := newMediaServer(30, item("m-1", "2024-07-14T09:15:00Z", "GX010001.MP4"))
	server.failIDs["m-1"] = http.StatusInternalServerError

	d, cfg, st := newTestDownloader(t, server)

	summary, err := d.Run(gopro.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	// A run whose only item failed creates no archive at all
	entries, err := os.ReadDir(cfg.Output.Directory)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The server recovers; the next run picks the item up again
	delete(server.failIDs, "m-1")

	summary, err = d.Run(gopro.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Downloaded)
	assert.True(t, st.Has("m-1"))

	// The item lives in exactly one archive
	entries, err = os.ReadDir(cfg.Output.Directory)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.ElementsMatch(t, []string{"GX010001.MP4"},
		zipEntries(t, filepath.Join(cfg.Output.Directory, "2024-07-14_1_GoPro.zip")))
}

func TestAuthFailureAbortsRun(t *testing.T) {
	server := newMediaServer(30,
		item("m-1", "2024-07-14T09:15:00Z", "GX010001.MP4"),
		item("m-2", "2024-07-14T10:30:00Z", "GX010002.MP4"),
	)
	server.failIDs["m-1"] = http.StatusUnauthorized

	d, _, _ := newTestDownloader(t, server)

	_, err := d.Run(gopro.SearchOptions{})
	require.Error(t, err)
	assert.True(t, gopro.IsFatal(err))
	assert.Equal(t, 0, server.downloads["m-2"], "run aborts before later items")
}

func TestEmptyLibrary(t *testing.T) {
	server := newMediaServer(30)
	d, cfg, _ := newTestDownloader(t, server)

	summary, err := d.Run(gopro.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Listed)

	// No archives for an empty run
	entries, err := os.ReadDir(cfg.Output.Directory)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGroupByCaptureDay(t *testing.T) {
	items := []gopro.MediaItem{
		item("m-1", "2024-07-14T09:15:00Z", "a.mp4"),
		item("m-2", "2024-07-15T08:00:00Z", "b.mp4"),
		item("m-3", "2024-07-14T23:59:59Z", "c.mp4"),
	}

	buckets := groupByCaptureDay(items)
	require.Len(t, buckets, 2)
	assert.Len(t, buckets["2024-07-14"], 2)
	assert.Len(t, buckets["2024-07-15"], 1)
}
