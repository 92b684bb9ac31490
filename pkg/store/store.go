// Package store persists which media items have already been downloaded,
// so re-runs skip them. The store is a single JSON document keyed by media
// id; deleting the file resets all state.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"goprodl/pkg/logger"
)

// Status is the download state of a media item
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Record tracks the download state of one media item
type Record struct {
	MediaID    string    `json:"media_id"`
	Status     Status    `json:"status"`
	DateBucket string    `json:"date_bucket"`
	MarkedAt   time.Time `json:"marked_at,omitempty"`
}

// document is the on-disk shape of the store
type document struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Records   map[string]Record `json:"records"`
}

// Store is a local JSON document store of download records
type Store struct {
	path   string
	doc    document
	logger logger.Logger
}

// Open loads the store at path, creating an empty one in memory if the file
// does not exist yet. The file itself is only written on the first MarkDone.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Store{
		path:   path,
		logger: log,
		doc: document{
			Version: 1,
			Records: make(map[string]Record),
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	if s.doc.Records == nil {
		s.doc.Records = make(map[string]Record)
	}

	log.InfoWithFields("dedup store loaded", map[string]interface{}{
		"path":    path,
		"records": len(s.doc.Records),
		"done":    s.DoneCount(),
	})

	return s, nil
}

// Path returns the store file path
func (s *Store) Path() string {
	return s.path
}

// Has reports whether the media item has already been downloaded
func (s *Store) Has(mediaID string) bool {
	rec, ok := s.doc.Records[mediaID]
	return ok && rec.Status == StatusDone
}

// Record creates a pending record on first sighting of a media item.
// Existing records are left untouched. Pending records live in memory only;
// the document is written when a MarkDone persists it.
func (s *Store) Record(mediaID, dateBucket string) {
	if _, ok := s.doc.Records[mediaID]; ok {
		return
	}
	s.doc.Records[mediaID] = Record{
		MediaID:    mediaID,
		Status:     StatusPending,
		DateBucket: dateBucket,
	}
}

// MarkDone marks a media item as downloaded and persists the store
func (s *Store) MarkDone(mediaID, dateBucket string) error {
	s.doc.Records[mediaID] = Record{
		MediaID:    mediaID,
		Status:     StatusDone,
		DateBucket: dateBucket,
		MarkedAt:   time.Now(),
	}

	if err := s.save(); err != nil {
		return fmt.Errorf("failed to persist store: %w", err)
	}

	s.logger.DebugWithFields("media marked done", map[string]interface{}{
		"media_id":    mediaID,
		"date_bucket": dateBucket,
	})

	return nil
}

// IDsByBucket returns the downloaded media ids for a date bucket, sorted
func (s *Store) IDsByBucket(dateBucket string) []string {
	var ids []string
	for id, rec := range s.doc.Records {
		if rec.DateBucket == dateBucket && rec.Status == StatusDone {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the total number of records
func (s *Store) Len() int {
	return len(s.doc.Records)
}

// DoneCount returns the number of records marked done
func (s *Store) DoneCount() int {
	n := 0
	for _, rec := range s.doc.Records {
		if rec.Status == StatusDone {
			n++
		}
	}
	return n
}

// save writes the store to disk atomically
func (s *Store) save() error {
	s.doc.UpdatedAt = time.Now()

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.doc); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode store: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync store file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close store file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	return nil
}
