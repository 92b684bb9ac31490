// Package archive writes per-date ZIP archives. Each capture date owns one
// archive per run, created lazily on the first item of that date.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"goprodl/pkg/logger"
)

// Set manages the ZIP archives of one run, one per date bucket
type Set struct {
	dir    string
	suffix string
	open   map[string]*bucketArchive
	logger logger.Logger
}

type bucketArchive struct {
	path    string
	file    *os.File
	writer  *zip.Writer
	entries int
}

// NewSet creates an archive set writing into dir. Archives are named
// "<bucket>_<n>_<suffix>.zip" where n keeps names unique across runs.
func NewSet(dir, suffix string, log logger.Logger) (*Set, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Set{
		dir:    dir,
		suffix: suffix,
		open:   make(map[string]*bucketArchive),
		logger: log,
	}, nil
}

// Dir returns the output directory
func (s *Set) Dir() string {
	return s.dir
}

// Path returns the archive path for a bucket, or "" if no item of that
// bucket has been added yet
func (s *Set) Path(bucket string) string {
	if a, ok := s.open[bucket]; ok {
		return a.path
	}
	return ""
}

// Add streams one file into the bucket's archive, creating the archive if
// this is the bucket's first item. The copy uses a fixed-size buffer of
// chunkSize bytes.
func (s *Set) Add(bucket, name string, r io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = 8192
	}

	a, err := s.archiveFor(bucket)
	if err != nil {
		return 0, err
	}

	w, err := a.writer.Create(name)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}

	written, err := io.CopyBuffer(w, r, make([]byte, chunkSize))
	if err != nil {
		return written, fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	a.entries++

	return written, nil
}

// AddFunc stages one entry through a temporary file and adds it to the
// bucket's archive only after fill succeeds. A failed fill leaves the
// archive untouched: no entry, and no archive at all if the bucket had no
// other items.
func (s *Set) AddFunc(bucket, name string, fill func(w io.Writer) error) error {
	spool, err := os.CreateTemp(s.dir, ".staging-*")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	if err := fill(spool); err != nil {
		return err
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind staging file for %s: %w", name, err)
	}

	_, err = s.Add(bucket, name, spool, 0)
	return err
}

// archiveFor returns the open archive for a bucket, creating it lazily
func (s *Set) archiveFor(bucket string) (*bucketArchive, error) {
	if a, ok := s.open[bucket]; ok {
		return a, nil
	}

	path := s.nextPath(bucket)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive %s: %w", path, err)
	}

	a := &bucketArchive{
		path:   path,
		file:   file,
		writer: zip.NewWriter(file),
	}
	s.open[bucket] = a

	s.logger.InfoWithFields("archive created", map[string]interface{}{
		"date_bucket": bucket,
		"path":        path,
	})

	return a, nil
}

// nextPath picks the first unused archive name for a bucket. Earlier runs
// keep their archives, so the counter walks until a free name is found.
func (s *Set) nextPath(bucket string) string {
	counter := 1
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%d_%s.zip", bucket, counter, s.suffix))
	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		counter++
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d_%s.zip", bucket, counter, s.suffix))
	}
}

// Close finalizes all open archives. The set cannot be used afterwards.
func (s *Set) Close() error {
	var firstErr error
	for bucket, a := range s.open {
		if err := a.writer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to finalize archive %s: %w", a.path, err)
		}
		if err := a.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close archive %s: %w", a.path, err)
		}
		s.logger.InfoWithFields("archive finalized", map[string]interface{}{
			"date_bucket": bucket,
			"path":        a.path,
			"entries":     a.entries,
		})
		delete(s.open, bucket)
	}
	return firstErr
}
