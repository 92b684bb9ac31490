// Package downloader orchestrates one run: list media page by page, bucket
// by capture date, skip what the dedup store already has, stream the rest
// into per-date ZIP archives and mark them done.
package downloader

import (
	"fmt"
	"io"
	"sort"

	"goprodl/pkg/archive"
	"goprodl/pkg/config"
	"goprodl/pkg/gopro"
	"goprodl/pkg/logger"
	"goprodl/pkg/store"
)

// Downloader drives the sequential download of pending media
type Downloader struct {
	client *gopro.Client
	store  *store.Store
	config *config.Config
	logger logger.Logger
}

// Summary reports what one run did
type Summary struct {
	Listed     int
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
}

// New creates a Downloader
func New(cfg *config.Config, client *gopro.Client, st *store.Store) *Downloader {
	return &Downloader{
		client: client,
		store:  st,
		config: cfg,
		logger: logger.GetLogger(),
	}
}

// Run lists all media matching opts and downloads everything the dedup store
// does not already have. Processing is sequential: one request in flight at
// a time. A listing or auth failure aborts; a single item's failure is
// logged, counted and skipped, leaving the item pending for the next run.
func (d *Downloader) Run(opts gopro.SearchOptions) (Summary, error) {
	var summary Summary

	archives, err := archive.NewSet(d.config.Output.Directory, d.config.Output.ArchiveSuffix, d.logger)
	if err != nil {
		return summary, fmt.Errorf("failed to prepare output directory: %w", err)
	}
	defer func() {
		if err := archives.Close(); err != nil {
			d.logger.WithError(err).Warn("failed to finalize archives")
		}
	}()

	pager := gopro.NewPager(d.client, opts)
	page := 0
	for pager.HasNext() {
		items, err := pager.Next()
		if err != nil {
			return summary, fmt.Errorf("listing media failed: %w", err)
		}
		if len(items) == 0 {
			break
		}
		page++

		d.logger.InfoWithFields("processing page", map[string]interface{}{
			"page":  page,
			"items": len(items),
		})

		summary.Listed += len(items)
		if err := d.processPage(items, archives, &summary); err != nil {
			return summary, err
		}
	}

	d.logger.InfoWithFields("run finished", map[string]interface{}{
		"listed":     summary.Listed,
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
		"bytes":      summary.Bytes,
	})

	return summary, nil
}

// processPage buckets one page of items by capture day and downloads the
// pending ones, bucket by bucket in date order. Auth errors abort the run;
// anything else is per-item.
func (d *Downloader) processPage(items []gopro.MediaItem, archives *archive.Set, summary *Summary) error {
	buckets := groupByCaptureDay(items)

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		for _, item := range buckets[day] {
			d.store.Record(item.ID, day)

			if d.store.Has(item.ID) {
				summary.Skipped++
				d.logger.DebugWithFields("skipping already downloaded media", map[string]interface{}{
					"media_id":    item.ID,
					"date_bucket": day,
				})
				continue
			}

			written, err := d.downloadItem(item, day, archives)
			if err != nil {
				if gopro.IsFatal(err) {
					return fmt.Errorf("downloading media %s failed: %w", item.ID, err)
				}
				summary.Failed++
				d.logger.ErrorWithFields("media download failed, will retry on next run", map[string]interface{}{
					"media_id":    item.ID,
					"date_bucket": day,
					"error":       err.Error(),
				})
				continue
			}

			if err := d.store.MarkDone(item.ID, day); err != nil {
				// The bytes are in the archive; losing the record only costs
				// a duplicate download on the next run, so keep going.
				d.logger.WithError(err).WithField("media_id", item.ID).Warn("failed to record download")
			}

			summary.Downloaded++
			summary.Bytes += written
		}
	}

	return nil
}

// downloadItem fetches one media item and adds it to its date bucket's
// archive. The archive only gets the entry when the download succeeds.
func (d *Downloader) downloadItem(item gopro.MediaItem, day string, archives *archive.Set) (int64, error) {
	d.logger.InfoWithFields("downloading media", map[string]interface{}{
		"media_id":    item.ID,
		"filename":    item.ArchiveName(),
		"date_bucket": day,
		"size":        item.FileSize,
	})

	var written int64
	err := archives.AddFunc(day, item.ArchiveName(), func(w io.Writer) error {
		var err error
		written, err = d.client.DownloadSource(item.ID, w, d.config.Download.ChunkSize)
		return err
	})
	if err != nil {
		return written, err
	}

	return written, nil
}

// groupByCaptureDay buckets media items by the date part of captured_at
func groupByCaptureDay(items []gopro.MediaItem) map[string][]gopro.MediaItem {
	buckets := make(map[string][]gopro.MediaItem)
	for _, item := range items {
		day := item.CapturedDay()
		buckets[day] = append(buckets[day], item)
	}
	return buckets
}
