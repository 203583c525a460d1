package download

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moocmirror/mooc-mirror/internal/config"
	"github.com/moocmirror/mooc-mirror/internal/fetch"
	"github.com/moocmirror/mooc-mirror/internal/ledger"
	"github.com/moocmirror/mooc-mirror/internal/model"
)

// fileDownloader is the transfer primitive the scheduler drives. The
// HTTP client implements it; tests substitute a fake.
type fileDownloader interface {
	Download(ctx context.Context, url, destPath string, offset int64, onProgress func(written, total int64)) (size int64, resumed bool, err error)
}

// Scheduler executes a manifest: a bounded worker pool claims entries in
// manifest order, each exactly once, and records every outcome in the
// ledger. Entry failures never abort the run; only cancellation does.
type Scheduler struct {
	settings *config.Settings
	client   fileDownloader
	external *External
	ledger   *ledger.Ledger

	receivedBytes int64
	totalFiles    int32
	doneFiles     int32

	onProgress func(ProgressEvent)
}

// NewScheduler creates a Scheduler writing outcomes to l.
func NewScheduler(settings *config.Settings, client fileDownloader, l *ledger.Ledger, onProgress func(ProgressEvent)) *Scheduler {
	s := &Scheduler{
		settings:   settings,
		client:     client,
		ledger:     l,
		onProgress: onProgress,
	}
	if settings.ExternalDownloader != "" {
		s.external = &External{
			Tool:      settings.ExternalDownloader,
			Cookie:    settings.CookieHeader,
			UserAgent: settings.UserAgent,
		}
	}
	return s
}

// Progress returns current transfer counters for display.
func (s *Scheduler) Progress() (receivedBytes int64, filesDone, filesTotal int32) {
	return atomic.LoadInt64(&s.receivedBytes),
		atomic.LoadInt32(&s.doneFiles), atomic.LoadInt32(&s.totalFiles)
}

// Run downloads every entry in the manifest. Link entries are
// materialized after all transfers finish, so their targets exist by
// then. The returned error is non-nil only when the run was cancelled.
func (s *Scheduler) Run(ctx context.Context, entries []model.ManifestEntry) error {
	var transfers, links []model.ManifestEntry
	for _, entry := range entries {
		if entry.LinkTo != "" {
			links = append(links, entry)
		} else {
			transfers = append(transfers, entry)
		}
	}
	atomic.StoreInt32(&s.totalFiles, int32(len(transfers)))

	queue := make(chan model.ManifestEntry)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for _, entry := range transfers {
			select {
			case queue <- entry:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	workers := s.settings.Parallelism
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for entry := range queue {
				if err := s.execute(ctx, entry); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()

	for _, link := range links {
		s.materializeLink(link)
	}
	return err
}

// execute runs one manifest entry to a terminal ledger status. It
// returns an error only on cancellation; ordinary failures are recorded
// and the run moves on.
func (s *Scheduler) execute(ctx context.Context, entry model.ManifestEntry) error {
	if s.settings.DownloadDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(s.settings.DownloadDelay * float64(time.Second))):
		}
	}

	key := entry.IdempotencyKey
	dest := entry.TargetPath
	name := filepath.Base(dest)

	if s.ledger.Completed(key) && !s.settings.Overwrite {
		s.ledger.MarkSkipped(key, dest, entry.Section, entry.Item)
		s.progress(ProgressEvent{Message: fmt.Sprintf("Already downloaded: %s", name), Level: LevelVerbose})
		atomic.AddInt32(&s.doneFiles, 1)
		return nil
	}

	var offset int64
	if info, err := os.Stat(dest); err == nil {
		switch {
		case s.settings.Resume:
			offset = info.Size()
		case s.settings.Overwrite:
			// Restart from zero.
		default:
			s.ledger.MarkSkipped(key, dest, entry.Section, entry.Item)
			s.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", name), Level: LevelVerbose})
			atomic.AddInt32(&s.doneFiles, 1)
			return nil
		}
	}

	// Begin first so any failure below still carries the section/item
	// context into the report.
	s.ledger.Begin(key, dest, entry.Section, entry.Item)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		s.ledger.MarkFailed(key, 0, err.Error())
		s.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory for %s: %v", name, err), Level: LevelError})
		return nil
	}

	if entry.Fetch.Inline != nil {
		if err := os.WriteFile(dest, entry.Fetch.Inline, 0644); err != nil {
			s.ledger.MarkFailed(key, 0, err.Error())
			s.progress(ProgressEvent{Message: fmt.Sprintf("Error writing %s: %v", name, err), Level: LevelError})
			return nil
		}
		s.ledger.MarkComplete(key, int64(len(entry.Fetch.Inline)))
		atomic.AddInt32(&s.doneFiles, 1)
		s.progress(ProgressEvent{Message: fmt.Sprintf("Saved: %s", name), Level: LevelVerbose})
		return nil
	}

	size, resumed, err := s.transfer(ctx, entry, dest, offset)
	if err != nil {
		s.ledger.MarkFailed(key, fileSize(dest), err.Error())
		if ctx.Err() != nil {
			// Cancelled mid-transfer. Without resume mode a partial file
			// is useless, so remove it.
			if !s.settings.Resume {
				os.Remove(dest)
			}
			return ctx.Err()
		}
		s.progress(ProgressEvent{Message: fmt.Sprintf("Failed: %s: %v", name, err), Level: LevelError})
		return nil
	}

	s.ledger.MarkComplete(key, size)
	atomic.AddInt32(&s.doneFiles, 1)
	if resumed {
		s.progress(ProgressEvent{Message: fmt.Sprintf("Resumed and finished: %s", name), Level: LevelVerbose})
	} else {
		s.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", name), Level: LevelVerbose})
	}
	return nil
}

// transfer moves the bytes, retrying transient failures with exponential
// backoff. Permanently denied resources get no retries; the server's
// answer will not change.
func (s *Scheduler) transfer(ctx context.Context, entry model.ManifestEntry, dest string, offset int64) (size int64, resumed bool, err error) {
	if s.external != nil {
		err = s.external.Download(ctx, entry.Fetch.URL, dest)
		return fileSize(dest), false, err
	}

	var prev int64
	onProgress := func(written, total int64) {
		atomic.AddInt64(&s.receivedBytes, written-prev)
		prev = written
	}

	for tries := 0; ; tries++ {
		prev = offset
		size, resumed, err = s.client.Download(ctx, entry.Fetch.URL, dest, offset, onProgress)
		if err == nil || ctx.Err() != nil || fetch.IsPermanent(err) {
			return size, resumed, err
		}
		if tries >= s.settings.DownloadMaxRetries {
			return size, resumed, err
		}
		s.progress(ProgressEvent{
			Message: fmt.Sprintf("Retry %d/%d for %s", tries+1, s.settings.DownloadMaxRetries, filepath.Base(dest)),
			Level:   LevelWarning,
		})
		s.waitForRetry(ctx, tries)
		if s.settings.Resume {
			offset = fileSize(dest)
		}
	}
}

// materializeLink creates the duplicate-resource alias once its target
// exists. Hard link first, byte copy when linking is not possible.
func (s *Scheduler) materializeLink(entry model.ManifestEntry) {
	key := entry.IdempotencyKey
	if !s.ledger.Completed(key) {
		// The canonical copy never arrived; nothing to link to.
		return
	}
	if _, err := os.Stat(entry.TargetPath); err == nil && !s.settings.Overwrite {
		return
	}
	if err := os.MkdirAll(filepath.Dir(entry.TargetPath), 0755); err != nil {
		s.progress(ProgressEvent{Message: fmt.Sprintf("Error linking %s: %v", entry.TargetPath, err), Level: LevelWarning})
		return
	}

	os.Remove(entry.TargetPath)
	if err := os.Link(entry.LinkTo, entry.TargetPath); err != nil {
		if copyErr := copyFile(entry.LinkTo, entry.TargetPath); copyErr != nil {
			s.progress(ProgressEvent{Message: fmt.Sprintf("Error linking %s: %v", entry.TargetPath, copyErr), Level: LevelWarning})
			return
		}
	}
	s.progress(ProgressEvent{Message: fmt.Sprintf("Linked duplicate: %s", filepath.Base(entry.TargetPath)), Level: LevelVerbose})
}

func (s *Scheduler) waitForRetry(ctx context.Context, tries int) {
	cooldown := s.settings.DownloadRetryCooldown * math.Pow(s.settings.DownloadRetryExponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
	}
}

func (s *Scheduler) progress(event ProgressEvent) {
	if s.onProgress != nil {
		s.onProgress(event)
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
