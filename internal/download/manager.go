package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/moocmirror/mooc-mirror/internal/assets"
	"github.com/moocmirror/mooc-mirror/internal/cache"
	"github.com/moocmirror/mooc-mirror/internal/config"
	"github.com/moocmirror/mooc-mirror/internal/fetch"
	"github.com/moocmirror/mooc-mirror/internal/ledger"
	"github.com/moocmirror/mooc-mirror/internal/model"
	"github.com/moocmirror/mooc-mirror/internal/playlist"
	"github.com/moocmirror/mooc-mirror/internal/resolve"
	"github.com/moocmirror/mooc-mirror/internal/syllabus"
)

// Manager coordinates course mirroring: syllabus fetch, normalization,
// resolution, scheduling and post-processing for one course at a time.
type Manager struct {
	settings *config.Settings
	client   *fetch.Client
	cache    *cache.Store
	images   *assets.ImageService
	log      zerolog.Logger

	scheduler *Scheduler

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, log zerolog.Logger, onProgress func(ProgressEvent)) *Manager {
	opts := []fetch.Option{fetch.WithUserAgent(settings.UserAgent)}
	if settings.CookieHeader != "" {
		opts = append(opts, fetch.WithCookie(settings.CookieHeader))
	}
	if settings.RequestTimeout > 0 {
		opts = append(opts, fetch.WithTimeout(time.Duration(settings.RequestTimeout*float64(time.Second))))
	}

	return &Manager{
		settings:   settings,
		client:     fetch.NewClient(opts...),
		cache:      cache.NewStore(settings.CacheDir),
		images:     assets.NewImageService(),
		log:        log,
		onProgress: onProgress,
	}
}

// Progress returns the live transfer counters of the current run, or
// zeros when no run is active.
func (m *Manager) Progress() (receivedBytes int64, filesDone, filesTotal int32) {
	if m.scheduler == nil {
		return 0, 0, 0
	}
	return m.scheduler.Progress()
}

// RunSummary is the end-of-run report for one course.
type RunSummary struct {
	Course string
	Report *ledger.Report

	// ResolutionErrors are syllabus nodes that could not be turned into
	// manifest entries. Each carries its course/section/item path and
	// cause.
	ResolutionErrors []*model.ResolutionError

	// LockedCount is how many items stayed locked and were listed
	// without being scheduled.
	LockedCount int
}

// Plan resolves a course to its manifest without downloading anything.
func (m *Manager) Plan(ctx context.Context, course config.Course) (*model.CourseNode, *resolve.Result, error) {
	effective := course.Merge(m.settings)
	return m.resolveCourse(ctx, course, effective)
}

// Mirror downloads one course. Entry failures are collected in the
// summary; the returned error is set only when the course could not be
// started at all (syllabus unavailable, structure unrecognizable) or the
// run was cancelled.
func (m *Manager) Mirror(ctx context.Context, course config.Course) (*RunSummary, error) {
	effective := course.Merge(m.settings)

	root, result, err := m.resolveCourse(ctx, course, effective)
	if err != nil {
		return nil, err
	}
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Resolved %s: %d files in %d items", root.Title, len(result.Entries), root.CountItems()),
		Level:   LevelInfo,
	})

	ledgerPath := filepath.Join(effective.LedgerDir, course.ID+".json")
	led, err := ledger.Load(root.Title, ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("load ledger for %s: %w", course.ID, err)
	}

	m.scheduler = NewScheduler(effective, m.client, led, m.onProgress)
	runErr := m.scheduler.Run(ctx, result.Entries)

	if err := led.Flush(); err != nil {
		m.log.Warn().Err(err).Str("course", course.ID).Msg("could not persist ledger")
	}

	if runErr == nil {
		m.postProcess(ctx, effective, result.Entries, led)
	}

	summary := &RunSummary{
		Course:           root.Title,
		Report:           led.Report(),
		ResolutionErrors: result.Errors,
		LockedCount:      result.LockedCount,
	}
	return summary, runErr
}

// MirrorAll runs a batch of courses sequentially. One course failing to
// start never stops the batch; its error is reported in a summary with
// no ledger report. Cancellation stops everything.
func (m *Manager) MirrorAll(ctx context.Context, courses []config.Course) ([]*RunSummary, error) {
	var summaries []*RunSummary
	for _, course := range courses {
		summary, err := m.Mirror(ctx, course)
		if err != nil {
			if ctx.Err() != nil {
				if summary != nil {
					summaries = append(summaries, summary)
				}
				return summaries, err
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping course %s: %v", course.ID, err), Level: LevelError})
			m.log.Error().Err(err).Str("course", course.ID).Msg("course failed to start")
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// resolveCourse takes a course from its ID to a resolved manifest.
func (m *Manager) resolveCourse(ctx context.Context, course config.Course, effective *config.Settings) (*model.CourseNode, *resolve.Result, error) {
	filters, err := effective.ToFilters()
	if err != nil {
		return nil, nil, fmt.Errorf("filters for %s: %w", course.ID, err)
	}

	raw, err := m.fetchSyllabus(ctx, course.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch syllabus for %s: %w", course.ID, err)
	}

	root, err := syllabus.Normalize(raw, m.log)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize syllabus for %s: %w", course.ID, err)
	}
	if root.Title == "" {
		root.Title = course.Name
	}
	if root.Title == "" {
		root.Title = course.ID
	}
	if root.ID == "" {
		root.ID = course.ID
	}

	resolver := resolve.New(m.client, &fetch.HTMLExtractor{}, m.contentURL, filters, m.log)
	resolver.CombinedNumbering = effective.CombinedSectionItemNums
	result := resolver.Resolve(ctx, root, effective.TargetDir)
	return root, result, nil
}

// fetchSyllabus returns the raw syllabus payload, from cache when the
// endpoint has not changed since it was stored.
func (m *Manager) fetchSyllabus(ctx context.Context, courseID string) ([]byte, error) {
	url := m.syllabusURL(courseID)
	if raw, ok := m.cache.Get(courseID, url); ok {
		m.log.Debug().Str("course", courseID).Msg("syllabus cache hit")
		return raw, nil
	}

	raw, err := m.client.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Put(courseID, url, raw); err != nil {
		m.log.Warn().Err(err).Str("course", courseID).Msg("could not cache syllabus")
	}
	return raw, nil
}

func (m *Manager) syllabusURL(courseID string) string {
	return strings.ReplaceAll(m.settings.SyllabusURLTemplate, "{course}", courseID)
}

func (m *Manager) contentURL(courseID, itemID string) string {
	url := strings.ReplaceAll(m.settings.ItemContentURLTemplate, "{course}", courseID)
	return strings.ReplaceAll(url, "{item}", itemID)
}

// postProcess runs the optional finishing steps on a completed run.
func (m *Manager) postProcess(ctx context.Context, effective *config.Settings, entries []model.ManifestEntry, led *ledger.Ledger) {
	if effective.CreatePlaylists {
		written, err := playlist.NewCreator(true).WriteAll(entries, led)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlists: %v", err), Level: LevelWarning})
		} else if len(written) > 0 {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Created %d playlists", len(written)), Level: LevelSuccess})
		}
	}

	if effective.ConvertImagesToJPEG {
		for _, entry := range entries {
			if entry.Kind != model.ResourceImage || entry.LinkTo != "" || !led.Completed(entry.IdempotencyKey) {
				continue
			}
			if _, err := m.images.NormalizeFile(ctx, entry.TargetPath, effective.ImageMaxSize); err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error converting %s: %v", filepath.Base(entry.TargetPath), err), Level: LevelWarning})
			}
		}
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
