// Package ledger is the single source of truth for "has this content
// already been downloaded", within one run and across restarts.
//
// Workers update disjoint entries (one per idempotency key), so the only
// locking needed is the ledger's own map mutex. The file on disk is a JSON
// document whose schema stays readable across versions that only add
// fields: unknown fields are ignored on load.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of one manifest entry's execution.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Entry is the persisted record for one idempotency key.
type Entry struct {
	Key          string    `json:"key"`
	Path         string    `json:"path"`
	Status       Status    `json:"status"`
	BytesWritten int64     `json:"bytes_written,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Course       string    `json:"course,omitempty"`
	Section      string    `json:"section,omitempty"`
	Item         string    `json:"item,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ledgerFile is the on-disk shape.
type ledgerFile struct {
	RunID     string            `json:"run_id"`
	Course    string            `json:"course"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"`
}

// Ledger tracks per-key download state for one course.
type Ledger struct {
	mu      sync.Mutex
	runID   string
	course  string
	path    string
	entries map[string]*Entry
}

// New creates an empty ledger for a course, persisted at path.
func New(course, path string) *Ledger {
	return &Ledger{
		runID:   uuid.NewString(),
		course:  course,
		path:    path,
		entries: make(map[string]*Entry),
	}
}

// Load reads a previously flushed ledger so a resumed run can skip
// completed entries. A missing file yields a fresh ledger; the run id is
// always new.
func Load(course, path string) (*Ledger, error) {
	l := New(course, path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, err
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Entries != nil {
		l.entries = file.Entries
	}
	return l, nil
}

// RunID identifies this run.
func (l *Ledger) RunID() string { return l.runID }

// Completed reports whether key finished successfully in this run or a
// previous one.
func (l *Ledger) Completed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	return ok && entry.Status == StatusComplete
}

// Begin transitions key to in-progress, creating its entry on first
// sight.
func (l *Ledger) Begin(key, path, section, item string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = &Entry{
		Key:       key,
		Path:      path,
		Status:    StatusInProgress,
		Course:    l.course,
		Section:   section,
		Item:      item,
		UpdatedAt: time.Now().UTC(),
	}
}

// MarkComplete records a successful download of bytes at key.
func (l *Ledger) MarkComplete(key string, bytes int64) {
	l.update(key, func(e *Entry) {
		e.Status = StatusComplete
		e.BytesWritten = bytes
		e.LastError = ""
	})
}

// MarkFailed records a failure; the message is kept for the end-of-run
// report.
func (l *Ledger) MarkFailed(key string, bytes int64, cause string) {
	l.update(key, func(e *Entry) {
		e.Status = StatusFailed
		e.BytesWritten = bytes
		e.LastError = cause
	})
}

// MarkSkipped records that key required no work this run.
func (l *Ledger) MarkSkipped(key, path, section, item string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &Entry{Key: key, Course: l.course}
		l.entries[key] = entry
	}
	entry.Path = path
	entry.Section = section
	entry.Item = item
	entry.Status = StatusSkipped
	entry.UpdatedAt = time.Now().UTC()
}

func (l *Ledger) update(key string, fn func(*Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &Entry{Key: key, Course: l.course}
		l.entries[key] = entry
	}
	fn(entry)
	entry.UpdatedAt = time.Now().UTC()
}

// Flush writes the ledger to disk. Called at run end and on cancellation.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(ledgerFile{
		RunID:     l.runID,
		Course:    l.course,
		UpdatedAt: time.Now().UTC(),
		Entries:   l.entries,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}

// Clear archives the ledger by removing its file. Used at run end when
// resume mode is not active.
func (l *Ledger) Clear() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Report is the end-of-run summary.
type Report struct {
	RunID     string
	Course    string
	Completed []*Entry
	Skipped   []*Entry
	Failed    []*Entry
}

// Report builds the end-of-run summary, with failed entries carrying
// enough identifying context (course, section, item, cause) for a targeted
// re-run.
func (l *Ledger) Report() *Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	report := &Report{RunID: l.runID, Course: l.course}
	keys := make([]string, 0, len(l.entries))
	for key := range l.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry := l.entries[key]
		switch entry.Status {
		case StatusComplete:
			report.Completed = append(report.Completed, entry)
		case StatusSkipped:
			report.Skipped = append(report.Skipped, entry)
		case StatusFailed:
			report.Failed = append(report.Failed, entry)
		}
	}
	return report
}
