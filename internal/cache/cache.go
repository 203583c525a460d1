// Package cache keeps raw syllabus payloads on disk so repeated runs
// against the same course do not refetch an unchanged structure.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// entry is the on-disk shape of one cached syllabus.
type entry struct {
	// Version is the structure-version marker reported by the platform.
	// A mismatch invalidates the cached payload.
	Version   string          `json:"version"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Store is a per-course syllabus cache rooted at a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on
// first Put.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(courseID string) string {
	return filepath.Join(s.dir, courseID+".json")
}

// Get returns the cached syllabus for courseID if one exists with a
// matching version marker. A miss (no file, unreadable file, or version
// change) returns (nil, false); misses are never errors.
func (s *Store) Get(courseID, version string) ([]byte, bool) {
	data, err := os.ReadFile(s.path(courseID))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Version != version {
		return nil, false
	}
	return e.Payload, true
}

// Put stores a syllabus payload under courseID with its version marker.
func (s *Store) Put(courseID, version string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry{
		Version:   version,
		FetchedAt: time.Now().UTC(),
		Payload:   json.RawMessage(payload),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(courseID), data, 0644)
}

// Evict removes the cached syllabus for courseID, if any.
func (s *Store) Evict(courseID string) error {
	err := os.Remove(s.path(courseID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
