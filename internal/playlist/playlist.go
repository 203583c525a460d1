// Package playlist generates per-section playlists so a mirrored course
// can be watched in syllabus order with any media player.
package playlist

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/moocmirror/mooc-mirror/internal/ledger"
	"github.com/moocmirror/mooc-mirror/internal/model"
)

// FileName is the playlist file written into each section directory.
const FileName = "playlist.m3u"

// Creator generates M3U playlists from a download manifest.
type Creator struct {
	extended bool // include the #EXTM3U header and #EXTINF lines
}

// NewCreator creates a Creator. extended adds #EXTINF title lines.
func NewCreator(extended bool) *Creator {
	return &Creator{extended: extended}
}

// Build groups the manifest's video entries by directory, preserving
// manifest order within each, and returns playlist content per
// directory. Only entries the ledger marks complete are listed; a failed
// video should not leave a dead playlist line. Directories without
// videos get no playlist.
func (c *Creator) Build(entries []model.ManifestEntry, l *ledger.Ledger) map[string]string {
	byDir := make(map[string][]model.ManifestEntry)
	var dirs []string
	for _, entry := range entries {
		if entry.Kind != model.ResourceVideo {
			continue
		}
		if l != nil && !l.Completed(entry.IdempotencyKey) {
			continue
		}
		dir := filepath.Dir(entry.TargetPath)
		if _, seen := byDir[dir]; !seen {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], entry)
	}

	playlists := make(map[string]string, len(dirs))
	for _, dir := range dirs {
		playlists[dir] = c.render(byDir[dir])
	}
	return playlists
}

func (c *Creator) render(entries []model.ManifestEntry) string {
	var sb strings.Builder
	if c.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, entry := range entries {
		if c.extended {
			sb.WriteString("#EXTINF:-1," + entry.Item + "\n")
		}
		sb.WriteString(filepath.Base(entry.TargetPath) + "\n")
	}
	return sb.String()
}

// WriteAll renders and writes one playlist per section directory,
// returning the paths written.
func (c *Creator) WriteAll(entries []model.ManifestEntry, l *ledger.Ledger) ([]string, error) {
	var written []string
	for dir, content := range c.Build(entries, l) {
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
