package playlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moocmirror/mooc-mirror/internal/ledger"
	"github.com/moocmirror/mooc-mirror/internal/model"
)

func manifest(dir string) []model.ManifestEntry {
	week1 := filepath.Join(dir, "01_Week 1")
	week2 := filepath.Join(dir, "02_Week 2")
	return []model.ManifestEntry{
		{TargetPath: filepath.Join(week1, "01_Intro.mp4"), Kind: model.ResourceVideo, Item: "Intro", IdempotencyKey: "k1"},
		{TargetPath: filepath.Join(week1, "01_Intro.srt"), Kind: model.ResourceSubtitle, Item: "Intro", IdempotencyKey: "k2"},
		{TargetPath: filepath.Join(week1, "02_Sorting.mp4"), Kind: model.ResourceVideo, Item: "Sorting", IdempotencyKey: "k3"},
		{TargetPath: filepath.Join(week2, "01_Graphs.mp4"), Kind: model.ResourceVideo, Item: "Graphs", IdempotencyKey: "k4"},
	}
}

func completedLedger(t *testing.T, keys ...string) *ledger.Ledger {
	t.Helper()
	l := ledger.New("c", filepath.Join(t.TempDir(), "ledger.json"))
	for _, key := range keys {
		l.Begin(key, "", "", "")
		l.MarkComplete(key, 1)
	}
	return l
}

func TestBuild_GroupsByDirectoryInOrder(t *testing.T) {
	dir := t.TempDir()
	c := NewCreator(false)
	playlists := c.Build(manifest(dir), completedLedger(t, "k1", "k2", "k3", "k4"))

	if len(playlists) != 2 {
		t.Fatalf("want 2 playlists, got %d", len(playlists))
	}
	week1 := playlists[filepath.Join(dir, "01_Week 1")]
	if week1 != "01_Intro.mp4\n02_Sorting.mp4\n" {
		t.Errorf("week1 playlist:\n%s", week1)
	}
	if strings.Contains(week1, ".srt") {
		t.Error("playlists list videos only")
	}
}

func TestBuild_SkipsIncompleteVideos(t *testing.T) {
	dir := t.TempDir()
	c := NewCreator(false)
	playlists := c.Build(manifest(dir), completedLedger(t, "k1"))

	week1 := playlists[filepath.Join(dir, "01_Week 1")]
	if week1 != "01_Intro.mp4\n" {
		t.Errorf("week1 playlist:\n%s", week1)
	}
	if _, ok := playlists[filepath.Join(dir, "02_Week 2")]; ok {
		t.Error("a section with no completed videos gets no playlist")
	}
}

func TestBuild_Extended(t *testing.T) {
	dir := t.TempDir()
	c := NewCreator(true)
	playlists := c.Build(manifest(dir), completedLedger(t, "k1"))

	week1 := playlists[filepath.Join(dir, "01_Week 1")]
	if !strings.HasPrefix(week1, "#EXTM3U\n#EXTINF:-1,Intro\n01_Intro.mp4\n") {
		t.Errorf("extended playlist:\n%s", week1)
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	entries := manifest(dir)
	for _, e := range entries {
		if err := os.MkdirAll(filepath.Dir(e.TargetPath), 0755); err != nil {
			t.Fatal(err)
		}
	}

	c := NewCreator(false)
	written, err := c.WriteAll(entries, completedLedger(t, "k1", "k3", "k4"))
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("want 2 files, got %d", len(written))
	}
	for _, path := range written {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing playlist %s: %v", path, err)
		}
	}
}
