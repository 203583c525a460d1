package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Parallelism)
	assert.Equal(t, []string{"all"}, s.FileFormats)
}

func TestSettings_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.json")

	s := DefaultSettings()
	s.Parallelism = 8
	s.ExternalDownloader = "aria2c"
	s.Resume = true
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Parallelism)
	assert.Equal(t, "aria2c", loaded.ExternalDownloader)
	assert.True(t, loaded.Resume)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"parallelism": 2}`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Parallelism)
	assert.Equal(t, 5, s.DownloadMaxRetries, "unset fields keep defaults")
}

func TestSettings_ToFilters(t *testing.T) {
	s := DefaultSettings()
	s.FileFormats = []string{"mp4", "pdf"}
	s.SectionFilter = `Week [12]`

	filters, err := s.ToFilters()
	require.NoError(t, err)
	assert.Contains(t, filters.Formats, "mp4")
	assert.NotNil(t, filters.Section)
	assert.True(t, filters.Section.MatchString("Week 1"))

	s.ItemFilter = `([`
	_, err = s.ToFilters()
	assert.Error(t, err, "bad patterns are reported, not ignored")
}

func TestSettings_ToFiltersCarriesURLSkippingSwitch(t *testing.T) {
	s := DefaultSettings()

	filters, err := s.ToFilters()
	require.NoError(t, err)
	assert.False(t, filters.DisableURLSkipping, "heuristics on by default")

	s.DisableURLSkipping = true
	filters, err = s.ToFilters()
	require.NoError(t, err)
	assert.True(t, filters.DisableURLSkipping)
}

func TestLoadCourseList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.yaml")
	doc := `courses:
  - id: algo-101
  - id: ml-202
    section_filter: "Week [1-3]"
    file_formats: [mp4]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	list, err := LoadCourseList(path)
	require.NoError(t, err)
	require.Len(t, list.Courses, 2)
	assert.Equal(t, "algo-101", list.Courses[0].ID)
	assert.Equal(t, "Week [1-3]", list.Courses[1].SectionFilter)
}

func TestLoadCourseList_Invalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("courses: []"), 0644))
	_, err := LoadCourseList(empty)
	assert.Error(t, err)

	noID := filepath.Join(dir, "noid.yaml")
	require.NoError(t, os.WriteFile(noID, []byte("courses:\n  - name: unnamed"), 0644))
	_, err = LoadCourseList(noID)
	assert.Error(t, err)
}

func TestCourse_Merge(t *testing.T) {
	base := DefaultSettings()
	base.SectionFilter = "global"

	merged := Course{ID: "x", ItemFilter: "Intro"}.Merge(base)
	assert.Equal(t, "global", merged.SectionFilter, "unset override inherits")
	assert.Equal(t, "Intro", merged.ItemFilter)
	assert.Empty(t, base.ItemFilter, "base settings untouched")
}
