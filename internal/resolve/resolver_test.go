package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moocmirror/mooc-mirror/internal/fetch"
	"github.com/moocmirror/mooc-mirror/internal/model"
)

// fakeFetcher serves canned payloads by ref and counts calls.
type fakeFetcher struct {
	pages map[string][]byte
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	f.calls = append(f.calls, ref)
	page, ok := f.pages[ref]
	if !ok {
		return nil, &fetch.FetchError{URL: ref, Status: 403}
	}
	return page, nil
}

func contentURL(courseID, itemID string) string {
	return fmt.Sprintf("content/%s/%s", courseID, itemID)
}

func testTree() *model.CourseNode {
	return &model.CourseNode{
		Kind: model.KindCourse, ID: "c-1", Title: "Algorithms", Order: 1,
		Children: []*model.CourseNode{
			{
				Kind: model.KindModule, ID: "m-1", Title: "Week 1", Order: 1,
				Children: []*model.CourseNode{
					{
						Kind: model.KindItem, ID: "i-1", Title: "Intro", Order: 1,
						SourceRefs: []model.SourceRef{
							{ID: "a-1", URL: "http://cdn/intro.mp4", Kind: model.ResourceVideo, Format: "mp4"},
							{ID: "a-2", URL: "http://cdn/intro.srt", Kind: model.ResourceSubtitle, Format: "srt", Title: "en"},
						},
					},
					{
						Kind: model.KindItem, ID: "i-2", Title: "Intro", Order: 2,
						SourceRefs: []model.SourceRef{
							{ID: "a-3", URL: "http://cdn/intro2.mp4", Kind: model.ResourceVideo, Format: "mp4"},
						},
					},
				},
			},
		},
	}
}

func TestResolver_PathsAndOrdering(t *testing.T) {
	r := New(nil, nil, nil, Filters{}, zerolog.Nop())
	result := r.Resolve(context.Background(), testTree(), "/out")

	require.Empty(t, result.Errors)
	require.Len(t, result.Entries, 3)

	week1 := filepath.Join("/out", "Algorithms", "01_Week 1")
	assert.Equal(t, filepath.Join(week1, "01_Intro.mp4"), result.Entries[0].TargetPath)
	assert.Equal(t, filepath.Join(week1, "01_Intro_en.srt"), result.Entries[1].TargetPath)
	// Duplicate sibling title gets a deterministic disambiguator.
	assert.Equal(t, filepath.Join(week1, "02_Intro-2.mp4"), result.Entries[2].TargetPath)
}

func TestResolver_Deterministic(t *testing.T) {
	r := New(nil, nil, nil, Filters{}, zerolog.Nop())

	first := r.Resolve(context.Background(), testTree(), "/out")
	second := r.Resolve(context.Background(), testTree(), "/out")

	require.Equal(t, first.Entries, second.Entries,
		"same tree must always produce a byte-identical manifest")
}

func TestResolver_DedupEmitsLink(t *testing.T) {
	tree := testTree()
	// Cross-link the same asset from a second syllabus location.
	tree.Children[0].Children = append(tree.Children[0].Children, &model.CourseNode{
		Kind: model.KindItem, ID: "i-1", Title: "Intro again", Order: 3,
		SourceRefs: []model.SourceRef{
			{ID: "a-1", URL: "http://cdn/intro.mp4", Kind: model.ResourceVideo, Format: "mp4"},
		},
	})

	r := New(nil, nil, nil, Filters{}, zerolog.Nop())
	result := r.Resolve(context.Background(), tree, "/out")

	require.Len(t, result.Entries, 4)
	linked := result.Entries[3]
	assert.Equal(t, result.Entries[0].TargetPath, linked.LinkTo, "second occurrence links to the first")
	assert.Empty(t, linked.Fetch.URL, "linked entries carry no fetch spec")
	assert.Equal(t, result.Entries[0].IdempotencyKey, linked.IdempotencyKey)
}

func TestResolver_IdempotencyKeyIgnoresTitles(t *testing.T) {
	tree := testTree()
	r := New(nil, nil, nil, Filters{}, zerolog.Nop())
	before := r.Resolve(context.Background(), tree, "/out")

	// Rename everything upstream; keys must not move.
	renamed := testTree()
	renamed.Children[0].Title = "Semana 1"
	renamed.Children[0].Children[0].Title = "Introducción"
	after := r.Resolve(context.Background(), renamed, "/out")

	assert.Equal(t, before.Entries[0].IdempotencyKey, after.Entries[0].IdempotencyKey)
}

func TestResolver_LockedItemExcludedWithoutFetch(t *testing.T) {
	tree := testTree()
	tree.Children[0].Children = append(tree.Children[0].Children, &model.CourseNode{
		Kind: model.KindItem, ID: "i-locked", Title: "Exam", Order: 3,
		Locked: true, Deferred: true,
	})

	fetcher := &fakeFetcher{pages: map[string][]byte{}} // 403 for everything
	r := New(fetcher, nil, contentURL, Filters{}, zerolog.Nop())
	result := r.Resolve(context.Background(), tree, "/out")

	require.Empty(t, result.Errors, "a still-locked item is not a resolution error")
	assert.Equal(t, 1, result.LockedCount)
	assert.Len(t, result.Entries, 3, "locked item contributes no manifest entries")
}

func TestResolver_DeferredAssetListing(t *testing.T) {
	tree := testTree()
	tree.Children[0].Children = append(tree.Children[0].Children, &model.CourseNode{
		Kind: model.KindItem, ID: "i-3", Title: "Deep dive", Order: 3, Deferred: true,
	})

	fetcher := &fakeFetcher{pages: map[string][]byte{
		"content/c-1/i-3": []byte(`{"assets":[{"id":"a-9","url":"http://cdn/deep.mp4","typeName":"video","fileExtension":"mp4"}]}`),
	}}
	r := New(fetcher, nil, contentURL, Filters{}, zerolog.Nop())
	result := r.Resolve(context.Background(), tree, "/out")

	require.Empty(t, result.Errors)
	require.Len(t, result.Entries, 4)
	assert.Equal(t, "http://cdn/deep.mp4", result.Entries[3].Fetch.URL)
	assert.Equal(t, []string{"content/c-1/i-3"}, fetcher.calls, "exactly one lazy fetch per deferred node")
}

func TestResolver_DeferredHTMLKeepsPageAndAssets(t *testing.T) {
	tree := &model.CourseNode{
		Kind: model.KindCourse, ID: "c-1", Title: "Course", Order: 1,
		Children: []*model.CourseNode{{
			Kind: model.KindModule, ID: "m-1", Title: "M", Order: 1,
			Children: []*model.CourseNode{{
				Kind: model.KindItem, ID: "i-s", Title: "Reading", Order: 1, Deferred: true,
			}},
		}},
	}

	page := []byte(`<html><a href="http://cdn/paper.pdf">paper</a></html>`)
	fetcher := &fakeFetcher{pages: map[string][]byte{"content/c-1/i-s": page}}
	r := New(fetcher, &fetch.HTMLExtractor{}, contentURL, Filters{}, zerolog.Nop())
	result := r.Resolve(context.Background(), tree, "/out")

	require.Empty(t, result.Errors)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, page, result.Entries[0].Fetch.Inline, "page itself saved inline")
	assert.Equal(t, "html", result.Entries[0].Format)
	assert.Equal(t, "http://cdn/paper.pdf", result.Entries[1].Fetch.URL)
}

func TestResolver_DeferredFailureIsRecordedNotFatal(t *testing.T) {
	tree := testTree()
	tree.Children[0].Children = append(tree.Children[0].Children, &model.CourseNode{
		Kind: model.KindItem, ID: "i-bad", Title: "Broken", Order: 3, Deferred: true,
	})

	fetcher := &fakeFetcher{pages: map[string][]byte{}}
	r := New(fetcher, nil, contentURL, Filters{}, zerolog.Nop())
	result := r.Resolve(context.Background(), tree, "/out")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].NodeRef, "Broken")
	assert.Len(t, result.Entries, 3, "siblings proceed")
}

func TestResolver_Filters(t *testing.T) {
	tree := testTree()

	t.Run("format allow list", func(t *testing.T) {
		r := New(nil, nil, nil, Filters{Formats: FormatSet([]string{"mp4"})}, zerolog.Nop())
		result := r.Resolve(context.Background(), tree, "/out")
		require.Len(t, result.Entries, 2)
		for _, e := range result.Entries {
			assert.Equal(t, "mp4", e.Format)
		}
	})

	t.Run("ignored formats", func(t *testing.T) {
		r := New(nil, nil, nil, Filters{Ignored: map[string]struct{}{"srt": {}}}, zerolog.Nop())
		result := r.Resolve(context.Background(), tree, "/out")
		require.Len(t, result.Entries, 2)
	})

	t.Run("section pattern", func(t *testing.T) {
		r := New(nil, nil, nil, Filters{Section: regexp.MustCompile(`Week 9`)}, zerolog.Nop())
		result := r.Resolve(context.Background(), tree, "/out")
		assert.Empty(t, result.Entries, "filtering happens before manifest emission")
	})

	t.Run("item pattern", func(t *testing.T) {
		r := New(nil, nil, nil, Filters{Item: regexp.MustCompile(`^Intro$`)}, zerolog.Nop())
		result := r.Resolve(context.Background(), tree, "/out")
		require.Len(t, result.Entries, 3)
	})

	t.Run("kind allow list", func(t *testing.T) {
		r := New(nil, nil, nil, Filters{Kinds: map[model.ResourceKind]struct{}{model.ResourceSubtitle: {}}}, zerolog.Nop())
		result := r.Resolve(context.Background(), tree, "/out")
		require.Len(t, result.Entries, 1)
		assert.Equal(t, model.ResourceSubtitle, result.Entries[0].Kind)
	})
}

func TestResolver_CombinedNumbering(t *testing.T) {
	r := New(nil, nil, nil, Filters{}, zerolog.Nop())
	r.CombinedNumbering = true
	result := r.Resolve(context.Background(), testTree(), "/out")

	require.NotEmpty(t, result.Entries)
	assert.Equal(t, "01_01_Intro.mp4", filepath.Base(result.Entries[0].TargetPath))
}

func TestSkipFormatURL(t *testing.T) {
	tests := []struct {
		format string
		url    string
		skip   bool
	}{
		{"mp4", "http://cdn/v.mp4", false},
		{"pdf", "http://cdn/s.pdf", false},
		{"", "http://cdn/thing", true},
		{"com", "mailto:someone@example.com", true},
		{"html", "http://localhost/page.html", true},
		{"php?id=1", "http://site/x.php?id=1", true},
		{"org", "https://pandas.pydata.org/", true},
	}

	for _, tt := range tests {
		if got := SkipFormatURL(tt.format, tt.url); got != tt.skip {
			t.Errorf("SkipFormatURL(%q, %q) = %v, want %v", tt.format, tt.url, got, tt.skip)
		}
	}
}
