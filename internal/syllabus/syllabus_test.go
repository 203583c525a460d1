package syllabus

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/moocmirror/mooc-mirror/internal/model"
)

const legacyRaw = `{
	"id": "saas",
	"name": "Software Engineering",
	"sections": [
		{
			"title": "Week 2",
			"lectures": [
				{"id": 20, "title": "Testing", "resources": {"mp4": [["http://cdn/testing.mp4", ""]]}}
			]
		},
		{
			"title": "Week 1",
			"lectures": [
				{"id": 10, "title": "Intro", "resources": {
					"mp4": [["http://cdn/intro.mp4", ""]],
					"pdf": [["http://cdn/intro.pdf", "slides"]]
				}},
				{"id": 11, "title": "Locked Extra", "locked": true}
			]
		}
	]
}`

const onDemandRaw = `{
	"elements": [{"id": "c-1", "slug": "algo", "name": "Algorithms"}],
	"linked": {
		"courseMaterialModules.v1": [
			{"id": "m-2", "name": "Graphs", "moduleOrder": 20},
			{"id": "m-1", "name": "Sorting", "moduleOrder": 10}
		],
		"courseMaterialLessons.v1": [
			{"id": "l-1", "moduleId": "m-1", "name": "Quicksort", "lessonOrder": 5},
			{"id": "l-2", "moduleId": "m-2", "name": "BFS", "lessonOrder": 7}
		],
		"courseMaterialItems.v2": [
			{"id": "i-2", "lessonId": "l-1", "name": "Partitioning", "typeName": "lecture", "itemOrder": 14},
			{"id": "i-1", "lessonId": "l-1", "name": "Overview", "typeName": "supplement", "itemOrder": 3,
				"assets": [{"id": "a-1", "url": "http://cdn/overview.pdf", "typeName": "slides", "fileExtension": "pdf"}]},
			{"id": "i-3", "lessonId": "l-2", "name": "Hidden", "typeName": "exam", "itemOrder": 1, "lockedStatus": "PREMIUM"},
			{"id": "i-4", "lessonId": "l-2", "name": "Search demo", "typeName": "lecture", "itemOrder": 9}
		]
	}
}`

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Format
	}{
		{"legacy", legacyRaw, FormatLegacy},
		{"ondemand", onDemandRaw, FormatOnDemand},
		{"empty object", `{}`, FormatUnknown},
		{"not json", `<html>`, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect([]byte(tt.raw)); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_Legacy(t *testing.T) {
	root, err := Normalize([]byte(legacyRaw), zerolog.Nop())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if root.Kind != model.KindCourse || root.ID != "saas" {
		t.Fatalf("unexpected root: %+v", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("want 2 modules, got %d", len(root.Children))
	}

	// Array position defines legacy ordering: Week 2 arrived first.
	if root.Children[0].Title != "Week 2" || root.Children[0].Order != 1 {
		t.Errorf("first module = %q (order %d)", root.Children[0].Title, root.Children[0].Order)
	}

	week1 := root.Children[1]
	if len(week1.Children) != 2 {
		t.Fatalf("want 2 lectures in Week 1, got %d", len(week1.Children))
	}

	intro := week1.Children[0]
	if len(intro.SourceRefs) != 2 {
		t.Fatalf("want 2 refs on intro lecture, got %d", len(intro.SourceRefs))
	}
	// Refs are sorted by format for deterministic manifests.
	if intro.SourceRefs[0].Format != "mp4" || intro.SourceRefs[1].Format != "pdf" {
		t.Errorf("refs out of order: %+v", intro.SourceRefs)
	}
	if intro.SourceRefs[0].Kind != model.ResourceVideo {
		t.Errorf("mp4 classified as %q", intro.SourceRefs[0].Kind)
	}

	locked := week1.Children[1]
	if !locked.Locked || !locked.Deferred || len(locked.SourceRefs) != 0 {
		t.Errorf("locked lecture not deferred: %+v", locked)
	}
}

func TestNormalize_OnDemand(t *testing.T) {
	root, err := Normalize([]byte(onDemandRaw), zerolog.Nop())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if root.Title != "Algorithms" {
		t.Errorf("root title = %q", root.Title)
	}
	if len(root.Children) != 2 {
		t.Fatalf("want 2 modules, got %d", len(root.Children))
	}

	// moduleOrder 10 sorts before 20 even though it arrived second.
	if root.Children[0].Title != "Sorting" {
		t.Errorf("first module = %q", root.Children[0].Title)
	}

	quicksort := root.Children[0].Children[0]
	if quicksort.Kind != model.KindLesson || quicksort.Title != "Quicksort" {
		t.Fatalf("unexpected lesson: %+v", quicksort)
	}
	if len(quicksort.Children) != 2 {
		t.Fatalf("want 2 items, got %d", len(quicksort.Children))
	}

	// itemOrder 3 before 14; ordinals renumbered contiguously.
	overview := quicksort.Children[0]
	if overview.Title != "Overview" || overview.Order != 1 {
		t.Errorf("first item = %q (order %d)", overview.Title, overview.Order)
	}
	if overview.Deferred {
		t.Error("item with inline assets should not be deferred")
	}
	if len(overview.SourceRefs) != 1 || overview.SourceRefs[0].Kind != model.ResourceSlides {
		t.Errorf("overview refs: %+v", overview.SourceRefs)
	}

	partitioning := quicksort.Children[1]
	if !partitioning.Deferred || partitioning.Locked {
		t.Errorf("asset-less lecture should be deferred but not locked: %+v", partitioning)
	}

	bfs := root.Children[1].Children[0]
	hidden := bfs.Children[0]
	if !hidden.Locked || !hidden.Deferred {
		t.Errorf("premium item should be locked and deferred: %+v", hidden)
	}
}

func TestLockedStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"", false},
		{"UNLOCKED", false},
		{"unlocked", false},
		{"PREMIUM", true},
		{"LOCKED_FULLY", true},
	}

	for _, tt := range tests {
		if got := locked(tt.status); got != tt.want {
			t.Errorf("locked(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}

	item := onDemandItemNode(onDemandItem{ID: "i", Name: "Exam", LockedStatus: "PREMIUM"})
	if !item.Locked || !item.Deferred {
		t.Errorf("gated item should be locked and deferred: %+v", item)
	}
	open := onDemandItemNode(onDemandItem{ID: "j", Name: "Intro", LockedStatus: "UNLOCKED"})
	if open.Locked {
		t.Errorf("unlocked item wrongly gated: %+v", open)
	}
}

func TestNormalize_UnparseableSubnode(t *testing.T) {
	raw := `{
		"id": "c",
		"name": "Course",
		"sections": [
			{"title": "Ok", "lectures": [
				{"id": 1, "title": "Fine", "resources": {"mp4": [["http://cdn/a.mp4", ""]]}},
				"garbage string instead of object",
				{"id": 2, "title": "Also fine", "resources": {"mp4": [["http://cdn/b.mp4", ""]]}}
			]}
		]
	}`

	root, err := Normalize([]byte(raw), zerolog.Nop())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	lectures := root.Children[0].Children
	if len(lectures) != 3 {
		t.Fatalf("want 3 children (siblings proceed), got %d", len(lectures))
	}
	if !lectures[1].Unusable {
		t.Errorf("middle child should be a placeholder: %+v", lectures[1])
	}
	if lectures[0].Unusable || lectures[2].Unusable {
		t.Error("siblings of the bad node must stay usable")
	}
}

func TestNormalize_UnrecognizableRoot(t *testing.T) {
	for _, raw := range []string{`{}`, `not json at all`, `{"elements": []}`} {
		_, err := Normalize([]byte(raw), zerolog.Nop())
		var serr *model.StructureError
		if !errors.As(err, &serr) {
			t.Errorf("Normalize(%q) err = %v, want StructureError", raw, err)
		}
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	first, err := Normalize([]byte(legacyRaw), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Normalize([]byte(legacyRaw), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	var a, b []string
	first.Walk(func(n *model.CourseNode) {
		a = append(a, n.Title)
		for _, r := range n.SourceRefs {
			a = append(a, r.URL)
		}
	})
	second.Walk(func(n *model.CourseNode) {
		b = append(b, n.Title)
		for _, r := range n.SourceRefs {
			b = append(b, r.URL)
		}
	})

	if len(a) != len(b) {
		t.Fatalf("walk lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("position %d: %q vs %q", i, a[i], b[i])
		}
	}
}
