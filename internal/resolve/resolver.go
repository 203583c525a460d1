// Package resolve flattens the canonical course tree into the ordered,
// deduplicated download manifest.
//
// Resolution runs single-threaded to completion before any download
// starts, so the manifest is immutable by the time the scheduler sees it.
// The only network activity during resolution is the one extra fetch each
// deferred node needs.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moocmirror/mooc-mirror/internal/fetch"
	"github.com/moocmirror/mooc-mirror/internal/model"
	"github.com/moocmirror/mooc-mirror/internal/naming"
)

// ContentURLFunc builds the fetch reference for a deferred item's payload.
type ContentURLFunc func(courseID, itemID string) string

// Resolver walks the canonical tree and emits the manifest.
type Resolver struct {
	fetcher    fetch.PageFetcher
	extractor  fetch.Extractor
	contentURL ContentURLFunc
	filters    Filters
	log        zerolog.Logger

	// CombinedNumbering prefixes item files with the section ordinal as
	// well ("03_01_Intro.mp4"), matching the verbose layout option.
	CombinedNumbering bool
}

// New creates a Resolver. fetcher and extractor may be nil, in which case
// deferred nodes stay unresolved and no secondary assets are discovered.
func New(fetcher fetch.PageFetcher, extractor fetch.Extractor, contentURL ContentURLFunc, filters Filters, log zerolog.Logger) *Resolver {
	return &Resolver{
		fetcher:    fetcher,
		extractor:  extractor,
		contentURL: contentURL,
		filters:    filters,
		log:        log,
	}
}

// Result is the output of one resolution pass.
type Result struct {
	// Entries is the manifest, in display order.
	Entries []model.ManifestEntry

	// Errors records nodes that could not be resolved. They never abort
	// sibling resolution; they surface in the end-of-run report.
	Errors []*model.ResolutionError

	// LockedCount is the number of items that stayed locked and were
	// therefore listed but not scheduled.
	LockedCount int
}

// resolution carries the per-pass state: the dedup map from idempotency
// key to the target path that first claimed it.
type resolution struct {
	result   *Result
	mapped   map[string]string
	courseID string
	course   string
}

// Resolve flattens root into a manifest rooted at baseDir.
//
// Deduplication: when two nodes resolve to the same idempotency key (a
// resource cross-linked from multiple syllabus locations), only the first
// produces a fetch; later ones become link entries pointing at the first
// target path.
func (r *Resolver) Resolve(ctx context.Context, root *model.CourseNode, baseDir string) *Result {
	res := &resolution{
		result:   &Result{},
		mapped:   make(map[string]string),
		courseID: root.ID,
		course:   root.Title,
	}

	courseDir := join(baseDir, naming.Clean(root.Title))
	r.walkContainer(ctx, res, root, courseDir, nil)
	return res.result
}

// walkContainer descends into a course/module/lesson node, assigning
// directory segments to child containers and file names to child items.
// One SiblingSet per directory keeps segments unique within it.
func (r *Resolver) walkContainer(ctx context.Context, res *resolution, node *model.CourseNode, dir string, crumbs []string) {
	dirSet := naming.NewSiblingSet()
	itemSet := naming.NewSiblingSet()

	for _, child := range node.Children {
		switch child.Kind {
		case model.KindModule, model.KindLesson:
			if !r.filters.sectionMatches(child.Title) {
				r.log.Debug().Str("section", child.Title).Msg("filtered out")
				continue
			}
			segment := dirSet.Assign(child.Order, child.Title, "")
			next := append(append([]string{}, crumbs...), child.Title)
			r.walkContainer(ctx, res, child, join(dir, segment), next)
		case model.KindItem:
			r.resolveItem(ctx, res, child, dir, crumbs, itemSet, sectionOrdinal(node))
		}
	}
}

// sectionOrdinal is the ordinal used by combined numbering: the immediate
// parent container's position.
func sectionOrdinal(parent *model.CourseNode) int {
	if parent.Kind == model.KindCourse {
		return 0
	}
	return parent.Order
}

func (r *Resolver) resolveItem(ctx context.Context, res *resolution, item *model.CourseNode, dir string, crumbs []string, itemSet *naming.SiblingSet, secOrdinal int) {
	if item.Unusable {
		return
	}
	if !r.filters.itemMatches(item.Title) {
		r.log.Debug().Str("item", item.Title).Msg("filtered out")
		return
	}

	refs := item.SourceRefs
	if item.Deferred {
		resolved, err := r.resolveDeferred(ctx, res, item)
		if err != nil {
			res.result.Errors = append(res.result.Errors, &model.ResolutionError{
				NodeRef: nodeRef(res.course, crumbs, item.Title),
				Cause:   err,
			})
			return
		}
		if resolved == nil {
			// Still locked: listed, not scheduled.
			res.result.LockedCount++
			return
		}
		refs = resolved
	}

	section := strings.Join(crumbs, " / ")
	for _, ref := range refs {
		if !r.filters.refMatches(ref) {
			continue
		}

		stem := item.Title
		if ref.Title != "" && ref.Title != item.Title {
			stem = item.Title + "_" + ref.Title
		}
		segment := itemSet.Assign(item.Order, stem, ref.Format)
		if r.CombinedNumbering && secOrdinal > 0 {
			segment = fmt.Sprintf("%02d_%s", secOrdinal, segment)
		}
		target := join(dir, segment)

		key := model.IdempotencyKey(res.courseID, item.ID, ref)
		entry := model.ManifestEntry{
			TargetPath:     target,
			Kind:           ref.Kind,
			Format:         ref.Format,
			IdempotencyKey: key,
			Course:         res.course,
			Section:        section,
			Item:           item.Title,
		}

		if existing, seen := res.mapped[key]; seen {
			// Already mapped elsewhere in the tree: link, don't fetch.
			entry.LinkTo = existing
		} else {
			res.mapped[key] = target
			entry.Fetch = model.FetchSpec{URL: ref.URL, Inline: ref.Inline}
		}
		res.result.Entries = append(res.result.Entries, entry)
	}
}

// deferredContent is the payload shape served for an item whose refs were
// not inlined in the syllabus.
type deferredContent struct {
	Locked bool `json:"locked"`
	Assets []struct {
		ID        string `json:"id"`
		URL       string `json:"url"`
		TypeName  string `json:"typeName"`
		Extension string `json:"fileExtension"`
		Name      string `json:"name"`
	} `json:"assets"`
}

// resolveDeferred performs the single lazy fetch for a deferred node and
// turns the response into source refs. Returns (nil, nil) when the item is
// still locked — permanently denied payloads are not errors, the item just
// stays listed without being scheduled.
func (r *Resolver) resolveDeferred(ctx context.Context, res *resolution, item *model.CourseNode) ([]model.SourceRef, error) {
	if r.fetcher == nil || r.contentURL == nil {
		return nil, nil
	}

	ref := r.contentURL(res.courseID, item.ID)
	content, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		if item.Locked && fetch.IsPermanent(err) {
			return nil, nil
		}
		return nil, err
	}

	// Item content is either a JSON asset listing or an HTML page.
	var payload deferredContent
	if json.Unmarshal(content, &payload) == nil && (payload.Locked || len(payload.Assets) > 0) {
		if payload.Locked {
			return nil, nil
		}
		refs := make([]model.SourceRef, 0, len(payload.Assets))
		for _, asset := range payload.Assets {
			if asset.URL == "" {
				continue
			}
			format := strings.ToLower(strings.TrimPrefix(asset.Extension, "."))
			refs = append(refs, model.SourceRef{
				ID:     asset.ID,
				URL:    asset.URL,
				Kind:   model.KindForFormat(format),
				Format: format,
				Title:  asset.Name,
			})
		}
		return refs, nil
	}

	// HTML page: keep the page itself plus whatever assets are embedded
	// in it.
	refs := []model.SourceRef{{
		ID:     item.ID,
		Kind:   model.ResourcePage,
		Format: "html",
		Inline: content,
	}}
	if r.extractor != nil {
		for _, embedded := range r.extractor.Extract(content) {
			refs = append(refs, model.SourceRef{
				URL:    embedded.URL,
				Kind:   embedded.Kind,
				Format: embedded.Format,
				Title:  embedded.Title,
			})
		}
	}
	return refs, nil
}

func nodeRef(course string, crumbs []string, item string) string {
	parts := append([]string{course}, crumbs...)
	parts = append(parts, item)
	return strings.Join(parts, " / ")
}

func join(dir, segment string) string {
	return filepath.Join(dir, segment)
}
