package fetch

import (
	"bytes"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/moocmirror/mooc-mirror/internal/model"
)

// EmbeddedRef is a secondary asset discovered inside already-fetched
// content.
type EmbeddedRef struct {
	URL    string
	Kind   model.ResourceKind
	Format string
	Title  string
}

// Extractor is the abstract content-extractor contract: given a content
// blob, return the embedded sub-resource references it contains.
type Extractor interface {
	Extract(content []byte) []EmbeddedRef
}

// HTMLExtractor finds downloadable assets in HTML content: anchor targets
// that look like files, and embedded images.
type HTMLExtractor struct {
	// BaseURL resolves relative references when set.
	BaseURL string
}

// Extract tokenizes the content and collects <a href> and <img src>
// references. Anchors without a file extension (plain links to other
// sites), mailto links and page-root links are dropped here so the
// resolver never schedules them. Results are deduplicated and sorted by
// URL for deterministic manifests.
func (e *HTMLExtractor) Extract(content []byte) []EmbeddedRef {
	var base *url.URL
	if e.BaseURL != "" {
		base, _ = url.Parse(e.BaseURL)
	}

	seen := make(map[string]EmbeddedRef)
	tokenizer := html.NewTokenizer(bytes.NewReader(content))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		token := tokenizer.Token()
		switch token.Data {
		case "a":
			if href := attr(token, "href"); href != "" {
				if ref, ok := anchorRef(resolveURL(base, href)); ok {
					seen[ref.URL] = ref
				}
			}
		case "img":
			if src := attr(token, "src"); src != "" {
				resolved := resolveURL(base, src)
				if resolved == "" {
					continue
				}
				format := strings.ToLower(strings.TrimPrefix(path.Ext(urlPath(resolved)), "."))
				if format == "" {
					format = "jpg"
				}
				seen[resolved] = EmbeddedRef{
					URL:    resolved,
					Kind:   model.ResourceImage,
					Format: format,
				}
			}
		}
	}

	refs := make([]EmbeddedRef, 0, len(seen))
	for _, ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].URL < refs[j].URL })
	return refs
}

// anchorRef decides whether an anchor target is a downloadable asset.
func anchorRef(href string) (EmbeddedRef, bool) {
	if href == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "#") {
		return EmbeddedRef{}, false
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return EmbeddedRef{}, false
	}
	if parsed.Path == "" || parsed.Path == "/" {
		return EmbeddedRef{}, false
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	if ext == "" {
		// Links to other sites, not files.
		return EmbeddedRef{}, false
	}

	title := strings.TrimSuffix(path.Base(parsed.Path), path.Ext(parsed.Path))
	return EmbeddedRef{
		URL:    href,
		Kind:   model.KindForFormat(ext),
		Format: ext,
		Title:  title,
	}, true
}

func attr(token html.Token, name string) string {
	for _, a := range token.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		return base.ResolveReference(parsed).String()
	}
	return parsed.String()
}

func urlPath(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.Path
}
