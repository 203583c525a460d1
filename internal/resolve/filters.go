package resolve

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/moocmirror/mooc-mirror/internal/model"
)

// Filters narrows the manifest before any network transfer happens.
// Non-matching nodes are excluded prior to manifest emission, not after
// download.
type Filters struct {
	// Section keeps only modules/lessons whose title matches.
	Section *regexp.Regexp

	// Item keeps only items whose title matches.
	Item *regexp.Regexp

	// Resource keeps only refs whose title matches (when the ref has
	// one).
	Resource *regexp.Regexp

	// Formats is the allow-list of file formats. Empty means all.
	Formats map[string]struct{}

	// Ignored formats are excluded even when Formats allows everything.
	Ignored map[string]struct{}

	// Kinds is the allow-list of resource kinds. Empty means all.
	Kinds map[model.ResourceKind]struct{}

	// DisableURLSkipping turns off the junk-URL heuristics below.
	DisableURLSkipping bool
}

// FormatSet builds a lookup from a list of formats; "all" and the empty
// list both mean no restriction.
func FormatSet(formats []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(f, ".")))
		if f == "" {
			continue
		}
		if f == "all" {
			return nil
		}
		set[f] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func (f Filters) sectionMatches(title string) bool {
	return f.Section == nil || f.Section.MatchString(title)
}

func (f Filters) itemMatches(title string) bool {
	return f.Item == nil || f.Item.MatchString(title)
}

func (f Filters) refMatches(ref model.SourceRef) bool {
	if f.Resource != nil && ref.Title != "" && !f.Resource.MatchString(ref.Title) {
		return false
	}
	if _, ignored := f.Ignored[strings.ToLower(ref.Format)]; ignored {
		return false
	}
	if f.Formats != nil {
		if _, ok := f.Formats[strings.ToLower(ref.Format)]; !ok {
			return false
		}
	}
	if f.Kinds != nil {
		if _, ok := f.Kinds[ref.Kind]; !ok {
			return false
		}
	}
	if !f.DisableURLSkipping && ref.URL != "" && SkipFormatURL(ref.Format, ref.URL) {
		return false
	}
	return true
}

// Formats on this list are trusted and never skipped by the URL
// heuristics.
var trustedFormats = regexp.MustCompile(`(?i)^(mp4|webm|pdf|.?.?\.?txt|.?.?\.?srt|vtt|html?|zip|rar|[ct]sv|xlsx?|ipynb|json|pptx?|docx?|py|rmd|rdata|png|jpe?g|gif)$`)

// Formats with characters outside [a-zA-Z0-9_-] are junk scraped from
// URLs, not real extensions.
var nonSimpleFormat = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SkipFormatURL reports whether a format/URL pair should be dropped
// without a download attempt: empty formats, mailto links, localhost, page
// roots, and garbage pseudo-extensions.
func SkipFormatURL(format, rawURL string) bool {
	if format == "" {
		return true
	}
	if strings.Contains(rawURL, "mailto:") && strings.Contains(rawURL, "@") {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	if parsed.Hostname() == "localhost" {
		return true
	}

	if trustedFormats.MatchString(format) {
		return false
	}
	if nonSimpleFormat.MatchString(format) {
		return true
	}
	if parsed.Path == "" || parsed.Path == "/" {
		return true
	}
	return false
}
