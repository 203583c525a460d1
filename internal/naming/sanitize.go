// Package naming derives filesystem-safe, unique, length-bounded path
// segments from arbitrary human-authored titles.
//
// Sanitization is a pure function of (title, ordinal, siblings processed so
// far): given the same canonical tree, the same paths are always produced.
// That determinism is what makes resumed runs line up with the files a
// previous run left on disk.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length ceilings for the two halves of a file name. The stem is truncated
// from the end so titles stay recognizable; the extension ceiling guards
// against junk "formats" scraped out of URLs.
const (
	MaxStemLength      = 200
	MaxExtensionLength = 20
)

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	whitespaceRun = regexp.MustCompile(`\s+`)

	// Windows reserved device names. A bare match would make the path
	// unusable on that platform, so they get an underscore suffix.
	reservedNames = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
		"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
		"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// Clean maps a raw title to a filesystem-legal name fragment.
//
// The following transformations are applied, in order:
//   - Invalid characters (<>:"/\|?* and control chars) become underscores
//   - Whitespace runs collapse to a single space
//   - Leading/trailing whitespace and trailing dots are removed
//   - Reserved device names (CON, NUL, COM1, ...) get an underscore suffix
//   - The empty result becomes "untitled"
func Clean(title string) string {
	name := invalidChars.ReplaceAllString(title, "_")
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = trailingDots.ReplaceAllString(name, "")
	name = strings.Trim(name, " ")

	if name == "" {
		return "untitled"
	}
	if _, reserved := reservedNames[strings.ToUpper(name)]; reserved {
		name += "_"
	}
	return name
}

// CleanExtension sanitizes and bounds a file extension (without the dot).
func CleanExtension(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	ext = invalidChars.ReplaceAllString(ext, "_")
	ext = whitespaceRun.ReplaceAllString(ext, "")
	return truncate(ext, MaxExtensionLength)
}

// truncate cuts s to at most max bytes, from the end. The cut backs up
// to a rune boundary so a multi-byte character is never split; a dangling
// continuation byte would make the segment illegal on targets that
// require valid UTF-8 names.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// SiblingSet assigns unique segments within one directory. Siblings must be
// visited in canonical order (the tree's order field, ties by original
// position) for the disambiguation numbering to be deterministic.
type SiblingSet struct {
	used map[string]struct{}
}

// NewSiblingSet creates an empty sibling set.
func NewSiblingSet() *SiblingSet {
	return &SiblingSet{used: make(map[string]struct{})}
}

// Assign derives the segment for one sibling.
//
// The ordinal is rendered as a zero-padded prefix so that lexicographic
// filesystem listing matches display order regardless of title content.
// ext may be empty for directory segments.
//
// If the cleaned, truncated stem collides with an already-assigned sibling
// stem, a numeric disambiguator (-2, -3, ...) is appended before the
// extension. The first occupant keeps the bare name:
//
//	set.Assign(1, "Intro", "")  // "01_Intro"
//	set.Assign(2, "Intro", "")  // "02_Intro-2"
func (ss *SiblingSet) Assign(ordinal int, title, ext string) string {
	stem := truncate(Clean(title), MaxStemLength)
	ext = CleanExtension(ext)

	unique := stem
	for n := 2; ; n++ {
		if _, taken := ss.used[strings.ToLower(unique+"."+ext)]; !taken {
			break
		}
		unique = disambiguate(stem, n)
	}
	ss.used[strings.ToLower(unique+"."+ext)] = struct{}{}

	segment := fmt.Sprintf("%02d_%s", ordinal, unique)
	if ext != "" {
		segment += "." + ext
	}
	return segment
}

// disambiguate appends -n to the stem, shortening the stem if needed so the
// result still fits the stem ceiling.
func disambiguate(stem string, n int) string {
	suffix := fmt.Sprintf("-%d", n)
	if len(stem)+len(suffix) > MaxStemLength {
		stem = truncate(stem, MaxStemLength-len(suffix))
	}
	return stem + suffix
}
