package model

import "strings"

// KindForFormat classifies a payload by its file extension when the source
// does not say what it is. Used for legacy resource maps and for secondary
// assets discovered inside content.
func KindForFormat(format string) ResourceKind {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "mp4", "webm", "mov", "m4v":
		return ResourceVideo
	case "srt", "vtt":
		return ResourceSubtitle
	case "txt":
		return ResourceTranscript
	case "pdf", "ppt", "pptx":
		return ResourceSlides
	case "ipynb":
		return ResourceNotebook
	case "png", "jpg", "jpeg", "gif", "svg":
		return ResourceImage
	case "html", "htm":
		return ResourcePage
	default:
		return ResourceDocument
	}
}
