package model

import (
	"crypto/sha1"
	"encoding/hex"
)

// FetchSpec describes how to obtain a manifest entry's payload.
type FetchSpec struct {
	// URL to fetch. Empty when the payload is inline or linked.
	URL string `json:"url,omitempty"`

	// Inline holds already-fetched payload bytes; written to disk
	// without any network activity.
	Inline []byte `json:"inline,omitempty"`
}

// ManifestEntry is the unit of work consumed by the download scheduler.
//
// Entries are independent of each other: no entry depends on another's
// completion, so the scheduler is free to run them concurrently. The
// manifest itself is immutable once resolution finishes.
type ManifestEntry struct {
	// TargetPath is the full destination path composed from the
	// sanitized path segments of the node's ancestors.
	TargetPath string `json:"target_path"`

	// Fetch describes where the payload comes from.
	Fetch FetchSpec `json:"fetch"`

	// Kind classifies the payload.
	Kind ResourceKind `json:"kind"`

	// Format is the resolved file extension without the dot.
	Format string `json:"format"`

	// IdempotencyKey is the canonical content identity, computed from
	// stable source identifiers so retries and upstream title changes
	// never duplicate work.
	IdempotencyKey string `json:"idempotency_key"`

	// LinkTo, when non-empty, means this entry's content is identical to
	// an earlier entry already mapped to that path. The scheduler links
	// (or copies) instead of fetching again.
	LinkTo string `json:"link_to,omitempty"`

	// Identifying context for end-of-run reports.
	Course  string `json:"course"`
	Section string `json:"section,omitempty"`
	Item    string `json:"item,omitempty"`
}

// IdempotencyKey derives the canonical content identity for one source ref
// of a node. The basis is the platform's stable node identifier when
// present, falling back to the ref's own id or URL for secondary assets.
// Titles never participate, so renames upstream do not re-download.
func IdempotencyKey(courseID, nodeID string, ref SourceRef) string {
	basis := ref.ID
	if basis == "" {
		basis = ref.URL
	}
	h := sha1.New()
	h.Write([]byte(courseID))
	h.Write([]byte{0})
	h.Write([]byte(nodeID))
	h.Write([]byte{0})
	h.Write([]byte(basis))
	h.Write([]byte{0})
	h.Write([]byte(ref.Kind))
	h.Write([]byte{0})
	h.Write([]byte(ref.Format))
	return hex.EncodeToString(h.Sum(nil))
}
