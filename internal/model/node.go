package model

// NodeKind identifies the level of a node in the canonical course tree.
type NodeKind string

const (
	KindCourse   NodeKind = "course"
	KindModule   NodeKind = "module"
	KindLesson   NodeKind = "lesson"
	KindItem     NodeKind = "item"
	KindResource NodeKind = "resource"
)

// ResourceKind classifies a downloadable payload. The final file extension
// is derived from the resolved resource, never guessed from its URL alone.
type ResourceKind string

const (
	ResourceVideo      ResourceKind = "video"
	ResourceSubtitle   ResourceKind = "subtitle"
	ResourceTranscript ResourceKind = "transcript"
	ResourceSlides     ResourceKind = "slides"
	ResourceDocument   ResourceKind = "document"
	ResourceImage      ResourceKind = "image"
	ResourceNotebook   ResourceKind = "notebook"
	ResourceQuiz       ResourceKind = "quiz"
	ResourcePage       ResourceKind = "page"
)

// SourceRef is one fetchable payload attached to a node.
//
// Refs carry the stable platform identifier (when the platform exposes one)
// alongside the URL, because idempotency keys must survive URL re-signing
// and title edits upstream.
type SourceRef struct {
	// ID is the platform's stable asset identifier. May be empty for
	// secondary assets discovered inside content, in which case the URL
	// stands in as the identity.
	ID string `json:"id,omitempty"`

	// URL is where the payload can be fetched from.
	URL string `json:"url"`

	// Kind classifies the payload.
	Kind ResourceKind `json:"kind"`

	// Format is the file extension without the leading dot ("mp4", "pdf").
	Format string `json:"format"`

	// Title is an optional secondary title distinguishing this ref from
	// its siblings within the same item (e.g. a subtitle language).
	Title string `json:"title,omitempty"`

	// Inline holds payload bytes that were already fetched during
	// resolution (quiz pages, supplement HTML). Inline refs are written
	// straight to disk without another network round trip.
	Inline []byte `json:"inline,omitempty"`
}

// CourseNode is a node in the canonical, platform-agnostic course tree.
//
// The tree is produced once by the syllabus normalizer and is read-only
// afterwards: the resolver and scheduler never mutate it, which is what
// makes the resolution phase safe to cache and the download phase safe to
// run concurrently.
type CourseNode struct {
	// Kind is the structural level of this node.
	Kind NodeKind `json:"kind"`

	// ID is the platform's stable identifier for this node, used as the
	// basis of idempotency keys. Empty for placeholder nodes.
	ID string `json:"id,omitempty"`

	// Title is the raw human-authored display title.
	Title string `json:"title"`

	// Order defines sibling ordering. Unique among siblings; the
	// normalizer re-numbers non-contiguous platform keys into positions,
	// breaking ties by original array position.
	Order int `json:"order"`

	// TypeName is the platform's item type ("lecture", "supplement",
	// "quiz", ...). Only set for item nodes.
	TypeName string `json:"type_name,omitempty"`

	// Locked marks content that is not accessible until a platform-side
	// condition is met. Locked nodes stay in the tree so listings show
	// what exists, but carry no resolved refs.
	Locked bool `json:"locked,omitempty"`

	// Deferred marks a node whose payload refs have not been resolved
	// yet. Resolution happens lazily with one extra fetch per node, and
	// only when the node's content is actually requested.
	Deferred bool `json:"deferred,omitempty"`

	// Unusable marks a placeholder left in place of a sub-node the
	// normalizer could not parse. Unusable nodes are excluded from
	// resolution; their siblings proceed.
	Unusable bool `json:"unusable,omitempty"`

	// SourceRefs are the payloads attached to this node. Empty while
	// Deferred or Locked.
	SourceRefs []SourceRef `json:"source_refs,omitempty"`

	// Children are ordered; insertion order is display order.
	Children []*CourseNode `json:"children,omitempty"`
}

// Walk visits n and every descendant in display order.
func (n *CourseNode) Walk(fn func(*CourseNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// CountItems returns the number of usable item nodes under n.
func (n *CourseNode) CountItems() int {
	count := 0
	n.Walk(func(node *CourseNode) {
		if node.Kind == KindItem && !node.Unusable {
			count++
		}
	})
	return count
}
