package syllabus

import (
	"encoding/json"
	"sort"

	"github.com/rs/zerolog"

	"github.com/moocmirror/mooc-mirror/internal/model"
)

// Format identifies which wire format a raw course description uses.
type Format string

const (
	// FormatLegacy is the old linear listing: sections containing
	// lectures containing a format→resources map.
	FormatLegacy Format = "legacy"

	// FormatOnDemand is the current nested format: modules, lessons and
	// items linked by id, with explicit ordering keys.
	FormatOnDemand Format = "ondemand"

	// FormatUnknown means neither variant matched.
	FormatUnknown Format = "unknown"
)

// formatProbe looks at just enough of the payload to tell the variants
// apart.
type formatProbe struct {
	Sections json.RawMessage `json:"sections"`
	Linked   json.RawMessage `json:"linked"`
	Elements json.RawMessage `json:"elements"`
}

// Detect inspects a raw course description and reports its format.
func Detect(raw []byte) Format {
	var probe formatProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return FormatUnknown
	}
	switch {
	case len(probe.Linked) > 0 && len(probe.Elements) > 0:
		return FormatOnDemand
	case len(probe.Sections) > 0:
		return FormatLegacy
	default:
		return FormatUnknown
	}
}

// Normalize converts a raw course description into a canonical tree.
//
// Returns a *model.StructureError when the root itself is unrecognizable;
// the course as a whole is then unprocessable. Unparseable sub-nodes do not
// fail the course: they become placeholder leaves flagged Unusable.
func Normalize(raw []byte, log zerolog.Logger) (*model.CourseNode, error) {
	switch Detect(raw) {
	case FormatLegacy:
		return normalizeLegacy(raw, log)
	case FormatOnDemand:
		return normalizeOnDemand(raw, log)
	default:
		return nil, &model.StructureError{Reason: "unrecognized course format"}
	}
}

// placeholder returns the leaf that stands in for an unparseable sub-node.
func placeholder(order int) *model.CourseNode {
	return &model.CourseNode{
		Kind:     model.KindItem,
		Title:    "unreadable item",
		Order:    order,
		Unusable: true,
	}
}

// sortRefs puts a node's refs into a stable order. Legacy resource maps
// iterate in random order, and manifests must be byte-identical across
// runs.
func sortRefs(refs []model.SourceRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Format != refs[j].Format {
			return refs[i].Format < refs[j].Format
		}
		return refs[i].URL < refs[j].URL
	})
}

// orderable pairs a node with the platform's raw ordering key so siblings
// can be sorted before ordinals are assigned.
type orderable struct {
	key  int
	pos  int
	node *model.CourseNode
}

// assignOrder sorts siblings by their platform ordering key (ties broken by
// original array position, hence the stable sort) and renumbers Order to
// contiguous 1-based positions.
func assignOrder(siblings []orderable) []*model.CourseNode {
	sort.SliceStable(siblings, func(i, j int) bool {
		if siblings[i].key != siblings[j].key {
			return siblings[i].key < siblings[j].key
		}
		return siblings[i].pos < siblings[j].pos
	})
	out := make([]*model.CourseNode, len(siblings))
	for i, s := range siblings {
		s.node.Order = i + 1
		out[i] = s.node
	}
	return out
}
