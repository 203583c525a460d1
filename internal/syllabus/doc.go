// Package syllabus normalizes raw, platform-specific course descriptions
// into the canonical tree.
//
// The platform has shipped (at least) two wire formats over its lifetime: a
// legacy linear section/lecture listing, and the current on-demand format
// with modules, lessons and items cross-linked by id. Each format is a
// tagged variant implementing the same normalize-to-tree capability;
// Normalize picks the variant by inspecting the raw payload.
//
//	root, err := syllabus.Normalize(raw, logger)
//	var serr *model.StructureError
//	if errors.As(err, &serr) {
//	    // the whole course is unprocessable
//	}
//
// A sub-node that fails to parse never fails the course: it is replaced by
// a placeholder leaf flagged Unusable and its siblings proceed.
package syllabus
