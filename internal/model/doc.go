// Package model defines the core data structures shared across
// mooc-mirror: the canonical course tree, the download manifest, and the
// error taxonomy.
//
// # Canonical tree
//
// CourseNode is the platform-agnostic representation of a course's
// structure. The syllabus normalizer owns its construction; everything
// downstream treats it as read-only:
//
//	root.Walk(func(n *model.CourseNode) {
//	    fmt.Println(n.Kind, n.Title)
//	})
//
// # Manifest
//
// ManifestEntry is the unit of work handed to the download scheduler. Each
// entry carries an idempotency key computed from stable platform
// identifiers via IdempotencyKey, which is what makes re-runs skip already
// completed work even after titles change upstream.
package model
