package model

import "fmt"

// StructureError means the course's raw structure was unrecognizable at the
// root. It is fatal for that course; other courses in a batch continue.
type StructureError struct {
	Reason string
	Err    error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("course structure unusable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("course structure unusable: %s", e.Reason)
}

func (e *StructureError) Unwrap() error { return e.Err }

// ResolutionError records a single node that could not be resolved.
// It never aborts sibling resolution; it surfaces in the end-of-run report.
type ResolutionError struct {
	NodeRef string
	Cause   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.NodeRef, e.Cause)
}

func (e *ResolutionError) Unwrap() error { return e.Cause }
