package domain

import (
	"errors"
	"fmt"
)

// ErrSlideNotFound is returned when a slide id is unknown to the store.
var ErrSlideNotFound = errors.New("slide not found")

// ErrDeckNotFound is returned when a store has no deck to load.
var ErrDeckNotFound = errors.New("deck not found")

// ErrConflict is returned when a write is rejected because the store holds a newer state.
var ErrConflict = errors.New("concurrent edit conflict")

// ConflictError details a rejected write. It matches ErrConflict via errors.Is.
type ConflictError struct {
	SlideID  string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slide '%s': store is at revision %d, write was based on %d", e.SlideID, e.Actual, e.Expected)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// GraphReferenceError reports a connection pointing at an unknown slide.
// Navigation degrades to the next rule; this value only surfaces in validation.
type GraphReferenceError struct {
	SlideID string
	Rule    string
	Target  string
}

func (e *GraphReferenceError) Error() string {
	return fmt.Sprintf("slide '%s': %s points at unknown slide '%s'", e.SlideID, e.Rule, e.Target)
}

// OrderInconsistencyError reports a slide assigned to an unknown folder.
// Ordering treats such slides as unassigned.
type OrderInconsistencyError struct {
	SlideID  string
	FolderID string
}

func (e *OrderInconsistencyError) Error() string {
	return fmt.Sprintf("slide '%s' references unknown folder '%s'", e.SlideID, e.FolderID)
}

// CheckRevision returns a *ConflictError when a write based on revision
// expected reaches a slide whose stored revision is actual.
func CheckRevision(slideID string, expected, actual int64) error {
	if expected != actual {
		return &ConflictError{SlideID: slideID, Expected: expected, Actual: actual}
	}
	return nil
}
