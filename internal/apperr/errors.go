// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrNotAMarker    = errors.New("not an annotation marker")
	ErrEmptyBody     = errors.New("annotation body is empty")
	ErrOutOfRange    = errors.New("offset out of range")
	ErrSpansBoundary = errors.New("text spans a paragraph or heading boundary")
)
