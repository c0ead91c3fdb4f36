package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates an invalid request payload.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateContent indicates an upload whose bytes are already known.
	ErrDuplicateContent = errors.New("duplicate content")
	// ErrUnparsable indicates a document whose structure could not be understood.
	ErrUnparsable = errors.New("unparsable document")
)
