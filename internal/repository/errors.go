package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist or was deleted.
	ErrNotFound = errors.New("not found")

	// ErrStaleTemplate is returned when a template could not be advanced because
	// it was deleted, ended or advanced by someone else after it was read.
	ErrStaleTemplate = errors.New("template changed since it was read")

	// ErrDuplicateOccurrence is returned when an instance already exists for
	// the template and occurrence date.
	ErrDuplicateOccurrence = errors.New("occurrence already generated")
)
