package store

import "errors"

var (
	// ErrNotFound covers both nonexistent documents and documents owned by
	// another account; callers cannot tell the two apart.
	ErrNotFound = errors.New("resume not found")

	// ErrValidation marks rejected user input, e.g. an empty title.
	ErrValidation = errors.New("invalid resume input")
)
