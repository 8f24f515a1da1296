// Package apperr holds sentinel errors shared by storage and the services.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("invalid path")
	ErrInvalidInput  = errors.New("invalid input")
)
