// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/leanjournal/internal/models"

// Provider is the interface for vault file operations. Paths are slash
// separated and relative to the vault root.
type Provider interface {
	// List returns metadata for every file with extension ext under dir, in
	// lexical walk order.
	List(dir, ext string) ([]models.NoteMetadata, error)
	// Stat returns metadata for path, or apperr.ErrNotFound.
	Stat(path string) (*models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of path, creating it if needed.
	Write(path string, content []byte) error
	// Create writes a new file and fails with apperr.ErrAlreadyExists if
	// path is taken.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
