// Package models defines the domain types shared across leanjournal packages.
package models

import (
	"path"
	"strings"
	"time"
)

// NoteMetadata is the storage-level view of a vault document.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Basename returns the file name without directory and extension,
// which is the target used in [[wikilinks]].
func (m NoteMetadata) Basename() string {
	return Basename(m.Path)
}

// FileMeta is the indexed front-matter view of a note, served by the
// metadata cache without re-reading the file.
type FileMeta struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Log       []string  `json:"log"`
	HasLog    bool      `json:"has_log"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a vault note returned to clients.
type Document struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Basename strips directories and the extension from a slash path.
func Basename(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
