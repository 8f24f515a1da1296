package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/leanjournal/internal/apperr"
	"github.com/starford/leanjournal/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	Log       []string
	HasLog    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertNote inserts or replaces a note. The creation time of an existing
// row is kept: a rewrite must not move a note to another day.
func (db *DB) UpsertNote(n NoteRow) error {
	logJSON, err := json.Marshal(nonNil(n.Log))
	if err != nil {
		return fmt.Errorf("index: encode log: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO notes (path, title, checksum, log, has_log, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			log        = excluded.log,
			has_log    = excluded.has_log,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, string(logJSON), n.HasLog, n.CreatedAt.UTC(), n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note from the index.
func (db *DB) DeleteNote(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// FileMeta returns the cached front-matter view of a note, or
// apperr.ErrNotFound if the note is not indexed.
func (db *DB) FileMeta(path string) (*models.FileMeta, error) {
	var (
		m       models.FileMeta
		logJSON string
	)
	err := db.conn.QueryRow(`
		SELECT path, title, checksum, log, has_log, created_at
		FROM notes WHERE path = ?
	`, path).Scan(&m.Path, &m.Title, &m.Checksum, &logJSON, &m.HasLog, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: file meta %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: file meta %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(logJSON), &m.Log); err != nil {
		return nil, fmt.Errorf("index: decode log for %s: %w", path, err)
	}
	return &m, nil
}

// AllChecksums returns a map of path to checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
