// Package journal appends timestamped entries to the running journal note.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/leanjournal/internal/apperr"
	"github.com/starford/leanjournal/internal/dateformat"
	"github.com/starford/leanjournal/internal/frontmatter"
	"github.com/starford/leanjournal/internal/notify"
	"github.com/starford/leanjournal/internal/settings"
	"github.com/starford/leanjournal/internal/storage"
)

// BackupSuffix is appended to the journal path to name its backup copy.
const BackupSuffix = ".backup"

// Appender writes day and time headings into the journal note.
type Appender struct {
	store    storage.Provider
	settings *settings.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewAppender creates a new journal appender.
func NewAppender(store storage.Provider, st *settings.Store, n notify.Notifier, logger *slog.Logger) *Appender {
	return &Appender{store: store, settings: st, notifier: n, logger: logger}
}

// Path returns the vault path of the journal note.
func (a *Appender) Path() string {
	return a.settings.Get().JournalFilePath
}

// AddEntry backs up the journal and adds a time heading for now under
// today's day heading, creating either as needed. A failed backup is
// reported but does not stop the entry.
func (a *Appender) AddEntry(ctx context.Context, now time.Time) error {
	_ = a.Backup(ctx)

	if err := a.addEntry(now); err != nil {
		a.logger.Error("journal: add entry failed", slog.String("error", err.Error()))
		a.notifier.Notify("Failed to add journal entry. Check the logs for details.")
		return err
	}
	a.logger.Debug("journal: entry added", slog.String("path", a.Path()))
	return nil
}

func (a *Appender) addEntry(now time.Time) error {
	s := a.settings.Get()
	p := s.JournalFilePath

	content, err := a.load(p)
	if err != nil {
		return err
	}
	day := dateformat.Format(now, s.DateFormat)
	clock := dateformat.Format(now, s.TimeFormat)

	updated := insertEntry(content, day, clock)
	if err := a.store.Write(p, []byte(updated)); err != nil {
		return fmt.Errorf("journal: write %s: %w", p, err)
	}
	return nil
}

// load returns the journal content, creating an empty note when absent.
func (a *Appender) load(p string) (string, error) {
	data, err := a.store.Read(p)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return "", fmt.Errorf("journal: read %s: %w", p, err)
	}
	if err := a.store.Create(p, nil); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
		return "", fmt.Errorf("journal: create %s: %w", p, err)
	}
	a.logger.Info("journal: created journal", slog.String("path", p))
	return "", nil
}

// Read returns the journal content, or apperr.ErrNotFound.
func (a *Appender) Read(_ context.Context) (string, error) {
	data, err := a.store.Read(a.Path())
	if err != nil {
		return "", fmt.Errorf("journal: read: %w", err)
	}
	return string(data), nil
}

// Backup copies the journal to its sibling backup path, replacing any
// earlier backup. A missing journal is not an error.
func (a *Appender) Backup(_ context.Context) error {
	p := a.Path()
	if err := a.backup(p); err != nil {
		a.logger.Error("journal: backup failed", slog.String("path", p), slog.String("error", err.Error()))
		a.notifier.Notify("Failed to backup journal. Check the logs for details.")
		return err
	}
	return nil
}

func (a *Appender) backup(p string) error {
	data, err := a.store.Read(p)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("journal: read %s: %w", p, err)
	}

	bp := p + BackupSuffix
	if err := a.store.Delete(bp); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("journal: remove old backup: %w", err)
	}
	if err := a.store.Create(bp, data); err != nil {
		return fmt.Errorf("journal: create backup: %w", err)
	}
	a.logger.Debug("journal: backup created", slog.String("path", bp))
	return nil
}

// insertEntry puts a time heading directly below today's day heading. With
// no heading for today, a new day section goes on top of the journal, below
// any front matter.
func insertEntry(content, day, clock string) string {
	heading := "## [[" + day + "]]"
	entry := "### " + clock + "\n\n"

	if i := strings.Index(content, heading); i >= 0 {
		end := i + len(heading)
		return content[:end] + "\n\n" + entry + strings.TrimSpace(content[end:])
	}
	off := frontmatter.BodyOffset(content)
	meta, body := content[:off], content[off:]
	if body == "" {
		return meta + heading + "\n\n" + entry
	}
	return meta + heading + "\n\n" + entry + "\n\n" + body
}
