// Package moc maintains the daily map of content: one note per day that
// links every note first logged on that day.
package moc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/starford/leanjournal/internal/apperr"
	"github.com/starford/leanjournal/internal/dateformat"
	"github.com/starford/leanjournal/internal/index"
	"github.com/starford/leanjournal/internal/models"
	"github.com/starford/leanjournal/internal/notify"
	"github.com/starford/leanjournal/internal/settings"
	"github.com/starford/leanjournal/internal/storage"
)

// LinkedNotesHeading introduces the list of linked notes.
const LinkedNotesHeading = "## Linked Notes"

var (
	entryRe   = regexp.MustCompile(`- \[\[(.*?)\]\]`)
	headingRe = regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(LinkedNotesHeading) + `[ \t]*$`)
)

// MetadataCache serves indexed front matter without re-reading files.
type MetadataCache interface {
	FileMeta(path string) (*models.FileMeta, error)
}

// Result describes one BuildOrUpdate run.
type Result struct {
	Path    string   `json:"path"`
	Created bool     `json:"created"`
	Added   []string `json:"added"`
}

// Builder creates and refreshes the daily MOC note.
type Builder struct {
	store    storage.Provider
	cache    MetadataCache
	settings *settings.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewBuilder creates a new MOC builder.
func NewBuilder(store storage.Provider, cache MetadataCache, st *settings.Store, n notify.Notifier, logger *slog.Logger) *Builder {
	return &Builder{store: store, cache: cache, settings: st, notifier: n, logger: logger}
}

// Path returns the vault path of the MOC note for day.
func (b *Builder) Path(day time.Time) string {
	s := b.settings.Get()
	return path.Join(s.MOCFolderPath, dateformat.Format(day, s.DateFormat)+index.NoteExt)
}

// BuildOrUpdate links every note whose first `log` entry is today into
// today's MOC note, creating the note if needed. Notes already linked are
// skipped; when nothing new qualifies the note is not written.
func (b *Builder) BuildOrUpdate(_ context.Context, today time.Time) (Result, error) {
	res, err := b.buildOrUpdate(today)
	if err != nil {
		b.logger.Error("moc: update failed", slog.String("error", err.Error()))
		b.notifier.Notify("Failed to create daily MOC. Check the logs for details.")
		return res, err
	}
	b.logger.Debug("moc: daily MOC updated",
		slog.String("path", res.Path),
		slog.Int("added", len(res.Added)))
	return res, nil
}

func (b *Builder) buildOrUpdate(today time.Time) (Result, error) {
	date := dateformat.Format(today, b.settings.Get().DateFormat)
	res := Result{Path: b.Path(today)}

	content, created, err := b.load(res.Path)
	if err != nil {
		return res, err
	}
	res.Created = created

	existing := make(map[string]struct{})
	for _, m := range entryRe.FindAllStringSubmatch(content, -1) {
		existing[m[1]] = struct{}{}
	}

	metas, err := b.store.List("", index.NoteExt)
	if err != nil {
		return res, fmt.Errorf("moc: list notes: %w", err)
	}
	for _, m := range metas {
		if m.Path == res.Path {
			continue
		}
		name := m.Basename()
		if _, ok := existing[name]; ok {
			continue
		}
		if !b.loggedOn(m.Path, date) {
			continue
		}
		existing[name] = struct{}{}
		res.Added = append(res.Added, name)
	}

	if len(res.Added) == 0 {
		return res, nil
	}
	if err := b.store.Write(res.Path, []byte(insertEntries(content, res.Added))); err != nil {
		return res, fmt.Errorf("moc: write %s: %w", res.Path, err)
	}
	return res, nil
}

// load returns the MOC content, creating an empty note when absent.
func (b *Builder) load(p string) (string, bool, error) {
	data, err := b.store.Read(p)
	if err == nil {
		return string(data), false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return "", false, fmt.Errorf("moc: read %s: %w", p, err)
	}
	if err := b.store.Create(p, nil); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
		return "", false, fmt.Errorf("moc: create %s: %w", p, err)
	}
	b.logger.Info("moc: created daily note", slog.String("path", p))
	return "", true, nil
}

// loggedOn reports whether the first cached `log` entry of p is date.
func (b *Builder) loggedOn(p, date string) bool {
	fm, err := b.cache.FileMeta(p)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			b.logger.Warn("moc: metadata lookup failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		return false
	}
	if len(fm.Log) == 0 {
		return false
	}
	first := strings.NewReplacer("[", "", "]", "").Replace(fm.Log[0])
	return first == date
}

// insertEntries adds bullet links for names directly under the Linked
// Notes heading, or appends a new section when the heading is missing.
func insertEntries(content string, names []string) string {
	bullets := make([]string, len(names))
	for i, n := range names {
		bullets[i] = "- [[" + n + "]]"
	}
	list := strings.Join(bullets, "\n")

	loc := headingRe.FindStringIndex(content)
	if loc == nil {
		if content == "" {
			return LinkedNotesHeading + "\n\n" + list
		}
		return content + "\n\n" + LinkedNotesHeading + "\n\n" + list
	}

	head, rest := content[:loc[1]], content[loc[1]:]
	switch {
	case strings.HasPrefix(rest, "\n\n"):
		return head + "\n\n" + list + "\n" + rest[2:]
	case strings.HasPrefix(rest, "\n"):
		return head + "\n\n" + list + "\n" + rest[1:]
	default:
		return head + "\n\n" + list + rest
	}
}
