// Package logprop maintains the `log` front-matter property across the
// vault: stamping single notes, backfilling notes that lack it and cleaning
// up duplicated entries.
package logprop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/leanjournal/internal/apperr"
	"github.com/starford/leanjournal/internal/dateformat"
	"github.com/starford/leanjournal/internal/frontmatter"
	"github.com/starford/leanjournal/internal/index"
	"github.com/starford/leanjournal/internal/models"
	"github.com/starford/leanjournal/internal/notify"
	"github.com/starford/leanjournal/internal/settings"
	"github.com/starford/leanjournal/internal/storage"
)

// progressEvery is how many files ResetLogs processes between notices.
const progressEvery = 100

// MetadataCache serves indexed front matter without re-reading files.
type MetadataCache interface {
	FileMeta(path string) (*models.FileMeta, error)
}

// Report summarises a batch run.
type Report struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
	Failed    int `json:"failed"`
}

// Service stamps and cleans the `log` property.
type Service struct {
	store    storage.Provider
	cache    MetadataCache
	settings *settings.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService creates a new log property service.
func NewService(store storage.Provider, cache MetadataCache, st *settings.Store, n notify.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, settings: st, notifier: n, logger: logger}
}

// AddLogPropertyToFile adds a `log` entry for the note's creation date. A
// note that already logs that date is left alone, so duplicate creation
// events do not stack entries.
func (s *Service) AddLogPropertyToFile(_ context.Context, path string) error {
	changed, err := s.addLogProperty(path)
	if err != nil {
		s.logger.Error("logprop: add log property failed", slog.String("path", path), slog.String("error", err.Error()))
		return err
	}
	if changed {
		s.logger.Debug("logprop: log property added", slog.String("path", path))
	}
	return nil
}

func (s *Service) addLogProperty(path string) (bool, error) {
	content, err := s.store.Read(path)
	if err != nil {
		return false, fmt.Errorf("logprop: read %s: %w", path, err)
	}
	created, err := s.createdAt(path)
	if err != nil {
		return false, fmt.Errorf("logprop: creation time %s: %w", path, err)
	}
	date := dateformat.Format(created.Local(), s.settings.Get().DateFormat)

	text := string(content)
	if frontmatter.HasLogEntry(text, date) {
		return false, nil
	}
	updated := frontmatter.InsertLogEntry(text, date)
	if updated == text {
		return false, nil
	}
	if err := s.store.Write(path, []byte(updated)); err != nil {
		return false, fmt.Errorf("logprop: write %s: %w", path, err)
	}
	return true, nil
}

// createdAt prefers the indexed creation time, which survives rewrites,
// over the file's current birth time.
func (s *Service) createdAt(path string) (time.Time, error) {
	if m, err := s.cache.FileMeta(path); err == nil && !m.CreatedAt.IsZero() {
		return m.CreatedAt, nil
	}
	meta, err := s.store.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return meta.CreatedAt, nil
}

// Backfill stamps every note whose indexed front matter has no `log` field.
// The journal is not a note and is skipped. Files are processed one at a
// time; a failing file is counted and skipped.
func (s *Service) Backfill(_ context.Context) (Report, error) {
	metas, err := s.store.List("", index.NoteExt)
	if err != nil {
		s.logger.Error("logprop: backfill list failed", slog.String("error", err.Error()))
		s.notifier.Notify("Failed to backfill log property. Check the logs for details.")
		return Report{}, fmt.Errorf("logprop: backfill: %w", err)
	}

	journal := s.settings.Get().JournalFilePath
	var todo []string
	for _, m := range metas {
		if m.Path == journal {
			continue
		}
		fm, err := s.cache.FileMeta(m.Path)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("logprop: metadata lookup failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
		if fm == nil || !fm.HasLog {
			todo = append(todo, m.Path)
		}
	}

	rep := Report{Total: len(todo)}
	s.notifier.Notify(fmt.Sprintf("Updating log property for %d files...", len(todo)))

	for _, p := range todo {
		changed, err := s.addLogProperty(p)
		rep.Processed++
		switch {
		case err != nil:
			rep.Failed++
			s.logger.Error("logprop: backfill file failed", slog.String("path", p), slog.String("error", err.Error()))
		case changed:
			rep.Changed++
		}
	}

	s.notifier.Notify(fmt.Sprintf("Updated log property for %d files.", rep.Changed))
	s.logger.Info("logprop: backfill complete",
		slog.Int("candidates", rep.Total),
		slog.Int("changed", rep.Changed),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

// ResetLogs removes every `log` field from every note, writing only files
// whose content changes. Running it twice leaves the vault as after once.
func (s *Service) ResetLogs(_ context.Context) (Report, error) {
	s.notifier.Notify("Starting log reset process...")

	metas, err := s.store.List("", index.NoteExt)
	if err != nil {
		s.logger.Error("logprop: reset list failed", slog.String("error", err.Error()))
		s.notifier.Notify("Failed to reset logs. Check the logs for details.")
		return Report{}, fmt.Errorf("logprop: reset: %w", err)
	}

	rep := Report{Total: len(metas)}
	for _, m := range metas {
		changed, err := s.cleanFile(m.Path)
		switch {
		case err != nil:
			rep.Failed++
			s.logger.Error("logprop: reset file failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		case changed:
			rep.Changed++
		}

		rep.Processed++
		if rep.Processed%progressEvery == 0 {
			s.notifier.Notify(fmt.Sprintf("Processed %d files...", rep.Processed))
		}
	}

	msg := fmt.Sprintf("Log reset complete. Processed %d files, updated %d files.", rep.Processed, rep.Changed)
	if rep.Failed > 0 {
		msg += fmt.Sprintf(" %d files failed.", rep.Failed)
	}
	s.notifier.Notify(msg)
	s.logger.Info("logprop: reset complete",
		slog.Int("processed", rep.Processed),
		slog.Int("changed", rep.Changed),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

func (s *Service) cleanFile(path string) (bool, error) {
	content, err := s.store.Read(path)
	if err != nil {
		return false, err
	}
	text := string(content)
	cleaned := frontmatter.CleanLogField(text)
	if cleaned == text {
		return false, nil
	}
	if err := s.store.Write(path, []byte(cleaned)); err != nil {
		return false, err
	}
	return true, nil
}
