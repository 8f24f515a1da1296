package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/natefinch/atomic"

	"github.com/starford/leanjournal/internal/apperr"
	"github.com/starford/leanjournal/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root    string // absolute path to vault directory
	exclude []string
	logger  *slog.Logger
}

// Option configures an FS.
type Option func(*FS)

// WithExclude skips files matching any of the doublestar patterns (for
// example ".trash/**") during List.
func WithExclude(patterns ...string) Option {
	return func(f *FS) {
		f.exclude = append(f.exclude, patterns...)
	}
}

// WithLogger sets the logger used to report files List had to skip.
func WithLogger(l *slog.Logger) Option {
	return func(f *FS) {
		f.logger = l
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	for _, p := range f.exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("storage: invalid exclude pattern %q", p)
		}
	}
	return f, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalidPath)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s: %w", rel, apperr.ErrInvalidPath)
	}
	return abs, nil
}

// Excluded reports whether rel matches one of the exclude patterns.
func (f *FS) Excluded(rel string) bool {
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// List walks dir and returns metadata for every file ending in ext. A file
// or subdirectory that vanishes or cannot be read during the walk is logged
// and skipped; only a failure on dir itself is returned.
func (f *FS) List(dir, ext string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		rel, _ := filepath.Rel(f.root, p)
		rel = filepath.ToSlash(rel)
		if walkErr != nil {
			if p == base {
				return walkErr
			}
			f.skip(rel, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if rel != "." && f.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ext) || f.Excluded(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			f.skip(rel, err)
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			f.skip(rel, err)
			return nil
		}
		out = append(out, models.NoteMetadata{
			Path:      rel,
			Checksum:  checksum(data),
			CreatedAt: birthTime(p, info),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

func (f *FS) skip(rel string, err error) {
	f.logger.Warn("storage: list skipped entry", slog.String("path", rel), slog.String("error", err.Error()))
}

// Stat returns metadata for a single vault file.
func (f *FS) Stat(path string) (*models.NoteMetadata, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, mapErr(err))
	}
	if info.IsDir() {
		return nil, fmt.Errorf("storage: stat %s: is a directory: %w", path, apperr.ErrNotFound)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, mapErr(err))
	}
	return &models.NoteMetadata{
		Path:      filepath.ToSlash(path),
		Checksum:  checksum(data),
		CreatedAt: birthTime(abs, info),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, mapErr(err))
	}
	return data, nil
}

// Write atomically replaces the file content via a temp file and rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// Create writes a file that must not exist yet.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	fh, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, mapErr(err))
	}
	if _, err := fh.Write(content); err != nil {
		_ = fh.Close()
		_ = os.Remove(abs)
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(abs)
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, mapErr(err))
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(apperr.ErrNotFound, err)
	case errors.Is(err, fs.ErrExist):
		return errors.Join(apperr.ErrAlreadyExists, err)
	}
	return err
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
