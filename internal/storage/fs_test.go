package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/starford/leanjournal/internal/apperr"
)

func tempVault(t *testing.T, opts ...Option) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, opts...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("Daily Notes/2024-08-15.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("Daily Notes/2024-08-15.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Stat("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Stat err = %v, want ErrNotFound", err)
	}
}

func TestCreate(t *testing.T) {
	s := tempVault(t)
	if err := s.Create("Journal.md", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("Journal.md", []byte("again"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second Create err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("Journal.md")
	if len(got) != 0 {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if err := s.Delete("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestListFiltersByExtension(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("Journal.md.backup", []byte("not md"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "a.md" || items[1].Path != "sub/b.md" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestListExclude(t *testing.T) {
	s := tempVault(t, WithExclude(".trash/**", "**/*.excalidraw.md"))
	_ = s.Write("keep.md", []byte("k"))
	_ = s.Write(".trash/old.md", []byte("x"))
	_ = s.Write("drawings/board.excalidraw.md", []byte("x"))

	items, err := s.List("", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "keep.md" {
		t.Errorf("items = %+v, want only keep.md", items)
	}
}

func TestNewFS_InvalidExclude(t *testing.T) {
	if _, err := NewFS(t.TempDir(), WithExclude("[")); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidPath", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.md", []byte("original content"))
	if err := s.Write("atomic.md", []byte("updated content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/leanjournal-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "leanjournal-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func listPaths(t *testing.T, s *FS) []string {
	t.Helper()
	metas, err := s.List("", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	sort.Strings(paths)
	return paths
}

func TestListSkipsDanglingSymlink(t *testing.T) {
	s := tempVault(t)
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_ = s.Write(name, []byte(name))
	}
	if err := os.Symlink(filepath.Join(s.Root(), "gone.md"), filepath.Join(s.Root(), "b2.md")); err != nil {
		t.Skipf("symlink: %v", err)
	}

	got := listPaths(t, s)
	if len(got) != 3 || got[0] != "a.md" || got[2] != "c.md" {
		t.Errorf("paths = %v, want a.md b.md c.md", got)
	}
}

func TestListSkipsUnreadableEntries(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	s := tempVault(t)
	_ = s.Write("ok.md", []byte("ok"))
	_ = s.Write("secret.md", []byte("secret"))
	_ = s.Write("locked/inner.md", []byte("inner"))
	_ = os.Chmod(filepath.Join(s.Root(), "secret.md"), 0)
	_ = os.Chmod(filepath.Join(s.Root(), "locked"), 0)
	t.Cleanup(func() {
		_ = os.Chmod(filepath.Join(s.Root(), "secret.md"), 0o644)
		_ = os.Chmod(filepath.Join(s.Root(), "locked"), 0o755)
	})

	got := listPaths(t, s)
	if len(got) != 1 || got[0] != "ok.md" {
		t.Errorf("paths = %v, want [ok.md]", got)
	}
}

func TestListMissingDirFails(t *testing.T) {
	s := tempVault(t)
	if _, err := s.List("nope", ".md"); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
