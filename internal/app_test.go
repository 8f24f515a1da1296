package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/leanjournal/internal/api"
	"github.com/starford/leanjournal/internal/index"
	"github.com/starford/leanjournal/internal/schedule"
	"github.com/starford/leanjournal/internal/settings"
	"github.com/starford/leanjournal/internal/testutil"
)

var appNow = time.Date(2024, 8, 15, 9, 30, 0, 0, time.Local)

func testApp(t *testing.T, s *settings.Settings) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	cfg.Settings.Path = filepath.Join(dir, "settings.yaml")
	cfg.App.LogLevel = slog.LevelError
	if s != nil {
		if err := settings.Save(cfg.Settings.Path, *s); err != nil {
			t.Fatal(err)
		}
	}

	app, err := Open(WithConfig(cfg), WithLogOutput(io.Discard), WithClock(func() time.Time { return appNow }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app, cfg.Vault.Path
}

func writeVault(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for p, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOpen_LoadsPersistedSettings(t *testing.T) {
	s := settings.Defaults()
	s.JournalFilePath = "Diary.md"
	app, _ := testApp(t, &s)
	if got := app.Settings().JournalFilePath; got != "Diary.md" {
		t.Errorf("journal path = %q", got)
	}
}

func TestOpen_RejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	cfg.Settings.Path = filepath.Join(dir, "settings.yaml")
	_ = os.WriteFile(cfg.Settings.Path, []byte("mocUpdateInterval: -3\n"), 0o644)

	if _, err := Open(WithConfig(cfg), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected invalid settings error")
	}
}

func TestAddJournalEntry_RefreshesMOCWhenAutoEnabled(t *testing.T) {
	s := settings.Defaults()
	s.EnableAutoMOC = true
	app, root := testApp(t, &s)
	writeVault(t, root, map[string]string{"idea.md": "---\nlog:\n  - \"[[2024-08-15]]\"\n---\nIdea"})
	if err := app.Sync(); err != nil {
		t.Fatal(err)
	}

	if err := app.AddJournalEntry(context.Background()); err != nil {
		t.Fatalf("AddJournalEntry: %v", err)
	}
	doc, err := app.DailyMOC(context.Background())
	if err != nil {
		t.Fatalf("DailyMOC: %v", err)
	}
	if doc.Content != "## Linked Notes\n\n- [[idea]]" {
		t.Errorf("MOC = %q", doc.Content)
	}
}

func TestAddJournalEntry_NoMOCWhenAutoDisabled(t *testing.T) {
	app, _ := testApp(t, nil)
	if err := app.AddJournalEntry(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := app.DailyMOC(context.Background()); err == nil {
		t.Error("MOC should not exist with automatic MOC disabled")
	}
}

func TestOnNoteEvent_StampsCreatedNotes(t *testing.T) {
	s := settings.Defaults()
	s.EnableAutoMOC = true
	app, root := testApp(t, &s)
	writeVault(t, root, map[string]string{"new.md": "fresh", "Journal.md": "## [[2024-08-14]]"})
	if err := app.Sync(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	app.OnNoteEvent(ctx, index.EventUpdated, "new.md")
	if data, _ := os.ReadFile(filepath.Join(root, "new.md")); string(data) != "fresh" {
		t.Fatal("updates must not be stamped")
	}

	app.OnNoteEvent(ctx, index.EventCreated, "new.md")
	app.OnNoteEvent(ctx, index.EventCreated, "Journal.md")

	data, _ := os.ReadFile(filepath.Join(root, "new.md"))
	if !strings.HasPrefix(string(data), "---\nlog:\n  - \"[[") {
		t.Errorf("new.md not stamped: %q", data)
	}
	if data, _ := os.ReadFile(filepath.Join(root, "Journal.md")); string(data) != "## [[2024-08-14]]" {
		t.Errorf("journal was stamped: %q", data)
	}
}

func TestOnNoteEvent_SkipsTodaysMOC(t *testing.T) {
	s := settings.Defaults()
	s.EnableAutoMOC = true
	app, root := testApp(t, &s)
	writeVault(t, root, map[string]string{"idea.md": "---\nlog:\n  - \"[[2024-08-15]]\"\n---\nIdea"})
	if err := app.Sync(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := app.BuildDailyMOC(ctx); err != nil {
		t.Fatal(err)
	}

	app.OnNoteEvent(ctx, index.EventCreated, "Daily Notes/2024-08-15.md")

	doc, err := app.DailyMOC(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "## Linked Notes\n\n- [[idea]]" {
		t.Errorf("MOC = %q, want it unstamped", doc.Content)
	}
}

func TestUpdateSettings_PersistsAndRearmsTimer(t *testing.T) {
	app, _ := testApp(t, nil)
	app.scheduler = schedule.New(func(context.Context) error { return nil }, testutil.Logger(), schedule.Options{})

	s := app.Settings()
	s.EnableAutoMOC = true
	s.MOCUpdateInterval = 7
	if _, err := app.UpdateSettings(context.Background(), s); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got := app.scheduler.Interval(); got != 7*time.Minute {
		t.Errorf("interval = %v, want 7m", got)
	}

	persisted, err := settings.Load(app.cfg.Settings.Path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s, persisted); diff != "" {
		t.Errorf("persisted mismatch (-want +got):\n%s", diff)
	}

	s.EnableAutoMOC = false
	if _, err := app.UpdateSettings(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if got := app.scheduler.Interval(); got != 0 {
		t.Errorf("interval = %v after disabling, want 0", got)
	}
}

func TestUpdateSettings_Invalid(t *testing.T) {
	app, _ := testApp(t, nil)
	s := app.Settings()
	s.TimeFormat = "no tokens here"
	if _, err := app.UpdateSettings(context.Background(), s); err == nil {
		t.Fatal("expected validation error")
	}
	if app.Settings().TimeFormat != "HH:mm" {
		t.Error("invalid settings were applied")
	}
}

func TestReloadSettings(t *testing.T) {
	app, _ := testApp(t, nil)
	_ = os.WriteFile(app.cfg.Settings.Path, []byte("journalFilePath: Log.md\ndebug: true\n"), 0o644)
	if err := app.ReloadSettings(); err != nil {
		t.Fatal(err)
	}
	if got := app.Settings().JournalFilePath; got != "Log.md" {
		t.Errorf("journal path = %q", got)
	}
	if app.level.Level() != slog.LevelDebug {
		t.Errorf("debug setting should lower the log level, got %v", app.level.Level())
	}

	_ = os.WriteFile(app.cfg.Settings.Path, []byte("dateFormat: nothing\n"), 0o644)
	if err := app.ReloadSettings(); err == nil {
		t.Error("expected reload error")
	}
	if got := app.Settings().JournalFilePath; got != "Log.md" {
		t.Error("failed reload must keep the current settings")
	}
}

func TestHTTPFlow(t *testing.T) {
	app, root := testApp(t, nil)
	writeVault(t, root, map[string]string{
		"a.md": "---\ntitle: A\n---\nA",
		"b.md": "---\nlog:\n  - \"[[2024-08-15]]\"\n  - \"[[2024-08-15]]\"\n---\nB",
	})
	if err := app.Sync(); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(api.NewRouter(app, false, "", nil))
	defer srv.Close()

	post := func(path string) map[string]any {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return out
	}

	if rep := post("/logs/backfill"); rep["changed"] != float64(1) {
		t.Errorf("backfill = %v", rep)
	}
	if rep := post("/logs/reset"); rep["changed"] != float64(2) {
		t.Errorf("reset = %v", rep)
	}
	if doc := post("/journal/entries"); doc["content"] != "## [[2024-08-15]]\n\n### 09:30\n\n" {
		t.Errorf("journal = %v", doc)
	}
}

func TestWatchSettings_SaveDoesNotRevert(t *testing.T) {
	app, _ := testApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.watchSettings(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Let the watcher register the directory.
	time.Sleep(50 * time.Millisecond)

	s := app.Settings()
	s.EnableAutoMOC = true
	s.MOCUpdateInterval = 3
	for i := 0; i < 5; i++ {
		if _, err := app.UpdateSettings(context.Background(), s); err != nil {
			t.Fatal(err)
		}
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if got := app.Settings(); got != s {
			t.Fatalf("settings reverted to %+v while the file was being saved", got)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// An outside edit is picked up.
	_ = os.WriteFile(app.cfg.Settings.Path, []byte("journalFilePath: Edited.md\n"), 0o644)
	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return app.Settings().JournalFilePath == "Edited.md"
	}, "outside edit was not reloaded")
}
