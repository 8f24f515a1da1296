package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/leanjournal/internal/apperr"
	"github.com/starford/leanjournal/internal/index"
	"github.com/starford/leanjournal/internal/journal"
	"github.com/starford/leanjournal/internal/logprop"
	"github.com/starford/leanjournal/internal/moc"
	"github.com/starford/leanjournal/internal/models"
	"github.com/starford/leanjournal/internal/notify"
	"github.com/starford/leanjournal/internal/schedule"
	"github.com/starford/leanjournal/internal/settings"
	"github.com/starford/leanjournal/internal/sse"
	"github.com/starford/leanjournal/internal/storage"
)

// App holds the opened vault, its index and the journal services. The CLI,
// HTTP and MCP surfaces all drive it.
type App struct {
	cfg      *Config
	logger   *slog.Logger
	level    *slog.LevelVar
	store    *storage.FS
	db       *index.DB
	settings *settings.Store
	notifier notify.Notifier
	events   *sse.Broker
	now      func() time.Time

	journal *journal.Appender
	moc     *moc.Builder
	logs    *logprop.Service

	// scheduler is only set by Run; one-shot commands refresh the MOC inline.
	scheduler *schedule.Scheduler
	mu        sync.Mutex
}

// Open loads settings, opens the vault and its index and wires the
// services. The caller must Close the app.
func Open(opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	st, err := settings.Load(cfg.Settings.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path, storage.WithExclude(cfg.Vault.Exclude...), storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	now := a.now
	if now == nil {
		now = time.Now
	}
	notifier := notify.Multi{notify.Log{Logger: logger}, a.notifier}
	current := settings.NewStore(st)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		level:    level,
		store:    store,
		db:       db,
		settings: current,
		notifier: notifier,
		events:   a.events,
		now:      now,
		journal:  journal.NewAppender(store, current, notifier, logger),
		moc:      moc.NewBuilder(store, db, current, notifier, logger),
		logs:     logprop.NewService(store, db, current, notifier, logger),
	}
	app.applyLevel(st)
	return app, nil
}

// Close releases the index.
func (a *App) Close() error {
	return a.db.Close()
}

// Sync brings the metadata index up to date with the vault.
func (a *App) Sync() error {
	return index.Sync(a.db, a.store, a.logger)
}

func (a *App) publish(typ string, data any) {
	if a.events != nil {
		a.events.Publish(sse.Event{Type: typ, Data: data})
	}
}

// AddJournalEntry adds a time heading for now to the journal. With
// automatic MOC enabled it also asks for a MOC refresh.
func (a *App) AddJournalEntry(ctx context.Context) error {
	if err := a.journal.AddEntry(ctx, a.now()); err != nil {
		return err
	}
	a.publish(sse.TypeJournalEntry, map[string]string{"path": a.journal.Path()})
	if a.settings.Get().EnableAutoMOC {
		a.requestMOC(ctx)
	}
	return nil
}

// Journal returns the journal note.
func (a *App) Journal(ctx context.Context) (models.Document, error) {
	content, err := a.journal.Read(ctx)
	if err != nil {
		return models.Document{}, err
	}
	return models.Document{Path: a.journal.Path(), Content: content}, nil
}

// BuildDailyMOC links today's notes into today's MOC note.
func (a *App) BuildDailyMOC(ctx context.Context) (moc.Result, error) {
	res, err := a.moc.BuildOrUpdate(ctx, a.now())
	if err != nil {
		return res, err
	}
	if res.Created || len(res.Added) > 0 {
		a.publish(sse.TypeMOCUpdated, res)
	}
	return res, nil
}

// DailyMOC returns today's MOC note.
func (a *App) DailyMOC(_ context.Context) (models.Document, error) {
	p := a.moc.Path(a.now())
	data, err := a.store.Read(p)
	if err != nil {
		return models.Document{}, fmt.Errorf("moc: %w", err)
	}
	return models.Document{Path: p, Content: string(data)}, nil
}

// BackfillLogs stamps every note that has no `log` property.
func (a *App) BackfillLogs(ctx context.Context) (logprop.Report, error) {
	rep, err := a.logs.Backfill(ctx)
	if err == nil {
		a.publish(sse.TypeLogsUpdated, rep)
	}
	return rep, err
}

// ResetLogs strips the `log` property from every note.
func (a *App) ResetLogs(ctx context.Context) (logprop.Report, error) {
	rep, err := a.logs.ResetLogs(ctx)
	if err == nil {
		a.publish(sse.TypeLogsUpdated, rep)
	}
	return rep, err
}

// Settings returns the current settings.
func (a *App) Settings() settings.Settings {
	return a.settings.Get()
}

// UpdateSettings validates s, persists it and applies it to the running
// services.
func (a *App) UpdateSettings(_ context.Context, s settings.Settings) (settings.Settings, error) {
	if err := s.Validate(); err != nil {
		return settings.Settings{}, fmt.Errorf("settings: %w: %v", apperr.ErrInvalidInput, err)
	}
	if p := a.cfg.Settings.Path; p != "" {
		if err := settings.Save(p, s); err != nil {
			return settings.Settings{}, err
		}
	}
	a.apply(s)
	return s, nil
}

// ReloadSettings re-reads the settings file. An invalid file leaves the
// current settings in place.
func (a *App) ReloadSettings() error {
	s, err := settings.Load(a.cfg.Settings.Path)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		a.logger.Warn("settings: reload failed", slog.String("error", err.Error()))
		return err
	}
	a.apply(s)
	return nil
}

func (a *App) apply(s settings.Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.settings.Set(s)
	a.applyLevel(s)
	if prev == s {
		return
	}
	a.logger.Info("settings: applied",
		slog.Bool("auto_moc", s.EnableAutoMOC),
		slog.Int("moc_interval_minutes", s.MOCUpdateInterval))
	if prev.EnableAutoMOC != s.EnableAutoMOC || prev.MOCUpdateInterval != s.MOCUpdateInterval {
		a.armTimer(s)
	}
}

func (a *App) applyLevel(s settings.Settings) {
	if s.Debug {
		a.level.Set(slog.LevelDebug)
	} else {
		a.level.Set(a.cfg.App.LogLevel)
	}
}

// armTimer re-arms the MOC refresh timer for s.
func (a *App) armTimer(s settings.Settings) {
	if a.scheduler == nil {
		return
	}
	if s.EnableAutoMOC {
		a.scheduler.Restart(time.Duration(s.MOCUpdateInterval) * time.Minute)
	} else {
		a.scheduler.Stop()
	}
}

func (a *App) requestMOC(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Trigger()
		return
	}
	_, _ = a.BuildDailyMOC(ctx)
}

func (a *App) scheduledMOC(ctx context.Context) error {
	if !a.settings.Get().EnableAutoMOC {
		return nil
	}
	_, err := a.BuildDailyMOC(ctx)
	return err
}

// OnNoteEvent reacts to watcher changes. With automatic MOC enabled a
// newly created note is stamped with its creation date and a MOC refresh
// is requested. The journal and today's MOC are never stamped: the MOC is
// created empty and filled right after, and a stamp racing that write
// would drop the new links.
func (a *App) OnNoteEvent(ctx context.Context, kind, path string) {
	s := a.settings.Get()
	if kind != index.EventCreated || !s.EnableAutoMOC {
		return
	}
	if path == s.JournalFilePath || path == a.moc.Path(a.now()) {
		return
	}
	if err := a.logs.AddLogPropertyToFile(ctx, path); err != nil {
		return
	}
	// Refresh the cache now so the MOC run sees the stamp.
	if err := index.IndexPath(a.db, a.store, path); err != nil {
		a.logger.Warn("index: refresh after stamp failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	a.requestMOC(ctx)
}
