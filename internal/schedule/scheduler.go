// Package schedule rate-limits the periodic and event-driven MOC refresh.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Action is the work a Scheduler runs. A returned error leaves the minimum
// spacing measured from the previous successful run.
type Action func(ctx context.Context) error

// Options tune a Scheduler.
type Options struct {
	// Debounce holds back triggers that arrive within this window of the
	// previous trigger. The first trigger of a burst runs immediately and
	// the last one runs once the burst has been quiet for the window.
	Debounce time.Duration
	// MinSpacing is the least time between two successful runs.
	MinSpacing time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Scheduler owns the refresh timer and forwards triggers to its action at
// most once per debounce window and minimum spacing. Runs never overlap.
type Scheduler struct {
	action Action
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	gate     gate
	interval time.Duration
	trailing *time.Timer
	closed   bool

	runCh   chan struct{}
	rearmCh chan struct{}

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a scheduler. Call Start to begin processing.
func New(action Action, logger *slog.Logger, opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		action:  action,
		logger:  logger,
		now:     now,
		gate:    gate{debounce: opts.Debounce, minSpacing: opts.MinSpacing},
		runCh:   make(chan struct{}, 1),
		rearmCh: make(chan struct{}, 1),
		cancel:  func() {},
		done:    make(chan struct{}),
	}
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()
		go s.run(ctx)
	})
}

const (
	sourceTrigger  = "trigger"
	sourceTimer    = "timer"
	sourceTrailing = "trailing"
)

// Trigger asks for a run. It never blocks. A trigger that falls inside the
// debounce window or the minimum spacing is deferred to the end of both,
// and later triggers push that deferred run back.
func (s *Scheduler) Trigger() {
	s.fire(sourceTrigger)
}

// Restart stops the refresh timer and, for a positive interval, starts a
// new one.
func (s *Scheduler) Restart(interval time.Duration) {
	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()
	select {
	case s.rearmCh <- struct{}{}:
	default:
	}
}

// Stop disarms the refresh timer. Triggers are still honoured.
func (s *Scheduler) Stop() {
	s.Restart(0)
}

// Interval returns the current timer interval, zero when disarmed.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Close stops the event loop and waits for an in-flight run to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.closed = true
	s.stopTrailing()
	s.mu.Unlock()
	cancel()
	s.startOnce.Do(func() { close(s.done) })
	<-s.done
}

func (s *Scheduler) fire(source string) {
	now := s.now()
	s.mu.Lock()
	v := s.gate.allow(now)
	switch {
	case v.ok:
		s.stopTrailing()
	case source != sourceTimer && !s.closed:
		// Timer ticks are not deferred; the next tick comes anyway.
		s.armTrailing(v.wait)
	}
	s.mu.Unlock()

	if !v.ok {
		s.logger.Debug("scheduler: skipping run",
			slog.String("source", source),
			slog.Duration("since_last_run", v.since),
			slog.Duration("retry_in", v.wait))
		return
	}
	select {
	case s.runCh <- struct{}{}:
		s.logger.Debug("scheduler: executing run",
			slog.String("source", source),
			slog.Duration("since_last_run", v.since))
	default:
		// A run is already queued.
	}
}

// armTrailing (re)schedules the deferred run. s.mu must be held.
func (s *Scheduler) armTrailing(wait time.Duration) {
	s.stopTrailing()
	s.trailing = time.AfterFunc(wait, func() { s.fire(sourceTrailing) })
}

// stopTrailing cancels the deferred run. s.mu must be held.
func (s *Scheduler) stopTrailing() {
	if s.trailing != nil {
		s.trailing.Stop()
		s.trailing = nil
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	var (
		ticker *time.Ticker
		tickCh <-chan time.Time
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tickCh = nil, nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.rearmCh:
			stopTicker()
			interval := s.Interval()
			if interval > 0 {
				ticker = time.NewTicker(interval)
				tickCh = ticker.C
				s.logger.Info("scheduler: timer started", slog.Duration("interval", interval))
			} else {
				s.logger.Info("scheduler: timer stopped")
			}

		case <-tickCh:
			s.fire(sourceTimer)

		case <-s.runCh:
			s.mu.Lock()
			reserved := s.gate.lastRun
			s.mu.Unlock()
			if err := s.action(ctx); err != nil {
				s.logger.Warn("scheduler: run failed", slog.String("error", err.Error()))
				s.mu.Lock()
				s.gate.release(reserved)
				s.mu.Unlock()
			}
		}
	}
}
