package internal

import (
	"io"
	"time"

	"github.com/starford/leanjournal/internal/notify"
	"github.com/starford/leanjournal/internal/sse"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	notifier  notify.Notifier
	events    *sse.Broker
	now       func() time.Time
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON log stream, which defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithNotifier adds a notice sink next to the log.
func WithNotifier(n notify.Notifier) Option {
	return func(a *application) {
		a.notifier = n
	}
}

// WithEvents publishes operation results and notices on b.
func WithEvents(b *sse.Broker) Option {
	return func(a *application) {
		a.events = b
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}
