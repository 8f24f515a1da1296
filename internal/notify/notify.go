// Package notify is the user-facing notification surface: short transient
// messages about long operations. Notices never drive control flow.
package notify

import "log/slog"

// Notifier displays a short message to the user.
type Notifier interface {
	Notify(msg string)
}

// Func adapts a function to Notifier.
type Func func(msg string)

// Notify calls f(msg).
func (f Func) Notify(msg string) { f(msg) }

// Multi fans a notice out to every notifier.
type Multi []Notifier

// Notify forwards msg to each notifier in order.
func (m Multi) Notify(msg string) {
	for _, n := range m {
		if n != nil {
			n.Notify(msg)
		}
	}
}

// Log writes notices to a logger at info level.
type Log struct {
	Logger *slog.Logger
}

// Notify logs msg.
func (l Log) Notify(msg string) {
	l.Logger.Info("notice", slog.String("message", msg))
}

// Discard drops every notice.
var Discard Notifier = Func(func(string) {})
