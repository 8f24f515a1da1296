package schedule

import "time"

// gate decides whether a trigger at a given time may run. A passing
// trigger reserves the run slot; release gives it back after a failure.
type gate struct {
	debounce   time.Duration
	minSpacing time.Duration

	lastTrigger time.Time
	lastRun     time.Time
	prevRun     time.Time
}

// verdict is the outcome of one trigger.
type verdict struct {
	ok bool
	// since is the time since the last run, zero before the first.
	since time.Duration
	// wait is how long after now a held-back trigger may run: past the
	// debounce window it opened and past the minimum spacing.
	wait time.Duration
}

// allow records a trigger at now and decides whether it may run.
func (g *gate) allow(now time.Time) verdict {
	var v verdict
	if !g.lastRun.IsZero() {
		v.since = now.Sub(g.lastRun)
	}

	debounced := !g.lastTrigger.IsZero() && now.Sub(g.lastTrigger) < g.debounce
	g.lastTrigger = now
	spaced := g.lastRun.IsZero() || v.since >= g.minSpacing
	if debounced || !spaced {
		due := now.Add(g.debounce)
		if next := g.lastRun.Add(g.minSpacing); !g.lastRun.IsZero() && next.After(due) {
			due = next
		}
		v.wait = due.Sub(now)
		return v
	}
	g.prevRun, g.lastRun = g.lastRun, now
	v.ok = true
	return v
}

// release undoes the reservation made at reserved, unless a later run has
// taken the slot since.
func (g *gate) release(reserved time.Time) {
	if g.lastRun.Equal(reserved) {
		g.lastRun = g.prevRun
	}
}
