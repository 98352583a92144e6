// Package baseline tracks the first aggregated Greek reading of each
// trading day, the reference against which intraday change is measured.
package baseline

import (
	"sync"
	"time"

	"github.com/option-signal-feed/internal/chain"
)

// Baseline is a captured reference aggregate.
type Baseline struct {
	Aggregate  chain.Aggregate `json:"aggregate"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Manager owns the baseline lifecycle for one session. Capture happens
// on the first aggregation of each trading day; a reset forces the next
// poll to recapture. Safe for concurrent use so an administrative reset
// can land between polls.
type Manager struct {
	mu  sync.Mutex
	cur *Baseline
	loc *time.Location
}

func NewManager(loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{loc: loc}
}

// Observe feeds the latest aggregate into the manager and returns the
// baseline in effect. A new baseline is captured when none exists or
// when the existing one was captured on an earlier day.
func (m *Manager) Observe(agg chain.Aggregate, now time.Time) Baseline {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur == nil || !sameDay(m.cur.CapturedAt, now, m.loc) {
		m.cur = &Baseline{Aggregate: agg, CapturedAt: now}
	}
	return *m.cur
}

// Current returns the active baseline, if any.
func (m *Manager) Current() (Baseline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return Baseline{}, false
	}
	return *m.cur, true
}

// Reset discards the active baseline. Resetting an empty manager is a
// no-op; either way the next Observe captures fresh.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
