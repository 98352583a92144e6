// Package session runs one poll loop per authenticated user: fetch,
// normalize, aggregate, classify, and hand the assembled composite
// state to the broadcaster.
package session

import (
	"time"

	"github.com/option-signal-feed/internal/baseline"
	"github.com/option-signal-feed/internal/chain"
	"github.com/option-signal-feed/internal/regime"
	"github.com/option-signal-feed/internal/signals"
)

// Composite is the full per-cycle state pushed to subscribers and
// served on the dashboard endpoint. It is assembled once per cycle by
// the session's poll loop and treated as immutable afterwards.
type Composite struct {
	User          string    `json:"user"`
	Sequence      uint64    `json:"_sequence"`
	PollTimestamp time.Time `json:"_poll_timestamp"`
	Stale         bool      `json:"stale"`
	LastError     string    `json:"last_error,omitempty"`

	UnderlyingPrice float64 `json:"underlying_price"`
	ATMStrike       float64 `json:"atm_strike"`
	ExpiryDate      string  `json:"expiry_date"`

	Aggregated chain.Aggregate    `json:"aggregated_greeks"`
	Baseline   *baseline.Baseline `json:"baseline"`
	Change     *chain.Change      `json:"change_from_baseline"`

	Signals         []signals.Evaluation `json:"signals"`
	ConfirmedSignal *signals.Confirmed   `json:"confirmed_signal,omitempty"`

	Volatility regime.VolMetrics `json:"volatility"`
	Direction  regime.DirMetrics `json:"direction"`
	Permission regime.Permission `json:"permission"`
}

// Clone returns an independent copy safe to hand to readers.
func (c *Composite) Clone() *Composite {
	out := *c
	if c.Baseline != nil {
		b := *c.Baseline
		out.Baseline = &b
	}
	if c.Change != nil {
		ch := *c.Change
		out.Change = &ch
	}
	if c.ConfirmedSignal != nil {
		s := *c.ConfirmedSignal
		out.ConfirmedSignal = &s
	}
	out.Signals = make([]signals.Evaluation, len(c.Signals))
	copy(out.Signals, c.Signals)
	return &out
}

// SignalEvent pairs a confirmed signal with its session for downstream
// alerting.
type SignalEvent struct {
	User   string
	Signal signals.Confirmed
}
