// Package signals evaluates aggregated option Greeks against canonical
// position signatures and confirms them across consecutive poll cycles.
package signals

import (
	"time"

	"github.com/option-signal-feed/internal/chain"
)

// Position is one of the four canonical Greek-signature positions.
type Position string

const (
	LongCall  Position = "Long Call"
	LongPut   Position = "Long Put"
	ShortCall Position = "Short Call"
	ShortPut  Position = "Short Put"
)

// Positions lists the signatures in canonical evaluation order.
var Positions = []Position{LongCall, LongPut, ShortCall, ShortPut}

// signature encodes the expected sign of each Greek for a position.
// true means positive.
type signature struct {
	delta, vega, theta, gamma bool
}

var signatures = map[Position]signature{
	LongCall:  {delta: true, vega: true, theta: false, gamma: true},
	LongPut:   {delta: false, vega: true, theta: false, gamma: true},
	ShortCall: {delta: false, vega: false, theta: true, gamma: false},
	ShortPut:  {delta: true, vega: false, theta: true, gamma: false},
}

// Side returns the chain leg a position's signature is evaluated on.
// Call positions read the call-side aggregate, put positions the put side.
func (p Position) Side() chain.OptionType {
	if p == LongCall || p == ShortCall {
		return chain.Call
	}
	return chain.Put
}

// Thresholds are the absolute magnitudes each Greek must clear.
type Thresholds struct {
	Delta float64 `json:"delta_threshold"`
	Vega  float64 `json:"vega_threshold"`
	Theta float64 `json:"theta_threshold"`
	Gamma float64 `json:"gamma_threshold"`
}

// GreekCheck is the per-Greek evaluation detail published to clients.
type GreekCheck struct {
	Value          float64 `json:"value"`
	Match          bool    `json:"match"`
	SignMatch      bool    `json:"sign_match"`
	ThresholdMatch bool    `json:"threshold_match"`
}

// Evaluation is one position's result for one cycle.
type Evaluation struct {
	Position   Position   `json:"position"`
	Delta      GreekCheck `json:"delta"`
	Vega       GreekCheck `json:"vega"`
	Theta      GreekCheck `json:"theta"`
	Gamma      GreekCheck `json:"gamma"`
	AllMatched bool       `json:"all_matched"`
	Streak     int        `json:"streak"`
	Confirmed  bool       `json:"confirmed"`
}

// Confirmed is a signature that held for the required consecutive cycles.
type Confirmed struct {
	Timestamp time.Time `json:"timestamp"`
	Position  Position  `json:"position"`
	Strike    float64   `json:"strike"`
	StrikeLTP float64   `json:"strike_ltp"`
	Delta     float64   `json:"delta"`
	Vega      float64   `json:"vega"`
	Theta     float64   `json:"theta"`
	Gamma     float64   `json:"gamma"`
}

func checkGreek(value float64, wantPositive bool, threshold float64) GreekCheck {
	signMatch := (wantPositive && value > 0) || (!wantPositive && value < 0)
	thresholdMatch := abs(value) >= threshold
	return GreekCheck{
		Value:          value,
		Match:          signMatch && thresholdMatch,
		SignMatch:      signMatch,
		ThresholdMatch: thresholdMatch,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// evaluate applies a position's signature to the relevant side of the
// aggregate without touching confirmation state.
func evaluate(pos Position, agg chain.Aggregate, th Thresholds) Evaluation {
	side := agg.Put
	if pos.Side() == chain.Call {
		side = agg.Call
	}
	sig := signatures[pos]
	ev := Evaluation{
		Position: pos,
		Delta:    checkGreek(side.Delta, sig.delta, th.Delta),
		Vega:     checkGreek(side.Vega, sig.vega, th.Vega),
		Theta:    checkGreek(side.Theta, sig.theta, th.Theta),
		Gamma:    checkGreek(side.Gamma, sig.gamma, th.Gamma),
	}
	ev.AllMatched = ev.Delta.Match && ev.Vega.Match && ev.Theta.Match && ev.Gamma.Match
	return ev
}
