package signals

import "github.com/option-signal-feed/internal/chain"

// Detector carries per-position confirmation streaks across poll cycles
// for one session. It is owned by the session's poll loop and is not
// safe for concurrent use.
type Detector struct {
	streaks map[Position]int
}

func NewDetector() *Detector {
	return &Detector{streaks: make(map[Position]int, len(Positions))}
}

// Result is one cycle's detector output: the per-position evaluations
// plus at most one confirmed signal.
type Result struct {
	Evaluations []Evaluation
	Confirmed   *Confirmed
}

// Evaluate runs all four signatures against the aggregate. A position
// whose four predicates hold extends its streak; any miss resets it.
// When a streak reaches confirmations the position is confirmed, its
// streak returns to zero, and no other position may confirm in the same
// cycle (streaks still advance independently).
func (d *Detector) Evaluate(snap *chain.Snapshot, agg chain.Aggregate, th Thresholds, confirmations int) Result {
	if confirmations < 1 {
		confirmations = 1
	}

	res := Result{Evaluations: make([]Evaluation, 0, len(Positions))}
	for _, pos := range Positions {
		ev := evaluate(pos, agg, th)
		if ev.AllMatched {
			d.streaks[pos]++
			if d.streaks[pos] >= confirmations && res.Confirmed == nil {
				res.Confirmed = d.confirm(pos, snap, ev)
				d.streaks[pos] = 0
			}
		} else {
			d.streaks[pos] = 0
		}
		ev.Streak = d.streaks[pos]
		ev.Confirmed = res.Confirmed != nil && res.Confirmed.Position == pos
		res.Evaluations = append(res.Evaluations, ev)
	}
	return res
}

// Reset clears all streaks, used on new-day rollover.
func (d *Detector) Reset() {
	for pos := range d.streaks {
		d.streaks[pos] = 0
	}
}

func (d *Detector) confirm(pos Position, snap *chain.Snapshot, ev Evaluation) *Confirmed {
	c := &Confirmed{
		Timestamp: snap.Timestamp,
		Position:  pos,
		Strike:    snap.ATMStrike,
		Delta:     ev.Delta.Value,
		Vega:      ev.Vega.Value,
		Theta:     ev.Theta.Value,
		Gamma:     ev.Gamma.Value,
	}
	if opt, ok := snap.Contract(snap.ATMStrike, pos.Side()); ok {
		c.StrikeLTP = opt.LTP
	}
	return c
}
