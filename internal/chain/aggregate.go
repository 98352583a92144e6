package chain

import "sort"

// AggregateWindow sums Greeks over the ATM-plus-OTM strike window:
// calls at the ATM strike and the windowSize strikes above it, puts at
// the ATM strike and the windowSize strikes below it. Order of the
// options slice does not affect the result.
func AggregateWindow(s *Snapshot, windowSize int) Aggregate {
	strikes := distinctStrikes(s.Options)
	atmIdx := -1
	for i, k := range strikes {
		if k == s.ATMStrike {
			atmIdx = i
			break
		}
	}
	if atmIdx < 0 {
		return Aggregate{}
	}

	hi := atmIdx + windowSize + 1
	if hi > len(strikes) {
		hi = len(strikes)
	}
	lo := atmIdx - windowSize
	if lo < 0 {
		lo = 0
	}

	callStrikes := strikeSet(strikes[atmIdx:hi])
	putStrikes := strikeSet(strikes[lo : atmIdx+1])

	var agg Aggregate
	for _, opt := range s.Options {
		switch {
		case opt.Type == Call && callStrikes[opt.Strike]:
			agg.Call.Delta += opt.Delta
			agg.Call.Vega += opt.Vega
			agg.Call.Theta += opt.Theta
			agg.Call.Gamma += opt.Gamma
			agg.Call.OptionCount++
		case opt.Type == Put && putStrikes[opt.Strike]:
			agg.Put.Delta += opt.Delta
			agg.Put.Vega += opt.Vega
			agg.Put.Theta += opt.Theta
			agg.Put.Gamma += opt.Gamma
			agg.Put.OptionCount++
		}
	}
	return agg
}

// ChangeFrom computes the movement of current against a baseline.
func ChangeFrom(baseline, current Aggregate) Change {
	return Change{
		Call: SideChange{
			Delta: current.Call.Delta - baseline.Call.Delta,
			Vega:  current.Call.Vega - baseline.Call.Vega,
			Theta: current.Call.Theta - baseline.Call.Theta,
			Gamma: current.Call.Gamma - baseline.Call.Gamma,
		},
		Put: SideChange{
			Delta: current.Put.Delta - baseline.Put.Delta,
			Vega:  current.Put.Vega - baseline.Put.Vega,
			Theta: current.Put.Theta - baseline.Put.Theta,
			Gamma: current.Put.Gamma - baseline.Put.Gamma,
		},
	}
}

func distinctStrikes(options []Option) []float64 {
	seen := make(map[float64]struct{}, len(options))
	strikes := make([]float64, 0, len(options))
	for _, opt := range options {
		if _, ok := seen[opt.Strike]; !ok {
			seen[opt.Strike] = struct{}{}
			strikes = append(strikes, opt.Strike)
		}
	}
	sort.Float64s(strikes)
	return strikes
}

func strikeSet(strikes []float64) map[float64]bool {
	set := make(map[float64]bool, len(strikes))
	for _, k := range strikes {
		set[k] = true
	}
	return set
}
