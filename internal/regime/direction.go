package regime

import (
	"fmt"
	"math"
	"time"
)

// DirState is the directional regime of the session.
type DirState string

const (
	DirNeutral DirState = "NEUTRAL"
	DirBull    DirState = "DIRECTIONAL_BULL"
	DirBear    DirState = "DIRECTIONAL_BEAR"
)

// Bias is the opening-gap acceptance verdict.
type Bias string

const (
	BiasNeutral Bias = "NEUTRAL"
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
)

// DirThresholds tune the direction classifier.
type DirThresholds struct {
	GapAcceptance     float64 `json:"gap_acceptance_threshold"`
	AcceptanceNeutral float64 `json:"acceptance_neutral_threshold"`
	REABull           float64 `json:"rea_bull_threshold"`
	REABear           float64 `json:"rea_bear_threshold"`
	REANeutralAbs     float64 `json:"rea_neutral_abs_threshold"`
	DEDirectional     float64 `json:"de_directional_threshold"`
	DENeutral         float64 `json:"de_neutral_threshold"`
}

// DefaultDirThresholds returns the stock classifier tuning.
func DefaultDirThresholds() DirThresholds {
	return DirThresholds{
		GapAcceptance:     0.65,
		AcceptanceNeutral: 0.5,
		REABull:           0.3,
		REABear:           -0.3,
		REANeutralAbs:     0.3,
		DEDirectional:     0.5,
		DENeutral:         0.3,
	}
}

// PrevDay carries the previous session's close and range, supplied from
// settings and refreshed daily. Zero Range means unavailable.
type PrevDay struct {
	Close float64 `json:"prev_close"`
	Range float64 `json:"prev_range"`
}

// OpeningMetrics is the gap-acceptance sub-model output.
type OpeningMetrics struct {
	Gap             *float64 `json:"gap"`
	GapPct          *float64 `json:"gap_pct"`
	AcceptanceRatio *float64 `json:"acceptance_ratio"`
	Bias            Bias     `json:"bias"`
}

// REAMetrics is the range-extension-asymmetry sub-model output. Value
// is nil while the session is still inside the initial-balance window
// or the window produced no range.
type REAMetrics struct {
	IBHigh  float64  `json:"ib_high"`
	IBLow   float64  `json:"ib_low"`
	IBRange float64  `json:"ib_range"`
	DayHigh float64  `json:"day_high"`
	DayLow  float64  `json:"day_low"`
	ReUp    float64  `json:"re_up"`
	ReDown  float64  `json:"re_down"`
	Value   *float64 `json:"rea_value"`
}

// DirMetrics is the published directional read for one cycle.
type DirMetrics struct {
	Opening OpeningMetrics `json:"opening"`
	REA     *REAMetrics    `json:"rea"`
	DE      *float64       `json:"de"`
	State   DirState       `json:"directional_state"`
	Reason  string         `json:"reason"`
}

// DirConfig fixes the session-shape constants of the classifier.
type DirConfig struct {
	SessionStart   time.Time
	InitialBalance time.Duration
	AcceptanceSkip time.Duration
	DECalc         DECalculator
}

// DECalculator computes directional efficiency from the intraday path.
// It is a collaborator so alternative displacement measures can be
// swapped in; only the classification thresholds are fixed here.
type DECalculator interface {
	DE(points []PricePoint) (float64, bool)
}

// PathDE is the stock directional-efficiency measure: net displacement
// over total path length.
type PathDE struct{}

func (PathDE) DE(points []PricePoint) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	var length float64
	prev := points[0].Price
	for _, p := range points[1:] {
		length += math.Abs(p.Price - prev)
		prev = p.Price
	}
	if length <= 0 {
		return 0, false
	}
	open := points[0].Price
	close := points[len(points)-1].Price
	return math.Abs(close-open) / length, true
}

// ClassifyDirection folds the intraday path and previous-day context
// into a directional state. Points must be sorted ascending by time.
func ClassifyDirection(points []PricePoint, prev PrevDay, cfg DirConfig, th DirThresholds) DirMetrics {
	m := DirMetrics{State: DirNeutral}
	if len(points) == 0 {
		m.Reason = "no intraday data"
		return m
	}

	open := points[0].Price
	m.Opening = classifyOpening(points, open, prev, cfg, th)
	m.REA = computeREA(points, cfg.SessionStart, cfg.InitialBalance)

	deCalc := cfg.DECalc
	if deCalc == nil {
		deCalc = PathDE{}
	}
	if de, ok := deCalc.DE(points); ok {
		m.DE = ptr(de)
	}

	if m.REA == nil || m.REA.Value == nil || m.DE == nil {
		m.Reason = "insufficient data for REA or DE"
		return m
	}
	rea, de := *m.REA.Value, *m.DE

	switch {
	case m.Opening.Bias == BiasBullish && rea > th.REABull && de > th.DEDirectional:
		m.State = DirBull
		m.Reason = fmt.Sprintf("bullish gap accepted, REA %.2f above bull threshold, DE %.2f trending", rea, de)
	case m.Opening.Bias == BiasBearish && rea < th.REABear && de > th.DEDirectional:
		m.State = DirBear
		m.Reason = fmt.Sprintf("bearish gap accepted, REA %.2f below bear threshold, DE %.2f trending", rea, de)
	case de < th.DENeutral && math.Abs(rea) < th.REANeutralAbs:
		m.Reason = "low efficiency and balanced range extension, no edge"
	default:
		m.Reason = "mixed conditions"
	}
	return m
}

// classifyOpening computes gap, gap percentage against the previous
// day's range, and the fraction of post-opening samples holding the
// gap's side of the open.
func classifyOpening(points []PricePoint, open float64, prev PrevDay, cfg DirConfig, th DirThresholds) OpeningMetrics {
	om := OpeningMetrics{Bias: BiasNeutral}

	if prev.Close == 0 || prev.Range <= 0 {
		return om
	}
	gap := open - prev.Close
	gapPct := math.Abs(gap) / prev.Range
	om.Gap = ptr(gap)
	om.GapPct = ptr(gapPct)

	cutoff := cfg.SessionStart.Add(cfg.AcceptanceSkip)
	var total, onSide int
	for _, p := range points {
		if p.Timestamp.Before(cutoff) {
			continue
		}
		total++
		if (gap > 0 && p.Price >= open) || (gap < 0 && p.Price <= open) {
			onSide++
		}
	}
	if total == 0 {
		return om
	}
	ratio := float64(onSide) / float64(total)
	om.AcceptanceRatio = ptr(ratio)

	if gapPct >= th.GapAcceptance && ratio > th.AcceptanceNeutral {
		if gap > 0 {
			om.Bias = BiasBullish
		} else if gap < 0 {
			om.Bias = BiasBearish
		}
	}
	return om
}

func computeREA(points []PricePoint, sessionStart time.Time, ibWindow time.Duration) *REAMetrics {
	ibEnd := sessionStart.Add(ibWindow)

	rm := &REAMetrics{
		IBHigh:  math.Inf(-1),
		IBLow:   math.Inf(1),
		DayHigh: math.Inf(-1),
		DayLow:  math.Inf(1),
	}
	var inIB bool
	var afterIB bool
	for _, p := range points {
		if p.Price > rm.DayHigh {
			rm.DayHigh = p.Price
		}
		if p.Price < rm.DayLow {
			rm.DayLow = p.Price
		}
		if !p.Timestamp.After(ibEnd) {
			inIB = true
			if p.Price > rm.IBHigh {
				rm.IBHigh = p.Price
			}
			if p.Price < rm.IBLow {
				rm.IBLow = p.Price
			}
		} else {
			afterIB = true
		}
	}
	if !inIB {
		return nil
	}
	rm.IBRange = rm.IBHigh - rm.IBLow

	// The value stays undefined until the session leaves the window and
	// the window produced a usable range.
	if !afterIB || rm.IBRange <= 0 {
		return rm
	}
	rm.ReUp = math.Max(0, rm.DayHigh-rm.IBHigh)
	rm.ReDown = math.Max(0, rm.IBLow-rm.DayLow)
	rm.Value = ptr((rm.ReUp - rm.ReDown) / rm.IBRange)
	return rm
}
