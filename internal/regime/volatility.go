package regime

// VolState is the volatility regime of the session.
type VolState string

const (
	VolUnknown     VolState = "UNKNOWN"
	VolContraction VolState = "CONTRACTION"
	VolTransition  VolState = "TRANSITION"
	VolExpansion   VolState = "EXPANSION"
)

// VolThresholds tune the volatility classifier. InclusiveBounds moves
// the contraction/expansion comparisons from strict to inclusive; the
// default keeps the edges strict so boundary readings land in the
// TRANSITION band.
type VolThresholds struct {
	Contraction     float64 `json:"contraction_threshold"`
	Expansion       float64 `json:"expansion_threshold"`
	MinAcceleration float64 `json:"min_acceleration"`
	InclusiveBounds bool    `json:"inclusive_bounds"`
}

// DefaultVolThresholds returns the stock classifier tuning.
func DefaultVolThresholds() VolThresholds {
	return VolThresholds{Contraction: 0.8, Expansion: 1.5, MinAcceleration: 0.05}
}

// VolInputs are one cycle's raw readings. The Has flags mark which
// readings were computable this cycle.
type VolInputs struct {
	RVCurrent  float64
	RVOpenNorm float64
	IVATM      float64
	IVVWAP     float64

	HasRVCurrent  bool
	HasRVOpenNorm bool
	HasIV         bool
}

// VolMetrics is the published volatility read for one cycle. Pointer
// fields are nil when the underlying reading was not computable.
type VolMetrics struct {
	RVCurrent    *float64 `json:"rv_current"`
	RVOpenNorm   *float64 `json:"rv_open_norm"`
	RVRatio      *float64 `json:"rv_ratio"`
	RVRatioDelta *float64 `json:"rv_ratio_delta"`
	IVATM        *float64 `json:"iv_atm"`
	IVVWAP       *float64 `json:"iv_vwap"`
	State        VolState `json:"state"`
	Reason       string   `json:"reason"`
}

// VolClassifier carries the held state and the previous ratio across
// cycles. Ambiguous readings keep the prior state rather than flapping.
// Owned by one session's poll loop; not safe for concurrent use.
type VolClassifier struct {
	state     VolState
	prevRatio float64
	hasPrev   bool
}

func NewVolClassifier() *VolClassifier {
	return &VolClassifier{state: VolUnknown}
}

// Classify folds one cycle's readings into the regime. Precedence:
// contraction, then expansion, then transition; anything else holds the
// previous state.
func (c *VolClassifier) Classify(in VolInputs, th VolThresholds) VolMetrics {
	m := VolMetrics{State: c.state}
	if in.HasRVCurrent {
		m.RVCurrent = ptr(in.RVCurrent)
	}
	if in.HasRVOpenNorm {
		m.RVOpenNorm = ptr(in.RVOpenNorm)
	}
	if in.HasIV {
		m.IVATM = ptr(in.IVATM)
		m.IVVWAP = ptr(in.IVVWAP)
	}

	if !in.HasRVCurrent || !in.HasRVOpenNorm || !in.HasIV || in.RVOpenNorm == 0 {
		m.Reason = "insufficient data, holding previous state"
		return m
	}

	ratio := in.RVCurrent / in.RVOpenNorm
	m.RVRatio = ptr(ratio)

	ratioDelta := 0.0
	hasDelta := false
	if c.hasPrev {
		ratioDelta = ratio - c.prevRatio
		m.RVRatioDelta = ptr(ratioDelta)
		hasDelta = true
	}
	c.prevRatio = ratio
	c.hasPrev = true

	below := ratio < th.Contraction
	above := ratio > th.Expansion
	if th.InclusiveBounds {
		below = ratio <= th.Contraction
		above = ratio >= th.Expansion
	}

	switch {
	case below:
		c.state = VolContraction
		m.Reason = "realized volatility below the day's pace"
	case above && in.IVATM > in.IVVWAP:
		c.state = VolExpansion
		m.Reason = "volatility released and options repriced"
	case !below && !above && hasDelta && ratioDelta >= th.MinAcceleration && in.IVATM <= in.IVVWAP:
		c.state = VolTransition
		m.Reason = "volatility accelerating before IV repricing"
	default:
		m.Reason = "ambiguous readings, holding previous state"
	}
	m.State = c.state
	return m
}

// State returns the held regime.
func (c *VolClassifier) State() VolState { return c.state }

// Reset returns the classifier to its day-start condition.
func (c *VolClassifier) Reset() {
	c.state = VolUnknown
	c.hasPrev = false
	c.prevRatio = 0
}

func ptr(v float64) *float64 { return &v }
