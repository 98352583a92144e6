package chain

import "time"

// OptionType distinguishes the two legs of a strike.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// Greeks holds the per-contract sensitivities published by the upstream
// chain endpoint. IV is the annualized implied volatility in percent.
type Greeks struct {
	Delta float64 `json:"delta"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Gamma float64 `json:"gamma"`
	IV    float64 `json:"iv"`
}

// Option is one normalized contract from the chain.
type Option struct {
	Strike float64    `json:"strike"`
	Type   OptionType `json:"type"`
	Delta  float64    `json:"delta"`
	Vega   float64    `json:"vega"`
	Theta  float64    `json:"theta"`
	Gamma  float64    `json:"gamma"`
	IV     float64    `json:"iv"`
	LTP    float64    `json:"ltp"`
	OI     float64    `json:"oi"`
	Volume float64    `json:"volume"`
}

// Snapshot is a normalized option chain at a single poll instant.
type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	UnderlyingPrice float64   `json:"underlying_price"`
	ATMStrike       float64   `json:"atm_strike"`
	ExpiryDate      string    `json:"expiry_date"`
	Options         []Option  `json:"options"`
}

// SideGreeks is the per-side sum of Greeks over the strike window.
type SideGreeks struct {
	Delta       float64 `json:"delta"`
	Vega        float64 `json:"vega"`
	Theta       float64 `json:"theta"`
	Gamma       float64 `json:"gamma"`
	OptionCount int     `json:"option_count"`
}

// Aggregate holds windowed Greek sums for both sides of the chain.
type Aggregate struct {
	Call SideGreeks `json:"call"`
	Put  SideGreeks `json:"put"`
}

// SideChange is the delta of one side's aggregate against a baseline.
type SideChange struct {
	Delta float64 `json:"delta"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Gamma float64 `json:"gamma"`
}

// Change is the movement of aggregated Greeks since the session baseline.
type Change struct {
	Call SideChange `json:"call"`
	Put  SideChange `json:"put"`
}

// Contract looks up a single leg by strike and type. The second return
// is false when the chain has no such contract.
func (s *Snapshot) Contract(strike float64, typ OptionType) (Option, bool) {
	for _, opt := range s.Options {
		if opt.Type == typ && opt.Strike == strike {
			return opt, true
		}
	}
	return Option{}, false
}
