// Package regime classifies the trading day along two axes: a
// volatility state derived from realized/implied volatility ratios,
// and a directional state derived from opening gap acceptance, range
// extension asymmetry, and directional efficiency.
package regime

import "time"

// PricePoint is one sampled underlying price on the intraday path.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
