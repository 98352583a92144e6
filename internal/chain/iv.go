package chain

import "math"

// IVVWAP is the volume-weighted average implied volatility across the
// chain, counting only contracts with positive IV and positive volume.
// Returns false when no contract qualifies.
func IVVWAP(options []Option) (float64, bool) {
	var ivVolume, volume float64
	for _, opt := range options {
		if opt.IV > 0 && opt.Volume > 0 {
			ivVolume += opt.IV * opt.Volume
			volume += opt.Volume
		}
	}
	if volume == 0 {
		return 0, false
	}
	return ivVolume / volume, true
}

// ATMIV returns the implied volatility at the ATM strike, preferring any
// leg there with a positive IV. When the ATM strike has no usable IV,
// the contract nearest to it is consulted. Returns false when the chain
// has nothing usable.
func ATMIV(options []Option, atmStrike float64) (float64, bool) {
	best := math.Inf(1)
	var nearest float64
	var found bool
	for _, opt := range options {
		if opt.Strike == atmStrike && opt.IV > 0 {
			return opt.IV, true
		}
		if d := math.Abs(opt.Strike - atmStrike); d < best && opt.IV > 0 {
			best = d
			nearest = opt.IV
			found = true
		}
	}
	return nearest, found
}
