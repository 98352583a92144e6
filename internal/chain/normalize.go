package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrBadStatus indicates the upstream responded with a non-success envelope.
	ErrBadStatus = errors.New("upstream response status is not success")
	// ErrEmptyChain indicates the response carried no usable contracts.
	ErrEmptyChain = errors.New("option chain is empty")
	// ErrNoUnderlying indicates the response carried no spot price.
	ErrNoUnderlying = errors.New("missing underlying spot price")
)

// rawResponse mirrors the upstream option-chain endpoint payload.
type rawResponse struct {
	Status string      `json:"status"`
	Data   []rawStrike `json:"data"`
}

type rawStrike struct {
	StrikePrice         float64  `json:"strike_price"`
	UnderlyingSpotPrice float64  `json:"underlying_spot_price"`
	CallOptions         *rawSide `json:"call_options"`
	PutOptions          *rawSide `json:"put_options"`
}

type rawSide struct {
	OptionGreeks rawGreeks     `json:"option_greeks"`
	MarketData   rawMarketData `json:"market_data"`
}

type rawGreeks struct {
	Delta float64 `json:"delta"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Gamma float64 `json:"gamma"`
	IV    float64 `json:"iv"`
}

type rawMarketData struct {
	LTP    float64 `json:"ltp"`
	OI     float64 `json:"oi"`
	Volume float64 `json:"volume"`
}

// Normalize converts an upstream chain response body into a Snapshot.
// Strikes missing one leg keep the other; a response with no legs at all
// is an error. The ATM strike is the strike closest to spot.
func Normalize(body []byte, expiryDate string, now time.Time) (*Snapshot, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode option chain: %w", err)
	}
	if raw.Status != "success" {
		return nil, fmt.Errorf("%w: %q", ErrBadStatus, raw.Status)
	}
	if len(raw.Data) == 0 {
		return nil, ErrEmptyChain
	}

	underlying := raw.Data[0].UnderlyingSpotPrice
	if underlying == 0 {
		return nil, ErrNoUnderlying
	}

	options := make([]Option, 0, len(raw.Data)*2)
	for _, item := range raw.Data {
		if item.CallOptions != nil {
			options = append(options, legOption(item.StrikePrice, Call, item.CallOptions))
		}
		if item.PutOptions != nil {
			options = append(options, legOption(item.StrikePrice, Put, item.PutOptions))
		}
	}
	if len(options) == 0 {
		return nil, ErrEmptyChain
	}

	return &Snapshot{
		Timestamp:       now,
		UnderlyingPrice: underlying,
		ATMStrike:       findATMStrike(underlying, options),
		ExpiryDate:      expiryDate,
		Options:         options,
	}, nil
}

func legOption(strike float64, typ OptionType, side *rawSide) Option {
	return Option{
		Strike: strike,
		Type:   typ,
		Delta:  side.OptionGreeks.Delta,
		Vega:   side.OptionGreeks.Vega,
		Theta:  side.OptionGreeks.Theta,
		Gamma:  side.OptionGreeks.Gamma,
		IV:     side.OptionGreeks.IV,
		LTP:    side.MarketData.LTP,
		OI:     side.MarketData.OI,
		Volume: side.MarketData.Volume,
	}
}

func findATMStrike(underlying float64, options []Option) float64 {
	atm := options[0].Strike
	best := math.Abs(atm - underlying)
	for _, opt := range options[1:] {
		if d := math.Abs(opt.Strike - underlying); d < best {
			best = d
			atm = opt.Strike
		}
	}
	return atm
}
