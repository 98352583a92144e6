package session

import (
	"time"

	"github.com/option-signal-feed/internal/regime"
)

// priceHistory accumulates the intraday underlying price path for one
// session. Owned by the poll loop; not safe for concurrent use.
type priceHistory struct {
	points []regime.PricePoint
}

func (h *priceHistory) Append(ts time.Time, price float64) {
	h.points = append(h.points, regime.PricePoint{Timestamp: ts, Price: price})
}

// Points returns the path sorted ascending by time. The slice must not
// be mutated by callers.
func (h *priceHistory) Points() []regime.PricePoint {
	return h.points
}

// Open returns the first sampled price of the day.
func (h *priceHistory) Open() (float64, bool) {
	if len(h.points) == 0 {
		return 0, false
	}
	return h.points[0].Price, true
}

// PriceAt returns the most recent sample at or before the target time.
// Returns false when the path does not reach back that far.
func (h *priceHistory) PriceAt(target time.Time) (float64, bool) {
	if len(h.points) == 0 || h.points[0].Timestamp.After(target) {
		return 0, false
	}
	price := h.points[0].Price
	for _, p := range h.points[1:] {
		if p.Timestamp.After(target) {
			break
		}
		price = p.Price
	}
	return price, true
}

func (h *priceHistory) Reset() {
	h.points = nil
}
