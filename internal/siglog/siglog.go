// Package siglog records confirmed signals for later review and export.
package siglog

import (
	"encoding/csv"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/option-signal-feed/internal/signals"
)

// Sink receives confirmed signals from the poll loop.
type Sink interface {
	Record(user string, sig signals.Confirmed) error
}

// Memory is a bounded in-process Sink keeping the most recent signals
// per user.
type Memory struct {
	mu    sync.RWMutex
	limit int
	users map[string][]signals.Confirmed
}

func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 500
	}
	return &Memory{limit: limit, users: make(map[string][]signals.Confirmed)}
}

func (m *Memory) Record(user string, sig signals.Confirmed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := append(m.users[user], sig)
	if len(log) > m.limit {
		log = log[len(log)-m.limit:]
	}
	m.users[user] = log
	return nil
}

// Signals returns a copy of a user's log, newest last.
func (m *Memory) Signals(user string) []signals.Confirmed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]signals.Confirmed, len(m.users[user]))
	copy(out, m.users[user])
	return out
}

// WriteCSV streams a user's log as CSV.
func (m *Memory) WriteCSV(w io.Writer, user string) error {
	sigs := m.Signals(user)

	cw := csv.NewWriter(w)
	header := []string{"timestamp", "position", "strike", "strike_ltp", "delta", "vega", "theta", "gamma"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range sigs {
		row := []string{
			s.Timestamp.Format(time.RFC3339),
			string(s.Position),
			formatFloat(s.Strike),
			formatFloat(s.StrikeLTP),
			formatFloat(s.Delta),
			formatFloat(s.Vega),
			formatFloat(s.Theta),
			formatFloat(s.Gamma),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
