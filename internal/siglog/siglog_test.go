package siglog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/option-signal-feed/internal/signals"
)

func sig(pos signals.Position, strike float64) signals.Confirmed {
	return signals.Confirmed{
		Timestamp: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		Position:  pos,
		Strike:    strike,
		StrikeLTP: 145.5,
		Delta:     0.25,
		Vega:      0.15,
		Theta:     -0.03,
		Gamma:     0.012,
	}
}

func TestMemoryRecordAndBound(t *testing.T) {
	m := NewMemory(3)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Record("alice", sig(signals.LongCall, float64(22000+i*100))))
	}

	sigs := m.Signals("alice")
	require.Len(t, sigs, 3)
	// Oldest entries are evicted first.
	assert.Equal(t, 22200.0, sigs[0].Strike)
	assert.Equal(t, 22400.0, sigs[2].Strike)

	assert.Empty(t, m.Signals("bob"))
}

func TestWriteCSV(t *testing.T) {
	m := NewMemory(10)
	require.NoError(t, m.Record("alice", sig(signals.LongPut, 22500)))

	var buf bytes.Buffer
	require.NoError(t, m.WriteCSV(&buf, "alice"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,position,strike,strike_ltp,delta,vega,theta,gamma", lines[0])
	assert.Equal(t, "2026-03-02T10:30:00Z,Long Put,22500,145.5,0.25,0.15,-0.03,0.012", lines[1])

	// Empty log still yields the header row.
	buf.Reset()
	require.NoError(t, m.WriteCSV(&buf, "bob"))
	assert.Equal(t, "timestamp,position,strike,strike_ltp,delta,vega,theta,gamma", strings.TrimSpace(buf.String()))
}
