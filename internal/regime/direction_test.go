package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

func dirConfig() DirConfig {
	return DirConfig{
		SessionStart:   sessionStart,
		InitialBalance: 60 * time.Minute,
		AcceptanceSkip: 30 * time.Minute,
	}
}

// path builds a price point per minute from the session start.
func path(prices ...float64) []PricePoint {
	points := make([]PricePoint, len(prices))
	for i, p := range prices {
		points[i] = PricePoint{Timestamp: sessionStart.Add(time.Duration(i) * time.Minute), Price: p}
	}
	return points
}

// trendingPath rises steadily past the initial balance window.
func trendingPath(open float64, minutes int, step float64) []PricePoint {
	prices := make([]float64, minutes)
	for i := range prices {
		prices[i] = open + float64(i)*step
	}
	return path(prices...)
}

func TestSmallGapStaysNeutralRegardlessOfAcceptance(t *testing.T) {
	// gap=+50, prev_range=200 → gap_pct=0.25 below the 0.65 threshold,
	// so bias is NEUTRAL no matter how one-sided the acceptance is.
	points := trendingPath(22550, 90, 2) // everything above open
	prev := PrevDay{Close: 22500, Range: 200}

	m := ClassifyDirection(points, prev, dirConfig(), DefaultDirThresholds())
	require.NotNil(t, m.Opening.Gap)
	assert.InDelta(t, 50, *m.Opening.Gap, 1e-9)
	assert.InDelta(t, 0.25, *m.Opening.GapPct, 1e-9)
	assert.Equal(t, BiasNeutral, m.Opening.Bias)
	assert.Equal(t, DirNeutral, m.State)
}

func TestMissingPrevDayDegradesGracefully(t *testing.T) {
	points := trendingPath(22550, 90, 2)

	m := ClassifyDirection(points, PrevDay{}, dirConfig(), DefaultDirThresholds())
	assert.Nil(t, m.Opening.Gap)
	assert.Nil(t, m.Opening.GapPct)
	assert.Equal(t, BiasNeutral, m.Opening.Bias)
	// REA and DE still compute from the path alone.
	assert.NotNil(t, m.REA)
	assert.NotNil(t, m.DE)
}

func TestREAUndefinedInsideInitialBalance(t *testing.T) {
	// 30 minutes of data: still inside the 60-minute IB window.
	points := trendingPath(22500, 30, 2)

	m := ClassifyDirection(points, PrevDay{}, dirConfig(), DefaultDirThresholds())
	require.NotNil(t, m.REA)
	assert.Nil(t, m.REA.Value)
	assert.Equal(t, DirNeutral, m.State)
	assert.Equal(t, "insufficient data for REA or DE", m.Reason)
}

func TestREAExtension(t *testing.T) {
	// IB range 22500..22559 over the first 60 minutes, then extension
	// upward only.
	points := trendingPath(22500, 120, 1)

	m := ClassifyDirection(points, PrevDay{}, dirConfig(), DefaultDirThresholds())
	require.NotNil(t, m.REA)
	require.NotNil(t, m.REA.Value)
	assert.InDelta(t, 22560, m.REA.IBHigh, 1e-9)
	assert.InDelta(t, 22500, m.REA.IBLow, 1e-9)
	assert.InDelta(t, 22619, m.REA.DayHigh, 1e-9)
	assert.InDelta(t, 59, m.REA.ReUp, 1e-9)
	assert.Zero(t, m.REA.ReDown)
	assert.Greater(t, *m.REA.Value, 0.9)
}

func TestPathDE(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"pure trend", []float64{100, 110, 120, 130}, 1.0},
		{"round trip", []float64{100, 120, 100}, 0.0},
		{"choppy drift", []float64{100, 110, 105, 115}, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de, ok := PathDE{}.DE(path(tt.prices...))
			require.True(t, ok)
			assert.InDelta(t, tt.want, de, 1e-9)
		})
	}

	_, ok := PathDE{}.DE(path(100))
	assert.False(t, ok)
	_, ok = PathDE{}.DE(path(100, 100, 100))
	assert.False(t, ok)
}

func TestDirectionalBullDay(t *testing.T) {
	// Large accepted gap up, upward extension, efficient trend.
	points := trendingPath(22700, 150, 1)
	prev := PrevDay{Close: 22500, Range: 250} // gap_pct 0.8

	m := ClassifyDirection(points, prev, dirConfig(), DefaultDirThresholds())
	assert.Equal(t, BiasBullish, m.Opening.Bias)
	assert.Equal(t, DirBull, m.State)
	assert.NotEmpty(t, m.Reason)
}

func TestDirectionalBearDay(t *testing.T) {
	points := trendingPath(22300, 150, -1)
	prev := PrevDay{Close: 22500, Range: 250}

	m := ClassifyDirection(points, prev, dirConfig(), DefaultDirThresholds())
	assert.Equal(t, BiasBearish, m.Opening.Bias)
	assert.Equal(t, DirBear, m.State)
}

func TestPermit(t *testing.T) {
	tests := []struct {
		name    string
		vol     VolState
		dir     DirState
		allowed bool
		side    Side
	}{
		{"bull in transition", VolTransition, DirBull, true, SideCalls},
		{"bear in transition", VolTransition, DirBear, true, SidePuts},
		{"neutral in transition", VolTransition, DirNeutral, false, SideNone},
		{"bull in contraction", VolContraction, DirBull, false, SideNone},
		{"bull in expansion", VolExpansion, DirBull, false, SideNone},
		{"bull in unknown", VolUnknown, DirBull, false, SideNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Permit(tt.vol, tt.dir)
			assert.Equal(t, tt.allowed, p.Allowed)
			assert.Equal(t, tt.side, p.Side)
			assert.NotEmpty(t, p.Reason)
		})
	}
}

func TestRVHelpers(t *testing.T) {
	rv, ok := RVCurrent(22510, 22490, true)
	require.True(t, ok)
	assert.InDelta(t, 20, rv, 1e-9)

	_, ok = RVCurrent(22510, 0, false)
	assert.False(t, ok)

	// 45 minutes elapsed = 3 fifteen-minute windows.
	now := sessionStart.Add(45 * time.Minute)
	rv, ok = RVOpenNorm(22560, 22500, sessionStart, now, 15*time.Minute)
	require.True(t, ok)
	assert.InDelta(t, 20, rv, 1e-9)

	// Early in the session the divisor clamps to one window.
	rv, ok = RVOpenNorm(22510, 22500, sessionStart, sessionStart.Add(5*time.Minute), 15*time.Minute)
	require.True(t, ok)
	assert.InDelta(t, 10, rv, 1e-9)

	_, ok = RVOpenNorm(22510, 0, sessionStart, now, 15*time.Minute)
	assert.False(t, ok)
}
