package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/option-signal-feed/internal/chain"
)

func defaultThresholds() Thresholds {
	return Thresholds{Delta: 0.20, Vega: 0.10, Theta: 0.02, Gamma: 0.01}
}

func snapshotWith(agg chain.Aggregate) (*chain.Snapshot, chain.Aggregate) {
	snap := &chain.Snapshot{
		Timestamp: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		ATMStrike: 22500,
		Options: []chain.Option{
			{Strike: 22500, Type: chain.Call, LTP: 145.5},
			{Strike: 22500, Type: chain.Put, LTP: 98.0},
		},
	}
	return snap, agg
}

func longCallAggregate() chain.Aggregate {
	return chain.Aggregate{
		Call: chain.SideGreeks{Delta: 0.25, Vega: 0.15, Theta: -0.03, Gamma: 0.012},
	}
}

func TestLongCallConfirmedOnSecondCycle(t *testing.T) {
	d := NewDetector()
	snap, agg := snapshotWith(longCallAggregate())
	th := defaultThresholds()

	first := d.Evaluate(snap, agg, th, 2)
	assert.Nil(t, first.Confirmed)
	require.Len(t, first.Evaluations, 4)
	assert.True(t, first.Evaluations[0].AllMatched)
	assert.Equal(t, 1, first.Evaluations[0].Streak)

	second := d.Evaluate(snap, agg, th, 2)
	require.NotNil(t, second.Confirmed)
	assert.Equal(t, LongCall, second.Confirmed.Position)
	assert.Equal(t, 22500.0, second.Confirmed.Strike)
	assert.Equal(t, 145.5, second.Confirmed.StrikeLTP)
	assert.Equal(t, 0.25, second.Confirmed.Delta)
	assert.Equal(t, snap.Timestamp, second.Confirmed.Timestamp)

	// Counter resets after confirmation: a new run starts fresh.
	assert.Equal(t, 0, second.Evaluations[0].Streak)
	third := d.Evaluate(snap, agg, th, 2)
	assert.Nil(t, third.Confirmed)
	assert.Equal(t, 1, third.Evaluations[0].Streak)
}

func TestStreakResetsOnAnyPredicateMiss(t *testing.T) {
	d := NewDetector()
	snap, agg := snapshotWith(longCallAggregate())
	th := defaultThresholds()

	d.Evaluate(snap, agg, th, 3)
	d.Evaluate(snap, agg, th, 3)

	// Theta flips below magnitude: the whole streak dies.
	weak := agg
	weak.Call.Theta = -0.01
	res := d.Evaluate(snap, weak, th, 3)
	assert.Nil(t, res.Confirmed)
	assert.Equal(t, 0, res.Evaluations[0].Streak)
	assert.False(t, res.Evaluations[0].AllMatched)
	assert.False(t, res.Evaluations[0].Theta.ThresholdMatch)
	assert.True(t, res.Evaluations[0].Theta.SignMatch)
}

func TestSignMismatchFailsDespiteMagnitude(t *testing.T) {
	d := NewDetector()
	agg := longCallAggregate()
	agg.Call.Theta = 0.03 // wrong sign for a long call
	snap, _ := snapshotWith(agg)

	res := d.Evaluate(snap, agg, defaultThresholds(), 1)
	assert.Nil(t, res.Confirmed)
	assert.False(t, res.Evaluations[0].Theta.SignMatch)
	assert.True(t, res.Evaluations[0].Theta.ThresholdMatch)
}

func TestPositionsAccumulateIndependently(t *testing.T) {
	d := NewDetector()
	th := defaultThresholds()

	// Long Call on the call side and Long Put on the put side match
	// simultaneously; put-side confirmation must survive the call's.
	agg := chain.Aggregate{
		Call: chain.SideGreeks{Delta: 0.25, Vega: 0.15, Theta: -0.03, Gamma: 0.012},
		Put:  chain.SideGreeks{Delta: -0.25, Vega: 0.15, Theta: -0.03, Gamma: 0.012},
	}
	snap, _ := snapshotWith(agg)

	first := d.Evaluate(snap, agg, th, 2)
	assert.Nil(t, first.Confirmed)
	assert.Equal(t, 1, first.Evaluations[0].Streak)
	assert.Equal(t, 1, first.Evaluations[1].Streak)

	// Both reach the threshold; only the first in canonical order is
	// confirmed this cycle, the other keeps its streak.
	second := d.Evaluate(snap, agg, th, 2)
	require.NotNil(t, second.Confirmed)
	assert.Equal(t, LongCall, second.Confirmed.Position)
	assert.Equal(t, 0, second.Evaluations[0].Streak)
	assert.Equal(t, 2, second.Evaluations[1].Streak)

	// Long Put confirms on the next cycle.
	third := d.Evaluate(snap, agg, th, 2)
	require.NotNil(t, third.Confirmed)
	assert.Equal(t, LongPut, third.Confirmed.Position)
	assert.Equal(t, 98.0, third.Confirmed.StrikeLTP)
}

func TestShortPutSignature(t *testing.T) {
	d := NewDetector()
	agg := chain.Aggregate{
		Put: chain.SideGreeks{Delta: 0.30, Vega: -0.12, Theta: 0.04, Gamma: -0.02},
	}
	snap, _ := snapshotWith(agg)

	res := d.Evaluate(snap, agg, defaultThresholds(), 1)
	require.NotNil(t, res.Confirmed)
	assert.Equal(t, ShortPut, res.Confirmed.Position)
}

func TestDetectorReset(t *testing.T) {
	d := NewDetector()
	snap, agg := snapshotWith(longCallAggregate())
	th := defaultThresholds()

	d.Evaluate(snap, agg, th, 3)
	d.Evaluate(snap, agg, th, 3)
	d.Reset()

	res := d.Evaluate(snap, agg, th, 3)
	assert.Nil(t, res.Confirmed)
	assert.Equal(t, 1, res.Evaluations[0].Streak)
}
