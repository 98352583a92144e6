package chain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testChain builds a chain of both legs at strikes spaced 100 apart
// around an ATM of 22500, with per-leg greeks proportional to strike
// position so window membership is visible in the sums.
func testChain(strikesBelow, strikesAbove int) *Snapshot {
	snap := &Snapshot{
		UnderlyingPrice: 22480,
		ATMStrike:       22500,
	}
	for i := -strikesBelow; i <= strikesAbove; i++ {
		strike := 22500 + float64(i)*100
		snap.Options = append(snap.Options,
			Option{Strike: strike, Type: Call, Delta: 0.5, Vega: 0.1, Theta: -0.02, Gamma: 0.001},
			Option{Strike: strike, Type: Put, Delta: -0.5, Vega: 0.1, Theta: -0.02, Gamma: 0.001},
		)
	}
	return snap
}

func TestAggregateWindow(t *testing.T) {
	// 15 strikes below, 15 above: only ATM + 10 each side qualify.
	snap := testChain(15, 15)
	agg := AggregateWindow(snap, 10)

	assert.Equal(t, 11, agg.Call.OptionCount)
	assert.Equal(t, 11, agg.Put.OptionCount)
	assert.InDelta(t, 5.5, agg.Call.Delta, 1e-9)
	assert.InDelta(t, -5.5, agg.Put.Delta, 1e-9)
	assert.InDelta(t, 1.1, agg.Call.Vega, 1e-9)
	assert.InDelta(t, -0.22, agg.Put.Theta, 1e-9)
}

func TestAggregateWindowClampedAtChainEdge(t *testing.T) {
	// Only 3 strikes below the ATM: put window clamps to 4 contracts.
	snap := testChain(3, 15)
	agg := AggregateWindow(snap, 10)

	assert.Equal(t, 11, agg.Call.OptionCount)
	assert.Equal(t, 4, agg.Put.OptionCount)
}

func TestAggregateWindowOrderIndependent(t *testing.T) {
	snap := testChain(12, 12)
	want := AggregateWindow(snap, 10)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		rng.Shuffle(len(snap.Options), func(a, b int) {
			snap.Options[a], snap.Options[b] = snap.Options[b], snap.Options[a]
		})
		assert.Equal(t, want, AggregateWindow(snap, 10))
	}
}

func TestAggregateWindowATMNotInChain(t *testing.T) {
	snap := testChain(2, 2)
	snap.ATMStrike = 22550 // between strikes, not a listed strike
	assert.Equal(t, Aggregate{}, AggregateWindow(snap, 10))
}

func TestChangeFrom(t *testing.T) {
	base := Aggregate{
		Call: SideGreeks{Delta: 5.0, Vega: 1.0, Theta: -0.2, Gamma: 0.01},
		Put:  SideGreeks{Delta: -5.0, Vega: 1.0, Theta: -0.2, Gamma: 0.01},
	}
	cur := Aggregate{
		Call: SideGreeks{Delta: 5.3, Vega: 1.2, Theta: -0.25, Gamma: 0.012},
		Put:  SideGreeks{Delta: -4.8, Vega: 0.9, Theta: -0.18, Gamma: 0.009},
	}

	ch := ChangeFrom(base, cur)
	assert.InDelta(t, 0.3, ch.Call.Delta, 1e-9)
	assert.InDelta(t, 0.2, ch.Call.Vega, 1e-9)
	assert.InDelta(t, -0.05, ch.Call.Theta, 1e-9)
	assert.InDelta(t, 0.2, ch.Put.Delta, 1e-9)
	assert.InDelta(t, 0.002, ch.Put.Gamma, 1e-9)

	// Identical aggregates yield zero movement.
	zero := ChangeFrom(cur, cur)
	assert.Equal(t, Change{}, zero)
}

func TestIVVWAP(t *testing.T) {
	options := []Option{
		{IV: 14.0, Volume: 1000},
		{IV: 16.0, Volume: 3000},
		{IV: 20.0, Volume: 0},  // excluded: no volume
		{IV: 0, Volume: 5000},  // excluded: no IV
		{IV: -2, Volume: 2000}, // excluded: negative IV
	}

	vwap, ok := IVVWAP(options)
	require.True(t, ok)
	assert.InDelta(t, 15.5, vwap, 1e-9)
}

func TestIVVWAPNoUsableContracts(t *testing.T) {
	_, ok := IVVWAP([]Option{{IV: 14.0, Volume: 0}, {IV: 0, Volume: 100}})
	assert.False(t, ok)
}

func TestATMIV(t *testing.T) {
	options := []Option{
		{Strike: 22400, Type: Call, IV: 13.0},
		{Strike: 22500, Type: Call, IV: 14.5},
		{Strike: 22500, Type: Put, IV: 15.0},
	}

	iv, ok := ATMIV(options, 22500)
	require.True(t, ok)
	assert.Equal(t, 14.5, iv)
}

func TestATMIVFallsBackToNearest(t *testing.T) {
	options := []Option{
		{Strike: 22400, Type: Call, IV: 13.0},
		{Strike: 22500, Type: Call, IV: 0}, // ATM has no usable IV
	}

	iv, ok := ATMIV(options, 22500)
	require.True(t, ok)
	assert.Equal(t, 13.0, iv)

	_, ok = ATMIV([]Option{{Strike: 22500, IV: 0}}, 22500)
	assert.False(t, ok)
}
