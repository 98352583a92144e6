package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/option-signal-feed/internal/chain"
)

func agg(delta float64) chain.Aggregate {
	return chain.Aggregate{Call: chain.SideGreeks{Delta: delta}}
}

func TestObserveCapturesOncePerDay(t *testing.T) {
	m := NewManager(time.UTC)
	day := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	first := m.Observe(agg(1.0), day)
	assert.Equal(t, agg(1.0), first.Aggregate)
	assert.Equal(t, day, first.CapturedAt)

	// Later observations on the same day keep the original capture.
	second := m.Observe(agg(2.0), day.Add(3*time.Hour))
	assert.Equal(t, agg(1.0), second.Aggregate)
	assert.Equal(t, day, second.CapturedAt)
}

func TestObserveRecapturesOnNewDay(t *testing.T) {
	m := NewManager(time.UTC)
	monday := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	m.Observe(agg(1.0), monday)
	next := m.Observe(agg(2.0), tuesday)

	assert.Equal(t, agg(2.0), next.Aggregate)
	assert.Equal(t, tuesday, next.CapturedAt)
}

func TestObserveDayBoundaryUsesLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+30*60)
	m := NewManager(loc)

	// 19:00 UTC Monday is already Tuesday 00:30 in IST.
	mondayEveningUTC := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	m.Observe(agg(1.0), mondayEveningUTC)

	// Two hours later, still the same IST day: no recapture.
	kept := m.Observe(agg(2.0), mondayEveningUTC.Add(2*time.Hour))
	assert.Equal(t, agg(1.0), kept.Aggregate)
}

func TestResetForcesRecapture(t *testing.T) {
	m := NewManager(time.UTC)
	day := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	m.Observe(agg(1.0), day)
	m.Reset()

	_, ok := m.Current()
	assert.False(t, ok)

	// Reset is idempotent.
	m.Reset()
	_, ok = m.Current()
	assert.False(t, ok)

	// Next observation recaptures, dated to that poll.
	later := day.Add(2 * time.Hour)
	recaptured := m.Observe(agg(3.0), later)
	assert.Equal(t, agg(3.0), recaptured.Aggregate)
	assert.Equal(t, later, recaptured.CapturedAt)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, recaptured, cur)
}
