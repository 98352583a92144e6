package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, 0.20, d.Greeks.Delta)
	assert.Equal(t, 0.10, d.Greeks.Vega)
	assert.Equal(t, 0.02, d.Greeks.Theta)
	assert.Equal(t, 0.01, d.Greeks.Gamma)
	assert.Equal(t, 2, d.Confirmations)
	assert.Equal(t, 0.8, d.Volatility.Contraction)
	assert.Equal(t, 1.5, d.Volatility.Expansion)
	assert.Equal(t, 0.65, d.Direction.GapAcceptance)
	assert.Zero(t, d.PrevDay.Close)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get("alice")
	assert.ErrorIs(t, err, ErrNotFound)

	custom := Defaults()
	custom.Greeks.Delta = 0.35
	custom.Confirmations = 3
	require.NoError(t, store.Put("alice", custom))

	got, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	// Other users are unaffected.
	_, err = store.Get("bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrDefaults(t *testing.T) {
	store := NewMemoryStore()
	assert.Equal(t, Defaults(), GetOrDefaults(store, "nobody"))

	custom := Defaults()
	custom.Greeks.Vega = 0.25
	require.NoError(t, store.Put("alice", custom))
	assert.Equal(t, custom, GetOrDefaults(store, "alice"))
}
