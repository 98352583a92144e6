// Package settings holds the per-user tunables the poll loop re-reads
// at the start of every cycle.
package settings

import (
	"errors"
	"sync"

	"github.com/option-signal-feed/internal/regime"
	"github.com/option-signal-feed/internal/signals"
)

// ErrNotFound indicates the user has no stored settings.
var ErrNotFound = errors.New("settings not found")

// Settings are one user's thresholds and previous-day context.
type Settings struct {
	Greeks        signals.Thresholds   `json:"greeks"`
	Confirmations int                  `json:"consecutive_confirmations"`
	Volatility    regime.VolThresholds `json:"volatility"`
	Direction     regime.DirThresholds `json:"direction"`
	PrevDay       regime.PrevDay       `json:"prev_day"`
}

// Defaults returns the documented stock settings, used whenever a user
// has not stored their own.
func Defaults() Settings {
	return Settings{
		Greeks: signals.Thresholds{
			Delta: 0.20,
			Vega:  0.10,
			Theta: 0.02,
			Gamma: 0.01,
		},
		Confirmations: 2,
		Volatility:    regime.DefaultVolThresholds(),
		Direction:     regime.DefaultDirThresholds(),
	}
}

// Store is read by the poll loop each cycle and written through the API.
type Store interface {
	Get(user string) (Settings, error)
	Put(user string, s Settings) error
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]Settings)}
}

func (m *MemoryStore) Get(user string) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.users[user]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Put(user string, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user] = s
	return nil
}

// GetOrDefaults resolves a user's settings, falling back to Defaults.
func GetOrDefaults(store Store, user string) Settings {
	s, err := store.Get(user)
	if err != nil {
		return Defaults()
	}
	return s
}
