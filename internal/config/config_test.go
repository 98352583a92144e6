package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelletier/go-toml/v2"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in        string
		hour, min int
		wantErr   bool
	}{
		{"09:15", 9, 15, false},
		{"15:30", 15, 30, false},
		{"0:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"-1:30", 0, 0, true},
		{"midnight", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.min, m)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{}
	cfg.Upstream.BaseURL = "https://api.upstox.com/v2"
	cfg.Poll.IntervalSecs = 5
	cfg.Market.StrikeWindow = 10
	cfg.Alerting.CooldownSecs = 300

	var o tomlOverrides
	require.NoError(t, toml.Unmarshal([]byte(`
[upstream]
base_url = "https://sandbox.upstox.com/v2"

[market]
strike_window = 5

[alerting]
enabled = true
`), &o))

	applyOverrides(cfg, &o)

	assert.Equal(t, "https://sandbox.upstox.com/v2", cfg.Upstream.BaseURL)
	assert.Equal(t, 5, cfg.Market.StrikeWindow)
	assert.True(t, cfg.Alerting.Enabled)

	// Untouched sections keep their environment-derived values.
	assert.Equal(t, 5, cfg.Poll.IntervalSecs)
	assert.Equal(t, 300, cfg.Alerting.CooldownSecs)
}
