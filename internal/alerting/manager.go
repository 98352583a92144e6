// Package alerting forwards confirmed signals to chat webhooks.
package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/option-signal-feed/internal/config"
	"github.com/option-signal-feed/internal/logger"
	"github.com/option-signal-feed/internal/session"
)

type Manager struct {
	config        config.AlertingConfig
	events        <-chan session.SignalEvent
	slackClient   *SlackClient
	discordClient *DiscordClient
	cooldown      map[string]time.Time
	mu            sync.Mutex
	log           *logger.Logger
}

func NewManager(cfg config.AlertingConfig, events <-chan session.SignalEvent) *Manager {
	var slackClient *SlackClient
	var discordClient *DiscordClient

	if cfg.SlackWebhookURL != "" {
		slackClient = NewSlackClient(cfg.SlackWebhookURL)
	}
	if cfg.DiscordWebhookURL != "" {
		discordClient = NewDiscordClient(cfg.DiscordWebhookURL)
	}

	return &Manager{
		config:        cfg,
		events:        events,
		slackClient:   slackClient,
		discordClient: discordClient,
		cooldown:      make(map[string]time.Time),
		log:           logger.Get().With("component", "alerting"),
	}
}

func (m *Manager) Run(ctx context.Context) error {
	if !m.config.Enabled {
		// Still drain the channel so the poll loops never back up.
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.events:
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			m.handleEvent(ev)
		}
	}
}

func (m *Manager) handleEvent(ev session.SignalEvent) {
	// One alert per (user, position) within the cooldown window.
	key := ev.User + "|" + string(ev.Signal.Position)
	cooldown := time.Duration(m.config.CooldownSecs) * time.Second

	m.mu.Lock()
	last, seen := m.cooldown[key]
	if seen && time.Since(last) < cooldown {
		m.mu.Unlock()
		return
	}
	m.cooldown[key] = time.Now()
	m.mu.Unlock()

	message := formatSignalMessage(ev)

	if m.slackClient != nil {
		go func() {
			if err := m.slackClient.Send(message); err != nil {
				m.log.Warnw("slack alert failed", "error", err)
			}
		}()
	}
	if m.discordClient != nil {
		go func() {
			if err := m.discordClient.Send(message); err != nil {
				m.log.Warnw("discord alert failed", "error", err)
			}
		}()
	}
}

func formatSignalMessage(ev session.SignalEvent) string {
	s := ev.Signal
	return fmt.Sprintf("🚨 **%s confirmed**\n"+
		"User: %s\n"+
		"Strike: %.2f (LTP %.2f)\n"+
		"Δ %.3f  ν %.3f  θ %.3f  γ %.3f\n"+
		"At: %s",
		s.Position, ev.User, s.Strike, s.StrikeLTP,
		s.Delta, s.Vega, s.Theta, s.Gamma,
		s.Timestamp.Format(time.RFC3339),
	)
}
