package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/option-signal-feed/internal/logger"
)

// ConnState is the subscriber connection lifecycle.
type ConnState string

const (
	StateConnecting   ConnState = "CONNECTING"
	StateConnected    ConnState = "CONNECTED"
	StateReconnecting ConnState = "RECONNECTING"
)

// SubscriberConfig tunes the client-side reconnect/acceptance behavior.
type SubscriberConfig struct {
	URL            string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	StalenessBound time.Duration
}

// Subscriber is a push-protocol client: it dials the feed, hands
// accepted state envelopes to a callback, and reconnects with
// exponential backoff. Messages that would move the sequence backward
// or that are older than the staleness bound are discarded.
type Subscriber struct {
	cfg     SubscriberConfig
	onState func(Envelope)

	state   ConnState
	lastSeq uint64
	hasSeq  bool
	now     func() time.Time

	log *logger.Logger
}

func NewSubscriber(cfg SubscriberConfig, onState func(Envelope)) *Subscriber {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 3 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.StalenessBound <= 0 {
		cfg.StalenessBound = 60 * time.Second
	}
	return &Subscriber{
		cfg:     cfg,
		onState: onState,
		state:   StateConnecting,
		now:     time.Now,
		log:     logger.Get().With("component", "subscriber"),
	}
}

// State reports the connection lifecycle state.
func (s *Subscriber) State() ConnState { return s.state }

// Run dials and consumes the feed until the context is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	backoff := s.cfg.InitialBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.connectAndConsume(ctx, &backoff)
		if err != nil && ctx.Err() == nil {
			s.log.Warnw("feed connection lost", "error", err, "retry_in", backoff)
		}

		s.state = StateReconnecting
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (s *Subscriber) connectAndConsume(ctx context.Context, backoff *time.Duration) error {
	s.state = StateConnecting

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial feed: %w", err)
	}
	defer conn.Close()

	s.state = StateConnected
	*backoff = s.cfg.InitialBackoff

	done := make(chan error, 1)
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			s.handleMessage(message)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *Subscriber) handleMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		s.log.Debugw("discarding unparseable message", "error", err)
		return
	}
	if env.Type != TypeState {
		return
	}
	if !s.accept(env) {
		return
	}
	s.lastSeq = env.Sequence
	s.hasSeq = true
	if s.onState != nil {
		s.onState(env)
	}
}

// accept enforces the ordering and staleness laws: the sequence must be
// strictly greater than the last accepted one, and the poll timestamp
// must be within the staleness bound.
func (s *Subscriber) accept(env Envelope) bool {
	if s.hasSeq && env.Sequence <= s.lastSeq {
		return false
	}
	if s.now().Sub(env.PollTimestamp) > s.cfg.StalenessBound {
		return false
	}
	return true
}
