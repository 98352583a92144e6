// Package broadcast fans sequenced composite states out to WebSocket
// subscribers and implements the subscriber-side reconnect protocol.
package broadcast

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/option-signal-feed/internal/logger"
	"github.com/option-signal-feed/internal/metrics"
)

// Message types on the push protocol.
const (
	TypeState     = "state"
	TypeHeartbeat = "heartbeat"
)

// Envelope is one push-protocol message. Heartbeats carry no state.
type Envelope struct {
	Type          string    `json:"type"`
	Sequence      uint64    `json:"sequence,omitempty"`
	PollTimestamp time.Time `json:"poll_timestamp,omitempty"`
	State         any       `json:"state,omitempty"`
}

// Hub owns the subscriber registries, one per user. Sequence numbers
// are assigned by the publishing poll loop, not here, so a restart of
// a subscriber never disturbs the session's ordering.
type Hub struct {
	heartbeat time.Duration

	mu    sync.RWMutex
	users map[string]map[*subscriber]struct{}

	log *logger.Logger
}

type subscriber struct {
	send chan Envelope
}

func NewHub(heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		heartbeat: heartbeat,
		users:     make(map[string]map[*subscriber]struct{}),
		log:       logger.Get().With("component", "broadcast"),
	}
}

// Publish fans one composite state out to every subscriber of the user.
// A subscriber that cannot keep up has the message dropped rather than
// stalling the poll loop.
func (h *Hub) Publish(user string, seq uint64, pollTS time.Time, state any) {
	env := Envelope{
		Type:          TypeState,
		Sequence:      seq,
		PollTimestamp: pollTS,
		State:         state,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.users[user] {
		select {
		case sub.send <- env:
		default:
			h.log.Warnw("dropping state for slow subscriber", "user", user, "sequence", seq)
		}
	}
	metrics.BroadcastMessages.WithLabelValues(user).Inc()
}

// SubscriberCount reports the current fan-out width for a user.
func (h *Hub) SubscriberCount(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[user])
}

func (h *Hub) register(user string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[user] == nil {
		h.users[user] = make(map[*subscriber]struct{})
	}
	h.users[user][sub] = struct{}{}
	metrics.Subscribers.WithLabelValues(user).Inc()
}

func (h *Hub) unregister(user string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[user]; subs != nil {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			metrics.Subscribers.WithLabelValues(user).Dec()
		}
		if len(subs) == 0 {
			delete(h.users, user)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request into a push subscription for the
// user and blocks until the connection drops or the context ends.
func (h *Hub) ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request, user string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "user", user, "error", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{send: make(chan Envelope, 64)}
	h.register(user, sub)
	defer h.unregister(user, sub)

	// Reader goroutine: we never expect payloads from subscribers, but
	// reading drives pong handling and surfaces closes promptly.
	readErr := make(chan error, 1)
	go func() {
		conn.SetReadLimit(512)
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * h.heartbeat))
		})
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.heartbeat))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		case <-readErr:
			return
		case env := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(env); err != nil {
				h.log.Debugw("subscriber write failed", "user", user, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if err := conn.WriteJSON(Envelope{Type: TypeHeartbeat}); err != nil {
				return
			}
		}
	}
}
