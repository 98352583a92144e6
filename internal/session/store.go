package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/option-signal-feed/internal/config"
	"github.com/option-signal-feed/internal/ingestion"
	"github.com/option-signal-feed/internal/logger"
	"github.com/option-signal-feed/internal/settings"
	"github.com/option-signal-feed/internal/siglog"
)

// Store is the session registry: one running poll loop per user,
// created on first access and torn down after sustained inactivity.
type Store struct {
	fetcher  ingestion.Fetcher
	settings settings.Store
	sink     siglog.Sink
	pub      Publisher
	events   chan<- SignalEvent

	pollCfg    config.PollConfig
	marketCfg  config.MarketConfig
	inactivity time.Duration

	mu       sync.Mutex
	sessions map[string]*entry

	ctx context.Context
	wg  sync.WaitGroup
	log *logger.Logger
}

type entry struct {
	runner     *Runner
	cancel     context.CancelFunc
	lastAccess time.Time
}

func NewStore(
	fetcher ingestion.Fetcher,
	store settings.Store,
	sink siglog.Sink,
	pub Publisher,
	events chan<- SignalEvent,
	pollCfg config.PollConfig,
	marketCfg config.MarketConfig,
	sessionCfg config.SessionConfig,
) *Store {
	inactivity := time.Duration(sessionCfg.InactivityTimeoutMins) * time.Minute
	if inactivity <= 0 {
		inactivity = 2 * time.Hour
	}
	return &Store{
		fetcher:    fetcher,
		settings:   store,
		sink:       sink,
		pub:        pub,
		events:     events,
		pollCfg:    pollCfg,
		marketCfg:  marketCfg,
		inactivity: inactivity,
		sessions:   make(map[string]*entry),
		log:        logger.Get().With("component", "sessions"),
	}
}

// Run owns the background lifecycle: it sweeps idle sessions until the
// context ends, then stops every loop and waits for them to exit.
func (s *Store) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Acquire returns the user's session runner, starting a poll loop on
// first access. Every call refreshes the inactivity clock.
func (s *Store) Acquire(user string) *Runner {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[user]; ok {
		e.lastAccess = time.Now()
		return e.runner
	}

	runner := NewRunner(user, s.fetcher, s.settings, s.sink, s.pub, s.events, s.pollCfg, s.marketCfg)

	parent := s.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s.sessions[user] = &entry{runner: runner, cancel: cancel, lastAccess: time.Now()}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = runner.Run(ctx)
	}()

	s.log.Infow("session started", "user", user)
	return runner
}

// Peek returns the runner without creating one.
func (s *Store) Peek(user string) (*Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[user]
	if ok {
		e.lastAccess = time.Now()
		return e.runner, true
	}
	return nil, false
}

// Count reports the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Users lists the users with a live session.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.sessions))
	for user := range s.sessions {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

func (s *Store) sweep() {
	cutoff := time.Now().Add(-s.inactivity)
	s.mu.Lock()
	defer s.mu.Unlock()
	for user, e := range s.sessions {
		if e.lastAccess.Before(cutoff) {
			e.cancel()
			delete(s.sessions, user)
			s.log.Infow("session torn down after inactivity", "user", user)
		}
	}
}

func (s *Store) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for user, e := range s.sessions {
		e.cancel()
		delete(s.sessions, user)
	}
}
