package session

import (
	"context"
	"sync"
	"time"

	"github.com/option-signal-feed/internal/baseline"
	"github.com/option-signal-feed/internal/chain"
	"github.com/option-signal-feed/internal/config"
	"github.com/option-signal-feed/internal/ingestion"
	"github.com/option-signal-feed/internal/logger"
	"github.com/option-signal-feed/internal/metrics"
	"github.com/option-signal-feed/internal/regime"
	"github.com/option-signal-feed/internal/settings"
	"github.com/option-signal-feed/internal/siglog"
	"github.com/option-signal-feed/internal/signals"
)

// Publisher receives each assembled composite for fan-out.
type Publisher interface {
	Publish(user string, seq uint64, pollTS time.Time, state any)
}

// Runner is one user's poll loop. All mutable cycle state (baseline,
// detector streaks, volatility regime, price history, last composite)
// is owned by the loop goroutine; readers get copies via Composite().
type Runner struct {
	user     string
	fetcher  ingestion.Fetcher
	settings settings.Store
	sink     siglog.Sink
	pub      Publisher
	events   chan<- SignalEvent

	pollCfg   config.PollConfig
	marketCfg config.MarketConfig

	baselines *baseline.Manager
	detector  *signals.Detector
	vol       *regime.VolClassifier
	history   priceHistory

	seq     uint64
	day     string
	lastErr string

	mu   sync.RWMutex
	last *Composite

	now func() time.Time
	log *logger.Logger
}

func NewRunner(
	user string,
	fetcher ingestion.Fetcher,
	store settings.Store,
	sink siglog.Sink,
	pub Publisher,
	events chan<- SignalEvent,
	pollCfg config.PollConfig,
	marketCfg config.MarketConfig,
) *Runner {
	return &Runner{
		user:      user,
		fetcher:   fetcher,
		settings:  store,
		sink:      sink,
		pub:       pub,
		events:    events,
		pollCfg:   pollCfg,
		marketCfg: marketCfg,
		baselines: baseline.NewManager(marketCfg.Location()),
		detector:  signals.NewDetector(),
		vol:       regime.NewVolClassifier(),
		now:       time.Now,
		log:       logger.Get().With("component", "session", "user", user),
	}
}

// Run executes the poll loop until the context ends. Each tick sleeps
// for the configured interval minus the time the cycle itself took, so
// the cadence stays close to fixed.
func (r *Runner) Run(ctx context.Context) error {
	interval := time.Duration(r.pollCfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	r.log.Infow("poll loop started", "interval", interval)
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	for {
		start := r.now()
		r.cycle(ctx)
		elapsed := r.now().Sub(start)

		sleep := interval - elapsed
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-ctx.Done():
			r.log.Infow("poll loop stopped")
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// cycle runs one poll tick. Any failure abandons the tick, marks the
// last composite stale, and leaves the loop running.
func (r *Runner) cycle(ctx context.Context) {
	now := r.now()

	if !marketOpen(now, r.marketCfg) {
		r.clearOnClose()
		metrics.PollCycles.WithLabelValues(r.user, "skipped_closed").Inc()
		return
	}

	timer := time.Now()
	cfg := settings.GetOrDefaults(r.settings, r.user)
	expiry := ingestion.NextWeeklyExpiry(now.In(r.marketCfg.Location()), time.Weekday(r.marketCfg.ExpiryWeekday))

	snap, err := r.fetcher.FetchChain(ctx, expiry)
	if err != nil {
		r.log.Warnw("fetch failed, retaining last state as stale", "error", err)
		r.markStale(err)
		metrics.PollCycles.WithLabelValues(r.user, "fetch_error").Inc()
		return
	}

	r.rolloverIfNewDay(now)
	r.history.Append(snap.Timestamp, snap.UnderlyingPrice)

	agg := chain.AggregateWindow(snap, r.marketCfg.StrikeWindow)
	base := r.baselines.Observe(agg, now)
	change := chain.ChangeFrom(base.Aggregate, agg)

	det := r.detector.Evaluate(snap, agg, cfg.Greeks, cfg.Confirmations)
	if det.Confirmed != nil {
		r.recordConfirmed(*det.Confirmed)
	}

	volMetrics := r.classifyVolatility(snap, now, cfg.Volatility)
	dirMetrics := regime.ClassifyDirection(r.history.Points(), cfg.PrevDay, regime.DirConfig{
		SessionStart:   sessionStart(now, r.marketCfg),
		InitialBalance: time.Duration(r.marketCfg.InitialBalanceMins) * time.Minute,
		AcceptanceSkip: time.Duration(r.marketCfg.AcceptanceSkipMins) * time.Minute,
	}, cfg.Direction)
	perm := regime.Permit(volMetrics.State, dirMetrics.State)

	r.seq++
	r.lastErr = ""
	comp := &Composite{
		User:            r.user,
		Sequence:        r.seq,
		PollTimestamp:   snap.Timestamp,
		UnderlyingPrice: snap.UnderlyingPrice,
		ATMStrike:       snap.ATMStrike,
		ExpiryDate:      snap.ExpiryDate,
		Aggregated:      agg,
		Baseline:        &base,
		Change:          &change,
		Signals:         det.Evaluations,
		ConfirmedSignal: det.Confirmed,
		Volatility:      volMetrics,
		Direction:       dirMetrics,
		Permission:      perm,
	}

	r.mu.Lock()
	r.last = comp
	r.mu.Unlock()

	if r.pub != nil {
		r.pub.Publish(r.user, comp.Sequence, comp.PollTimestamp, comp.Clone())
	}

	metrics.PollCycles.WithLabelValues(r.user, "ok").Inc()
	metrics.PollDuration.WithLabelValues(r.user).Observe(time.Since(timer).Seconds())
}

// rolloverIfNewDay clears intraday state when the calendar day changes.
// The baseline manager does its own date check on Observe.
func (r *Runner) rolloverIfNewDay(now time.Time) {
	day := now.In(r.marketCfg.Location()).Format("2006-01-02")
	if r.day == day {
		return
	}
	if r.day != "" {
		r.log.Infow("trading day rollover", "from", r.day, "to", day)
		r.history.Reset()
		r.detector.Reset()
		r.vol.Reset()
	}
	r.day = day
}

// clearOnClose drops intraday accumulators once the trading window
// ends, so the next open starts clean. The baseline manager keeps its
// own date check and recaptures on the next trading day.
func (r *Runner) clearOnClose() {
	if r.day == "" {
		return
	}
	r.log.Infow("market closed, clearing intraday state", "day", r.day)
	r.history.Reset()
	r.detector.Reset()
	r.vol.Reset()
	r.day = ""
}

func (r *Runner) classifyVolatility(snap *chain.Snapshot, now time.Time, th regime.VolThresholds) regime.VolMetrics {
	window := time.Duration(r.marketCfg.RVWindowMins) * time.Minute

	var in regime.VolInputs
	prev, hasPrev := r.history.PriceAt(now.Add(-window))
	in.RVCurrent, in.HasRVCurrent = regime.RVCurrent(snap.UnderlyingPrice, prev, hasPrev)

	if open, ok := r.history.Open(); ok {
		in.RVOpenNorm, in.HasRVOpenNorm = regime.RVOpenNorm(
			snap.UnderlyingPrice, open, sessionStart(now, r.marketCfg), now, window)
	}

	ivATM, okATM := chain.ATMIV(snap.Options, snap.ATMStrike)
	ivVWAP, okVWAP := chain.IVVWAP(snap.Options)
	if okATM && okVWAP {
		in.IVATM, in.IVVWAP, in.HasIV = ivATM, ivVWAP, true
	}

	return r.vol.Classify(in, th)
}

func (r *Runner) recordConfirmed(sig signals.Confirmed) {
	r.log.Infow("signal confirmed",
		"position", sig.Position, "strike", sig.Strike, "ltp", sig.StrikeLTP)
	metrics.SignalsConfirmed.WithLabelValues(r.user, string(sig.Position)).Inc()

	if r.sink != nil {
		if err := r.sink.Record(r.user, sig); err != nil {
			r.log.Errorw("failed to record signal", "error", err)
		}
	}
	if r.events != nil {
		select {
		case r.events <- SignalEvent{User: r.user, Signal: sig}:
		default:
			r.log.Warnw("alert channel full, dropping signal event")
		}
	}
}

// markStale flags the retained composite without touching its values.
func (r *Runner) markStale(err error) {
	r.lastErr = err.Error()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != nil {
		stale := r.last.Clone()
		stale.Stale = true
		stale.LastError = r.lastErr
		r.last = stale
	}
}

// Composite returns a copy of the last assembled state.
func (r *Runner) Composite() (*Composite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil, false
	}
	return r.last.Clone(), true
}

// ResetBaseline forces the next poll to capture a fresh baseline.
// Idempotent: resetting an empty baseline is a no-op.
func (r *Runner) ResetBaseline() {
	r.baselines.Reset()
	r.log.Infow("baseline reset requested")
}
