// Package live runs the paper trading orchestration loop: one quote snapshot
// per tick is drained from the ring, turned into a strategy signal, sized,
// risk-checked, and submitted to the broker.
package live

import (
	"context"
	"log"
	"sync"
	"time"

	"tradesim/internal/alert"
	"tradesim/internal/broker"
	"tradesim/internal/logger"
	"tradesim/internal/metrics"
	"tradesim/internal/model"
	"tradesim/internal/portfolio"
	"tradesim/internal/quotebuf"
	"tradesim/internal/strategy"
)

// State is the loop's current phase, observable for monitoring.
type State string

const (
	StateIdle         State = "idle"
	StatePolling      State = "polling"
	StateSignaling    State = "signaling"
	StateSizing       State = "sizing"
	StateRiskChecking State = "risk-checking"
	StateSubmitting   State = "submitting"
	StateUpdating     State = "updating"
)

// Recorder receives the snapshots and portfolio valuations the loop
// processes. Implementations must not block the tick; errors are the
// recorder's problem.
type Recorder interface {
	RecordQuote(ctx context.Context, q model.Quote)
	RecordPortfolioValue(ctx context.Context, ts time.Time, value float64)
}

// Config configures the live loop.
type Config struct {
	Symbol   string
	Interval time.Duration // tick interval, default 3s

	// History is the number of closes kept as a rolling window for the
	// strategy. 0 feeds only the current snapshot, which never produces a
	// crossover; set at least the strategy's long window to make signals
	// actionable.
	History int
}

// Loop drives one symbol through the signal → size → risk → submit pipeline
// on a fixed tick. Journal, Recorder, and Metrics are optional (nil-safe).
type Loop struct {
	cfg     Config
	ring    *quotebuf.Ring
	strat   strategy.Strategy
	ledger  *portfolio.Ledger
	risk    *portfolio.RiskManager
	brk     broker.Broker
	journal *broker.Journal
	rec     Recorder
	prom    *metrics.Metrics
	notif   alert.Notifier

	history  []model.Bar
	breached bool // last observed drawdown-breach state

	mu      sync.Mutex
	state   State
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a live loop. ring, strat, ledger, risk, and brk are required.
func New(cfg Config, ring *quotebuf.Ring, strat strategy.Strategy,
	ledger *portfolio.Ledger, risk *portfolio.RiskManager, brk broker.Broker) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	return &Loop{
		cfg:    cfg,
		ring:   ring,
		strat:  strat,
		ledger: ledger,
		risk:   risk,
		brk:    brk,
		state:  StateIdle,
	}
}

// WithJournal attaches a trade journal that records every fill.
func (l *Loop) WithJournal(j *broker.Journal) *Loop { l.journal = j; return l }

// WithRecorder attaches a portfolio-value recorder.
func (l *Loop) WithRecorder(r Recorder) *Loop { l.rec = r; return l }

// WithMetrics attaches Prometheus instrumentation.
func (l *Loop) WithMetrics(m *metrics.Metrics) *Loop { l.prom = m; return l }

// WithNotifier attaches an alert channel for fills, rejections, and
// drawdown breaches.
func (l *Loop) WithNotifier(n alert.Notifier) *Loop { l.notif = n; return l }

// State returns the loop's current phase.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start launches the tick loop. No-op if already running.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	go l.run(l.stopCh, l.doneCh)
	log.Printf("[live] loop started symbol=%s interval=%s strategy=%s",
		l.cfg.Symbol, l.cfg.Interval, l.strat.Name())
}

// Stop halts the loop, waits for the current tick to finish, and logs the
// final trade statistics.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stopCh, doneCh := l.stopCh, l.doneCh
	l.mu.Unlock()

	close(stopCh)
	<-doneCh

	stats := l.ledger.TradeStatistics()
	log.Printf("[live] stopped: trades=%d buys=%d sells=%d turnover=%.2f",
		stats.TotalTrades, stats.BuyTrades, stats.SellTrades, stats.TotalValue)
}

func (l *Loop) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			l.setState(StateIdle)
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// tick processes at most one snapshot. A panic in any phase is contained so
// the next tick still runs.
func (l *Loop) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[live] tick recovered: %v", r)
		}
		l.setState(StateIdle)
	}()

	start := time.Now()
	if l.prom != nil {
		defer func() {
			l.prom.TicksTotal.Inc()
			l.prom.TickDuration.Observe(time.Since(start).Seconds())
		}()
	}

	l.setState(StatePolling)
	q, ok := l.ring.Pop()
	if !ok {
		if l.prom != nil {
			l.prom.TicksSkipped.Inc()
		}
		return
	}
	if l.prom != nil {
		l.prom.RingDepth.Set(float64(l.ring.Len()))
	}

	// One trace ID per tick so a fill can be followed from snapshot to
	// journal entry across broker, recorder and notifier.
	ctx := logger.WithTraceID(context.Background(), logger.GenerateTraceID(q.Symbol, q.TS))

	l.setState(StateUpdating)
	prices := map[string]float64{q.Symbol: q.Price}
	value := l.ledger.PortfolioValue(prices)
	l.risk.UpdatePortfolioValue(value)
	if breached := l.risk.DrawdownBreached(); breached != l.breached {
		l.breached = breached
		if breached && l.notif != nil {
			m, _ := l.risk.RiskMetrics()
			l.notif.Send(ctx, alert.DrawdownBreach(m.MaxDrawdown, l.risk.Limits().MaxDrawdown))
		}
	}
	if l.prom != nil {
		l.prom.PortfolioValue.Set(value)
	}
	if l.rec != nil {
		l.rec.RecordQuote(ctx, q)
		l.rec.RecordPortfolioValue(ctx, q.TS, value)
	}
	if p, ok := l.brk.(*broker.Paper); ok {
		p.MarkPrice(q.Symbol, q.Price)
	}

	l.setState(StateSignaling)
	bars := l.observe(q)
	series := l.strat.Signals(bars)
	delta := series.LastDelta()
	if delta == 0 {
		l.logStatus(prices, value)
		return
	}

	l.setState(StateSizing)
	volume := l.ledger.SizePosition(q.Symbol, q.Price)
	if volume <= 0 {
		log.Printf("[live] signal delta=%.0f but sized to zero at price=%.2f", delta, q.Price)
		return
	}

	dir := model.Buy
	if delta < 0 {
		dir = model.Sell
	}
	order := model.Order{
		Symbol:    q.Symbol,
		Direction: dir,
		Price:     q.Price,
		Volume:    volume,
		Status:    model.OrderSubmitted,
		CreatedAt: time.Now(),
	}

	l.setState(StateRiskChecking)
	account, err := l.brk.AccountInfo(ctx)
	if err != nil {
		log.Printf("[live] account info failed, skipping tick: %v", err)
		return
	}
	allowed, reason := l.risk.CheckOrder(order, account)
	if !allowed {
		log.Printf("[live] order blocked: %s %s vol=%d price=%.2f reason=%q",
			dir, q.Symbol, volume, q.Price, reason)
		if l.prom != nil {
			l.prom.OrdersRejected.WithLabelValues("risk").Inc()
		}
		if l.notif != nil {
			l.notif.Send(ctx, alert.Rejection(order, reason))
		}
		return
	}

	l.setState(StateSubmitting)
	filled, err := l.brk.SubmitOrder(ctx, q.Symbol, dir, q.Price, volume)
	if err != nil {
		log.Printf("[live] submit failed: %v", err)
		if l.prom != nil {
			l.prom.OrdersRejected.WithLabelValues("broker").Inc()
		}
		return
	}
	if l.prom != nil {
		l.prom.OrdersSubmitted.WithLabelValues(string(dir)).Inc()
	}
	if filled.Status != model.OrderFilled {
		log.Printf("[live] order %s not filled: status=%s", filled.ID, filled.Status)
		if l.prom != nil {
			l.prom.OrdersRejected.WithLabelValues("broker").Inc()
		}
		return
	}

	l.setState(StateUpdating)
	l.ledger.ApplyFill(q.Symbol, dir, q.Price, volume)
	l.risk.RecordFill(q.Symbol, dir, q.Price, volume)
	l.risk.SyncPosition(q.Symbol, l.ledger.Position(q.Symbol))
	if l.prom != nil {
		l.prom.FillsApplied.Inc()
	}
	if l.journal != nil {
		if err := l.journal.RecordFill(filled, time.Now()); err != nil {
			log.Printf("[live] journal write failed: %v", err)
		}
	}
	if l.notif != nil {
		l.notif.Send(ctx, alert.Fill(filled))
	}
	log.Printf("[live] executed %s %s vol=%d price=%.2f order=%s reason=%q trace=%s",
		dir, q.Symbol, volume, q.Price, filled.ID, reason, logger.TraceID(ctx))
	l.logStatus(prices, value)
}

// observe appends the snapshot to the rolling close window and returns the
// bars fed to the strategy.
func (l *Loop) observe(q model.Quote) []model.Bar {
	bar := strategy.QuoteBar(q)
	if l.cfg.History <= 0 {
		return []model.Bar{bar}
	}
	l.history = append(l.history, bar)
	if len(l.history) > l.cfg.History {
		l.history = l.history[len(l.history)-l.cfg.History:]
	}
	return l.history
}

func (l *Loop) logStatus(prices map[string]float64, value float64) {
	perf := l.ledger.PerformanceMetrics(prices)
	rm, ok := l.risk.RiskMetrics()
	if !ok {
		log.Printf("[live] value=%.2f return=%.2f%%", value, perf.TotalReturn*100)
		return
	}
	log.Printf("[live] value=%.2f return=%.2f%% vol=%.2f%% sharpe=%.2f",
		value, perf.TotalReturn*100, rm.Volatility*100, rm.Sharpe)
}
