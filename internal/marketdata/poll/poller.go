// Package poll implements the quote producer: a background loop that polls
// the market-data provider on a fixed interval, validates each snapshot,
// and pushes the survivors into the quote ring for the live loop to drain.
package poll

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tradesim/internal/marketdata"
	"tradesim/internal/markethours"
	"tradesim/internal/metrics"
	"tradesim/internal/quotebuf"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 3 * time.Second

// Config configures the Poller.
type Config struct {
	Symbols  []string
	Interval time.Duration // default 3s

	// CheckMarketHours skips polls outside A-share trading sessions.
	CheckMarketHours bool
}

// Poller polls a QuoteSource and produces validated quotes into a Ring.
//
// Start spawns the loop only when it is not already running. Stop signals
// cooperative termination and blocks until the loop exits; a provider fetch
// already in flight completes first — there is no mid-fetch cancellation,
// and no timeout is imposed on the provider call. A hanging provider stalls
// only the next snapshot, never the consumer.
type Poller struct {
	cfg  Config
	src  marketdata.QuoteSource
	ring *quotebuf.Ring
	prom *metrics.Metrics // optional

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	polled    atomic.Uint64
	discarded atomic.Uint64
}

// New creates a Poller. prom may be nil.
func New(cfg Config, src marketdata.QuoteSource, ring *quotebuf.Ring, prom *metrics.Metrics) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{cfg: cfg, src: src, ring: ring, prom: prom}
}

// Start spawns the polling loop. Calling Start while the loop is already
// running is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		log.Printf("[poll] start ignored: already running")
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(p.stopCh, p.doneCh)
	log.Printf("[poll] started: %d symbols every %s", len(p.cfg.Symbols), p.cfg.Interval)
}

// Stop signals the loop to terminate and blocks until it has exited.
// Safe to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	log.Printf("[poll] stopped: %d polled, %d discarded, %d dropped",
		p.polled.Load(), p.discarded.Load(), p.ring.Dropped())
}

// Polled returns how many valid quotes were pushed into the ring.
func (p *Poller) Polled() uint64 { return p.polled.Load() }

// Discarded returns how many snapshots failed validation.
func (p *Poller) Discarded() uint64 { return p.discarded.Load() }

func (p *Poller) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// First poll immediately, then on the interval.
	p.pollOnce()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *Poller) pollOnce() {
	if p.cfg.CheckMarketHours && !markethours.IsMarketOpen(time.Now()) {
		return
	}

	// Background context: the stop signal is observed between polls, never
	// mid-fetch.
	quotes, err := p.src.Quotes(context.Background(), p.cfg.Symbols)
	if err != nil {
		log.Printf("[poll] provider error (treated as no data): %v", err)
		return
	}

	for _, q := range quotes {
		if !q.Valid() {
			p.discarded.Add(1)
			if p.prom != nil {
				p.prom.QuotesDiscarded.Inc()
			}
			log.Printf("[poll] discarding invalid snapshot for %s", q.Symbol)
			continue
		}
		p.ring.Push(q)
		p.polled.Add(1)
		if p.prom != nil {
			p.prom.QuotesPolled.Inc()
			p.prom.RingDepth.Set(float64(p.ring.Len()))
		}
	}
}
