// Package ws streams quote snapshots from a WebSocket server (such as
// cmd/quoteserver) into the quote ring. It is an alternative to the polling
// producer in internal/marketdata/poll; both feed the same buffer.
//
// The wire format is one JSON model.Quote per message:
//
//	{"ts":"...","symbol":"000001","price":10.52,"volume":1.2e6,...}
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"tradesim/internal/metrics"
	"tradesim/internal/model"
	"tradesim/internal/quotebuf"
)

// Config holds the WebSocket ingest configuration.
type Config struct {
	// URL of the quote WebSocket server, e.g. "ws://localhost:9001/ws".
	URL string

	// Symbols restricts ingestion to these symbols; empty accepts all.
	Symbols []string

	// ReconnectDelay is the initial backoff before reconnecting. Default 2s.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Default 30s.
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// Ingest connects to a quote WebSocket and pushes validated snapshots into
// the ring. Invalid snapshots are discarded and counted.
type Ingest struct {
	cfg     Config
	ring    *quotebuf.Ring
	prom    *metrics.Metrics // optional
	symbols map[string]bool

	// OnReconnect, if set, is called on each reconnection attempt.
	OnReconnect func()
}

// New creates an ingest client feeding the given ring. prom may be nil.
func New(cfg Config, ring *quotebuf.Ring, prom *metrics.Metrics) (*Ingest, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, err
	}
	var symbols map[string]bool
	if len(cfg.Symbols) > 0 {
		symbols = make(map[string]bool, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			symbols[s] = true
		}
	}
	return &Ingest{cfg: cfg, ring: ring, prom: prom, symbols: symbols}, nil
}

// Start streams quotes into the ring until ctx is cancelled, reconnecting
// with exponential backoff on disconnect.
func (ing *Ingest) Start(ctx context.Context) error {
	delay := ing.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := ing.runOnce(ctx)
		if err == nil {
			return nil
		}

		log.Printf("[ws] disconnected (%v), reconnecting in %s...", err, delay)
		if ing.OnReconnect != nil {
			ing.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > ing.cfg.MaxReconnectDelay {
			delay = ing.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes one connection attempt and reads until disconnect or cancel.
func (ing *Ingest) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ing.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[ws] connected to %s", ing.cfg.URL)

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	// done releases the watcher when this connection ends first, so
	// reconnect cycles do not accumulate goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		var q model.Quote
		if err := json.Unmarshal(raw, &q); err != nil {
			log.Printf("[ws] parse error: %v (raw: %s)", err, raw)
			continue
		}
		if !q.Valid() {
			if ing.prom != nil {
				ing.prom.QuotesDiscarded.Inc()
			}
			continue
		}
		if ing.symbols != nil && !ing.symbols[q.Symbol] {
			continue
		}
		if q.TS.IsZero() {
			q.TS = time.Now()
		}

		if !ing.ring.Push(q) {
			if ing.prom != nil {
				ing.prom.RingDropped.Inc()
			}
			continue
		}
		if ing.prom != nil {
			ing.prom.QuotesPolled.Inc()
			ing.prom.RingDepth.Set(float64(ing.ring.Len()))
		}
	}
}
