// Package metrics holds the Prometheus instrumentation for the paper
// trading loop and serves /metrics and /healthz.
package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading loop.
type Metrics struct {
	QuotesPolled    prometheus.Counter
	QuotesDiscarded prometheus.Counter
	RingDepth       prometheus.Gauge
	RingDropped     prometheus.Counter

	TicksTotal      prometheus.Counter
	TicksSkipped    prometheus.Counter // ticks with no quote available
	TickDuration    prometheus.Histogram
	OrdersSubmitted *prometheus.CounterVec // labels: direction
	OrdersRejected  *prometheus.CounterVec // labels: stage (risk, broker)
	FillsApplied    prometheus.Counter
	PortfolioValue  prometheus.Gauge
}

// NewMetrics registers and returns all metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		QuotesPolled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_quotes_polled_total",
			Help: "Valid quote snapshots pushed into the ring",
		}),
		QuotesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_quotes_discarded_total",
			Help: "Snapshots discarded by validation (non-finite fields)",
		}),
		RingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_quote_ring_depth",
			Help: "Quotes currently buffered between producer and loop",
		}),
		RingDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_quote_ring_dropped_total",
			Help: "Quotes dropped against a full ring",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_ticks_total",
			Help: "Live loop ticks processed",
		}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_ticks_skipped_total",
			Help: "Ticks skipped because the quote ring was empty",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "papertrade_tick_duration_seconds",
			Help:    "Per-tick processing latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_orders_submitted_total",
			Help: "Orders submitted to the broker (by direction)",
		}, []string{"direction"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_orders_rejected_total",
			Help: "Orders rejected before or at the broker (by stage)",
		}, []string{"stage"}),
		FillsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_fills_applied_total",
			Help: "Fills applied to the ledger",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_portfolio_value",
			Help: "Latest portfolio valuation in yuan",
		}),
	}

	prometheus.MustRegister(
		m.QuotesPolled,
		m.QuotesDiscarded,
		m.RingDepth,
		m.RingDropped,
		m.TicksTotal,
		m.TicksSkipped,
		m.TickDuration,
		m.OrdersSubmitted,
		m.OrdersRejected,
		m.FillsApplied,
		m.PortfolioValue,
	)
	return m
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates the metrics server.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","ts":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
	})

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
