// Package redis exports quote snapshots and portfolio valuations to Redis:
// capped streams for history, latest-keys with TTL for dashboards, pub/sub
// for live subscribers. The recorder is optional; trading never blocks on it.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tradesim/internal/model"
)

const (
	// quote streams hold roughly a session of 3s snapshots
	quoteStreamMaxLen = 5000
	valueStreamMaxLen = 10000
	latestTTL         = 30 * time.Minute
)

// Config configures the recorder.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Recorder writes market and portfolio data to Redis. All write paths run
// through a breaker so a dead Redis degrades to dropped records, not stalls.
type Recorder struct {
	client  *goredis.Client
	breaker *breaker
}

// New creates a Recorder and pings the server.
func New(cfg Config) (*Recorder, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] recorder connected to %s", cfg.Addr)
	return &Recorder{
		client:  client,
		breaker: newBreaker(5, 10*time.Second),
	}, nil
}

// RecordQuote writes one snapshot: XADD to the symbol stream, SET the latest
// key, PUBLISH for subscribers. Errors are logged, never returned.
func (r *Recorder) RecordQuote(ctx context.Context, q model.Quote) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	payload := string(data)

	r.write(ctx, func(pipe goredis.Pipeliner) {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: "quote:" + q.Symbol,
			MaxLen: quoteStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": payload},
		})
		pipe.Set(ctx, "quote:latest:"+q.Symbol, payload, latestTTL)
		pipe.Publish(ctx, "pub:quote:"+q.Symbol, payload)
	})
}

// RecordPortfolioValue appends one valuation point to the portfolio stream.
func (r *Recorder) RecordPortfolioValue(ctx context.Context, ts time.Time, value float64) {
	payload := fmt.Sprintf(`{"ts":%q,"value":%.2f}`, ts.Format(time.RFC3339), value)

	r.write(ctx, func(pipe goredis.Pipeliner) {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: "portfolio:value",
			MaxLen: valueStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": payload},
		})
		pipe.Set(ctx, "portfolio:value:latest", payload, latestTTL)
	})
}

// LatestQuote reads back the latest recorded snapshot for a symbol. Returns
// false when none is recorded (or it expired).
func (r *Recorder) LatestQuote(ctx context.Context, symbol string) (model.Quote, bool) {
	raw, err := r.client.Get(ctx, "quote:latest:"+symbol).Result()
	if err != nil {
		return model.Quote{}, false
	}
	var q model.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return model.Quote{}, false
	}
	return q, true
}

// write runs one pipelined write through the breaker.
func (r *Recorder) write(ctx context.Context, build func(goredis.Pipeliner)) {
	if !r.breaker.allow() {
		return
	}
	pipe := r.client.Pipeline()
	build(pipe)
	if _, err := pipe.Exec(ctx); err != nil {
		if r.breaker.failure() {
			log.Printf("[redis] recorder paused after repeated failures: %v", err)
		}
		return
	}
	r.breaker.success()
}

// Close closes the Redis client.
func (r *Recorder) Close() error {
	return r.client.Close()
}
