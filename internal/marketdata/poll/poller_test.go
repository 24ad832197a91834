package poll

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"tradesim/internal/model"
	"tradesim/internal/quotebuf"
)

type fakeSource struct {
	calls  atomic.Int64
	quotes []model.Quote
	err    error
}

func (f *fakeSource) Quotes(_ context.Context, _ []string) ([]model.Quote, error) {
	f.calls.Add(1)
	return f.quotes, f.err
}

func validQuote(symbol string, price float64) model.Quote {
	return model.Quote{TS: time.Now(), Symbol: symbol, Price: price, Volume: 1000, Turnover: price * 1000}
}

func TestPollerPushesValidQuotes(t *testing.T) {
	src := &fakeSource{quotes: []model.Quote{validQuote("000001", 10.5), validQuote("600519", 1700)}}
	ring := quotebuf.New(16)

	p := New(Config{Symbols: []string{"000001", "600519"}, Interval: time.Hour}, src, ring, nil)
	p.pollOnce()

	if got := p.Polled(); got != 2 {
		t.Fatalf("Polled = %d, want 2", got)
	}
	if ring.Len() != 2 {
		t.Fatalf("ring.Len = %d, want 2", ring.Len())
	}
	q, ok := ring.Pop()
	if !ok || q.Symbol != "000001" {
		t.Errorf("first quote = %+v, ok=%v", q, ok)
	}
}

func TestPollerDiscardsInvalidQuotes(t *testing.T) {
	bad := validQuote("000001", 10.5)
	bad.Price = math.NaN() // suspended stock, "-" upstream
	src := &fakeSource{quotes: []model.Quote{bad, validQuote("600519", 1700)}}
	ring := quotebuf.New(16)

	p := New(Config{Symbols: []string{"000001", "600519"}, Interval: time.Hour}, src, ring, nil)
	p.pollOnce()

	if got := p.Discarded(); got != 1 {
		t.Errorf("Discarded = %d, want 1", got)
	}
	if got := p.Polled(); got != 1 {
		t.Errorf("Polled = %d, want 1", got)
	}
}

func TestPollerProviderErrorIsNoData(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	ring := quotebuf.New(16)

	p := New(Config{Symbols: []string{"000001"}, Interval: time.Hour}, src, ring, nil)
	p.pollOnce()

	if ring.Len() != 0 {
		t.Errorf("ring.Len = %d after provider error, want 0", ring.Len())
	}
	if p.Polled() != 0 || p.Discarded() != 0 {
		t.Errorf("counters moved on provider error: polled=%d discarded=%d", p.Polled(), p.Discarded())
	}
}

func TestPollerStartStop(t *testing.T) {
	src := &fakeSource{quotes: []model.Quote{validQuote("000001", 10.5)}}
	ring := quotebuf.New(256)

	p := New(Config{Symbols: []string{"000001"}, Interval: 5 * time.Millisecond}, src, ring, nil)
	p.Start()
	p.Start() // second Start is a no-op

	time.Sleep(30 * time.Millisecond)
	p.Stop()
	p.Stop() // Stop when stopped is safe

	if src.calls.Load() < 2 {
		t.Errorf("source called %d times, want >= 2", src.calls.Load())
	}
	polled := p.Polled()
	time.Sleep(20 * time.Millisecond)
	if p.Polled() != polled {
		t.Error("poller kept producing after Stop")
	}
}

func TestPollerDefaultInterval(t *testing.T) {
	p := New(Config{Symbols: []string{"000001"}}, &fakeSource{}, quotebuf.New(16), nil)
	if p.cfg.Interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", p.cfg.Interval, DefaultInterval)
	}
}
