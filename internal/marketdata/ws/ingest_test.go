package ws

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tradesim/internal/model"
	"tradesim/internal/quotebuf"
)

var upgrader = websocket.Upgrader{}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestIngest_PushesValidQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		quotes := []model.Quote{
			{TS: time.Now(), Symbol: "000001", Price: 10.5},
			{TS: time.Now(), Symbol: "", Price: 11.0},                     // invalid: no symbol
			{TS: time.Now(), Symbol: "000001", Price: math.Inf(1)},        // invalid: non-finite
			{TS: time.Now(), Symbol: "600519", Price: 1500.0},             // filtered out below
			{TS: time.Now(), Symbol: "000001", Price: 10.6, Volume: 1000}, // valid
		}
		for _, q := range quotes {
			conn.WriteJSON(q)
		}
		// Give the client time to drain before the server side closes.
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	ring := quotebuf.New(16)
	ing, err := New(Config{
		URL:            wsURL(srv),
		Symbols:        []string{"000001"},
		ReconnectDelay: 10 * time.Millisecond,
	}, ring, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	ing.Start(ctx)

	got := ring.PopAll()
	if len(got) != 2 {
		t.Fatalf("ring has %d quotes, want 2 (invalid and filtered discarded)", len(got))
	}
	if got[0].Price != 10.5 || got[1].Price != 10.6 {
		t.Errorf("quotes = %+v", got)
	}
}

func TestIngest_ReconnectsAfterDisconnect(t *testing.T) {
	conns := make(chan struct{}, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- struct{}{}
		conn.WriteJSON(model.Quote{TS: time.Now(), Symbol: "000001", Price: 10.0})
		conn.Close() // force a disconnect
	}))
	defer srv.Close()

	ring := quotebuf.New(16)
	ing, err := New(Config{
		URL:               wsURL(srv),
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 20 * time.Millisecond,
	}, ring, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	reconnects := 0
	ing.OnReconnect = func() { reconnects++ }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ing.Start(ctx)
		close(done)
	}()

	// Wait for at least two distinct connections.
	for i := 0; i < 2; i++ {
		select {
		case <-conns:
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d never arrived", i+1)
		}
	}
	cancel()
	<-done

	if reconnects == 0 {
		t.Error("OnReconnect never fired")
	}
	if ring.Len()+len(ring.PopAll()) == 0 {
		t.Error("no quotes ingested across reconnects")
	}
}

func TestIngest_NoGoroutineLeakAcrossReconnects(t *testing.T) {
	conns := make(chan struct{}, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- struct{}{}
		conn.Close() // every connection drops immediately
	}))
	defer srv.Close()

	ring := quotebuf.New(16)
	ing, err := New(Config{
		URL:               wsURL(srv),
		ReconnectDelay:    time.Millisecond,
		MaxReconnectDelay: 2 * time.Millisecond,
	}, ring, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ing.Start(ctx)
		close(done)
	}()

	// Let the ingest churn through a pile of reconnect cycles.
	for i := 0; i < 20; i++ {
		select {
		case <-conns:
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d never arrived", i+1)
		}
	}
	cancel()
	<-done

	// Per-connection watchers must have exited with their connections; allow
	// a little slack for runtime/httptest bookkeeping.
	var after int
	for i := 0; i < 50; i++ {
		after = runtime.NumGoroutine()
		if after <= before+3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("goroutines grew from %d to %d across 20 reconnects", before, after)
}

func TestNew_BadURL(t *testing.T) {
	if _, err := New(Config{URL: "://bad"}, quotebuf.New(4), nil); err == nil {
		t.Fatal("expected error for unparseable URL")
	}
}
