// cmd/quoteserver — synthetic WebSocket quote server.
// Broadcasts random-walk A-share quote snapshots so papertrade can run
// without a live provider (set QUOTE_WS_URL=ws://localhost:9001/ws).
//
// The message shape is one JSON model.Quote per frame.
//
// Config (env vars):
//
//	QUOTE_SERVER_ADDR  — listen address (default ":9001")
//	QUOTE_SYMBOLS      — comma-separated codes with optional start price,
//	                     e.g. "000001:10.50,600519:1500.00" (default "000001:10.50")
//	QUOTE_INTERVAL_MS  — broadcast interval in milliseconds (default "3000")
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradesim/internal/model"
)

// sim holds per-symbol random-walk state.
type sim struct {
	symbol   string
	price    float64
	volume   float64 // cumulative shares today
	turnover float64 // cumulative yuan today
}

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client — drop the snapshot
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[quoteserver] upgrade error: %v", err)
			return
		}
		log.Printf("[quoteserver] client connected: %s", r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Printf("[quoteserver] client disconnected: %s", r.RemoteAddr)
		}()

		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// step advances the walk ±0.3% per tick, floored at 0.01 yuan, and
// accumulates session volume/turnover.
func (s *sim) step(rng *rand.Rand) model.Quote {
	pct := (rng.Float64()*0.6 - 0.3) / 100.0
	s.price += s.price * pct
	if s.price < 0.01 {
		s.price = 0.01
	}

	lots := float64(rng.Intn(50)+1) * 100
	s.volume += lots
	s.turnover += lots * s.price

	spread := s.price * 0.001
	if spread < 0.01 {
		spread = 0.01
	}
	return model.Quote{
		TS:       time.Now(),
		Symbol:   s.symbol,
		Price:    round2(s.price),
		Volume:   s.volume,
		Turnover: round2(s.turnover),
		BidPrice: round2(s.price - spread),
		BidSize:  float64(rng.Intn(200)+1) * 100,
		AskPrice: round2(s.price + spread),
		AskSize:  float64(rng.Intn(200)+1) * 100,
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func runGenerator(h *hub, sims []*sim, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for range ticker.C {
		for _, s := range sims {
			q := s.step(rng)
			b, err := json.Marshal(q)
			if err != nil {
				continue
			}
			h.broadcast(b)
		}
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[quoteserver] starting synthetic quote server...")

	addr := envOrDefault("QUOTE_SERVER_ADDR", ":9001")
	symbolsEnv := envOrDefault("QUOTE_SYMBOLS", "000001:10.50")
	intervalMs := envIntOrDefault("QUOTE_INTERVAL_MS", 3000)

	sims := parseSymbols(symbolsEnv)
	if len(sims) == 0 {
		log.Fatal("[quoteserver] no symbols configured via QUOTE_SYMBOLS")
	}
	for _, s := range sims {
		log.Printf("[quoteserver] %s starting at %.2f", s.symbol, s.price)
	}

	h := newHub()
	go runGenerator(h, sims, time.Duration(intervalMs)*time.Millisecond)

	http.HandleFunc("/ws", wsHandler(h))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"quoteserver"}`)
	})

	log.Printf("[quoteserver] listening on %s (WebSocket: ws://localhost%s/ws)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[quoteserver] server error: %v", err)
	}
}

// parseSymbols parses "CODE:PRICE,CODE:PRICE" entries; an entry without a
// price starts at 10.00 yuan.
func parseSymbols(s string) []*sim {
	var sims []*sim
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seg := strings.SplitN(part, ":", 2)
		code := strings.TrimSpace(seg[0])
		if code == "" {
			log.Printf("[quoteserver] skipping invalid symbol entry: %q", part)
			continue
		}
		price := 10.00
		if len(seg) == 2 {
			if p, err := strconv.ParseFloat(strings.TrimSpace(seg[1]), 64); err == nil && p > 0 {
				price = p
			}
		}
		sims = append(sims, &sim{symbol: code, price: price})
	}
	return sims
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
