// Package api exposes the live trading state over HTTP: account snapshot,
// open positions, trade log, fills journal and current risk metrics.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tradesim/internal/broker"
	"tradesim/internal/portfolio"
)

// Deps are the read-only views the API serves from. Journal may be nil.
type Deps struct {
	Broker  broker.Broker
	Ledger  *portfolio.Ledger
	Risk    *portfolio.RiskManager
	Journal *broker.Journal
}

// NewRouter sets up HTTP routes for the status API.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/v1/account", func(w http.ResponseWriter, r *http.Request) {
		info, err := d.Broker.AccountInfo(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, info)
	})

	mux.HandleFunc("/api/v1/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Ledger.Positions())
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"stats":  d.Ledger.TradeStatistics(),
			"trades": d.Ledger.Trades(),
		})
	})

	mux.HandleFunc("/api/v1/risk", func(w http.ResponseWriter, r *http.Request) {
		metrics, ok := d.Risk.RiskMetrics()
		writeJSON(w, map[string]any{
			"metrics":  metrics,
			"ready":    ok,
			"breached": d.Risk.DrawdownBreached(),
		})
	})

	mux.HandleFunc("/api/v1/fills", func(w http.ResponseWriter, r *http.Request) {
		if d.Journal == nil {
			writeJSON(w, []broker.FillRecord{})
			return
		}
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				limit = n
			}
		}
		fills, err := d.Journal.Fills(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if fills == nil {
			fills = []broker.FillRecord{}
		}
		writeJSON(w, fills)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
