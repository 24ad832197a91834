package model

import (
	"math"
	"time"
)

// Quote is a single spot-quote snapshot for one symbol, as polled from the
// market-data provider. All numeric fields must be finite; use Valid before
// letting a quote into the pipeline.
type Quote struct {
	TS       time.Time `json:"ts"`
	Symbol   string    `json:"symbol"`
	Price    float64   `json:"price"`    // last traded price, yuan
	Volume   float64   `json:"volume"`   // cumulative shares today
	Turnover float64   `json:"turnover"` // cumulative value today, yuan
	BidPrice float64   `json:"bid_price"`
	BidSize  float64   `json:"bid_size"`
	AskPrice float64   `json:"ask_price"`
	AskSize  float64   `json:"ask_size"`
}

// Valid reports whether every numeric field is finite (no NaN/Inf) and the
// symbol is non-empty. Providers emit "-" for suspended stocks, which parses
// to NaN upstream; such snapshots are discarded before entering the buffer.
func (q *Quote) Valid() bool {
	if q.Symbol == "" {
		return false
	}
	for _, v := range [...]float64{
		q.Price, q.Volume, q.Turnover,
		q.BidPrice, q.BidSize, q.AskPrice, q.AskSize,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
