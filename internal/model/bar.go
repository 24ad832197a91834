package model

import "time"

// Bar is a single daily OHLCV bar for one A-share symbol.
// Prices are forward-adjusted yuan; bars are ordered ascending by Date and
// immutable once ingested. Calendar gaps (non-trading days) are expected.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"` // trading day, midnight CST
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"` // shares (hands × 100 already expanded)
}

// Closes extracts the close-price series from bars, preserving order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
