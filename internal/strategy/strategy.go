// Package strategy converts indicator values into discrete position signals.
//
// A Strategy receives an ordered close-price series and emits one Row per
// input point carrying the computed indicator columns, a 0/1 long-exposure
// signal, and the signal change (delta) against the previous point. A delta
// of +1 means "enter long", −1 means "exit long"; strategies never produce
// short positions.
package strategy

import (
	"time"

	"tradesim/internal/model"
)

// Row is the per-point output of a strategy. Indicator columns a strategy
// does not compute stay at their zero value.
type Row struct {
	TS    time.Time `json:"ts"`
	Price float64   `json:"price"`

	// MA-crossover columns (NaN during warm-up).
	ShortMA float64 `json:"short_ma,omitempty"`
	LongMA  float64 `json:"long_ma,omitempty"`

	// MACD columns.
	MACD       float64 `json:"macd,omitempty"`
	SignalLine float64 `json:"signal_line,omitempty"`
	Histogram  float64 `json:"histogram,omitempty"`

	Signal float64 `json:"signal"` // 0.0 or 1.0
	Delta  float64 `json:"delta"`  // Signal[t] − Signal[t−1], 0 for the first row
}

// Series is an ordered sequence of rows, one per input bar or snapshot.
// An empty Series means "no tradable signal", not an error.
type Series []Row

// LastDelta returns the delta of the final row, or 0 for an empty series.
func (s Series) LastDelta() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Delta
}

// Strategy is the interface all signal generators implement. Signals must
// return an empty Series for empty input rather than failing.
type Strategy interface {
	Name() string
	Signals(bars []model.Bar) Series
}

// QuoteBar wraps a spot-quote snapshot into a single synthetic bar so the
// live loop can feed the latest snapshot through a Strategy.
func QuoteBar(q model.Quote) model.Bar {
	return model.Bar{
		Symbol: q.Symbol,
		Date:   q.TS,
		Open:   q.Price,
		High:   q.Price,
		Low:    q.Price,
		Close:  q.Price,
		Volume: q.Volume,
	}
}

// fillDeltas computes Delta for each row in place. Warm-up rows carry
// signal 0 already, so the first defined signal produces a clean +1 entry.
func fillDeltas(rows Series) {
	for i := range rows {
		if i == 0 {
			rows[i].Delta = 0
			continue
		}
		rows[i].Delta = rows[i].Signal - rows[i-1].Signal
	}
}
