// Package backtest replays a signal series against a starting capital to
// produce an equity curve.
//
// Run preserves the reference portfolio arithmetic literally, including its
// non-causal trade-value term (see Run); RunCorrected is a separate causal
// model. The two are never mixed.
package backtest

import (
	"math"
	"time"

	"tradesim/internal/model"
	"tradesim/internal/strategy"
)

// Point is one step of the equity curve. Shares is a continuous notional
// exposure, not a whole-share count.
type Point struct {
	TS     time.Time `json:"ts"`
	Shares float64   `json:"shares"`
	Cash   float64   `json:"cash"`
	Total  float64   `json:"total"`
	Return float64   `json:"return"` // Total[t]/Total[t−1] − 1, 0 for the first point
}

// Curve is the equity curve, ordered like the input signal series and
// immutable once computed. An empty curve is the designed "no result"
// sentinel, consumed by callers as "skip this run".
type Curve []Point

// Run replays rows against initialCapital using the reference arithmetic:
//
//	shares[t] = signal[t] × capital / price[t]
//	cash[t]   = capital − cumsum(delta[t] × price[t] × shares[t])
//	total[t]  = shares[t] × price[t] + cash[t]
//
// The cash step multiplies the trade value by the POST-trade share count,
// which double-counts exposure against the reallocation in the shares step.
// That is the reference semantics and is kept bit-for-bit; RunCorrected
// holds the causal variant.
func Run(rows strategy.Series, initialCapital float64) Curve {
	if len(rows) == 0 {
		return Curve{}
	}

	curve := make(Curve, len(rows))
	cum := 0.0
	for i, r := range rows {
		shares := r.Signal * initialCapital / r.Price
		if math.IsNaN(shares) {
			shares = 0
		}
		cum += r.Delta * r.Price * shares
		cash := initialCapital - cum
		total := shares*r.Price + cash

		ret := 0.0
		if i > 0 {
			ret = total/curve[i-1].Total - 1
			if math.IsNaN(ret) {
				ret = 0
			}
		}
		curve[i] = Point{TS: r.TS, Shares: shares, Cash: cash, Total: total, Return: ret}
	}
	return curve
}

// RunCorrected replays rows with causal trade accounting: on a +1 delta all
// available cash buys exposure at the bar's price, on a −1 delta the whole
// holding is sold. Results are NOT comparable to Run and must never be
// presented as the reference curve.
func RunCorrected(rows strategy.Series, initialCapital float64) Curve {
	if len(rows) == 0 {
		return Curve{}
	}

	curve := make(Curve, len(rows))
	cash := initialCapital
	shares := 0.0
	for i, r := range rows {
		switch {
		case r.Delta > 0 && r.Price > 0:
			shares = cash / r.Price
			cash = 0
		case r.Delta < 0:
			cash += shares * r.Price
			shares = 0
		}
		total := shares*r.Price + cash

		ret := 0.0
		if i > 0 && curve[i-1].Total != 0 {
			ret = total/curve[i-1].Total - 1
		}
		curve[i] = Point{TS: r.TS, Shares: shares, Cash: cash, Total: total, Return: ret}
	}
	return curve
}

// ByName generates signals with the named strategy and runs the literal
// simulation. An unknown name or an empty signal series yields an empty
// curve — the caller treats that as "no result", not an error.
func ByName(name string, bars []model.Bar, initialCapital float64) Curve {
	var s strategy.Strategy
	switch name {
	case "ma_cross":
		s = strategy.NewMACross(0, 0)
	case "macd":
		s = strategy.NewMACDCross(0, 0, 0)
	default:
		return Curve{}
	}
	return Run(s.Signals(bars), initialCapital)
}
