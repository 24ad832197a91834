package strategy

import (
	"tradesim/internal/indicator"
	"tradesim/internal/model"
)

// MACDCross is the MACD crossover strategy: long while the MACD line is
// above its signal line, flat otherwise. Both lines are defined from the
// first observation, so there is no warm-up window.
type MACDCross struct {
	Fast   int
	Slow   int
	Signal int
}

// NewMACDCross creates a MACD crossover strategy with the standard 12/26/9
// spans when the given values are non-positive.
func NewMACDCross(fast, slow, signal int) *MACDCross {
	if fast <= 0 {
		fast = indicator.MACDFast
	}
	if slow <= 0 {
		slow = indicator.MACDSlow
	}
	if signal <= 0 {
		signal = indicator.MACDSignal
	}
	return &MACDCross{Fast: fast, Slow: slow, Signal: signal}
}

func (s *MACDCross) Name() string { return "macd" }

// Signals computes the signal series. Empty input yields an empty Series.
func (s *MACDCross) Signals(bars []model.Bar) Series {
	if len(bars) == 0 {
		return Series{}
	}

	closes := model.Closes(bars)
	macd, signalLine, histogram := indicator.MACD(closes, s.Fast, s.Slow, s.Signal)

	rows := make(Series, len(bars))
	for i, b := range bars {
		row := Row{
			TS:         b.Date,
			Price:      b.Close,
			MACD:       macd[i],
			SignalLine: signalLine[i],
			Histogram:  histogram[i],
		}
		if macd[i] > signalLine[i] {
			row.Signal = 1.0
		}
		rows[i] = row
	}
	fillDeltas(rows)
	return rows
}
