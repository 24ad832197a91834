package strategy

import (
	"math"

	"tradesim/internal/indicator"
	"tradesim/internal/model"
)

// MACross is the moving-average crossover strategy: long while the short SMA
// is above the long SMA, flat otherwise. During the SMA warm-up (NaN values)
// the signal is 0, so the first genuine cross produces a +1 delta rather
// than a spurious entry.
type MACross struct {
	Short int
	Long  int
}

// NewMACross creates an MA crossover strategy with the given windows
// (defaults 5/20 when non-positive).
func NewMACross(short, long int) *MACross {
	if short <= 0 {
		short = 5
	}
	if long <= 0 {
		long = 20
	}
	return &MACross{Short: short, Long: long}
}

func (s *MACross) Name() string { return "ma_cross" }

// Signals computes the signal series. Empty input yields an empty Series.
func (s *MACross) Signals(bars []model.Bar) Series {
	if len(bars) == 0 {
		return Series{}
	}

	closes := model.Closes(bars)
	shortMA := indicator.SMA(closes, s.Short)
	longMA := indicator.SMA(closes, s.Long)

	rows := make(Series, len(bars))
	for i, b := range bars {
		row := Row{
			TS:      b.Date,
			Price:   b.Close,
			ShortMA: shortMA[i],
			LongMA:  longMA[i],
		}
		// NaN comparisons are false, so warm-up rows stay at signal 0.
		if !math.IsNaN(shortMA[i]) && !math.IsNaN(longMA[i]) && shortMA[i] > longMA[i] {
			row.Signal = 1.0
		}
		rows[i] = row
	}
	fillDeltas(rows)
	return rows
}
