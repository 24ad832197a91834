// Package portfolio tracks the paper account: cash, positions, the trade
// log, and performance metrics derived from them.
//
// The Ledger is the single owner of cash and positions. The live loop holds
// the only reference and mutates it exclusively through ApplyFill; there is
// no ambient shared state.
package portfolio

import (
	"log"
	"sync"
	"time"

	"tradesim/internal/model"
)

// LotSize is the minimum tradable share increment on this venue.
const LotSize = 100

// CashPoint is a timestamped cash snapshot, appended on every fill.
type CashPoint struct {
	TS   time.Time `json:"ts"`
	Cash float64   `json:"cash"`
}

// PositionPoint is a timestamped copy of the whole position map.
type PositionPoint struct {
	TS        time.Time        `json:"ts"`
	Positions map[string]int64 `json:"positions"`
}

// Ledger sizes new positions and maintains the cash/position state from
// executed fills. Histories grow without bound by design; callers that need
// a cap should drain them into an external sink.
type Ledger struct {
	mu             sync.RWMutex
	initialCapital float64
	cash           float64
	riskPerTrade   float64
	positions      map[string]int64
	trades         []model.Trade
	cashHist       []CashPoint
	posHist        []PositionPoint
}

// NewLedger creates a ledger with the given starting capital. riskPerTrade
// is the fraction of current cash eligible per new position; non-positive
// values default to 0.02.
func NewLedger(initialCapital, riskPerTrade float64) *Ledger {
	if riskPerTrade <= 0 {
		riskPerTrade = 0.02
	}
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		riskPerTrade:   riskPerTrade,
		positions:      make(map[string]int64),
	}
}

// SizePosition returns the share count to buy for symbol at price: the
// eligible notional (current cash × riskPerTrade) floored to whole lots.
// Returns 0 when one lot is unaffordable; never negative.
func (l *Ledger) SizePosition(symbol string, price float64) int64 {
	if price <= 0 {
		return 0
	}
	l.mu.RLock()
	eligible := l.cash * l.riskPerTrade
	l.mu.RUnlock()

	shares := int64(eligible/price/LotSize) * LotSize
	if shares < 0 {
		return 0
	}
	return shares
}

// ApplyFill applies an executed trade to the ledger: buys debit cash and
// increment the position, sells credit cash and decrement it, deleting the
// symbol once the quantity reaches exactly zero. The trade record and the
// cash/position history snapshots are appended unconditionally — the fill
// already happened, so the ledger reflects it no matter what.
//
// The caller must never request a sell exceeding the held quantity; the
// ledger does not clamp.
func (l *Ledger) ApplyFill(symbol string, direction model.Direction, price float64, volume int64) {
	value := price * float64(volume)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if direction == model.Buy {
		l.cash -= value
		l.positions[symbol] += volume
	} else {
		l.cash += value
		if _, ok := l.positions[symbol]; ok {
			l.positions[symbol] -= volume
			if l.positions[symbol] == 0 {
				delete(l.positions, symbol)
			}
		}
	}

	l.trades = append(l.trades, model.Trade{
		TS:        now,
		Symbol:    symbol,
		Direction: direction,
		Price:     price,
		Volume:    volume,
		Value:     value,
	})
	l.cashHist = append(l.cashHist, CashPoint{TS: now, Cash: l.cash})
	l.posHist = append(l.posHist, PositionPoint{TS: now, Positions: l.copyPositionsLocked()})

	log.Printf("[ledger] %s %s vol=%d @ %.2f value=%.2f cash=%.2f", direction, symbol, volume, price, value, l.cash)
}

// PortfolioValue returns cash plus the value of positions priced by the
// given map. Held symbols missing from prices are excluded from the
// valuation — a documented gap, not an error.
func (l *Ledger) PortfolioValue(prices map[string]float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	value := l.cash
	for symbol, price := range prices {
		value += float64(l.positions[symbol]) * price
	}
	return value
}

// Performance is the derived portfolio performance view.
type Performance struct {
	TotalReturn   float64            `json:"total_return"`
	Cash          float64            `json:"cash"`
	PositionValue float64            `json:"position_value"`
	Weights       map[string]float64 `json:"weights"` // symbol → value / total
}

// PerformanceMetrics recomputes performance from the current state and the
// supplied prices.
func (l *Ledger) PerformanceMetrics(prices map[string]float64) Performance {
	total := l.PortfolioValue(prices)

	l.mu.RLock()
	defer l.mu.RUnlock()

	perf := Performance{
		TotalReturn:   (total - l.initialCapital) / l.initialCapital,
		Cash:          l.cash,
		PositionValue: total - l.cash,
		Weights:       make(map[string]float64),
	}
	for symbol, qty := range l.positions {
		price, ok := prices[symbol]
		if !ok || total == 0 {
			continue
		}
		perf.Weights[symbol] = float64(qty) * price / total
	}
	return perf
}

// TradeStats are the counts and sums over the trade log, all zero when no
// trades were recorded.
type TradeStats struct {
	TotalTrades int     `json:"total_trades"`
	BuyTrades   int     `json:"buy_trades"`
	SellTrades  int     `json:"sell_trades"`
	TotalVolume int64   `json:"total_volume"`
	TotalValue  float64 `json:"total_value"`
	AvgValue    float64 `json:"avg_trade_value"`
}

// TradeStatistics summarizes the trade log.
func (l *Ledger) TradeStatistics() TradeStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var stats TradeStats
	for _, t := range l.trades {
		stats.TotalTrades++
		if t.Direction == model.Buy {
			stats.BuyTrades++
		} else {
			stats.SellTrades++
		}
		stats.TotalVolume += t.Volume
		stats.TotalValue += t.Value
	}
	if stats.TotalTrades > 0 {
		stats.AvgValue = stats.TotalValue / float64(stats.TotalTrades)
	}
	return stats
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

// Position returns the held quantity for symbol (0 when flat).
func (l *Ledger) Position(symbol string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.positions[symbol]
}

// Positions returns a copy of the position map.
func (l *Ledger) Positions() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyPositionsLocked()
}

// Trades returns a copy of the trade log.
func (l *Ledger) Trades() []model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]model.Trade, len(l.trades))
	copy(cp, l.trades)
	return cp
}

func (l *Ledger) copyPositionsLocked() map[string]int64 {
	cp := make(map[string]int64, len(l.positions))
	for k, v := range l.positions {
		cp[k] = v
	}
	return cp
}
