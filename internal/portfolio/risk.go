package portfolio

import (
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"tradesim/internal/model"
)

// RiskLimits are the admission-control thresholds.
type RiskLimits struct {
	MaxPositionSize float64 // max single-symbol value / total assets (default 0.10)
	MaxDrawdown     float64 // drawdown breach threshold (default 0.20)
	StopLossPct     float64 // unrealized loss triggering a stop (default 0.05)
	RiskFreeRate    float64 // annual risk-free rate for Sharpe (default 0.03)
}

// DefaultRiskLimits returns the standard thresholds.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxPositionSize: 0.10,
		MaxDrawdown:     0.20,
		StopLossPct:     0.05,
		RiskFreeRate:    0.03,
	}
}

func (l *RiskLimits) applyDefaults() {
	d := DefaultRiskLimits()
	if l.MaxPositionSize <= 0 {
		l.MaxPositionSize = d.MaxPositionSize
	}
	if l.MaxDrawdown <= 0 {
		l.MaxDrawdown = d.MaxDrawdown
	}
	if l.StopLossPct <= 0 {
		l.StopLossPct = d.StopLossPct
	}
	if l.RiskFreeRate == 0 {
		l.RiskFreeRate = d.RiskFreeRate
	}
}

// ValuePoint is one portfolio-value observation, appended per live tick.
type ValuePoint struct {
	TS    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// RiskManager performs admission control on proposed orders and derives risk
// metrics from the portfolio-value history it owns.
//
// It keeps its own shadow copy of positions and cost bases for stop-loss and
// limit checks; the orchestration loop keeps that copy in sync via
// SyncPosition/RecordFill — the Ledger never mutates it.
type RiskManager struct {
	mu        sync.RWMutex
	limits    RiskLimits
	positions map[string]int64
	costBasis map[string]costEntry
	valueHist []ValuePoint
	breached  bool
}

type costEntry struct {
	Qty      int64
	AvgPrice float64
}

// NewRiskManager creates a RiskManager; zero-valued limit fields fall back
// to the defaults.
func NewRiskManager(limits RiskLimits) *RiskManager {
	limits.applyDefaults()
	return &RiskManager{
		limits:    limits,
		positions: make(map[string]int64),
		costBasis: make(map[string]costEntry),
	}
}

// CheckOrder decides whether a proposed order may be submitted.
//
// A buy is rejected when the post-trade position value would exceed
// MaxPositionSize × total assets (strict >, so the exact boundary passes).
// A sell whose position is below its stop-loss threshold is explicitly
// allowed with the stop-loss reason, bypassing further checks. Everything
// else passes with the default reason.
func (rm *RiskManager) CheckOrder(order model.Order, account model.AccountInfo) (bool, string) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if order.Direction == model.Buy {
		if account.TotalAssets <= 0 {
			return false, "account has no assets"
		}
		newPosition := rm.positions[order.Symbol] + order.Volume
		positionValue := float64(newPosition) * order.Price
		if positionValue/account.TotalAssets > rm.limits.MaxPositionSize {
			return false, "position exceeds single-symbol limit"
		}
	}

	if order.Direction == model.Sell && rm.stopLossTriggeredLocked(order.Symbol, order.Price) {
		return true, "stop-loss triggered"
	}

	return true, "risk checks passed"
}

// stopLossTriggeredLocked reports whether the held position's unrealized
// loss at currentPrice exceeds StopLossPct against its average cost. With no
// recorded cost basis (zero cost) it never triggers — the loop must feed
// fills through RecordFill for stops to arm.
func (rm *RiskManager) stopLossTriggeredLocked(symbol string, currentPrice float64) bool {
	if rm.positions[symbol] <= 0 {
		return false
	}
	cost := rm.costBasis[symbol].AvgPrice
	if cost <= 0 {
		return false
	}
	lossPct := (currentPrice - cost) / cost
	return lossPct < -rm.limits.StopLossPct
}

// RecordFill updates the shadow cost basis with an executed trade, using a
// weighted-average entry price. Sells reduce quantity and clear the basis
// when the position closes.
func (rm *RiskManager) RecordFill(symbol string, direction model.Direction, price float64, volume int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	entry := rm.costBasis[symbol]
	if direction == model.Buy {
		totalCost := entry.AvgPrice*float64(entry.Qty) + price*float64(volume)
		entry.Qty += volume
		if entry.Qty > 0 {
			entry.AvgPrice = totalCost / float64(entry.Qty)
		}
	} else {
		entry.Qty -= volume
		if entry.Qty <= 0 {
			entry.Qty = 0
			entry.AvgPrice = 0
		}
	}
	rm.costBasis[symbol] = entry
}

// SyncPosition updates the shadow position map, removing the symbol at
// exactly zero. Called by the orchestration loop after ledger updates.
func (rm *RiskManager) SyncPosition(symbol string, qty int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if qty == 0 {
		delete(rm.positions, symbol)
		return
	}
	rm.positions[symbol] = qty
}

// CostBasis returns the tracked average entry price for symbol (0 when
// unknown or flat).
func (rm *RiskManager) CostBasis(symbol string) float64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.costBasis[symbol].AvgPrice
}

// UpdatePortfolioValue appends one observation to the value history and
// re-evaluates the max-drawdown breach. The breach is observable through
// DrawdownBreached and RiskMetrics but does not block trading — there is no
// automatic liquidation.
func (rm *RiskManager) UpdatePortfolioValue(value float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.valueHist = append(rm.valueHist, ValuePoint{TS: time.Now(), Value: value})

	peak := math.Inf(-1)
	maxDD := 0.0
	for _, p := range rm.valueHist {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	if maxDD > rm.limits.MaxDrawdown && !rm.breached {
		rm.breached = true
		log.Printf("[risk] max drawdown breached: %.2f%% > %.2f%%", maxDD*100, rm.limits.MaxDrawdown*100)
	}
}

// Limits returns the configured thresholds (after defaulting).
func (rm *RiskManager) Limits() RiskLimits {
	return rm.limits
}

// DrawdownBreached reports whether the value history ever exceeded the
// drawdown limit.
func (rm *RiskManager) DrawdownBreached() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.breached
}

// ValueHistory returns a copy of the portfolio-value history.
func (rm *RiskManager) ValueHistory() []ValuePoint {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	cp := make([]ValuePoint, len(rm.valueHist))
	copy(cp, rm.valueHist)
	return cp
}

// RiskMetrics are derived, recomputed on demand from the value history.
type RiskMetrics struct {
	Volatility  float64 `json:"volatility"`   // annualized, population stdev × √252
	MaxDrawdown float64 `json:"max_drawdown"` // (peak − v)/peak over running peak
	Sharpe      float64 `json:"sharpe_ratio"`
	VaR95       float64 `json:"var_95"` // 5th percentile of period returns
}

// RiskMetrics computes the metrics. With fewer than two history points the
// second result is false and the metrics are zero-valued ("empty").
func (rm *RiskManager) RiskMetrics() (RiskMetrics, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	n := len(rm.valueHist)
	if n < 2 {
		return RiskMetrics{}, false
	}

	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev := rm.valueHist[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, rm.valueHist[i].Value/prev-1)
	}

	m := RiskMetrics{
		Volatility:  stdev(returns) * math.Sqrt(252),
		MaxDrawdown: maxDrawdown(rm.valueHist),
		VaR95:       percentile(returns, 5),
	}

	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rm.limits.RiskFreeRate/252
	}
	if sd := stdev(excess); sd > 0 {
		m.Sharpe = mean(excess) / sd * math.Sqrt(252)
	}
	return m, true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the population standard deviation (ddof=0).
func stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		d := x - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}

func maxDrawdown(hist []ValuePoint) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, p := range hist {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// percentile computes the p-th percentile with linear interpolation between
// closest ranks, matching the historical-percentile VaR method.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
