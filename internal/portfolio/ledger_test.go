package portfolio

import (
	"math"
	"testing"

	"tradesim/internal/model"
)

func TestSizePosition_ReferenceScenario(t *testing.T) {
	// capital=1,000,000, price=10.00, risk=0.02 → eligible 20,000 → 2000 shares.
	l := NewLedger(1000000, 0.02)
	if got := l.SizePosition("000001", 10.00); got != 2000 {
		t.Fatalf("expected 2000 shares, got %d", got)
	}
}

func TestSizePosition_WholeLotsOnly(t *testing.T) {
	l := NewLedger(1000000, 0.02)
	prices := []float64{0.01, 1.37, 9.99, 10.0, 55.5, 199.99, 100000}
	for _, p := range prices {
		shares := l.SizePosition("600519", p)
		if shares < 0 {
			t.Errorf("price %.2f: negative size %d", p, shares)
		}
		if shares%LotSize != 0 {
			t.Errorf("price %.2f: size %d not a multiple of %d", p, shares, LotSize)
		}
	}
}

func TestSizePosition_UnaffordableLot(t *testing.T) {
	l := NewLedger(1000, 0.02) // eligible = 20, cannot buy one lot of anything ≥ 0.21
	if got := l.SizePosition("000001", 10.00); got != 0 {
		t.Fatalf("expected 0 when one lot is unaffordable, got %d", got)
	}
	if got := l.SizePosition("000001", 0); got != 0 {
		t.Fatalf("expected 0 for non-positive price, got %d", got)
	}
}

func TestApplyFill_BuyThenSellRoundTrip(t *testing.T) {
	l := NewLedger(100000, 0)

	l.ApplyFill("000001", model.Buy, 50, 100)
	if got := l.Cash(); math.Abs(got-95000) > 1e-9 {
		t.Fatalf("expected cash 95000 after buy, got %v", got)
	}
	if got := l.Position("000001"); got != 100 {
		t.Fatalf("expected position 100, got %d", got)
	}

	l.ApplyFill("000001", model.Sell, 55, 100)
	if got := l.Cash(); math.Abs(got-100500) > 1e-9 {
		t.Fatalf("expected cash 100500 after sell (net +500), got %v", got)
	}
	if _, ok := l.Positions()["000001"]; ok {
		t.Fatal("expected symbol removed from positions at exactly zero")
	}
}

func TestApplyFill_HistoriesAppendedUnconditionally(t *testing.T) {
	l := NewLedger(100000, 0)
	l.ApplyFill("000001", model.Buy, 10, 200)
	l.ApplyFill("600519", model.Buy, 1800, 100) // overdraws cash — still recorded
	l.ApplyFill("000001", model.Sell, 11, 200)

	trades := l.Trades()
	if len(trades) != 3 {
		t.Fatalf("expected 3 trade records, got %d", len(trades))
	}
	if trades[1].Value != 180000 {
		t.Errorf("expected trade value 180000, got %v", trades[1].Value)
	}
}

func TestPortfolioValue_MatchesIndependentLedger(t *testing.T) {
	l := NewLedger(500000, 0)

	fills := []struct {
		symbol string
		dir    model.Direction
		price  float64
		volume int64
	}{
		{"000001", model.Buy, 12.5, 400},
		{"600519", model.Buy, 1700, 100},
		{"000001", model.Sell, 13.0, 200},
		{"000858", model.Buy, 150, 100},
		{"000001", model.Sell, 12.8, 200},
	}

	cash := 500000.0
	shadow := map[string]int64{}
	for _, f := range fills {
		l.ApplyFill(f.symbol, f.dir, f.price, f.volume)
		if f.dir == model.Buy {
			cash -= f.price * float64(f.volume)
			shadow[f.symbol] += f.volume
		} else {
			cash += f.price * float64(f.volume)
			shadow[f.symbol] -= f.volume
		}
	}

	prices := map[string]float64{"000001": 13.1, "600519": 1690, "000858": 152}
	want := cash
	for sym, qty := range shadow {
		want += float64(qty) * prices[sym]
	}
	if got := l.PortfolioValue(prices); math.Abs(got-want) > 1e-6 {
		t.Fatalf("portfolio value %v != independent ledger total %v", got, want)
	}
}

func TestPortfolioValue_UnpricedSymbolExcluded(t *testing.T) {
	l := NewLedger(100000, 0)
	l.ApplyFill("000001", model.Buy, 10, 100)
	// Position exists but no price supplied: valuation is cash only.
	if got := l.PortfolioValue(map[string]float64{}); math.Abs(got-99000) > 1e-9 {
		t.Fatalf("expected cash-only valuation 99000, got %v", got)
	}
}

func TestPerformanceMetrics(t *testing.T) {
	l := NewLedger(100000, 0)
	l.ApplyFill("000001", model.Buy, 10, 1000)

	prices := map[string]float64{"000001": 11}
	perf := l.PerformanceMetrics(prices)

	// total = 90000 cash + 11000 position = 101000
	if math.Abs(perf.TotalReturn-0.01) > 1e-9 {
		t.Errorf("expected total return 1%%, got %v", perf.TotalReturn)
	}
	if math.Abs(perf.PositionValue-11000) > 1e-9 {
		t.Errorf("expected position value 11000, got %v", perf.PositionValue)
	}
	w := perf.Weights["000001"]
	if math.Abs(w-11000.0/101000.0) > 1e-9 {
		t.Errorf("expected weight %.6f, got %.6f", 11000.0/101000.0, w)
	}
}

func TestTradeStatistics(t *testing.T) {
	l := NewLedger(100000, 0)
	if stats := l.TradeStatistics(); stats != (TradeStats{}) {
		t.Fatalf("expected zero stats with no trades, got %+v", stats)
	}

	l.ApplyFill("000001", model.Buy, 10, 100)
	l.ApplyFill("000001", model.Buy, 12, 100)
	l.ApplyFill("000001", model.Sell, 14, 200)

	stats := l.TradeStatistics()
	if stats.TotalTrades != 3 || stats.BuyTrades != 2 || stats.SellTrades != 1 {
		t.Errorf("unexpected trade counts: %+v", stats)
	}
	if stats.TotalVolume != 400 {
		t.Errorf("expected total volume 400, got %d", stats.TotalVolume)
	}
	wantValue := 1000.0 + 1200 + 2800
	if math.Abs(stats.TotalValue-wantValue) > 1e-9 {
		t.Errorf("expected total value %v, got %v", wantValue, stats.TotalValue)
	}
	if math.Abs(stats.AvgValue-wantValue/3) > 1e-9 {
		t.Errorf("expected avg value %v, got %v", wantValue/3, stats.AvgValue)
	}
}
