package backtest

import (
	"math"
	"testing"
	"time"

	"tradesim/internal/model"
	"tradesim/internal/strategy"
)

func makeRows(prices, signals []float64) strategy.Series {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make(strategy.Series, len(prices))
	for i := range prices {
		rows[i] = strategy.Row{TS: day.AddDate(0, 0, i), Price: prices[i], Signal: signals[i]}
		if i > 0 {
			rows[i].Delta = signals[i] - signals[i-1]
		}
	}
	return rows
}

func TestRun_EmptySeries(t *testing.T) {
	if c := Run(nil, 100000); len(c) != 0 {
		t.Fatalf("expected empty curve, got %d points", len(c))
	}
}

func TestRun_InitialEquityEqualsCapital(t *testing.T) {
	rows := makeRows([]float64{10, 10, 10}, []float64{0, 0, 0})
	c := Run(rows, 100000)
	if len(c) != 3 {
		t.Fatalf("expected 3 points, got %d", len(c))
	}
	if c[0].Total != 100000 {
		t.Errorf("expected Total[0]=capital with signal[0]=0, got %v", c[0].Total)
	}
	if c[0].Return != 0 {
		t.Errorf("expected Return[0]=0, got %v", c[0].Return)
	}
}

func TestRun_ReferenceEntryArithmetic(t *testing.T) {
	// Enter at t=1: shares = 1×1000/10 = 100, trade value = 1×10×100 = 1000,
	// cash = 1000−1000 = 0, total = 100×10 + 0 = 1000.
	rows := makeRows([]float64{10, 10, 10}, []float64{0, 1, 1})
	c := Run(rows, 1000)

	if math.Abs(c[1].Shares-100) > 1e-12 {
		t.Errorf("expected shares=100, got %v", c[1].Shares)
	}
	if math.Abs(c[1].Cash) > 1e-12 {
		t.Errorf("expected cash=0 after entry, got %v", c[1].Cash)
	}
	if math.Abs(c[1].Total-1000) > 1e-12 {
		t.Errorf("expected total=1000, got %v", c[1].Total)
	}
	if math.Abs(c[2].Total-1000) > 1e-12 {
		t.Errorf("expected total unchanged while holding flat price, got %v", c[2].Total)
	}
}

func TestRun_NonCausalExitTermPreserved(t *testing.T) {
	// On exit the post-trade share count is zero, so the sale credits nothing
	// back: the reference model's documented quirk, preserved bit-for-bit.
	rows := makeRows([]float64{10, 10, 12}, []float64{0, 1, 0})
	c := Run(rows, 1000)

	if math.Abs(c[2].Shares) > 1e-12 {
		t.Fatalf("expected zero shares after exit, got %v", c[2].Shares)
	}
	if math.Abs(c[2].Cash) > 1e-12 {
		t.Errorf("expected exit to credit delta×price×0 = 0 (cash stays 0), got %v", c[2].Cash)
	}
	if math.Abs(c[2].Total) > 1e-12 {
		t.Errorf("expected total=0 under literal reference semantics, got %v", c[2].Total)
	}
}

func TestRun_Deterministic(t *testing.T) {
	prices := make([]float64, 50)
	signals := make([]float64, 50)
	for i := range prices {
		prices[i] = 10 + math.Sin(float64(i)/3)
		if i%7 > 3 {
			signals[i] = 1
		}
	}
	rows := makeRows(prices, signals)

	a := Run(rows, 250000)
	b := Run(rows, 250000)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs between identical runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRunCorrected_RoundTripConservesValue(t *testing.T) {
	// Buy at 10, sell at 12: causal model realizes the 20% gain.
	rows := makeRows([]float64{10, 10, 12}, []float64{0, 1, 0})
	c := RunCorrected(rows, 1000)

	if math.Abs(c[2].Cash-1200) > 1e-9 {
		t.Errorf("expected 1200 cash after causal round trip, got %v", c[2].Cash)
	}
	if math.Abs(c[2].Total-1200) > 1e-9 {
		t.Errorf("expected total 1200, got %v", c[2].Total)
	}
}

func TestByName_UnknownStrategy(t *testing.T) {
	bars := []model.Bar{{Symbol: "000001", Close: 10}}
	if c := ByName("turtle", bars, 100000); len(c) != 0 {
		t.Fatalf("expected empty curve for unknown strategy, got %d points", len(c))
	}
}

func TestByName_KnownStrategies(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 40)
	for i := range bars {
		bars[i] = model.Bar{Symbol: "000001", Date: day.AddDate(0, 0, i), Close: 10 + float64(i)*0.2}
	}
	for _, name := range []string{"ma_cross", "macd"} {
		c := ByName(name, bars, 100000)
		if len(c) != len(bars) {
			t.Errorf("%s: expected %d points, got %d", name, len(bars), len(c))
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Fatalf("expected zero summary for empty curve, got %+v", s)
	}
}

func TestSummarize_FlatCurve(t *testing.T) {
	rows := makeRows([]float64{10, 10, 10, 10}, []float64{0, 0, 0, 0})
	s := Summarize(Run(rows, 50000))
	if s.AnnualReturn != 0 || s.MaxDrawdown != 0 || s.Sharpe != 0 {
		t.Errorf("expected zero stats for a flat curve, got %+v", s)
	}
	if s.Final != 50000 {
		t.Errorf("expected final equity 50000, got %v", s.Final)
	}
}
