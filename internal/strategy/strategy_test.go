package strategy

import (
	"math"
	"testing"
	"time"

	"tradesim/internal/model"
)

func makeBars(closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.Bar{
			Symbol: "000001",
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestMACross_EmptyInput(t *testing.T) {
	s := NewMACross(5, 20)
	if rows := s.Signals(nil); len(rows) != 0 {
		t.Fatalf("expected empty series for empty input, got %d rows", len(rows))
	}
}

func TestMACross_MonotonicRampStaysLong(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10 + float64(i)*0.5
	}
	s := NewMACross(5, 20)
	rows := s.Signals(makeBars(closes))

	if len(rows) != len(closes) {
		t.Fatalf("expected %d rows, got %d", len(closes), len(rows))
	}

	// On a strictly increasing series the short MA overtakes the long MA as
	// soon as both are defined, and never crosses back down.
	entered := false
	for i, r := range rows {
		if r.Signal == 1.0 {
			entered = true
		} else if entered {
			t.Fatalf("row %d: signal dropped back to 0 on a monotonic ramp", i)
		}
		if r.Delta < 0 {
			t.Fatalf("row %d: sell crossover on a monotonic ramp", i)
		}
	}
	if !entered {
		t.Fatal("signal never reached 1.0 on a monotonic ramp")
	}
	if rows[len(rows)-1].Signal != 1.0 {
		t.Fatal("expected final signal to be 1.0")
	}
}

func TestMACross_WarmupSignalZero(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	s := NewMACross(5, 20) // long window exceeds series length
	rows := s.Signals(makeBars(closes))

	for i, r := range rows {
		if r.Signal != 0 {
			t.Errorf("row %d: expected signal 0 during warm-up, got %v", i, r.Signal)
		}
		if r.Delta != 0 {
			t.Errorf("row %d: expected delta 0 during warm-up, got %v", i, r.Delta)
		}
		if i < 4 && !math.IsNaN(r.ShortMA) {
			t.Errorf("row %d: expected NaN short MA during warm-up", i)
		}
	}
}

func TestDelta_TelescopingIdentity(t *testing.T) {
	// Zig-zag series that produces several entries and exits.
	closes := make([]float64, 0, 90)
	price := 100.0
	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < 15; i++ {
			price += 1.0
			closes = append(closes, price)
		}
		for i := 0; i < 15; i++ {
			price -= 1.2
			closes = append(closes, price)
		}
	}

	for _, s := range []Strategy{NewMACross(3, 8), NewMACDCross(0, 0, 0)} {
		rows := s.Signals(makeBars(closes))
		if len(rows) == 0 {
			t.Fatalf("%s: expected non-empty series", s.Name())
		}
		var sum float64
		for _, r := range rows {
			sum += r.Delta
		}
		want := rows[len(rows)-1].Signal - rows[0].Signal
		if math.Abs(sum-want) > 1e-12 {
			t.Errorf("%s: sum of deltas %.4f != last−first signal %.4f", s.Name(), sum, want)
		}
	}
}

func TestMACDCross_DefinedFromFirstRow(t *testing.T) {
	closes := []float64{10, 10.2, 10.1, 10.4, 10.6}
	rows := NewMACDCross(0, 0, 0).Signals(makeBars(closes))

	if len(rows) != len(closes) {
		t.Fatalf("expected %d rows, got %d", len(closes), len(rows))
	}
	for i, r := range rows {
		if math.IsNaN(r.MACD) || math.IsNaN(r.SignalLine) {
			t.Errorf("row %d: MACD columns must be defined", i)
		}
	}
	if rows[0].Delta != 0 {
		t.Errorf("expected first delta 0, got %v", rows[0].Delta)
	}
}

func TestQuoteBar_SingleRowNoDelta(t *testing.T) {
	q := model.Quote{TS: time.Now(), Symbol: "000001", Price: 12.34}
	rows := NewMACross(5, 20).Signals([]model.Bar{QuoteBar(q)})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Delta != 0 || rows[0].Signal != 0 {
		t.Errorf("single snapshot must not produce a tradable delta: %+v", rows[0])
	}
	if rows[0].Price != 12.34 {
		t.Errorf("expected price carried through, got %v", rows[0].Price)
	}
}
