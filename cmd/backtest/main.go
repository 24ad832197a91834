// cmd/backtest fetches daily bars (from Eastmoney or the local SQLite cache)
// and replays them through the signal strategies, printing an equity-curve
// summary per strategy.
//
// Usage:
//
//	go run ./cmd/backtest -symbol=000001 -strategies=ma_cross,macd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"tradesim/internal/backtest"
	"tradesim/internal/logger"
	"tradesim/internal/marketdata/eastmoney"
	"tradesim/internal/model"
	sqlitestore "tradesim/internal/store/sqlite"
	"tradesim/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("backtest", slog.LevelInfo)

	symbol := flag.String("symbol", "000001", "A-share code to backtest")
	start := flag.String("start", "", "start date YYYYMMDD (default: one year ago)")
	end := flag.String("end", "", "end date YYYYMMDD (default: today)")
	capital := flag.Float64("capital", 1000000, "initial capital in yuan")
	strategies := flag.String("strategies", "ma_cross,macd", "comma-separated strategy names")
	dbPath := flag.String("db", "data/bars.db", "path to the SQLite bar cache")
	offline := flag.Bool("offline", false, "read bars from the cache only, no provider fetch")
	corrected := flag.Bool("corrected", false, "use the causal cash-accounting simulation")
	flag.Parse()

	endDate := time.Now()
	startDate := endDate.AddDate(-1, 0, 0)
	var err error
	if *start != "" {
		if startDate, err = time.Parse("20060102", *start); err != nil {
			log.Fatalf("[backtest] bad -start: %v", err)
		}
	}
	if *end != "" {
		if endDate, err = time.Parse("20060102", *end); err != nil {
			log.Fatalf("[backtest] bad -end: %v", err)
		}
	}

	cache, err := sqlitestore.Open(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] bar cache open failed: %v", err)
	}
	defer cache.Close()

	bars, err := loadBars(cache, *symbol, startDate, endDate, *offline)
	if err != nil {
		log.Fatalf("[backtest] loading bars failed: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("[backtest] no bars for %s in [%s, %s]",
			*symbol, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}
	log.Printf("[backtest] %d bars for %s, %s → %s", len(bars), *symbol,
		bars[0].Date.Format("2006-01-02"), bars[len(bars)-1].Date.Format("2006-01-02"))

	for _, name := range strings.Split(*strategies, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		runOne(name, bars, *capital, *corrected)
	}
}

// loadBars serves from the cache when it covers the range (or -offline is
// set), otherwise fetches from Eastmoney and refreshes the cache.
func loadBars(cache *sqlitestore.Cache, symbol string, start, end time.Time, offline bool) ([]model.Bar, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if offline {
		return cache.Bars(ctx, symbol, start, end)
	}

	last, err := cache.LastDate(symbol)
	if err == nil && !last.IsZero() && !last.Before(end.Truncate(24*time.Hour)) {
		log.Printf("[backtest] cache covers the range, skipping fetch")
		return cache.Bars(ctx, symbol, start, end)
	}

	client := eastmoney.New(eastmoney.Config{})
	bars, err := client.Bars(ctx, symbol, start, end)
	if err != nil {
		log.Printf("[backtest] fetch failed (%v), falling back to cache", err)
		return cache.Bars(ctx, symbol, start, end)
	}
	if err := cache.SaveBars(bars); err != nil {
		log.Printf("[backtest] cache write failed: %v", err)
	}
	return bars, nil
}

func runOne(name string, bars []model.Bar, capital float64, corrected bool) {
	strat := newStrategy(name)
	if strat == nil {
		log.Printf("[backtest] unknown strategy %q, skipping", name)
		return
	}

	series := strat.Signals(bars)
	var curve backtest.Curve
	if corrected {
		curve = backtest.RunCorrected(series, capital)
	} else {
		curve = backtest.Run(series, capital)
	}
	if len(curve) == 0 {
		log.Printf("[backtest] strategy %q produced no curve", name)
		return
	}

	s := backtest.Summarize(curve)
	trades := 0
	for _, row := range series {
		if row.Delta != 0 {
			trades++
		}
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Printf("║  STRATEGY %-26s ║\n", strings.ToUpper(name))
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Annual return:   %14.2f%%     ║\n", s.AnnualReturn*100)
	fmt.Printf("║  Max drawdown:    %14.2f%%     ║\n", s.MaxDrawdown*100)
	fmt.Printf("║  Sharpe ratio:    %15.2f     ║\n", s.Sharpe)
	fmt.Printf("║  Final equity:    %15.2f     ║\n", s.Final)
	fmt.Printf("║  Signal changes:  %15d     ║\n", trades)
	fmt.Println("╚══════════════════════════════════════╝")
}

func newStrategy(name string) strategy.Strategy {
	switch name {
	case "ma_cross":
		return strategy.NewMACross(0, 0)
	case "macd":
		return strategy.NewMACDCross(0, 0, 0)
	default:
		return nil
	}
}
