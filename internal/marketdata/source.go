// Package marketdata defines the contracts to the external market-data
// provider. The core never fetches data itself; it consumes these
// interfaces and treats any error or empty result uniformly as "no data
// available now" — provider failures never propagate past the component
// that observed them.
package marketdata

import (
	"context"
	"time"

	"tradesim/internal/model"
)

// HistoricalSource supplies daily OHLCV bars, ordered ascending by date.
// An empty slice means no data for the range.
type HistoricalSource interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
}

// QuoteSource supplies one spot-quote snapshot per requested symbol.
// Symbols the provider cannot quote are simply absent from the result.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) ([]model.Quote, error)
}

// SymbolLister supplies the tradable symbol universe.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}
