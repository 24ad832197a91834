// Package eastmoney fetches A-share market data from the Eastmoney push2
// endpoints: forward-adjusted daily klines, spot quote snapshots, and the
// symbol list.
package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradesim/internal/model"
)

const (
	defaultQuoteURL = "https://push2.eastmoney.com"
	defaultHistURL  = "https://push2his.eastmoney.com"

	// kline request constants: daily bars, forward adjusted
	kltDaily   = "101"
	fqtForward = "1"
)

// Config configures the Eastmoney client. Zero values use the public
// endpoints.
type Config struct {
	QuoteURL string
	HistURL  string
	Timeout  time.Duration // default 10s
}

// Client is an HTTP client for the Eastmoney quote APIs.
type Client struct {
	quoteURL   string
	histURL    string
	httpClient *http.Client
}

// New creates an Eastmoney client.
func New(cfg Config) *Client {
	if cfg.QuoteURL == "" {
		cfg.QuoteURL = defaultQuoteURL
	}
	if cfg.HistURL == "" {
		cfg.HistURL = defaultHistURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		quoteURL:   strings.TrimRight(cfg.QuoteURL, "/"),
		histURL:    strings.TrimRight(cfg.HistURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// secid is the Eastmoney market-prefixed id: 1.<code> for Shanghai (6xxxxx),
// 0.<code> for Shenzhen.
func secid(symbol string) string {
	if strings.HasPrefix(symbol, "6") {
		return "1." + symbol
	}
	return "0." + symbol
}

// Bars fetches forward-adjusted daily bars for symbol in [start, end].
// Malformed kline rows are dropped; an empty payload yields an empty slice.
func (c *Client) Bars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("secid", secid(symbol))
	q.Set("klt", kltDaily)
	q.Set("fqt", fqtForward)
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")

	var resp struct {
		Data struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.histURL+"/api/qt/stock/kline/get?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, ok := parseKline(symbol, line)
		if !ok {
			log.Printf("[eastmoney] dropping malformed kline for %s: %q", symbol, line)
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseKline parses one "date,open,close,high,low,volume,amount" row.
func parseKline(symbol, line string) (model.Bar, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return model.Bar{}, false
	}
	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return model.Bar{}, false
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return model.Bar{}, false
		}
		vals[i] = v
	}
	return model.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, true
}

// Quotes fetches spot snapshots for the given symbols. Symbols with invalid
// or missing data are skipped; all failing yields an empty slice.
func (c *Client) Quotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	quotes := make([]model.Quote, 0, len(symbols))
	for _, sym := range symbols {
		quote, err := c.spot(ctx, sym)
		if err != nil {
			log.Printf("[eastmoney] spot fetch failed for %s: %v", sym, err)
			continue
		}
		if !quote.Valid() {
			continue
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// spot fetches one snapshot. Eastmoney returns prices as integers scaled by
// 100 (two decimals for A-shares).
func (c *Client) spot(ctx context.Context, symbol string) (model.Quote, error) {
	q := url.Values{}
	q.Set("secid", secid(symbol))
	q.Set("fields", "f43,f47,f48,f19,f20,f39,f40")

	var resp struct {
		Data *struct {
			Price    float64 `json:"f43"` // latest ×100
			Volume   float64 `json:"f47"` // shares
			Turnover float64 `json:"f48"` // yuan
			Bid      float64 `json:"f19"` // bid1 ×100
			BidVol   float64 `json:"f20"` // bid1 lots
			Ask      float64 `json:"f39"` // ask1 ×100
			AskVol   float64 `json:"f40"` // ask1 lots
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.quoteURL+"/api/qt/stock/get?"+q.Encode(), &resp); err != nil {
		return model.Quote{}, err
	}
	if resp.Data == nil {
		return model.Quote{}, fmt.Errorf("no data for %s", symbol)
	}

	d := resp.Data
	return model.Quote{
		TS:       time.Now(),
		Symbol:   symbol,
		Price:    d.Price / 100,
		Volume:   d.Volume,
		Turnover: d.Turnover,
		BidPrice: d.Bid / 100,
		BidSize:  d.BidVol,
		AskPrice: d.Ask / 100,
		AskSize:  d.AskVol,
	}, nil
}

// Symbols fetches the full A-share symbol list (both exchanges).
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("pn", "1")
	q.Set("pz", "10000")
	q.Set("fs", "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23")
	q.Set("fields", "f12")

	var resp struct {
		Data struct {
			Diff []struct {
				Code string `json:"f12"`
			} `json:"diff"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.quoteURL+"/api/qt/clist/get?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Data.Diff))
	for _, d := range resp.Data.Diff {
		if d.Code != "" {
			symbols = append(symbols, d.Code)
		}
	}
	return symbols, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
