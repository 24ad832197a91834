package backtest

import "math"

// Summary holds the headline statistics of an equity curve, computed the way
// the end-of-run report does: annualized mean daily return, the most
// negative excursion below the running peak (≤ 0), and an annualized Sharpe
// ratio with sample standard deviation.
type Summary struct {
	AnnualReturn float64 `json:"annual_return"`
	MaxDrawdown  float64 `json:"max_drawdown"` // e.g. −0.18 for an 18% drawdown
	Sharpe       float64 `json:"sharpe"`
	Final        float64 `json:"final"` // final total equity
}

// Summarize computes the Summary of a curve. An empty curve yields a
// zero-valued Summary.
func Summarize(c Curve) Summary {
	if len(c) == 0 {
		return Summary{}
	}

	var sum float64
	for _, p := range c {
		sum += p.Return
	}
	mean := sum / float64(len(c))

	// Sample standard deviation of daily returns.
	var sq float64
	for _, p := range c {
		d := p.Return - mean
		sq += d * d
	}
	std := 0.0
	if len(c) > 1 {
		std = math.Sqrt(sq / float64(len(c)-1))
	}

	sharpe := 0.0
	if std > 0 {
		sharpe = mean / std * math.Sqrt(252)
	}

	// Max drawdown as total/cummax − 1, minimized over the curve.
	maxDD := 0.0
	peak := math.Inf(-1)
	for _, p := range c {
		if p.Total > peak {
			peak = p.Total
		}
		if peak != 0 {
			if dd := p.Total/peak - 1; dd < maxDD {
				maxDD = dd
			}
		}
	}

	return Summary{
		AnnualReturn: mean * 252,
		MaxDrawdown:  maxDD,
		Sharpe:       sharpe,
		Final:        c[len(c)-1].Total,
	}
}
