// Package indicator provides technical indicator calculations over daily
// close-price series.
//
// All functions are pure and operate on whole series: output length always
// equals input length. A simple moving average is undefined (NaN) until a
// full window of history exists; exponential averages are defined from the
// first observation. Callers must check math.IsNaN before acting on a value.
package indicator

import "math"

// SMA returns the simple moving average of series over a trailing window.
// The first window−1 entries are NaN (insufficient history) — intentional,
// not an error. A window < 1 yields an all-NaN series.
func SMA(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 || len(series) < window {
		return out
	}

	var sum float64
	for i, v := range series {
		sum += v
		if i >= window {
			sum -= series[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA returns the exponential moving average with smoothing factor
// α = 2/(span+1), seeded by the first value with no bias adjustment.
// Defined for every index, including the first.
func EMA(series []float64, span int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}
