package indicator

// Standard MACD spans.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACD computes the MACD line, signal line, and histogram over a close-price
// series:
//
//	macd      = EMA(close, fast) − EMA(close, slow)
//	signalLine = EMA(macd, signal)
//	histogram  = macd − signalLine
//
// Unlike SMA there is no NaN warm-up: every output is defined from the first
// observation.
func MACD(series []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	emaFast := EMA(series, fast)
	emaSlow := EMA(series, slow)

	macd = make([]float64, len(series))
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	signalLine = EMA(macd, signal)

	histogram = make([]float64, len(series))
	for i := range histogram {
		histogram[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, histogram
}
