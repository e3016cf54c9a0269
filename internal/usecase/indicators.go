package usecase

import "math"

// Indicator helpers are pure functions over price/volume sequences.
// Unless noted otherwise the input is most-recent-first (index 0 =
// latest), which is the view the signal engine works on. EMA and MACD
// consume oldest-to-newest sequences because they are recurrences.

// BandResult is a volatility envelope around a moving average. A
// zeroed result means the window was too short to compute one.
type BandResult struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
}

// BollingerBands computes mean +/- multiplier*stddev over the most
// recent period points. Population standard deviation.
func BollingerBands(prices []float64, period int, multiplier float64) BandResult {
	if period <= 0 || len(prices) < period {
		return BandResult{}
	}
	window := prices[:period]

	var sum float64
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(period)

	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	variance /= float64(period)
	sigma := math.Sqrt(variance)

	upper := mean + multiplier*sigma
	lower := mean - multiplier*sigma

	width := 0.0
	if mean != 0 {
		width = (upper - lower) / mean
	}

	return BandResult{Upper: upper, Middle: mean, Lower: lower, Width: width}
}

// SMA is the simple average of the most recent period points, or 0 if
// the window is too short.
func SMA(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	return sum / float64(period)
}

// EMA computes the exponential average of an oldest-to-newest series.
// Seeded with the simple average of the first period points. With
// fewer points than the period it degrades to the most recent point
// (or 0 when empty) rather than failing.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}
	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	ema := seed / float64(period)
	k := 2.0 / float64(period+1)
	for _, p := range prices[period:] {
		ema += (p - ema) * k
	}
	return ema
}

// RSI computes the relative-strength oscillator over the most recent
// period deltas of a most-recent-first series. Needs period+1 points;
// returns the neutral 50 otherwise. No losses in the window means 100.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := 0; i < period; i++ {
		delta := prices[i] - prices[i+1]
		if delta > 0 {
			gains += delta
		} else {
			losses += -delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult is the convergence/divergence oscillator state at the end
// of the series.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the oscillator over an oldest-to-newest series. Needs
// at least long+signalPeriod-1 points; returns nil when unavailable so
// callers skip its contribution instead of scoring a default.
func MACD(prices []float64, short, long, signalPeriod int) *MACDResult {
	if short <= 0 || long <= short || signalPeriod <= 0 {
		return nil
	}
	if len(prices) < long+signalPeriod-1 {
		return nil
	}

	kShort := 2.0 / float64(short+1)
	kLong := 2.0 / float64(long+1)

	var emaShort, emaLong float64
	macdLine := make([]float64, 0, len(prices)-long+1)

	for i, p := range prices {
		switch {
		case i < short:
			// Accumulate both seeds while the short window fills.
			emaShort += p
			emaLong += p
			if i == short-1 {
				emaShort /= float64(short)
			}
		case i < long:
			emaShort += (p - emaShort) * kShort
			emaLong += p
			if i == long-1 {
				emaLong /= float64(long)
			}
		default:
			emaShort += (p - emaShort) * kShort
			emaLong += (p - emaLong) * kLong
		}
		if i >= long-1 {
			macdLine = append(macdLine, emaShort-emaLong)
		}
	}

	signal := EMA(macdLine, signalPeriod)
	last := macdLine[len(macdLine)-1]
	return &MACDResult{MACD: last, Signal: signal, Histogram: last - signal}
}

// reverse returns a copy of the slice in opposite order. Used to hand
// most-recent-first windows to the oldest-first recurrences.
func reverse(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[len(prices)-1-i] = p
	}
	return out
}
