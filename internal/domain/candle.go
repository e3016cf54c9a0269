package domain

import "time"

// Candle is a fixed-duration OHLCV aggregate for one market.
// Immutable once produced; series are stored oldest-first.
type Candle struct {
	Market         string    `json:"market"`
	Open           float64   `json:"opening_price"`
	High           float64   `json:"high_price"`
	Low            float64   `json:"low_price"`
	Close          float64   `json:"trade_price"`
	Timestamp      time.Time `json:"candle_date_time_utc"`
	AccTradeVolume float64   `json:"candle_acc_trade_volume"`
	AccTradePrice  float64   `json:"candle_acc_trade_price"`
	Unit           int       `json:"unit"` // bar size in minutes
}

// ClosesDesc extracts close prices most-recent-first from an
// oldest-first series. The signal engine consumes this view
// (index 0 = latest).
func ClosesDesc(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[len(candles)-1-i] = c.Close
	}
	return out
}

// VolumesDesc extracts accumulated trade volumes most-recent-first.
func VolumesDesc(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[len(candles)-1-i] = c.AccTradeVolume
	}
	return out
}
