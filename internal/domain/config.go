package domain

// ScoreWeights sets how much each sub-score contributes to the final
// 0-100 score. A sub-score s with weight w adds s*w/100 points.
type ScoreWeights struct {
	Trend   float64
	Band    float64
	Volume  float64
	RSI     float64
	MACD    float64
	Synergy float64
	Profit  float64 // sell side only, profit-context urgency
}

// StrategyConfig is the fully resolved parameter set the engine runs
// on. Build one with DefaultStrategyConfig or StrategyParams.Resolve;
// it is never mutated after resolution.
type StrategyConfig struct {
	BandPeriod     int
	BandMultiplier float64

	ShortTrendPeriod int
	MidTrendPeriod   int
	SlowTrendPeriod  int

	RSIPeriod  int
	MACDShort  int
	MACDLong   int
	MACDSignal int

	BuyThreshold  float64
	SellThreshold float64

	// Percentages in human units: 1.5 means 1.5%.
	StopLossPct     float64
	ProfitTargetPct float64

	PyramidingEnabled   bool
	MaxPyramiding       int
	PyramidDropPct      float64
	PyramidRSILow       float64
	PyramidRSIHigh      float64
	PyramidBaseFraction float64

	MinTradeValue float64
	MaxBuyRatio   float64
	FeeRate       float64

	BuyWeights  ScoreWeights
	SellWeights ScoreWeights
}

// MinHistory is the number of candles every indicator needs before a
// decision may be produced (the warm-up window).
func (c *StrategyConfig) MinHistory() int {
	n := c.BandPeriod
	if c.SlowTrendPeriod > n {
		n = c.SlowTrendPeriod
	}
	if c.RSIPeriod+1 > n {
		n = c.RSIPeriod + 1
	}
	if m := c.MACDLong + c.MACDSignal - 1; m > n {
		n = m
	}
	return n
}

func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		BandPeriod:     20,
		BandMultiplier: 2.0,

		ShortTrendPeriod: 5,
		MidTrendPeriod:   20,
		SlowTrendPeriod:  60,

		RSIPeriod:  14,
		MACDShort:  12,
		MACDLong:   26,
		MACDSignal: 9,

		BuyThreshold:  70,
		SellThreshold: 70,

		StopLossPct:     1.5,
		ProfitTargetPct: 3.0,

		PyramidingEnabled:   true,
		MaxPyramiding:       3,
		PyramidDropPct:      3.0,
		PyramidRSILow:       25,
		PyramidRSIHigh:      45,
		PyramidBaseFraction: 0.5,

		MinTradeValue: 5000,
		MaxBuyRatio:   0.3,
		FeeRate:       0.0005,

		BuyWeights: ScoreWeights{
			Trend:   25,
			Band:    20,
			Volume:  15,
			RSI:     20,
			MACD:    20,
			Synergy: 10,
		},
		SellWeights: ScoreWeights{
			Trend:   20,
			Band:    20,
			Volume:  10,
			RSI:     20,
			MACD:    20,
			Synergy: 10,
			Profit:  10,
		},
	}
}

// WeightParams is the yaml-facing, partially specified form of
// ScoreWeights. Nil fields fall back to the default per key.
type WeightParams struct {
	Trend   *float64 `yaml:"trend"`
	Band    *float64 `yaml:"band"`
	Volume  *float64 `yaml:"volume"`
	RSI     *float64 `yaml:"rsi"`
	MACD    *float64 `yaml:"macd"`
	Synergy *float64 `yaml:"synergy"`
	Profit  *float64 `yaml:"profit"`
}

func (w *WeightParams) resolve(def ScoreWeights) ScoreWeights {
	if w == nil {
		return def
	}
	out := def
	if w.Trend != nil {
		out.Trend = *w.Trend
	}
	if w.Band != nil {
		out.Band = *w.Band
	}
	if w.Volume != nil {
		out.Volume = *w.Volume
	}
	if w.RSI != nil {
		out.RSI = *w.RSI
	}
	if w.MACD != nil {
		out.MACD = *w.MACD
	}
	if w.Synergy != nil {
		out.Synergy = *w.Synergy
	}
	if w.Profit != nil {
		out.Profit = *w.Profit
	}
	return out
}

// StrategyParams is the partial configuration read from yaml. Every
// unset field falls back to its documented default when resolved; the
// weight blocks merge per-key, not by replacement.
type StrategyParams struct {
	BandPeriod     *int     `yaml:"band_period"`
	BandMultiplier *float64 `yaml:"band_multiplier"`

	ShortTrendPeriod *int `yaml:"short_trend_period"`
	MidTrendPeriod   *int `yaml:"mid_trend_period"`
	SlowTrendPeriod  *int `yaml:"slow_trend_period"`

	RSIPeriod  *int `yaml:"rsi_period"`
	MACDShort  *int `yaml:"macd_short"`
	MACDLong   *int `yaml:"macd_long"`
	MACDSignal *int `yaml:"macd_signal"`

	BuyThreshold  *float64 `yaml:"buy_threshold"`
	SellThreshold *float64 `yaml:"sell_threshold"`

	StopLossPct     *float64 `yaml:"stop_loss_pct"`
	ProfitTargetPct *float64 `yaml:"profit_target_pct"`

	PyramidingEnabled   *bool    `yaml:"pyramiding_enabled"`
	MaxPyramiding       *int     `yaml:"max_pyramiding"`
	PyramidDropPct      *float64 `yaml:"pyramid_drop_pct"`
	PyramidRSILow       *float64 `yaml:"pyramid_rsi_low"`
	PyramidRSIHigh      *float64 `yaml:"pyramid_rsi_high"`
	PyramidBaseFraction *float64 `yaml:"pyramid_base_fraction"`

	MinTradeValue *float64 `yaml:"min_trade_value"`
	MaxBuyRatio   *float64 `yaml:"max_buy_ratio"`
	FeeRate       *float64 `yaml:"fee_rate"`

	BuyWeights  *WeightParams `yaml:"buy_weights"`
	SellWeights *WeightParams `yaml:"sell_weights"`
}

// Resolve merges the params against the full defaults and returns an
// immutable config. Scoring never touches defaults at call time.
func (p *StrategyParams) Resolve() StrategyConfig {
	cfg := DefaultStrategyConfig()
	if p == nil {
		return cfg
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&cfg.BandPeriod, p.BandPeriod)
	setFloat(&cfg.BandMultiplier, p.BandMultiplier)
	setInt(&cfg.ShortTrendPeriod, p.ShortTrendPeriod)
	setInt(&cfg.MidTrendPeriod, p.MidTrendPeriod)
	setInt(&cfg.SlowTrendPeriod, p.SlowTrendPeriod)
	setInt(&cfg.RSIPeriod, p.RSIPeriod)
	setInt(&cfg.MACDShort, p.MACDShort)
	setInt(&cfg.MACDLong, p.MACDLong)
	setInt(&cfg.MACDSignal, p.MACDSignal)
	setFloat(&cfg.BuyThreshold, p.BuyThreshold)
	setFloat(&cfg.SellThreshold, p.SellThreshold)
	setFloat(&cfg.StopLossPct, p.StopLossPct)
	setFloat(&cfg.ProfitTargetPct, p.ProfitTargetPct)
	if p.PyramidingEnabled != nil {
		cfg.PyramidingEnabled = *p.PyramidingEnabled
	}
	setInt(&cfg.MaxPyramiding, p.MaxPyramiding)
	setFloat(&cfg.PyramidDropPct, p.PyramidDropPct)
	setFloat(&cfg.PyramidRSILow, p.PyramidRSILow)
	setFloat(&cfg.PyramidRSIHigh, p.PyramidRSIHigh)
	setFloat(&cfg.PyramidBaseFraction, p.PyramidBaseFraction)
	setFloat(&cfg.MinTradeValue, p.MinTradeValue)
	setFloat(&cfg.MaxBuyRatio, p.MaxBuyRatio)
	setFloat(&cfg.FeeRate, p.FeeRate)
	cfg.BuyWeights = p.BuyWeights.resolve(cfg.BuyWeights)
	cfg.SellWeights = p.SellWeights.resolve(cfg.SellWeights)
	return cfg
}
