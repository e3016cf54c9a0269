package usecase

import (
	"fmt"
	"math"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

// ScoreBreakdown carries each indicator's bounded [0,100] sub-score.
type ScoreBreakdown struct {
	Trend   float64 `json:"trend"`
	Band    float64 `json:"band"`
	Volume  float64 `json:"volume"`
	RSI     float64 `json:"rsi"`
	MACD    float64 `json:"macd"`
	Synergy float64 `json:"synergy"`
	Profit  float64 `json:"profit"`
}

// ScoreOutput is a graded 0-100 pressure score with the conditions
// that produced it, in evaluation order.
type ScoreOutput struct {
	Score     float64        `json:"score"`
	Reasons   []string       `json:"reasons"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ScoreService grades buy and sell pressure from indicator state. It
// holds no state; every call works off the window and config passed in.
type ScoreService struct{}

func NewScoreService() *ScoreService {
	return &ScoreService{}
}

// synergyHighConfidence is the sub-score level above which an
// indicator counts toward the synergy bonus.
const synergyHighConfidence = 70.0

// reasonList appends unique reason strings in evaluation order.
type reasonList struct {
	reasons []string
	seen    map[string]bool
}

func newReasonList() *reasonList {
	return &reasonList{seen: make(map[string]bool)}
}

func (r *reasonList) add(reason string) {
	if r.seen[reason] {
		return
	}
	r.seen[reason] = true
	r.reasons = append(r.reasons, reason)
}

// BuyScore grades buy pressure over a most-recent-first close/volume
// window. Evaluation order: trend, band breakout, volume, RSI, MACD,
// synergy. The final score is rounded and clamped to [0,100].
func (s *ScoreService) BuyScore(closes, volumes []float64, cfg *domain.StrategyConfig) ScoreOutput {
	reasons := newReasonList()
	var b ScoreBreakdown

	price := 0.0
	if len(closes) > 0 {
		price = closes[0]
	}

	// 1. Trend alignment: short above mid above slow, bonus scales
	// with the short/slow spread.
	fast := SMA(closes, cfg.ShortTrendPeriod)
	mid := SMA(closes, cfg.MidTrendPeriod)
	slow := SMA(closes, cfg.SlowTrendPeriod)
	switch {
	case fast > mid && mid > slow && slow > 0:
		spread := (fast - slow) / slow * 100
		b.Trend = math.Min(100, 70+spread*5)
		reasons.add(fmt.Sprintf("bullish alignment: short MA above slow MA (spread %.1f%%)", spread))
	case fast > mid && mid > 0:
		b.Trend = 40
		reasons.add("short trend turning up")
	}

	// 2. Band breakout: tiered by how deep the price sits below the
	// lower band.
	band := BollingerBands(closes, cfg.BandPeriod, cfg.BandMultiplier)
	if band.Lower > 0 && price > 0 {
		switch {
		case price < band.Lower*0.98:
			b.Band = 100
			reasons.add("price deep below lower band")
		case price < band.Lower*0.99:
			b.Band = 80
			reasons.add("price well below lower band")
		case price < band.Lower:
			b.Band = 60
			reasons.add("price below lower band")
		case price < band.Middle:
			b.Band = 20
			reasons.add("price below band midline")
		}
	}

	// 3. Volume anomaly.
	b.Volume = volumeScore(volumes, cfg.BandPeriod, reasons)

	// 4. Oscillator tier (oversold favors buying).
	rsi := RSI(closes, cfg.RSIPeriod)
	switch {
	case rsi <= 20:
		b.RSI = 100
		reasons.add(fmt.Sprintf("RSI deeply oversold (%.1f)", rsi))
	case rsi <= 25:
		b.RSI = 85
		reasons.add(fmt.Sprintf("RSI oversold (%.1f)", rsi))
	case rsi <= 30:
		b.RSI = 70
		reasons.add(fmt.Sprintf("RSI oversold (%.1f)", rsi))
	case rsi <= 35:
		b.RSI = 50
		reasons.add(fmt.Sprintf("RSI approaching oversold (%.1f)", rsi))
	case rsi <= 40:
		b.RSI = 30
		reasons.add(fmt.Sprintf("RSI leaning low (%.1f)", rsi))
	}

	// 5. Momentum oscillator. Unavailable MACD contributes nothing.
	macdAvailable := false
	if m := MACD(reverse(closes), cfg.MACDShort, cfg.MACDLong, cfg.MACDSignal); m != nil {
		macdAvailable = true
		switch {
		case m.MACD > m.Signal && m.Histogram > 0:
			b.MACD = 80
			reasons.add("MACD above signal with positive histogram")
		case m.MACD > m.Signal:
			b.MACD = 60
			reasons.add("MACD crossed above signal")
		case m.Histogram > 0:
			b.MACD = 40
			reasons.add("MACD histogram turning positive")
		}
	}

	// 6. Synergy: simultaneous confirmation is worth more than the
	// sum of parts, so it is a discrete bonus, not additive noise.
	b.Synergy = synergyScore(&b, macdAvailable, reasons)

	w := cfg.BuyWeights
	total := b.Trend*w.Trend/100 +
		b.Band*w.Band/100 +
		b.Volume*w.Volume/100 +
		b.RSI*w.RSI/100 +
		b.MACD*w.MACD/100 +
		b.Synergy*w.Synergy/100

	return ScoreOutput{Score: clampScore(total), Reasons: reasons.reasons, Breakdown: b}
}

// SellPressureScore grades sell pressure. profitPct is the unrealized
// profit of the current position in percent (0 when no position); it
// feeds the profit-context sub-score.
func (s *ScoreService) SellPressureScore(closes, volumes []float64, profitPct float64, cfg *domain.StrategyConfig) ScoreOutput {
	reasons := newReasonList()
	var b ScoreBreakdown

	price := 0.0
	if len(closes) > 0 {
		price = closes[0]
	}

	// 1. Trend alignment, bearish direction.
	fast := SMA(closes, cfg.ShortTrendPeriod)
	mid := SMA(closes, cfg.MidTrendPeriod)
	slow := SMA(closes, cfg.SlowTrendPeriod)
	switch {
	case fast > 0 && fast < mid && mid < slow:
		spread := (slow - fast) / slow * 100
		b.Trend = math.Min(100, 70+spread*5)
		reasons.add(fmt.Sprintf("bearish alignment: short MA below slow MA (spread %.1f%%)", spread))
	case fast > 0 && fast < mid:
		b.Trend = 40
		reasons.add("short trend turning down")
	}

	// 2. Band breakout above the upper band.
	band := BollingerBands(closes, cfg.BandPeriod, cfg.BandMultiplier)
	if band.Upper > 0 && price > 0 {
		switch {
		case price > band.Upper*1.02:
			b.Band = 100
			reasons.add("price far above upper band")
		case price > band.Upper*1.01:
			b.Band = 80
			reasons.add("price well above upper band")
		case price > band.Upper:
			b.Band = 60
			reasons.add("price above upper band")
		case price > band.Middle:
			b.Band = 20
			reasons.add("price above band midline")
		}
	}

	// 3. Volume anomaly.
	b.Volume = volumeScore(volumes, cfg.BandPeriod, reasons)

	// 4. Oscillator tier (overbought favors selling).
	rsi := RSI(closes, cfg.RSIPeriod)
	switch {
	case rsi >= 80:
		b.RSI = 100
		reasons.add(fmt.Sprintf("RSI deeply overbought (%.1f)", rsi))
	case rsi >= 75:
		b.RSI = 85
		reasons.add(fmt.Sprintf("RSI overbought (%.1f)", rsi))
	case rsi >= 70:
		b.RSI = 70
		reasons.add(fmt.Sprintf("RSI overbought (%.1f)", rsi))
	case rsi >= 65:
		b.RSI = 50
		reasons.add(fmt.Sprintf("RSI approaching overbought (%.1f)", rsi))
	case rsi >= 60:
		b.RSI = 30
		reasons.add(fmt.Sprintf("RSI leaning high (%.1f)", rsi))
	}

	// 5. Momentum oscillator, bearish direction.
	macdAvailable := false
	if m := MACD(reverse(closes), cfg.MACDShort, cfg.MACDLong, cfg.MACDSignal); m != nil {
		macdAvailable = true
		switch {
		case m.MACD < m.Signal && m.Histogram < 0:
			b.MACD = 80
			reasons.add("MACD below signal with negative histogram")
		case m.MACD < m.Signal:
			b.MACD = 60
			reasons.add("MACD crossed below signal")
		case m.Histogram < 0:
			b.MACD = 40
			reasons.add("MACD histogram turning negative")
		}
	}

	// 6. Synergy bonus.
	b.Synergy = synergyScore(&b, macdAvailable, reasons)

	// 7. Profit context: sitting on gains raises exit urgency.
	switch {
	case profitPct >= 5:
		b.Profit = 100
		reasons.add(fmt.Sprintf("unrealized profit %.1f%%", profitPct))
	case profitPct >= 3:
		b.Profit = 80
		reasons.add(fmt.Sprintf("unrealized profit %.1f%%", profitPct))
	case profitPct >= 2:
		b.Profit = 50
		reasons.add(fmt.Sprintf("unrealized profit %.1f%%", profitPct))
	case profitPct >= 1:
		b.Profit = 30
		reasons.add(fmt.Sprintf("unrealized profit %.1f%%", profitPct))
	}

	w := cfg.SellWeights
	total := b.Trend*w.Trend/100 +
		b.Band*w.Band/100 +
		b.Volume*w.Volume/100 +
		b.RSI*w.RSI/100 +
		b.MACD*w.MACD/100 +
		b.Synergy*w.Synergy/100 +
		b.Profit*w.Profit/100

	return ScoreOutput{Score: clampScore(total), Reasons: reasons.reasons, Breakdown: b}
}

// volumeScore tiers the latest volume against the average of the
// window behind it.
func volumeScore(volumes []float64, period int, reasons *reasonList) float64 {
	if len(volumes) < period+1 {
		return 0
	}
	var sum float64
	for _, v := range volumes[1 : period+1] {
		sum += v
	}
	avg := sum / float64(period)
	if avg <= 0 {
		return 0
	}
	ratio := volumes[0] / avg
	switch {
	case ratio >= 3:
		reasons.add(fmt.Sprintf("volume surge x%.1f", ratio))
		return 100
	case ratio >= 2:
		reasons.add(fmt.Sprintf("volume surge x%.1f", ratio))
		return 80
	case ratio >= 1.5:
		reasons.add(fmt.Sprintf("volume elevated x%.1f", ratio))
		return 60
	case ratio >= 1.2:
		reasons.add(fmt.Sprintf("volume above average x%.1f", ratio))
		return 40
	}
	return 0
}

// synergyScore awards a discrete bonus when several indicators agree
// at high confidence simultaneously.
func synergyScore(b *ScoreBreakdown, macdAvailable bool, reasons *reasonList) float64 {
	count := 0
	for _, s := range []float64{b.Trend, b.Band, b.Volume, b.RSI} {
		if s >= synergyHighConfidence {
			count++
		}
	}
	if macdAvailable && b.MACD >= synergyHighConfidence {
		count++
	}
	switch {
	case count >= 3:
		reasons.add(fmt.Sprintf("synergy: %d indicators in strong agreement", count))
		return 100
	case count == 2:
		reasons.add("synergy: 2 indicators in strong agreement")
		return 50
	}
	return 0
}

func clampScore(score float64) float64 {
	score = math.Round(score)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
