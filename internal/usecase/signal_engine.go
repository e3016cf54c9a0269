package usecase

import (
	"fmt"
	"math"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

// Fixed scores for protective exits. Stop-loss outranks everything;
// take-profit sits just below it.
const (
	stopLossScore   = 95
	takeProfitScore = 90
)

// SignalEngine turns a price/volume window plus the current position
// into one graded decision per tick. It has no internal state, so the
// live polling loop and the replay simulator share it unmodified.
type SignalEngine struct {
	score *ScoreService
}

func NewSignalEngine() *SignalEngine {
	return &SignalEngine{score: NewScoreService()}
}

// minHistory is the shortest window the engine will grade: the band
// window, the slow trend window, and one extra point for the RSI
// deltas. MACD may still be unavailable at this length; its
// contribution is simply skipped.
func (e *SignalEngine) minHistory(cfg *domain.StrategyConfig) int {
	n := cfg.BandPeriod
	if cfg.SlowTrendPeriod > n {
		n = cfg.SlowTrendPeriod
	}
	if cfg.RSIPeriod+1 > n {
		n = cfg.RSIPeriod + 1
	}
	return n
}

// Decide evaluates the priority ladder for one market and tick.
// closes and volumes are most-recent-first (index 0 = latest). The
// branches run strictly in order and short-circuit on the first match:
// insufficient history, stop-loss, take-profit, indicator sell,
// pyramiding, new entry, hold.
func (e *SignalEngine) Decide(market string, closes, volumes []float64, pos *domain.Position, cfg *domain.StrategyConfig) domain.Decision {
	// 1. Cold start is a valid hold, never an error.
	if len(closes) < e.minHistory(cfg) {
		return domain.HoldDecision(market, 0, "insufficient data")
	}
	price := closes[0]

	if pos.Held() {
		entry := pos.AvgEntryPrice

		// Tolerance for threshold comparisons: a candle exactly at
		// the stop price must trigger despite rounding in the
		// percentage arithmetic.
		tol := entry * 1e-9

		// 2. Stop-loss. Capital preservation overrides every other
		// signal, including a simultaneous take-profit cross.
		stopPrice := entry * (1 - cfg.StopLossPct/100)
		if price <= stopPrice+tol {
			return domain.Decision{
				Action: domain.ActionSell,
				Market: market,
				Score:  stopLossScore,
				Reason: fmt.Sprintf("stop loss: price %.4f at or below %.4f (-%.2f%% from entry)", price, stopPrice, cfg.StopLossPct),
				Sell:   &domain.SellOrder{Price: price, Volume: pos.Volume},
			}
		}

		// 3. Take-profit.
		targetPrice := entry * (1 + cfg.ProfitTargetPct/100)
		if price >= targetPrice-tol {
			return domain.Decision{
				Action: domain.ActionSell,
				Market: market,
				Score:  takeProfitScore,
				Reason: fmt.Sprintf("take profit: price %.4f at or above %.4f (+%.2f%% from entry)", price, targetPrice, cfg.ProfitTargetPct),
				Sell:   &domain.SellOrder{Price: price, Volume: pos.Volume},
			}
		}

		profitPct := (price - entry) / entry * 100

		// 4. Indicator-driven sell. Volume 0 lets the allocator pick
		// the fraction.
		sellOut := e.score.SellPressureScore(closes, volumes, profitPct, cfg)
		if sellOut.Score >= cfg.SellThreshold {
			return domain.Decision{
				Action: domain.ActionSell,
				Market: market,
				Score:  sellOut.Score,
				Reason: joinReasons(sellOut.Reasons),
				Sell:   &domain.SellOrder{Price: price},
			}
		}

		// 5. Pyramiding.
		if pyramidScore, reason, ok := e.evaluatePyramid(closes, pos, cfg); ok {
			return domain.Decision{
				Action: domain.ActionBuy,
				Market: market,
				Score:  pyramidScore,
				Reason: reason,
				Buy:    &domain.BuyOrder{Price: price, Incremental: true},
			}
		} else if pyramidScore > sellOut.Score {
			// 7. Hold, carrying the best score seen this tick.
			return domain.HoldDecision(market, pyramidScore, fmt.Sprintf("awaiting add-on entry: score %.0f", pyramidScore))
		}
		return domain.HoldDecision(market, sellOut.Score, fmt.Sprintf("awaiting sell signal: score %.0f", sellOut.Score))
	}

	// 6. New entry. Amount 0 lets the allocator size the order.
	buyOut := e.score.BuyScore(closes, volumes, cfg)
	if buyOut.Score >= cfg.BuyThreshold {
		return domain.Decision{
			Action: domain.ActionBuy,
			Market: market,
			Score:  buyOut.Score,
			Reason: joinReasons(buyOut.Reasons),
			Buy:    &domain.BuyOrder{Price: price},
		}
	}

	// 7. Hold.
	return domain.HoldDecision(market, buyOut.Score, fmt.Sprintf("awaiting buy signal: score %.0f", buyOut.Score))
}

// evaluatePyramid grades an incremental buy. It requires pyramiding
// headroom, a sufficient drop below the average entry (widened after
// the first add-on so repeated averaging into a crash slows down), and
// the RSI inside the configured band. The composite score must clear
// 60% of the buy threshold.
func (e *SignalEngine) evaluatePyramid(closes []float64, pos *domain.Position, cfg *domain.StrategyConfig) (float64, string, bool) {
	if !cfg.PyramidingEnabled || pos.BuyCount >= cfg.MaxPyramiding {
		return 0, "", false
	}
	price := closes[0]
	entry := pos.AvgEntryPrice
	if entry <= 0 {
		return 0, "", false
	}

	drop := (entry - price) / entry * 100
	required := cfg.PyramidDropPct
	if pos.BuyCount >= 1 {
		required *= 1.5
	}
	if drop < required {
		return 0, "", false
	}

	rsi := RSI(closes, cfg.RSIPeriod)
	if rsi < cfg.PyramidRSILow || rsi > cfg.PyramidRSIHigh {
		return 0, "", false
	}

	// Composite: drop depth, oscillator depth, momentum state, and a
	// fixed context bonus for being an add-on to a vetted position.
	dropScore := math.Min(40, drop*8)
	rsiDepth := 0.0
	if span := cfg.PyramidRSIHigh - cfg.PyramidRSILow; span > 0 {
		rsiDepth = (cfg.PyramidRSIHigh - rsi) / span * 30
	}
	macdBonus := 0.0
	if m := MACD(reverse(closes), cfg.MACDShort, cfg.MACDLong, cfg.MACDSignal); m != nil && m.MACD > m.Signal {
		macdBonus = 10
	}
	const contextBonus = 15

	score := clampScore(dropScore + rsiDepth + macdBonus + contextBonus)
	if score < cfg.BuyThreshold*0.6 {
		return score, "", false
	}
	reason := fmt.Sprintf("incremental buy %d/%d: price %.2f%% below entry, RSI %.1f", pos.BuyCount+1, cfg.MaxPyramiding, drop, rsi)
	return score, reason, true
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
