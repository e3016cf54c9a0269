package usecase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

// BacktestService replays a historical candle series through the
// signal engine and a fresh ledger. The loop is a pure function of
// (candles, config, initial balance): identical inputs produce
// identical trade logs.
type BacktestService struct {
	engine    *SignalEngine
	allocator *Allocator
	logger    *zap.Logger
}

func NewBacktestService(logger *zap.Logger) *BacktestService {
	return &BacktestService{
		engine:    NewSignalEngine(),
		allocator: NewAllocator(),
		logger:    logger,
	}
}

// Run steps through an oldest-first candle series for one market.
// Decisions start only after the warm-up prefix so every indicator
// sees a fully populated window. Malformed input (empty series,
// unordered timestamps, non-positive prices) aborts the run.
func (s *BacktestService) Run(market string, unit int, candles []domain.Candle, cfg *domain.StrategyConfig, initialBalance float64) (*domain.RunResult, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("backtest %s: empty candle series", market)
	}
	if initialBalance <= 0 {
		return nil, fmt.Errorf("backtest %s: invalid initial balance %f", market, initialBalance)
	}
	for i, c := range candles {
		if c.Close <= 0 {
			return nil, fmt.Errorf("backtest %s: non-positive close at index %d", market, i)
		}
		if i > 0 && c.Timestamp.Before(candles[i-1].Timestamp) {
			return nil, fmt.Errorf("backtest %s: candles out of order at index %d", market, i)
		}
	}

	ledger := NewLedger(initialBalance, cfg.FeeRate, cfg.MinTradeValue)
	warmup := cfg.MinHistory()

	peak := initialBalance
	maxDrawdown := 0.0

	for i := warmup; i < len(candles); i++ {
		candle := candles[i]
		price := candle.Close
		ledger.MarkPrice(market, price)

		window := candles[: i+1 : i+1]
		closes := domain.ClosesDesc(window)
		volumes := domain.VolumesDesc(window)
		pos := ledger.Position(market)

		decision := s.engine.Decide(market, closes, volumes, pos, cfg)

		switch decision.Action {
		case domain.ActionBuy:
			amount := decision.Buy.Amount
			if amount <= 0 {
				if decision.Buy.Incremental {
					amount = s.allocator.PyramidAmount(decision.Score, pos.Value(price), ledger.Balance(), cfg)
				} else {
					amount = s.allocator.BuyAmount(decision.Score, ledger.Balance(), cfg)
				}
			}
			if amount <= 0 {
				s.logger.Debug("buy skipped: allocator produced no size",
					zap.String("market", market), zap.Float64("score", decision.Score))
				break
			}
			if _, err := ledger.Buy(market, price, amount, candle.Timestamp); err != nil {
				if !IsOrderRejection(err) {
					return nil, err
				}
				s.logger.Debug("buy rejected", zap.String("market", market), zap.Error(err))
			}
		case domain.ActionSell:
			volume := decision.Sell.Volume
			protective := volume > 0
			if volume <= 0 {
				volume = s.allocator.SellVolume(decision.Score, price, pos, false, cfg)
			}
			if volume <= 0 {
				s.logger.Debug("sell skipped: allocator produced no size",
					zap.String("market", market), zap.Float64("score", decision.Score))
				break
			}
			if _, err := ledger.Sell(market, price, volume, candle.Timestamp); err != nil {
				if !IsOrderRejection(err) {
					return nil, err
				}
				s.logger.Debug("sell rejected",
					zap.String("market", market), zap.Bool("protective", protective), zap.Error(err))
			}
		}

		// Drawdown tracks the mark-to-market value after the trade.
		total := ledger.TotalValue()
		if total > peak {
			peak = total
		}
		if peak > 0 {
			if dd := (peak - total) / peak * 100; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	trades := ledger.Trades()
	perf := AnalyzeTrades(trades)
	finalBalance := ledger.TotalValue()

	result := &domain.RunResult{
		Market:         market,
		Unit:           unit,
		StartedAt:      candles[0].Timestamp,
		FinishedAt:     candles[len(candles)-1].Timestamp,
		InitialBalance: initialBalance,
		FinalBalance:   finalBalance,
		TotalReturnPct: (finalBalance - initialBalance) / initialBalance * 100,
		TradeCount:     perf.TradeCount,
		WinCount:       perf.WinCount,
		LossCount:      perf.LossCount,
		WinRate:        perf.WinRate,
		MaxDrawdownPct: maxDrawdown,
		Trades:         trades,
	}

	s.logger.Info("backtest finished",
		zap.String("market", market),
		zap.Int("candles", len(candles)),
		zap.Int("trades", result.TradeCount),
		zap.Float64("return_pct", result.TotalReturnPct),
		zap.Float64("max_drawdown_pct", result.MaxDrawdownPct))

	return result, nil
}
