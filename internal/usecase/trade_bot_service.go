package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

// TradeBotService drives the live polling loop. Each evaluation
// fetches a candle window and account snapshot, runs the same Decide
// the simulator uses, and executes the sized order on the exchange.
// The mutex keeps "read balance, size order, place order" atomic per
// evaluation, since sizing depends on a balance snapshot.
type TradeBotService struct {
	exchange  domain.Exchange
	tradeRepo domain.TradeRepository
	engine    *SignalEngine
	allocator *Allocator
	logger    *zap.Logger
	cfg       domain.StrategyConfig
	unit      int
	markets   []string

	mu            sync.Mutex
	lastDecisions map[string]domain.Decision
}

func NewTradeBotService(
	exchange domain.Exchange,
	tradeRepo domain.TradeRepository,
	cfg domain.StrategyConfig,
	unit int,
	markets []string,
	logger *zap.Logger,
) *TradeBotService {
	return &TradeBotService{
		exchange:      exchange,
		tradeRepo:     tradeRepo,
		engine:        NewSignalEngine(),
		allocator:     NewAllocator(),
		logger:        logger,
		cfg:           cfg,
		unit:          unit,
		markets:       markets,
		lastDecisions: make(map[string]domain.Decision),
	}
}

// quoteCurrency extracts the cash currency from a market code like
// "KRW-BTC".
func quoteCurrency(market string) string {
	if idx := strings.Index(market, "-"); idx > 0 {
		return market[:idx]
	}
	return market
}

// EvaluateAll runs one evaluation pass over every configured market.
// Failures on one market do not stop the others.
func (s *TradeBotService) EvaluateAll(ctx context.Context) {
	for _, market := range s.markets {
		if err := s.EvaluateMarket(ctx, market); err != nil {
			s.logger.Error("evaluation failed", zap.String("market", market), zap.Error(err))
		}
	}
}

// EvaluateMarket fetches data, decides, and executes for one market.
func (s *TradeBotService) EvaluateMarket(ctx context.Context, market string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Fetch a window with headroom over the warm-up so MACD is live.
	count := s.cfg.MinHistory() + s.cfg.MACDLong
	candles, err := s.exchange.GetCandles(ctx, market, s.unit, count)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("fetch candles: empty series for %s", market)
	}

	pos, err := s.findPosition(ctx, market)
	if err != nil {
		return fmt.Errorf("fetch position: %w", err)
	}

	closes := domain.ClosesDesc(candles)
	volumes := domain.VolumesDesc(candles)
	price := closes[0]

	decision := s.engine.Decide(market, closes, volumes, pos, &s.cfg)
	s.lastDecisions[market] = decision
	s.logger.Info("decision",
		zap.String("market", market),
		zap.String("action", string(decision.Action)),
		zap.Float64("score", decision.Score),
		zap.String("reason", decision.Reason))

	switch decision.Action {
	case domain.ActionBuy:
		cash, err := s.exchange.GetBalance(ctx, quoteCurrency(market))
		if err != nil {
			return fmt.Errorf("fetch balance: %w", err)
		}
		var amount float64
		if decision.Buy.Incremental {
			amount = s.allocator.PyramidAmount(decision.Score, pos.Value(price), cash, &s.cfg)
		} else {
			amount = s.allocator.BuyAmount(decision.Score, cash, &s.cfg)
		}
		if amount <= 0 {
			s.logger.Info("buy skipped: below minimum trade value", zap.String("market", market))
			return nil
		}
		trade, err := s.exchange.BuyMarket(ctx, market, amount)
		if err != nil {
			return fmt.Errorf("place buy: %w", err)
		}
		return s.recordTrade(ctx, trade)
	case domain.ActionSell:
		volume := decision.Sell.Volume
		if volume <= 0 {
			volume = s.allocator.SellVolume(decision.Score, price, pos, false, &s.cfg)
		}
		if volume <= 0 {
			s.logger.Info("sell skipped: below minimum trade value", zap.String("market", market))
			return nil
		}
		trade, err := s.exchange.SellMarket(ctx, market, volume)
		if err != nil {
			return fmt.Errorf("place sell: %w", err)
		}
		return s.recordTrade(ctx, trade)
	}
	return nil
}

// LastDecision returns the most recent decision for a market, for the
// status endpoints.
func (s *TradeBotService) LastDecision(market string) (domain.Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lastDecisions[market]
	return d, ok
}

func (s *TradeBotService) findPosition(ctx context.Context, market string) (*domain.Position, error) {
	positions, err := s.exchange.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		if p.Market == market {
			return p, nil
		}
	}
	return nil, nil
}

func (s *TradeBotService) recordTrade(ctx context.Context, trade *domain.Trade) error {
	if trade == nil {
		return nil
	}
	if err := s.tradeRepo.SaveTrade(ctx, trade); err != nil {
		// The order already went through; losing the record is worth
		// a loud log but not an abort.
		s.logger.Error("failed to persist trade", zap.String("trade_id", trade.ID), zap.Error(err))
	}
	return nil
}
