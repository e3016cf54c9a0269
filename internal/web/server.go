package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/usecase"
)

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	candleRepo domain.CandleRepository
	tradeRepo  domain.TradeRepository
	bot        *usecase.TradeBotService
	backtest   *usecase.BacktestService
	cfg        domain.StrategyConfig
	logger     *zap.Logger
}

func NewServer(
	port int,
	candleRepo domain.CandleRepository,
	tradeRepo domain.TradeRepository,
	bot *usecase.TradeBotService,
	backtest *usecase.BacktestService,
	cfg domain.StrategyConfig,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		candleRepo: candleRepo,
		tradeRepo:  tradeRepo,
		bot:        bot,
		backtest:   backtest,
		cfg:        cfg,
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Trades
	s.router.HandleFunc("GET /api/trades", s.handleTrades)

	// Last decision per market
	s.router.HandleFunc("GET /api/decision", s.handleDecision)

	// Backtests over stored candles
	s.router.HandleFunc("POST /api/backtest", s.handleBacktest)
	s.router.HandleFunc("GET /api/runs", s.handleRuns)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
