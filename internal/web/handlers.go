package web

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	trades, err := s.tradeRepo.ListTrades(r.Context(), "", 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var totalProfit, totalFees float64
	for _, t := range trades {
		totalProfit += t.RealizedProfit
		totalFees += t.Fee
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trade_count":    len(trades),
		"total_profit":   humanize.CommafWithDigits(totalProfit, 2),
		"total_fees":     humanize.CommafWithDigits(totalFees, 2),
		"buy_threshold":  s.cfg.BuyThreshold,
		"sell_threshold": s.cfg.SellThreshold,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	market := r.URL.Query().Get("market")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	trades, err := s.tradeRepo.ListTrades(r.Context(), market, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	market := r.URL.Query().Get("market")
	if market == "" {
		writeError(w, http.StatusBadRequest, "market is required")
		return
	}
	if s.bot == nil {
		writeError(w, http.StatusServiceUnavailable, "live bot not running")
		return
	}
	decision, ok := s.bot.LastDecision(market)
	if !ok {
		writeError(w, http.StatusNotFound, "no decision yet for "+market)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type backtestRequest struct {
	Market         string  `json:"market"`
	Unit           int     `json:"unit"`
	InitialBalance float64 `json:"initial_balance"`
	Limit          int     `json:"limit"`
}

// handleBacktest replays stored candles for a market and persists the
// run result.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Market == "" {
		writeError(w, http.StatusBadRequest, "market is required")
		return
	}
	if req.Unit <= 0 {
		req.Unit = 60
	}
	if req.InitialBalance <= 0 {
		req.InitialBalance = 1_000_000
	}

	candles, err := s.candleRepo.GetCandles(r.Context(), req.Market, req.Unit, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(candles) == 0 {
		writeError(w, http.StatusNotFound, "no stored candles for "+req.Market)
		return
	}

	result, err := s.backtest.Run(req.Market, req.Unit, candles, &s.cfg, req.InitialBalance)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.tradeRepo.SaveRun(r.Context(), result); err != nil {
		s.logger.Error("failed to persist run", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	runs, err := s.tradeRepo.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
