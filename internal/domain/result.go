package domain

import "time"

// RunResult is the outcome of one replay over a candle series.
type RunResult struct {
	Market         string    `json:"market"`
	Unit           int       `json:"unit"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	InitialBalance float64   `json:"initial_balance"`
	FinalBalance   float64   `json:"final_balance"`
	TotalReturnPct float64   `json:"total_return_pct"`
	TradeCount     int       `json:"trade_count"`
	WinCount       int       `json:"win_count"`
	LossCount      int       `json:"loss_count"`
	WinRate        float64   `json:"win_rate"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	Trades         []Trade   `json:"trades"`
}
