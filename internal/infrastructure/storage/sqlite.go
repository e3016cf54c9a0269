package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

// SQLiteStore holds candle history, the executed trade log, and
// completed backtest runs. Implements domain.CandleRepository and
// domain.TradeRepository.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			market TEXT NOT NULL,
			unit INTEGER NOT NULL,
			ts DATETIME NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			acc_volume REAL NOT NULL,
			acc_price REAL NOT NULL,
			PRIMARY KEY (market, unit, ts)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_candles_market_unit ON candles(market, unit, ts);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			market TEXT NOT NULL,
			side TEXT NOT NULL,
			ord_type TEXT NOT NULL,
			price REAL NOT NULL,
			volume REAL NOT NULL,
			amount REAL NOT NULL,
			fee REAL NOT NULL,
			realized_profit REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_market ON trades(market, created_at);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			market TEXT NOT NULL,
			unit INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			initial_balance REAL NOT NULL,
			final_balance REAL NOT NULL,
			total_return_pct REAL NOT NULL,
			trade_count INTEGER NOT NULL,
			win_count INTEGER NOT NULL,
			loss_count INTEGER NOT NULL,
			win_rate REAL NOT NULL,
			max_drawdown_pct REAL NOT NULL,
			trades_json TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// CandleRepository implementation

func (s *SQLiteStore) SaveCandles(ctx context.Context, candles []domain.Candle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO candles
		(market, unit, ts, open, high, low, close, acc_volume, acc_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Market, c.Unit, c.Timestamp,
			c.Open, c.High, c.Low, c.Close, c.AccTradeVolume, c.AccTradePrice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCandles returns up to limit candles oldest-first. limit <= 0
// means the full series.
func (s *SQLiteStore) GetCandles(ctx context.Context, market string, unit, limit int) ([]domain.Candle, error) {
	query := `SELECT market, unit, ts, open, high, low, close, acc_volume, acc_price
		FROM candles WHERE market = ? AND unit = ? ORDER BY ts ASC`
	args := []interface{}{market, unit}
	if limit > 0 {
		// Most recent N, still returned oldest-first.
		query = `SELECT market, unit, ts, open, high, low, close, acc_volume, acc_price FROM (
			SELECT market, unit, ts, open, high, low, close, acc_volume, acc_price
			FROM candles WHERE market = ? AND unit = ? ORDER BY ts DESC LIMIT ?
		) ORDER BY ts ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Market, &c.Unit, &c.Timestamp,
			&c.Open, &c.High, &c.Low, &c.Close, &c.AccTradeVolume, &c.AccTradePrice); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

func (s *SQLiteStore) CountCandles(ctx context.Context, market string, unit int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candles WHERE market = ? AND unit = ?`, market, unit).Scan(&count)
	return count, err
}

// TradeRepository implementation

func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO trades
		(id, market, side, ord_type, price, volume, amount, fee, realized_profit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Market, trade.Side, trade.OrdType, trade.Price,
		trade.Volume, trade.Amount, trade.Fee, trade.RealizedProfit, trade.Timestamp)
	return err
}

func (s *SQLiteStore) ListTrades(ctx context.Context, market string, limit int) ([]*domain.Trade, error) {
	query := `SELECT id, market, side, ord_type, price, volume, amount, fee, realized_profit, created_at
		FROM trades`
	args := []interface{}{}
	if market != "" {
		query += ` WHERE market = ?`
		args = append(args, market)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.Market, &t.Side, &t.OrdType, &t.Price,
			&t.Volume, &t.Amount, &t.Fee, &t.RealizedProfit, &t.Timestamp); err != nil {
			return nil, err
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.RunResult) error {
	tradesJSON, err := json.Marshal(run.Trades)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs
		(market, unit, started_at, finished_at, initial_balance, final_balance,
		 total_return_pct, trade_count, win_count, loss_count, win_rate, max_drawdown_pct, trades_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Market, run.Unit, run.StartedAt, run.FinishedAt, run.InitialBalance, run.FinalBalance,
		run.TotalReturnPct, run.TradeCount, run.WinCount, run.LossCount, run.WinRate,
		run.MaxDrawdownPct, string(tradesJSON))
	return err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*domain.RunResult, error) {
	query := `SELECT market, unit, started_at, finished_at, initial_balance, final_balance,
		total_return_pct, trade_count, win_count, loss_count, win_rate, max_drawdown_pct, trades_json
		FROM runs ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.RunResult
	for rows.Next() {
		var r domain.RunResult
		var tradesJSON string
		if err := rows.Scan(&r.Market, &r.Unit, &r.StartedAt, &r.FinishedAt,
			&r.InitialBalance, &r.FinalBalance, &r.TotalReturnPct, &r.TradeCount,
			&r.WinCount, &r.LossCount, &r.WinRate, &r.MaxDrawdownPct, &tradesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tradesJSON), &r.Trades); err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
