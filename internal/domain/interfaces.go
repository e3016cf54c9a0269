package domain

import "context"

// Exchange defines the interface for the market-data and account
// collaborator. The core consumes it; live trading implements it
// against a real venue, tests with mocks.
type Exchange interface {
	GetCurrentPrice(ctx context.Context, market string) (float64, error)
	GetCandles(ctx context.Context, market string, unit, count int) ([]Candle, error)
	GetBalance(ctx context.Context, currency string) (float64, error)
	GetPositions(ctx context.Context) ([]*Position, error)

	// Order placement. Buy is by amount (market price order),
	// sell by volume, matching the decision variants.
	BuyMarket(ctx context.Context, market string, amount float64) (*Trade, error)
	SellMarket(ctx context.Context, market string, volume float64) (*Trade, error)

	OnPriceUpdate(callback func(market string, price float64))
	Subscribe(markets []string) error
}

// CandleRepository defines storage for historical candle series.
type CandleRepository interface {
	SaveCandles(ctx context.Context, candles []Candle) error
	GetCandles(ctx context.Context, market string, unit, limit int) ([]Candle, error)
	CountCandles(ctx context.Context, market string, unit int) (int, error)
}

// TradeRepository defines storage for executed trades and completed
// backtest runs.
type TradeRepository interface {
	SaveTrade(ctx context.Context, trade *Trade) error
	ListTrades(ctx context.Context, market string, limit int) ([]*Trade, error)
	SaveRun(ctx context.Context, run *RunResult) error
	ListRuns(ctx context.Context, limit int) ([]*RunResult, error)
}
