package tests

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/usecase"
)

// seriesBuilder assembles an hourly candle series segment by segment.
// Every candle defaults to volume 1; spikes are set per index.
type seriesBuilder struct {
	market  string
	prices  []float64
	volumes []float64
}

func newSeries(market string) *seriesBuilder {
	return &seriesBuilder{market: market}
}

func (b *seriesBuilder) flat(price float64, n int) *seriesBuilder {
	for i := 0; i < n; i++ {
		b.prices = append(b.prices, price)
		b.volumes = append(b.volumes, 1)
	}
	return b
}

func (b *seriesBuilder) candle(price, volume float64) *seriesBuilder {
	b.prices = append(b.prices, price)
	b.volumes = append(b.volumes, volume)
	return b
}

func (b *seriesBuilder) build() []domain.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, len(b.prices))
	for i, p := range b.prices {
		candles[i] = domain.Candle{
			Market:         b.market,
			Open:           p,
			High:           p,
			Low:            p,
			Close:          p,
			Timestamp:      start.Add(time.Duration(i) * time.Hour),
			AccTradeVolume: b.volumes[i],
			AccTradePrice:  p * b.volumes[i],
			Unit:           60,
		}
	}
	return candles
}

// toCSV renders the series in the candle feed file format.
func toCSV(candles []domain.Candle) string {
	var sb strings.Builder
	sb.WriteString("market,unit,timestamp,open,high,low,close,volume,value\n")
	for _, c := range candles {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%g,%g,%g,%g,%g,%g\n",
			c.Market, c.Unit, c.Timestamp.Format(time.RFC3339),
			c.Open, c.High, c.Low, c.Close, c.AccTradeVolume, c.AccTradePrice))
	}
	return sb.String()
}

func writeCSV(t *testing.T, candles []domain.Candle) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	if err := os.WriteFile(path, []byte(toCSV(candles)), 0o644); err != nil {
		t.Fatalf("write csv fixture: %v", err)
	}
	return path
}

func runBacktest(t *testing.T, candles []domain.Candle, cfg domain.StrategyConfig, balance float64) *domain.RunResult {
	t.Helper()
	svc := usecase.NewBacktestService(zap.NewNop())
	result, err := svc.Run(candles[0].Market, 60, candles, &cfg, balance)
	if err != nil {
		t.Fatalf("backtest run: %v", err)
	}
	return result
}

// roundTripSeries is the standard fixture: warm-up at 100, a crash to 80
// on a volume spike that clears the lowered buy threshold, quiet candles
// at 81, then a rally through the 3% profit target.
func roundTripSeries() []domain.Candle {
	b := newSeries("KRW-BTC").flat(100, 70).candle(80, 5)
	b.flat(81, 4)
	b.candle(82.5, 1)
	return b.build()
}

func lowThresholdConfig() domain.StrategyConfig {
	cfg := domain.DefaultStrategyConfig()
	cfg.BuyThreshold = 60
	return cfg
}
