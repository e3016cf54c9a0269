package tests

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/feed"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/storage"
	"github.com/andrv/crypto_score_bot/internal/usecase"
)

// Full pipeline: csv feed into the replay simulator, run result into
// sqlite, read back intact.
func TestPipelineCSVToStoredRun(t *testing.T) {
	candles := roundTripSeries()
	path := writeCSV(t, candles)

	loaded, err := feed.LoadCandlesCSV(path)
	if err != nil {
		t.Fatalf("load csv: %v", err)
	}
	if len(loaded) != len(candles) {
		t.Fatalf("loaded %d candles, want %d", len(loaded), len(candles))
	}

	result := runBacktest(t, loaded, lowThresholdConfig(), 1_000_000)
	if len(result.Trades) != 2 {
		t.Fatalf("got %d trades, want buy then sell", len(result.Trades))
	}
	if result.Trades[0].Side != domain.SideBuy || result.Trades[1].Side != domain.SideSell {
		t.Fatalf("trade sides = %s,%s, want BUY,SELL", result.Trades[0].Side, result.Trades[1].Side)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveRun(ctx, result); err != nil {
		t.Fatalf("save run: %v", err)
	}
	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d stored runs, want 1", len(runs))
	}
	got := runs[0]
	if got.FinalBalance != result.FinalBalance || len(got.Trades) != 2 {
		t.Errorf("stored run diverged: balance %f vs %f, trades %d",
			got.FinalBalance, result.FinalBalance, len(got.Trades))
	}
	if got.Trades[0].ID != result.Trades[0].ID {
		t.Errorf("trade ID changed through persistence: %s vs %s",
			got.Trades[0].ID, result.Trades[0].ID)
	}
}

// A position entered near 80 must exit on the protective stop when the
// price slides 1.5% under the entry, before any take-profit can apply.
func TestStopLossExitEndToEnd(t *testing.T) {
	b := newSeries("KRW-BTC").flat(100, 70).candle(80, 5)
	b.candle(79.5, 1)
	b.candle(78.5, 1)
	candles := b.build()

	result := runBacktest(t, candles, lowThresholdConfig(), 1_000_000)
	if len(result.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(result.Trades))
	}
	sell := result.Trades[1]
	if sell.Side != domain.SideSell {
		t.Fatalf("second trade side = %s, want SELL", sell.Side)
	}
	if sell.Price != 78.5 {
		t.Errorf("stop exit price = %f, want 78.5", sell.Price)
	}
	if sell.RealizedProfit >= 0 {
		t.Errorf("stop exit profit = %f, want negative", sell.RealizedProfit)
	}
	if math.Abs(sell.Volume-result.Trades[0].Volume) > 1e-9 {
		t.Errorf("stop exit volume = %f, want full position %f", sell.Volume, result.Trades[0].Volume)
	}
	if result.LossCount != 1 || result.WinCount != 0 {
		t.Errorf("win/loss = %d/%d, want 0/1", result.WinCount, result.LossCount)
	}
}

// The take-profit path: the rally to 82.5 crosses the 3% target over
// the 80 entry and liquidates the full position at a gain.
func TestTakeProfitExitEndToEnd(t *testing.T) {
	result := runBacktest(t, roundTripSeries(), lowThresholdConfig(), 1_000_000)
	if len(result.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(result.Trades))
	}
	sell := result.Trades[1]
	if sell.Price != 82.5 {
		t.Errorf("take-profit price = %f, want 82.5", sell.Price)
	}
	if sell.RealizedProfit <= 0 {
		t.Errorf("take-profit realized = %f, want positive", sell.RealizedProfit)
	}
	if result.FinalBalance <= result.InitialBalance {
		t.Errorf("final balance %f did not grow from %f", result.FinalBalance, result.InitialBalance)
	}
	if result.TotalReturnPct <= 0 {
		t.Errorf("return pct = %f, want positive", result.TotalReturnPct)
	}
}

// Cash plus realized results must reconcile against the trade log: with
// a flat final position, final balance equals the initial balance plus
// realized profits minus entry fees.
func TestLedgerConservationAcrossRun(t *testing.T) {
	result := runBacktest(t, roundTripSeries(), lowThresholdConfig(), 1_000_000)

	var realized, buyFees float64
	for _, tr := range result.Trades {
		if tr.Side == domain.SideBuy {
			buyFees += tr.Fee
		} else {
			realized += tr.RealizedProfit
		}
	}

	want := result.InitialBalance + realized - buyFees
	if math.Abs(result.FinalBalance-want) > 1e-6 {
		t.Errorf("final balance %f, want %f from trade log reconciliation", result.FinalBalance, want)
	}
}

// Two replays of the same series and config must produce the same trade
// log, trade IDs included.
func TestReplayDeterminism(t *testing.T) {
	candles := roundTripSeries()
	cfg := lowThresholdConfig()

	first := runBacktest(t, candles, cfg, 1_000_000)
	second := runBacktest(t, candles, cfg, 1_000_000)

	if len(first.Trades) != len(second.Trades) {
		t.Fatalf("trade counts differ: %d vs %d", len(first.Trades), len(second.Trades))
	}
	for i := range first.Trades {
		a, b := first.Trades[i], second.Trades[i]
		if a.ID != b.ID {
			t.Errorf("trade %d ID differs: %s vs %s", i, a.ID, b.ID)
		}
		if a.Price != b.Price || a.Volume != b.Volume || a.Fee != b.Fee {
			t.Errorf("trade %d fields differ: %+v vs %+v", i, a, b)
		}
	}
	if first.FinalBalance != second.FinalBalance {
		t.Errorf("final balances differ: %f vs %f", first.FinalBalance, second.FinalBalance)
	}
}

// Score bounds hold across every window of a real mixed series.
func TestScoreBoundsAcrossSeries(t *testing.T) {
	b := newSeries("KRW-BTC").flat(100, 65).candle(80, 5)
	b.flat(81, 3).candle(120, 8).flat(95, 5)
	candles := b.build()

	cfg := domain.DefaultStrategyConfig()
	scores := usecase.NewScoreService()
	for i := cfg.MinHistory(); i < len(candles); i++ {
		window := candles[:i+1]
		closes := domain.ClosesDesc(window)
		volumes := domain.VolumesDesc(window)

		buy := scores.BuyScore(closes, volumes, &cfg)
		if buy.Score < 0 || buy.Score > 100 {
			t.Errorf("buy score %f out of bounds at index %d", buy.Score, i)
		}
		sell := scores.SellPressureScore(closes, volumes, 2.0, &cfg)
		if sell.Score < 0 || sell.Score > 100 {
			t.Errorf("sell score %f out of bounds at index %d", sell.Score, i)
		}
	}
}

// A series shorter than the warm-up window never trades, whatever it
// contains.
func TestWarmupGatingEndToEnd(t *testing.T) {
	b := newSeries("KRW-BTC").flat(100, 30).candle(50, 20)
	b.flat(45, 10)
	candles := b.build()

	result := runBacktest(t, candles, lowThresholdConfig(), 1_000_000)
	if len(result.Trades) != 0 {
		t.Fatalf("got %d trades inside warm-up, want 0", len(result.Trades))
	}
	if result.FinalBalance != result.InitialBalance {
		t.Errorf("balance moved without trades: %f", result.FinalBalance)
	}
}
