package usecase_test

import (
	"testing"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/usecase"
)

// flatSeries builds a most-recent-first window of n points at price,
// with unit volumes.
func flatSeries(n int, price float64) (closes, volumes []float64) {
	closes = make([]float64, n)
	volumes = make([]float64, n)
	for i := range closes {
		closes[i] = price
		volumes[i] = 1
	}
	return closes, volumes
}

// crashSeries is a flat series whose latest point dropped hard on a
// volume spike: the strongest buy setup the score knows.
func crashSeries(n int, base, last float64) (closes, volumes []float64) {
	closes, volumes = flatSeries(n, base)
	closes[0] = last
	volumes[0] = 5
	return closes, volumes
}

// spikeSeries is a flat series whose latest point jumped hard on a
// volume spike: the sell-pressure mirror.
func spikeSeries(n int, base, last float64) (closes, volumes []float64) {
	closes, volumes = flatSeries(n, base)
	closes[0] = last
	volumes[0] = 5
	return closes, volumes
}

func TestScoreBounds(t *testing.T) {
	svc := usecase.NewScoreService()
	cfg := domain.DefaultStrategyConfig()
	// Exaggerated weights must still clamp to [0,100].
	cfg.BuyWeights = domain.ScoreWeights{Trend: 100, Band: 100, Volume: 100, RSI: 100, MACD: 100, Synergy: 100}
	cfg.SellWeights = domain.ScoreWeights{Trend: 100, Band: 100, Volume: 100, RSI: 100, MACD: 100, Synergy: 100, Profit: 100}

	type window struct {
		name    string
		closes  []float64
		volumes []float64
	}
	var windows []window

	flat, flatVol := flatSeries(80, 100)
	windows = append(windows, window{"flat", flat, flatVol})

	crash, crashVol := crashSeries(80, 100, 70)
	windows = append(windows, window{"crash", crash, crashVol})

	spike, spikeVol := spikeSeries(80, 100, 140)
	windows = append(windows, window{"spike", spike, spikeVol})

	rising := make([]float64, 80)
	for i := range rising {
		rising[i] = 200 - float64(i) // most-recent-first uptrend
	}
	windows = append(windows, window{"rising", rising, flatVol})

	windows = append(windows, window{"empty", nil, nil})

	for _, w := range windows {
		t.Run(w.name, func(t *testing.T) {
			buy := svc.BuyScore(w.closes, w.volumes, &cfg)
			if buy.Score < 0 || buy.Score > 100 {
				t.Errorf("BuyScore = %f, out of [0,100]", buy.Score)
			}
			sell := svc.SellPressureScore(w.closes, w.volumes, 10, &cfg)
			if sell.Score < 0 || sell.Score > 100 {
				t.Errorf("SellPressureScore = %f, out of [0,100]", sell.Score)
			}
		})
	}
}

func TestBuyScoreCrashSetup(t *testing.T) {
	svc := usecase.NewScoreService()
	cfg := domain.DefaultStrategyConfig()

	closes, volumes := crashSeries(80, 100, 80)
	out := svc.BuyScore(closes, volumes, &cfg)

	// Band breakout, volume surge, oversold RSI and their synergy all
	// fire: 20 + 15 + 20 + 10 points under default weights.
	if !floatEquals(out.Score, 65) {
		t.Errorf("BuyScore = %f, want 65", out.Score)
	}
	if out.Breakdown.Band != 100 {
		t.Errorf("band sub-score = %f, want 100", out.Breakdown.Band)
	}
	if out.Breakdown.Volume != 100 {
		t.Errorf("volume sub-score = %f, want 100", out.Breakdown.Volume)
	}
	if out.Breakdown.RSI != 100 {
		t.Errorf("rsi sub-score = %f, want 100", out.Breakdown.RSI)
	}
	if out.Breakdown.Synergy != 100 {
		t.Errorf("synergy sub-score = %f, want 100", out.Breakdown.Synergy)
	}
	if len(out.Reasons) == 0 {
		t.Fatal("expected reasons on activated conditions")
	}
}

func TestSellPressureSpikeSetup(t *testing.T) {
	svc := usecase.NewScoreService()
	cfg := domain.DefaultStrategyConfig()

	closes, volumes := spikeSeries(80, 100, 130)
	out := svc.SellPressureScore(closes, volumes, 2.5, &cfg)

	if out.Breakdown.Band != 100 {
		t.Errorf("band sub-score = %f, want 100", out.Breakdown.Band)
	}
	if out.Breakdown.RSI != 100 {
		t.Errorf("rsi sub-score = %f, want 100", out.Breakdown.RSI)
	}
	if out.Breakdown.Profit != 50 {
		t.Errorf("profit sub-score = %f, want 50 at 2.5%%", out.Breakdown.Profit)
	}
	if out.Score <= 0 {
		t.Errorf("SellPressureScore = %f, want positive", out.Score)
	}
}

func TestScoreReasonsUniqueAndOrdered(t *testing.T) {
	svc := usecase.NewScoreService()
	cfg := domain.DefaultStrategyConfig()

	closes, volumes := crashSeries(80, 100, 80)
	out := svc.BuyScore(closes, volumes, &cfg)

	seen := make(map[string]bool)
	for _, r := range out.Reasons {
		if seen[r] {
			t.Errorf("duplicated reason within one call: %q", r)
		}
		seen[r] = true
	}
}

func TestScoreFlatSeriesStaysQuiet(t *testing.T) {
	svc := usecase.NewScoreService()
	cfg := domain.DefaultStrategyConfig()

	closes, volumes := flatSeries(80, 100)
	buy := svc.BuyScore(closes, volumes, &cfg)
	if buy.Score != 0 {
		t.Errorf("BuyScore on flat series = %f, want 0", buy.Score)
	}
	// A flat window has zero average loss, so the RSI convention puts
	// it at 100: the sell side scores its overbought tier (weight 20)
	// and nothing else.
	sell := svc.SellPressureScore(closes, volumes, 0, &cfg)
	if !floatEquals(sell.Score, 20) {
		t.Errorf("SellPressureScore on flat series = %f, want 20", sell.Score)
	}
}
