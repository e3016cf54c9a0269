package domain_test

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

func TestResolveNilParamsYieldsDefaults(t *testing.T) {
	var p *domain.StrategyParams
	cfg := p.Resolve()
	def := domain.DefaultStrategyConfig()
	if cfg != def {
		t.Errorf("nil params resolved to %+v, want defaults", cfg)
	}
}

func TestResolvePartialOverride(t *testing.T) {
	period := 10
	threshold := 65.0
	p := &domain.StrategyParams{
		BandPeriod:   &period,
		BuyThreshold: &threshold,
	}
	cfg := p.Resolve()
	if cfg.BandPeriod != 10 {
		t.Errorf("BandPeriod = %d, want 10", cfg.BandPeriod)
	}
	if cfg.BuyThreshold != 65 {
		t.Errorf("BuyThreshold = %f, want 65", cfg.BuyThreshold)
	}
	// Untouched fields keep their defaults.
	if cfg.RSIPeriod != 14 {
		t.Errorf("RSIPeriod = %d, want default 14", cfg.RSIPeriod)
	}
	if cfg.SellThreshold != 70 {
		t.Errorf("SellThreshold = %f, want default 70", cfg.SellThreshold)
	}
}

func TestResolveWeightsMergePerKey(t *testing.T) {
	trend := 40.0
	p := &domain.StrategyParams{
		BuyWeights: &domain.WeightParams{Trend: &trend},
	}
	cfg := p.Resolve()
	if cfg.BuyWeights.Trend != 40 {
		t.Errorf("BuyWeights.Trend = %f, want 40", cfg.BuyWeights.Trend)
	}
	// Siblings in the same block must not reset to zero.
	if cfg.BuyWeights.Band != 20 {
		t.Errorf("BuyWeights.Band = %f, want default 20", cfg.BuyWeights.Band)
	}
	if cfg.BuyWeights.MACD != 20 {
		t.Errorf("BuyWeights.MACD = %f, want default 20", cfg.BuyWeights.MACD)
	}
	// The other side stays fully default.
	if cfg.SellWeights.Profit != 10 {
		t.Errorf("SellWeights.Profit = %f, want default 10", cfg.SellWeights.Profit)
	}
}

func TestResolveDisablePyramiding(t *testing.T) {
	off := false
	p := &domain.StrategyParams{PyramidingEnabled: &off}
	cfg := p.Resolve()
	if cfg.PyramidingEnabled {
		t.Error("PyramidingEnabled = true, want false")
	}
}

func TestResolveFromYAML(t *testing.T) {
	raw := `
band_period: 15
stop_loss_pct: 2.5
buy_weights:
  rsi: 30
`
	var p domain.StrategyParams
	if err := yaml.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cfg := p.Resolve()
	if cfg.BandPeriod != 15 {
		t.Errorf("BandPeriod = %d, want 15", cfg.BandPeriod)
	}
	if cfg.StopLossPct != 2.5 {
		t.Errorf("StopLossPct = %f, want 2.5", cfg.StopLossPct)
	}
	if cfg.BuyWeights.RSI != 30 {
		t.Errorf("BuyWeights.RSI = %f, want 30", cfg.BuyWeights.RSI)
	}
	if cfg.BuyWeights.Trend != 25 {
		t.Errorf("BuyWeights.Trend = %f, want default 25", cfg.BuyWeights.Trend)
	}
	if cfg.MACDLong != 26 {
		t.Errorf("MACDLong = %d, want default 26", cfg.MACDLong)
	}
}

func TestMinHistory(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	// Slow trend MA (60) dominates the default lookbacks.
	if got := cfg.MinHistory(); got != 60 {
		t.Errorf("MinHistory() = %d, want 60", got)
	}

	cfg.SlowTrendPeriod = 10
	cfg.BandPeriod = 10
	// MACD long+signal-1 = 34 takes over.
	if got := cfg.MinHistory(); got != 34 {
		t.Errorf("MinHistory() = %d, want 34", got)
	}

	cfg.MACDLong = 3
	cfg.MACDSignal = 2
	cfg.RSIPeriod = 14
	// RSI needs period+1 closes.
	if got := cfg.MinHistory(); got != 15 {
		t.Errorf("MinHistory() = %d, want 15", got)
	}
}
