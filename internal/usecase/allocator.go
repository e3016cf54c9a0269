package usecase

import "github.com/andrv/crypto_score_bot/internal/domain"

// Allocator maps a graded decision and the current account state to a
// concrete order size. A returned 0 means no trade: orders below the
// exchange minimum are rejected here, never rounded up.
type Allocator struct{}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// BuyAmount maps a score linearly onto [minTradeValue, maxTradeValue]
// where the ceiling is the configured fraction of available cash. The
// result is capped so amount plus fee never exceeds cash.
func (a *Allocator) BuyAmount(score, cash float64, cfg *domain.StrategyConfig) float64 {
	minV := cfg.MinTradeValue
	maxV := cash * cfg.MaxBuyRatio
	if maxV < minV {
		maxV = minV
	}

	var amount float64
	switch {
	case score <= 0:
		amount = minV
	case score >= 100:
		amount = maxV
	default:
		amount = minV + (maxV-minV)*score/100
	}

	if affordable := cash / (1 + cfg.FeeRate); amount > affordable {
		amount = affordable
	}
	if amount < cfg.MinTradeValue {
		return 0
	}
	return amount
}

// PyramidAmount sizes an add-on buy as a fraction of the current
// position's value, not the account balance, scaled by a score-derived
// ratio in [0.5, 1.0]. The same max-ratio ceiling applies.
func (a *Allocator) PyramidAmount(score, positionValue, cash float64, cfg *domain.StrategyConfig) float64 {
	ratio := score/200 + 0.5
	if ratio < 0.5 {
		ratio = 0.5
	}
	if ratio > 1 {
		ratio = 1
	}
	amount := positionValue * cfg.PyramidBaseFraction * ratio

	if ceiling := cash * cfg.MaxBuyRatio; amount > ceiling {
		amount = ceiling
	}
	if affordable := cash / (1 + cfg.FeeRate); amount > affordable {
		amount = affordable
	}
	if amount < cfg.MinTradeValue {
		return 0
	}
	return amount
}

// SellVolume sizes a sell. Protective exits liquidate everything. An
// indicator-driven sell at score >= 80 also goes full; below that the
// fraction grows linearly from 60% at the sell threshold to 100% at
// score 100, falling back to a full exit when the residual would drop
// below the minimum tradable value.
func (a *Allocator) SellVolume(score, price float64, pos *domain.Position, protective bool, cfg *domain.StrategyConfig) float64 {
	if !pos.Held() {
		return 0
	}
	if protective || score >= 80 {
		return pos.Volume
	}

	threshold := cfg.SellThreshold
	fraction := 1.0
	if threshold < 100 {
		fraction = 0.6 + 0.4*(score-threshold)/(100-threshold)
	}
	if fraction < 0.6 {
		fraction = 0.6
	}
	if fraction > 1 {
		fraction = 1
	}

	volume := pos.Volume * fraction
	if residual := pos.Volume - volume; residual*price < cfg.MinTradeValue {
		volume = pos.Volume
	}
	if volume > pos.Volume {
		volume = pos.Volume
	}
	if volume*price < cfg.MinTradeValue {
		return 0
	}
	return volume
}
