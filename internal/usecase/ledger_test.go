package usecase_test

import (
	"testing"
	"time"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/usecase"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestLedgerBuyAverageCost(t *testing.T) {
	ledger := usecase.NewLedger(1_000_000, 0, 1000)

	// First buy into an empty position: average entry is exactly P.
	if _, err := ledger.Buy("KRW-BTC", 100, 10_000, t0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	pos := ledger.Position("KRW-BTC")
	if pos == nil || !floatEquals(pos.AvgEntryPrice, 100) {
		t.Fatalf("AvgEntryPrice = %+v, want exactly 100", pos)
	}
	if !floatEquals(pos.Volume, 100) {
		t.Errorf("Volume = %f, want 100", pos.Volume)
	}

	// Buying again at the same price must not move the average,
	// regardless of volume.
	if _, err := ledger.Buy("KRW-BTC", 100, 50_000, t0.Add(time.Hour)); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	pos = ledger.Position("KRW-BTC")
	if !floatEquals(pos.AvgEntryPrice, 100) {
		t.Errorf("AvgEntryPrice after same-price buy = %f, want 100", pos.AvgEntryPrice)
	}
	if pos.BuyCount != 1 {
		t.Errorf("BuyCount = %d, want 1 after one add-on", pos.BuyCount)
	}
}

func TestLedgerWeightedAverage(t *testing.T) {
	ledger := usecase.NewLedger(1_000_000, 0, 1000)

	// 100 units at 100, then 100 units at 200: average 150.
	if _, err := ledger.Buy("KRW-BTC", 100, 10_000, t0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if _, err := ledger.Buy("KRW-BTC", 200, 20_000, t0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	pos := ledger.Position("KRW-BTC")
	if !floatEquals(pos.AvgEntryPrice, 150) {
		t.Errorf("AvgEntryPrice = %f, want 150", pos.AvgEntryPrice)
	}
}

func TestLedgerSellRealizedProfit(t *testing.T) {
	feeRate := 0.001
	ledger := usecase.NewLedger(1_000_000, feeRate, 1000)

	if _, err := ledger.Buy("KRW-BTC", 100, 10_000, t0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	// Sell all 100 units at 110.
	trade, err := ledger.Sell("KRW-BTC", 110, 100, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	wantFee := 110.0 * 100 * feeRate
	wantProfit := (110.0-100.0)*100 - wantFee
	if !floatEquals(trade.Fee, wantFee) {
		t.Errorf("Fee = %f, want %f", trade.Fee, wantFee)
	}
	if !floatEquals(trade.RealizedProfit, wantProfit) {
		t.Errorf("RealizedProfit = %f, want %f", trade.RealizedProfit, wantProfit)
	}

	// Full sell removes the position entirely.
	if pos := ledger.Position("KRW-BTC"); pos != nil {
		t.Errorf("position after full sell = %+v, want removed", pos)
	}
}

func TestLedgerConservation(t *testing.T) {
	feeRate := 0.0005
	initial := 1_000_000.0
	ledger := usecase.NewLedger(initial, feeRate, 1000)

	mustBuy := func(price, amount float64) {
		t.Helper()
		if _, err := ledger.Buy("KRW-BTC", price, amount, t0); err != nil {
			t.Fatalf("Buy failed: %v", err)
		}
	}
	mustSell := func(price, volume float64) {
		t.Helper()
		if _, err := ledger.Sell("KRW-BTC", price, volume, t0); err != nil {
			t.Fatalf("Sell failed: %v", err)
		}
	}

	mustBuy(100, 200_000)
	mustBuy(90, 100_000)
	mustSell(120, 1500)
	mustBuy(110, 50_000)
	mustSell(95, 500)

	// Cash plus holdings at cost reconciles with initial balance,
	// realized profit, and buy-side fees: nothing else creates or
	// destroys value.
	var realized, buyFees float64
	for _, trade := range ledger.Trades() {
		if trade.Side == domain.SideSell {
			realized += trade.RealizedProfit
		} else {
			buyFees += trade.Fee
		}
	}
	holdingsAtCost := 0.0
	if pos := ledger.Position("KRW-BTC"); pos != nil {
		holdingsAtCost = pos.Volume * pos.AvgEntryPrice
	}

	lhs := ledger.Balance() + holdingsAtCost
	rhs := initial + realized - buyFees
	if !floatEquals(lhs, rhs) {
		t.Errorf("conservation violated: cash+cost %f != initial+realized-buyFees %f", lhs, rhs)
	}
}

func TestLedgerRejections(t *testing.T) {
	ledger := usecase.NewLedger(10_000, 0.001, 5000)

	// Below minimum trade value.
	if _, err := ledger.Buy("KRW-BTC", 100, 1000, t0); !usecase.IsOrderRejection(err) {
		t.Errorf("Buy below minimum: err = %v, want order rejection", err)
	}
	// More than cash plus fee.
	if _, err := ledger.Buy("KRW-BTC", 100, 10_000, t0); !usecase.IsOrderRejection(err) {
		t.Errorf("Buy beyond cash: err = %v, want order rejection", err)
	}
	// Selling without volume.
	if _, err := ledger.Sell("KRW-BTC", 100, 1, t0); !usecase.IsOrderRejection(err) {
		t.Errorf("Sell without volume: err = %v, want order rejection", err)
	}

	// Rejections leave no trace.
	if n := len(ledger.Trades()); n != 0 {
		t.Errorf("trade log has %d entries after rejections, want 0", n)
	}
	if !floatEquals(ledger.Balance(), 10_000) {
		t.Errorf("balance changed by rejected orders: %f", ledger.Balance())
	}
}

func TestLedgerTotalValue(t *testing.T) {
	ledger := usecase.NewLedger(100_000, 0, 1000)

	if _, err := ledger.Buy("KRW-BTC", 100, 50_000, t0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	// No mark yet: valuation falls back to the average entry price.
	if !floatEquals(ledger.TotalValue(), 100_000) {
		t.Errorf("TotalValue = %f, want 100000 at cost", ledger.TotalValue())
	}

	// Marked price moves the valuation.
	ledger.MarkPrice("KRW-BTC", 120)
	if !floatEquals(ledger.TotalValue(), 50_000+500*120) {
		t.Errorf("TotalValue = %f, want 110000 after mark", ledger.TotalValue())
	}
}

func TestLedgerReset(t *testing.T) {
	ledger := usecase.NewLedger(100_000, 0, 1000)
	if _, err := ledger.Buy("KRW-BTC", 100, 50_000, t0); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	ledger.Reset()
	if !floatEquals(ledger.Balance(), 100_000) {
		t.Errorf("Balance after reset = %f, want 100000", ledger.Balance())
	}
	if ledger.Position("KRW-BTC") != nil {
		t.Error("position survived reset")
	}
	if len(ledger.Trades()) != 0 {
		t.Error("trade log survived reset")
	}
}
