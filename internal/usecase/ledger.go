package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

// Order rejections are valid outcomes, not faults: the caller treats
// them as a hold for the tick. Anything else out of the ledger would
// be a programming error.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientVolume = errors.New("insufficient volume")
	ErrBelowMinTrade      = errors.New("order value below minimum")
)

// IsOrderRejection reports whether an error is a silent order
// rejection rather than a true fault.
func IsOrderRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientVolume) ||
		errors.Is(err, ErrBelowMinTrade)
}

// positionEpsilon is the volume below which a position is considered
// closed. Avoids floating-point residue positions after full sells.
const positionEpsilon = 1e-8

// Ledger owns cash, per-market positions, and the append-only trade
// log for one run. It is not synchronized; the replay loop is
// sequential and the live service serializes access around it.
type Ledger struct {
	initialBalance float64
	balance        float64
	feeRate        float64
	minTradeValue  float64
	positions      map[string]*domain.Position
	trades         []domain.Trade
	lastPrices     map[string]float64
	seq            int
}

func NewLedger(initialBalance, feeRate, minTradeValue float64) *Ledger {
	l := &Ledger{
		initialBalance: initialBalance,
		feeRate:        feeRate,
		minTradeValue:  minTradeValue,
	}
	l.Reset()
	return l
}

// Reset returns the ledger to its initial state between runs.
func (l *Ledger) Reset() {
	l.balance = l.initialBalance
	l.positions = make(map[string]*domain.Position)
	l.trades = nil
	l.lastPrices = make(map[string]float64)
	l.seq = 0
}

// MarkPrice records the last observed price for mark-to-market
// valuation.
func (l *Ledger) MarkPrice(market string, price float64) {
	l.lastPrices[market] = price
}

// Buy invests amount at price, debiting cash plus fee and folding the
// volume into the position's weighted-average entry price.
func (l *Ledger) Buy(market string, price, amount float64, ts time.Time) (*domain.Trade, error) {
	if price <= 0 {
		return nil, fmt.Errorf("invalid buy price %f", price)
	}
	if amount < l.minTradeValue {
		return nil, fmt.Errorf("buy %s for %.2f: %w", market, amount, ErrBelowMinTrade)
	}
	fee := amount * l.feeRate
	if l.balance < amount+fee {
		return nil, fmt.Errorf("buy %s for %.2f (fee %.2f, cash %.2f): %w", market, amount, fee, l.balance, ErrInsufficientFunds)
	}

	volume := amount / price
	l.balance -= amount + fee

	pos := l.positions[market]
	if pos == nil {
		l.positions[market] = &domain.Position{
			Market:        market,
			Volume:        volume,
			AvgEntryPrice: price,
			UpdatedAt:     ts,
		}
	} else {
		pos.AvgEntryPrice = (pos.AvgEntryPrice*pos.Volume + price*volume) / (pos.Volume + volume)
		pos.Volume += volume
		pos.BuyCount++
		pos.UpdatedAt = ts
	}

	trade := domain.Trade{
		ID:        l.nextTradeID(market, domain.SideBuy, ts),
		Market:    market,
		Side:      domain.SideBuy,
		OrdType:   "price",
		Price:     price,
		Volume:    volume,
		Amount:    amount,
		Fee:       fee,
		Timestamp: ts,
	}
	l.trades = append(l.trades, trade)
	return &trade, nil
}

// Sell disposes volume at price, crediting cash net of fee and
// computing realized profit against the average entry price. The
// position record is removed once its volume falls below epsilon.
func (l *Ledger) Sell(market string, price, volume float64, ts time.Time) (*domain.Trade, error) {
	if price <= 0 {
		return nil, fmt.Errorf("invalid sell price %f", price)
	}
	pos := l.positions[market]
	if pos == nil || pos.Volume+positionEpsilon < volume {
		return nil, fmt.Errorf("sell %s volume %f: %w", market, volume, ErrInsufficientVolume)
	}
	gross := price * volume
	if gross < l.minTradeValue {
		return nil, fmt.Errorf("sell %s for %.2f: %w", market, gross, ErrBelowMinTrade)
	}

	fee := gross * l.feeRate
	profit := (price-pos.AvgEntryPrice)*volume - fee

	l.balance += gross - fee
	pos.Volume -= volume
	pos.UpdatedAt = ts
	if pos.Volume <= positionEpsilon {
		delete(l.positions, market)
	}

	trade := domain.Trade{
		ID:             l.nextTradeID(market, domain.SideSell, ts),
		Market:         market,
		Side:           domain.SideSell,
		OrdType:        "market",
		Price:          price,
		Volume:         volume,
		Amount:         gross,
		Fee:            fee,
		RealizedProfit: profit,
		Timestamp:      ts,
	}
	l.trades = append(l.trades, trade)
	return &trade, nil
}

// nextTradeID derives a name-based UUID from the order sequence, so
// identical runs produce identical trade logs.
func (l *Ledger) nextTradeID(market string, side domain.Side, ts time.Time) string {
	l.seq++
	key := fmt.Sprintf("%s|%s|%d|%d", market, side, l.seq, ts.UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func (l *Ledger) Balance() float64 {
	return l.balance
}

func (l *Ledger) InitialBalance() float64 {
	return l.initialBalance
}

// Position returns a snapshot copy, or nil when the market has no
// holding. Callers never see internal state they could mutate.
func (l *Ledger) Position(market string) *domain.Position {
	pos := l.positions[market]
	if pos == nil {
		return nil
	}
	snapshot := *pos
	return &snapshot
}

// Trades returns a copy of the append-only trade log.
func (l *Ledger) Trades() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// TotalValue is cash plus every position marked to the last seen
// price, falling back to the average entry price before any mark.
func (l *Ledger) TotalValue() float64 {
	total := l.balance
	for market, pos := range l.positions {
		price, ok := l.lastPrices[market]
		if !ok {
			price = pos.AvgEntryPrice
		}
		total += pos.Volume * price
	}
	return total
}
