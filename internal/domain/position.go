package domain

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Position is a holding in one market. Volume 0 means no position;
// the ledger removes such records rather than keeping them around.
type Position struct {
	Market        string
	Volume        float64
	AvgEntryPrice float64
	UpdatedAt     time.Time
	BuyCount      int // incremental buys so far, caps pyramiding
}

// Value is the position's worth at the given price.
func (p *Position) Value(price float64) float64 {
	if p == nil {
		return 0
	}
	return p.Volume * price
}

// Held reports whether there is an actual holding.
func (p *Position) Held() bool {
	return p != nil && p.Volume > 0
}

// Trade is one executed order, append-only in the ledger's log.
// RealizedProfit is only meaningful for sells.
type Trade struct {
	ID             string
	Market         string
	Side           Side
	OrdType        string // "price" (market buy by amount) or "market" (sell by volume)
	Price          float64
	Volume         float64
	Amount         float64 // Price * Volume
	Fee            float64
	RealizedProfit float64
	Timestamp      time.Time
}
