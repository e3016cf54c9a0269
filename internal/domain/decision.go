package domain

type Action string

const (
	ActionHold Action = "hold"
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// BuyOrder carries the fields meaningful to a buy decision. Amount 0
// means the allocator decides how much to invest.
type BuyOrder struct {
	Price       float64
	Amount      float64
	Incremental bool
}

// SellOrder carries the fields meaningful to a sell decision. Volume 0
// means the allocator decides the fraction; a protective exit sets the
// full position volume explicitly.
type SellOrder struct {
	Price  float64
	Volume float64
}

// Decision is what the signal engine emits per evaluation tick. The
// Action tag says which variant is populated: Buy for buys, Sell for
// sells, neither for hold.
type Decision struct {
	Action Action
	Market string
	Score  float64
	Reason string
	Buy    *BuyOrder
	Sell   *SellOrder
}

func HoldDecision(market string, score float64, reason string) Decision {
	return Decision{Action: ActionHold, Market: market, Score: score, Reason: reason}
}
