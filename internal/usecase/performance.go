package usecase

import "github.com/andrv/crypto_score_bot/internal/domain"

// Performance aggregates a trade log. Wins and losses count sells
// only; buys have no realized outcome.
type Performance struct {
	TradeCount  int
	SellCount   int
	WinCount    int
	LossCount   int
	WinRate     float64
	TotalProfit float64
	TotalFees   float64
}

// AnalyzeTrades folds a trade log into win/loss counts, win rate, and
// realized profit.
func AnalyzeTrades(trades []domain.Trade) Performance {
	var p Performance
	p.TradeCount = len(trades)
	for _, t := range trades {
		p.TotalFees += t.Fee
		if t.Side != domain.SideSell {
			continue
		}
		p.SellCount++
		p.TotalProfit += t.RealizedProfit
		if t.RealizedProfit > 0 {
			p.WinCount++
		} else {
			p.LossCount++
		}
	}
	if p.SellCount > 0 {
		p.WinRate = float64(p.WinCount) / float64(p.SellCount) * 100
	}
	return p
}
