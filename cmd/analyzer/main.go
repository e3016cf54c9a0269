package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/storage"
	"github.com/andrv/crypto_score_bot/internal/usecase"
)

// Reads the persisted trade log and prints an aggregate performance
// report, overall and per market.
func main() {
	var (
		dbPath = flag.String("db", "bot.db", "sqlite store path")
		market = flag.String("market", "", "restrict to one market")
	)
	flag.Parse()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	stored, err := store.ListTrades(context.Background(), *market, 0)
	if err != nil {
		fmt.Printf("Error listing trades: %v\n", err)
		os.Exit(1)
	}
	if len(stored) == 0 {
		fmt.Println("No trades recorded.")
		return
	}

	byMarket := make(map[string][]domain.Trade)
	var all []domain.Trade
	for _, t := range stored {
		all = append(all, *t)
		byMarket[t.Market] = append(byMarket[t.Market], *t)
	}

	fmt.Println("=== Overall ===")
	printPerformance(usecase.AnalyzeTrades(all))

	for m, trades := range byMarket {
		fmt.Printf("\n=== %s ===\n", m)
		printPerformance(usecase.AnalyzeTrades(trades))
	}
}

func printPerformance(p usecase.Performance) {
	fmt.Printf("Trades:       %d (%d sells)\n", p.TradeCount, p.SellCount)
	fmt.Printf("Wins/Losses:  %d / %d (win rate %.1f%%)\n", p.WinCount, p.LossCount, p.WinRate)
	fmt.Printf("Realized PnL: %s\n", humanize.CommafWithDigits(p.TotalProfit, 0))
	fmt.Printf("Fees paid:    %s\n", humanize.CommafWithDigits(p.TotalFees, 2))
}
