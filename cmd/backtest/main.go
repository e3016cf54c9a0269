package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/feed"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/logger"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/storage"
	"github.com/andrv/crypto_score_bot/internal/usecase"
)

func main() {
	var (
		csvPath      = flag.String("csv", "", "candle CSV file (oldest-first)")
		dbPath       = flag.String("db", "", "sqlite candle store (alternative to -csv)")
		market       = flag.String("market", "KRW-BTC", "market code")
		unit         = flag.Int("unit", 60, "bar size in minutes")
		balance      = flag.Float64("balance", 1_000_000, "initial balance")
		strategyPath = flag.String("strategy", "", "strategy params yaml (defaults when empty)")
		saveRun      = flag.Bool("save", false, "persist the run result into -db")
		logLevel     = flag.String("log", "info", "log level")
	)
	flag.Parse()

	log, err := logger.NewConsoleLogger(*logLevel)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadStrategy(*strategyPath)
	if err != nil {
		log.Fatal("Failed to load strategy", zap.Error(err))
	}

	var candles []domain.Candle
	var store *storage.SQLiteStore
	switch {
	case *csvPath != "":
		candles, err = feed.LoadCandlesCSV(*csvPath)
	case *dbPath != "":
		store, err = storage.NewSQLiteStore(*dbPath)
		if err == nil {
			defer store.Close()
			candles, err = store.GetCandles(context.Background(), *market, *unit, 0)
		}
	default:
		fmt.Println("Either -csv or -db is required")
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("Failed to load candles", zap.Error(err))
	}
	if len(candles) == 0 {
		log.Fatal("No candles loaded", zap.String("market", *market))
	}

	result, err := usecase.NewBacktestService(log).Run(*market, *unit, candles, &cfg, *balance)
	if err != nil {
		log.Fatal("Backtest failed", zap.Error(err))
	}

	printReport(result)

	if *saveRun && store != nil {
		if err := store.SaveRun(context.Background(), result); err != nil {
			log.Error("Failed to persist run", zap.Error(err))
		}
	}
}

func loadStrategy(path string) (domain.StrategyConfig, error) {
	if path == "" {
		return domain.DefaultStrategyConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StrategyConfig{}, err
	}
	var params domain.StrategyParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return domain.StrategyConfig{}, err
	}
	return params.Resolve(), nil
}

func printReport(r *domain.RunResult) {
	fmt.Printf("\n=== Backtest %s (%dm candles) ===\n", r.Market, r.Unit)
	fmt.Printf("Period:        %s .. %s\n", r.StartedAt.Format("2006-01-02 15:04"), r.FinishedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Balance:       %s -> %s\n",
		humanize.CommafWithDigits(r.InitialBalance, 0),
		humanize.CommafWithDigits(r.FinalBalance, 0))
	fmt.Printf("Return:        %+.2f%%\n", r.TotalReturnPct)
	fmt.Printf("Trades:        %d (%d wins / %d losses, win rate %.1f%%)\n",
		r.TradeCount, r.WinCount, r.LossCount, r.WinRate)
	fmt.Printf("Max drawdown:  %.2f%%\n", r.MaxDrawdownPct)

	if len(r.Trades) == 0 {
		return
	}
	fmt.Println("\nTrades:")
	for _, t := range r.Trades {
		line := fmt.Sprintf("  %s  %-4s %12s @ %-12s fee %s",
			t.Timestamp.Format("2006-01-02 15:04"), t.Side,
			humanize.CommafWithDigits(t.Amount, 0),
			humanize.CommafWithDigits(t.Price, 2),
			humanize.CommafWithDigits(t.Fee, 2))
		if t.Side == domain.SideSell {
			line += fmt.Sprintf("  pnl %+.0f", t.RealizedProfit)
		}
		fmt.Println(line)
	}
}
