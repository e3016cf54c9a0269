package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/andrv/crypto_score_bot/internal/infrastructure/exchange"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/logger"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/storage"
)

// Pulls minute candles from the exchange REST API into the sqlite
// candle store, so backtests can run offline.
func main() {
	var (
		dbPath = flag.String("db", "bot.db", "sqlite store path")
		market = flag.String("market", "KRW-BTC", "market code")
		unit   = flag.Int("unit", 60, "bar size in minutes")
		count  = flag.Int("count", 200, "number of candles to fetch (max 200 per request)")
		logLvl = flag.String("log", "info", "log level")
	)
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.NewConsoleLogger(*logLvl)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	adapter := exchange.NewUpbitAdapter(
		os.Getenv("UPBIT_ACCESS_KEY"),
		os.Getenv("UPBIT_SECRET_KEY"),
		os.Getenv("UPBIT_REST_ENDPOINT"),
		os.Getenv("UPBIT_WS_ENDPOINT"),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candles, err := adapter.GetCandles(ctx, *market, *unit, *count)
	if err != nil {
		log.Fatal("Fetch failed", zap.Error(err))
	}
	if err := store.SaveCandles(ctx, candles); err != nil {
		log.Fatal("Save failed", zap.Error(err))
	}

	total, err := store.CountCandles(ctx, *market, *unit)
	if err != nil {
		log.Fatal("Count failed", zap.Error(err))
	}
	log.Info("Candles stored",
		zap.String("market", *market),
		zap.Int("fetched", len(candles)),
		zap.Int("total", total))
}
