package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/andrv/crypto_score_bot/internal/domain"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/exchange"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/logger"
	"github.com/andrv/crypto_score_bot/internal/infrastructure/storage"
	"github.com/andrv/crypto_score_bot/internal/usecase"
	"github.com/andrv/crypto_score_bot/internal/web"
)

type Config struct {
	Markets  []string `yaml:"markets"`
	Unit     int      `yaml:"unit"`
	Schedule string   `yaml:"schedule"`
	Logging  struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Strategy *domain.StrategyParams `yaml:"strategy"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("no markets configured")
	}
	if cfg.Unit <= 0 {
		cfg.Unit = 60
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 * * * * *"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "bot.db"
	}
	return &cfg, nil
}

func main() {
	// API keys come from the environment; .env is optional.
	_ = godotenv.Load()

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
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
	defer adapter.Close()

	strategy := cfg.Strategy.Resolve()

	bot := usecase.NewTradeBotService(adapter, store, strategy, cfg.Unit, cfg.Markets, log)
	backtest := usecase.NewBacktestService(log)

	// Evaluate on the cron schedule; default is the top of every
	// minute (second-granularity cron expression).
	scheduler := cron.New(cron.WithSeconds())
	_, err = scheduler.AddFunc(cfg.Schedule, func() {
		bot.EvaluateAll(context.Background())
	})
	if err != nil {
		log.Fatal("Invalid schedule", zap.String("schedule", cfg.Schedule), zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Server.Port > 0 {
		server := web.NewServer(cfg.Server.Port, store, store, bot, backtest, strategy, log)
		go func() {
			if err := server.Start(); err != nil {
				log.Error("Web server stopped", zap.Error(err))
			}
		}()
		defer func() {
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error("Web server shutdown failed", zap.Error(err))
			}
		}()
	}

	log.Info("Bot started",
		zap.Strings("markets", cfg.Markets),
		zap.Int("unit", cfg.Unit),
		zap.String("schedule", cfg.Schedule))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("Shutting down")
}
