package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/database"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/email"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/logger"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/queue"
	"github.com/Calum-Kerr/revisepdf-front/internal/worker"
)

func main() {
	_ = godotenv.Load()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := logger.New(cfg.Log)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()
	lg.Info().Msg("redis connected")

	alertQueue := queue.NewQueue(rdb, cfg.Queue.AlertQueue)
	mailer := email.NewService(&cfg.Email)

	// 创建提醒处理器
	processor := worker.NewProcessor(mailer, cfg, lg)

	// 监听退出信号
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lg.Info().
		Str("queue", cfg.Queue.AlertQueue).
		Int("max_workers", cfg.Queue.MaxWorkers).
		Msg("worker started")

	processor.Run(ctx, alertQueue, cfg.Queue.MaxWorkers)

	lg.Info().Msg("worker shutdown complete")
}
