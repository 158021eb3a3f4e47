package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/api"
	"github.com/Calum-Kerr/revisepdf-front/internal/api/handler"
	"github.com/Calum-Kerr/revisepdf-front/internal/api/validate"
	"github.com/Calum-Kerr/revisepdf-front/internal/database"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/logger"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/pubsub"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/queue"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/ws"
	"github.com/Calum-Kerr/revisepdf-front/internal/repository"
	"github.com/Calum-Kerr/revisepdf-front/internal/service"
)

func main() {
	// .env 可选，用于本地开发注入 JWT_SECRET 等环境变量
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

	catalog, err := cfg.Catalog()
	if err != nil {
		lg.Fatal().Err(err).Msg("invalid tier catalog")
	}

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal().Err(err).Msg("failed to migrate database")
	}
	lg.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to connect redis")
	}
	lg.Info().Msg("redis connected")

	if err := validate.Register(); err != nil {
		lg.Fatal().Err(err).Msg("failed to register validators")
	}

	// 初始化 Queue 和 Pub/Sub
	alertQueue := queue.NewQueue(rdb, cfg.Queue.AlertQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()

	// 初始化 Repository
	accountRepo := repository.NewAccountRepository(db)
	operationRepo := repository.NewOperationRepository(db)

	// 初始化 Service
	ledgerService := service.NewLedgerService(accountRepo, operationRepo, catalog, publisher, alertQueue, cfg)
	accountService := service.NewAccountService(accountRepo, catalog)

	// 初始化 Handler
	tierHandler := handler.NewTierHandler(catalog)
	accountHandler := handler.NewAccountHandler(accountService)
	operationHandler := handler.NewOperationHandler(ledgerService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins)

	// 初始化 Router
	router := api.NewRouter(
		tierHandler,
		accountHandler,
		operationHandler,
		websocketHandler,
		lg,
		cfg,
	)
	engine := router.Setup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 用量消息转发到对应用户的 WebSocket 连接
	go func() {
		err := subscriber.Subscribe(ctx, func(msg *pubsub.UsageMessage) {
			if !wsHub.IsOnline(msg.UserID) {
				return
			}
			if err := wsHub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
				lg.Warn().Err(err).Str("user_id", msg.UserID).Msg("failed to push usage update")
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			lg.Error().Err(err).Msg("usage subscriber stopped")
		}
	}()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	lg.Info().Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("server shutdown failed")
	}
	if err := rdb.Close(); err != nil {
		lg.Warn().Err(err).Msg("failed to close redis")
	}
	lg.Info().Msg("server stopped")
}
