package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/api/handler"
	"github.com/Calum-Kerr/revisepdf-front/internal/api/middleware"
)

type Router struct {
	tierHandler      *handler.TierHandler
	accountHandler   *handler.AccountHandler
	operationHandler *handler.OperationHandler
	websocketHandler *handler.WebSocketHandler
	logger           zerolog.Logger
	cfg              *config.Config
}

func NewRouter(
	tierHandler *handler.TierHandler,
	accountHandler *handler.AccountHandler,
	operationHandler *handler.OperationHandler,
	websocketHandler *handler.WebSocketHandler,
	logger zerolog.Logger,
	cfg *config.Config,
) *Router {
	return &Router{
		tierHandler:      tierHandler,
		accountHandler:   accountHandler,
		operationHandler: operationHandler,
		websocketHandler: websocketHandler,
		logger:           logger,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket，令牌在查询参数中
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 套餐
		api.GET("/tiers", r.tierHandler.List)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.POST("/account", r.accountHandler.Create)
			authenticated.GET("/account", r.accountHandler.Get)

			user := authenticated.Group("/user")
			{
				user.GET("/stats", r.operationHandler.Stats)
				user.PUT("/subscription", r.accountHandler.ChangeTier)
			}

			operations := authenticated.Group("/operations")
			{
				operations.POST("", r.operationHandler.Record)
				operations.GET("", r.operationHandler.List)
				operations.POST("/preview", r.operationHandler.Preview)
			}
		}
	}

	return engine
}
