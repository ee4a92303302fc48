package server

import (
	"context"
	"net/http"

	"film-resolver/app/config"
	"film-resolver/app/handler"
	"film-resolver/app/logger"
	"film-resolver/app/middleware"
	"film-resolver/app/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config  *config.Config
	Logger  *logger.Logger
	gin     *gin.Engine
	http    *http.Server
	service *service.ReconcileService
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, svc *service.ReconcileService, log *logger.Logger) *Server {
	router := gin.Default()
	router.Use(middleware.Metrics())

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:  cfg,
		Logger:  log,
		service: svc,
	}

	// 设置路由
	s.setupRoutes()

	return s
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown 停止接收请求并释放探测器连接
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.service.Close()
	return err
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	authHandler := handler.NewAuthHandler(s.Config)
	reconcileHandler := handler.NewReconcileHandler(s.service, s.Logger.Named("api"))

	s.gin.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API路由组
	api := s.gin.Group("/api")
	api.GET("/health", reconcileHandler.Health)

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// 需要JWT验证的路由
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(s.Config), middleware.AccessLog(s.Logger.Named("api")))
	{
		protected.POST("/reconcile", reconcileHandler.Reconcile)
		protected.POST("/classify", reconcileHandler.Classify)
		protected.POST("/score", reconcileHandler.Score)
	}
}
