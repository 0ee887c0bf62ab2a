package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"papermesh/config"
	"papermesh/engine"
	"papermesh/logger"
	"papermesh/storage"
)

// Server Web 服务，提供交易 API、事件推送与监控指标
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	store  *storage.Store
	hub    *Hub
	srv    *http.Server
}

// NewServer 创建 Web 服务
func NewServer(cfg *config.Config, eng *engine.Engine, store *storage.Store) *Server {
	return &Server{
		cfg:    cfg,
		engine: eng,
		store:  store,
		hub:    NewHub(store),
	}
}

// Start 启动 Web 服务（非阻塞）
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginLogger(), gin.Recovery())

	s.registerRoutes(router)
	s.hub.Start(ctx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("✅ Web 服务已启动: http://%s", addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ Web 服务异常退出: %v", err)
		}
	}()
	return nil
}

// Stop 优雅关闭
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	{
		api.POST("/orders", s.handleCreateOrder)
		api.GET("/orders", s.handleListOrders)
		api.GET("/orders/:id", s.handleGetOrder)
		api.POST("/orders/:id/cancel", s.handleCancelOrder)

		api.GET("/account", s.handleGetAccount)
		api.POST("/account/refresh", s.handleRefreshAccount)
		api.GET("/positions", s.handleListPositions)
		api.GET("/fills", s.handleListFills)
		api.GET("/daily-pnl", s.handleListDailyPnl)
		api.GET("/events", s.handleListEvents)

		api.GET("/kill-switch", s.handleGetKillSwitch)
		api.POST("/kill-switch", s.handleSetKillSwitch)
	}

	router.GET("/ws", s.hub.HandleWebSocket)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
