// Package router はアプリケーションの HTTP ルーティングを定義します。
package router

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	alerthandler "stock_alerts/internal/feature/alerts/transport/handler"
	candleshandler "stock_alerts/internal/feature/candles/transport/handler"
	realtimehandler "stock_alerts/internal/feature/realtime/transport/handler"
	"stock_alerts/internal/feature/realtime/transport/ws"
	symbollisthandler "stock_alerts/internal/feature/symbollist/transport/handler"
	"stock_alerts/internal/platform/http/handler"
	jwtmw "stock_alerts/internal/platform/jwt"
)

// Handlers はルーターに登録するハンドラー一式です。
type Handlers struct {
	Candles *candleshandler.CandlesHandler
	Symbols *symbollisthandler.SymbolHandler
	Alerts  *alerthandler.AlertHandler
	Admin   *alerthandler.AdminHandler
	Topics  *realtimehandler.TopicsHandler
	Socket  *ws.Handler
	Ready   gin.HandlerFunc
}

func NewRouter(h Handlers, adminUserIDs []uint) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// 認証不要
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	if h.Ready != nil {
		r.GET("/readyz", h.Ready)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket はトークンを接続時または auth メッセージで受け取る
	r.GET("/ws", h.Socket.Serve)

	// 認証必須のルート
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired())
	{
		auth.GET("/candles/:code", h.Candles.GetCandlesHandler)
		auth.GET("/candles/:code/quote", h.Candles.GetQuoteHandler)
		auth.GET("/symbols", h.Symbols.List)
		auth.GET("/symbols/:code", h.Symbols.Get)

		auth.GET("/alerts", h.Alerts.List)
		auth.POST("/alerts", h.Alerts.Create)
		auth.DELETE("/alerts/:id", h.Alerts.Delete)
	}

	// 運用向け
	admin := r.Group("/admin")
	admin.Use(jwtmw.AuthRequired(), jwtmw.RequireUsers(adminUserIDs))
	{
		admin.POST("/evaluate", h.Admin.Evaluate)
		admin.POST("/alerts/:id/rearm", h.Admin.Rearm)
		admin.GET("/topics", h.Topics.List)
	}

	return r
}

// requestLogger は1リクエストにつき1行を slog に出力します。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/healthz" || c.FullPath() == "/metrics" {
			return
		}
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
