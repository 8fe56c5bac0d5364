package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/server/handlers"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the HTTP adapters. Webhook and Reports may be nil when the
// matching integration is disabled.
type Handlers struct {
	Distribution *handlers.DistributionHandler
	Reports      *handlers.ReportHandler
	Webhook      *handlers.WebhookHandler
	Health       Pinger
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", healthz(h.Health))

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
	}

	api := r.Group("/api/v1", handlers.Authenticate(jwtSecret, logger))

	d := h.Distribution
	api.POST("/farmers/me", d.RegisterFarmer)
	api.GET("/farmers/me/dashboard", d.Dashboard)

	api.POST("/requests", d.CreateRequest)
	api.GET("/requests", d.ListRequests)
	api.GET("/requests/:id/status", d.RequestStatus)
	api.POST("/requests/:id/approve", d.ApproveRequest)
	api.POST("/requests/:id/reject", d.RejectRequest)
	api.POST("/requests/:id/sale", d.CompleteSale)

	api.GET("/sales", d.ListSales)

	api.GET("/stock", d.ListStock)
	api.POST("/stock", d.AddStock)
	api.PATCH("/stock/:id/availability", d.SetAvailability)

	api.GET("/overview", d.Overview)

	if h.Reports != nil {
		api.GET("/reports/daily", h.Reports.Daily)
	}
	if h.Webhook != nil {
		api.POST("/messages", h.Webhook.SendMessage)
	}

	logger.Info("router initialized")

	return r
}

func healthz(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
