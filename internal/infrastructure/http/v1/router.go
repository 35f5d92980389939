// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/app"
	"stockflow/internal/domain/auth"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency stores replayable responses; nil disables the middleware.
	Idempotency middleware.IdempotencyStore

	// HealthChecks are probed by /health/ready.
	HealthChecks map[string]handlers.Pinger

	Production         bool
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SecureHeaders(cfg.Production))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins, cfg.Production))

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	v1.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	registerRoutes(v1, cfg.Services)
	return router
}

func registerRoutes(rg *gin.RouterGroup, svc *app.Services) {
	base := handlers.NewBaseHandler()
	read := middleware.RequirePermission(auth.PermStockRead)

	purchases := handlers.NewPurchaseHandler(base, svc.Purchases)
	{
		g := rg.Group("/purchases")
		write := middleware.RequirePermission(auth.PermPurchasesWrite)
		g.GET("", read, purchases.List)
		g.GET("/:id", read, purchases.Get)
		g.POST("", write, purchases.Create)
		g.PUT("/:id", write, purchases.Update)
		g.DELETE("/:id", write, purchases.Delete)
	}

	sales := handlers.NewSaleHandler(base, svc.Sales)
	{
		g := rg.Group("/sales")
		write := middleware.RequirePermission(auth.PermSalesWrite)
		g.GET("", read, sales.List)
		g.GET("/:id", read, sales.Get)
		g.POST("", write, sales.Create)
		g.PUT("/:id", write, sales.Update)
		g.DELETE("/:id", write, sales.Delete)
	}

	movements := handlers.NewStockMovementHandler(base, svc.Adjustments, svc.Ledger)
	{
		g := rg.Group("/stock-movements")
		write := middleware.RequirePermission(auth.PermStockWrite)
		g.GET("", read, movements.List)
		g.POST("", write, movements.Create)
		g.PUT("/:id", write, movements.Update)
		g.DELETE("/:id", write, movements.Delete)
	}

	products := handlers.NewProductHandler(base, svc.Products, svc.Reconcile)
	rg.GET("/products/:id/stock", read, products.Stock)
}
