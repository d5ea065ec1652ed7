package api

import (
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rotisserie-backend/config"
	"rotisserie-backend/internal/mw"
	"rotisserie-backend/internal/telemetry"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, metrics *telemetry.Metrics, cfg config.ServerConfig, logger zerolog.Logger) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(logger), metrics.GinMiddleware())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// The dashboard is polled by every screen in the shop.
	cacheStore := cache.New(cfg.CacheTTL(), 2*cfg.CacheTTL())
	caching := mw.Cache(cacheStore, cfg.CacheTTL())

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/customers", handler.ListCustomers)
		api.POST("/customers", handler.CreateCustomer)
		api.GET("/customers/phone/:phone", handler.FindCustomerByPhone)
		api.GET("/customers/:id", handler.GetCustomer)
		api.PUT("/customers/:id", handler.UpdateCustomer)
		api.DELETE("/customers/:id", handler.DeleteCustomer)
		api.GET("/customers/:id/orders", handler.ListCustomerOrders)

		api.GET("/orders", handler.ListOrders)
		api.POST("/orders", handler.CreateOrder)
		api.GET("/orders/pending", handler.ListPendingOrders)
		api.GET("/orders/unpaid", handler.ListUnpaidOrders)
		api.GET("/orders/awaiting-delivery", handler.ListAwaitingDelivery)
		api.GET("/orders/:id", handler.GetOrder)
		api.PUT("/orders/:id", handler.UpdateOrder)
		api.PATCH("/orders/:id/paid", handler.MarkPaid)
		api.PATCH("/orders/:id/delivered", handler.MarkDelivered)
		api.DELETE("/orders/:id", handler.DeleteOrder)

		api.GET("/machines", handler.GetBoard)
		api.POST("/machines", handler.AddMachine)
		api.PATCH("/machines/:id", handler.RenameMachine)
		api.DELETE("/machines/:id", handler.RemoveMachine)
		api.PUT("/machines/:id/slots/:position", handler.OccupySlot)
		api.DELETE("/machines/:id/slots/:position", handler.ReleaseSlot)
		api.GET("/cook-options", handler.GetCookOptions)

		api.GET("/dashboard", caching, handler.GetDashboard)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
