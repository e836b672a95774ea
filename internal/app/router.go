package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"rental/internal/handler"
	"rental/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	ReservationHandler *handler.ReservationHandler
	PaymentHandler     *handler.PaymentHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
	JWTSecret          string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthRequired(deps.JWTSecret)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Reservation routes.
		reservations := v1.Group("/reservations", authRequired)
		{
			reservations.POST("", deps.ReservationHandler.Create)
			reservations.GET("/my", deps.ReservationHandler.GetMine)

			reservations.GET("", adminOnly, deps.ReservationHandler.GetAll)
			reservations.GET("/:id", adminOnly, deps.ReservationHandler.Get)
			reservations.PUT("/:id", adminOnly, deps.ReservationHandler.Update)
			reservations.DELETE("/:id", adminOnly, deps.ReservationHandler.Delete)
			reservations.POST("/:id/pay-manual", adminOnly, deps.ReservationHandler.PayManual)
			reservations.POST("/:id/cancel", adminOnly, deps.ReservationHandler.Cancel)
		}

		// Payment routes. The webhook endpoint is public: authenticity is
		// established by signature verification, not by a bearer token.
		payments := v1.Group("/payments")
		{
			payments.POST("/checkout", authRequired, deps.PaymentHandler.CreateCheckout)
			payments.POST("/webhook", deps.PaymentHandler.HandleWebhook)
		}
	}

	return router
}
