package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"freight/internal/handler"
	"freight/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CargoHandler        *handler.CargoHandler
	DriverHandler       *handler.DriverHandler
	TripHandler         *handler.TripHandler
	VehicleHandler      *handler.VehicleHandler
	PaymentHandler      *handler.PaymentHandler
	NotificationHandler *handler.NotificationHandler
	RedisClient         *redis.Client
	NewRelicApp         *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// The verify callback is hit by the provider's redirect, which
	// carries no actor headers, so it sits outside the actor guard.
	router.GET("/v1/payments/:id/verify", deps.PaymentHandler.Verify)

	// API v1 routes. Everything below requires a resolved actor.
	v1 := router.Group("/v1")
	v1.Use(middleware.ActorMiddleware())
	{
		cargo := v1.Group("/cargo-requests")
		{
			cargo.POST("", deps.CargoHandler.Create)
			cargo.GET("", deps.CargoHandler.GetAll)
			cargo.GET("/:id", deps.CargoHandler.Get)
			cargo.POST("/:id/accept", deps.CargoHandler.Accept)
			cargo.POST("/:id/reject", deps.CargoHandler.Reject)
			cargo.POST("/:id/cancel", deps.CargoHandler.Cancel)
			cargo.DELETE("/:id", deps.CargoHandler.Delete)
		}

		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/:id", deps.DriverHandler.Get)
			drivers.PATCH("/:id/status", deps.DriverHandler.UpdateStatus)
			drivers.GET("/:id/active-trip", deps.TripHandler.GetActiveForDriver)
		}

		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("", deps.VehicleHandler.Create)
			vehicles.GET("/:id", deps.VehicleHandler.Get)
		}

		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.Create)
			trips.GET("", deps.TripHandler.GetAll)
			trips.GET("/:id", deps.TripHandler.Get)
			trips.POST("/:id/start", deps.TripHandler.Start)
			trips.POST("/:id/complete", deps.TripHandler.Complete)
			trips.POST("/:id/cancel", deps.TripHandler.Cancel)
			trips.POST("/:id/tracking-points", deps.TripHandler.AddTrackingPoint)
			trips.GET("/:id/tracking-points", deps.TripHandler.GetTrackingPoints)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.Create)
			payments.GET("/:id", deps.PaymentHandler.Get)
			payments.POST("/:id/refund", deps.PaymentHandler.Refund)
			payments.POST("/:id/reconcile", deps.PaymentHandler.Reconcile)
			payments.GET("/:id/history", deps.PaymentHandler.GetHistory)
		}

		v1.GET("/notifications", deps.NotificationHandler.GetMine)
	}

	return router
}
