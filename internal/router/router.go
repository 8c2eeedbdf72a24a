// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/handlers"
	"github.com/javajoker/storefront/internal/middleware"
	"github.com/javajoker/storefront/internal/services"
)

// Dependencies are the external resources the routes run against. Redis,
// Events, Gateway and CartLimiter are optional.
type Dependencies struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Events      services.EventPublisher
	Gateway     services.PaymentGateway
	CartLimiter *middleware.RateLimiter
}

func Initialize(cfg *config.Config, deps Dependencies) *gin.Engine {
	db := deps.DB

	if deps.Events == nil {
		deps.Events = services.NewEventPublisher(cfg.Kafka)
	}
	if deps.Gateway == nil {
		deps.Gateway = services.NewStripeGateway(cfg.Payment)
	}
	if deps.CartLimiter == nil {
		deps.CartLimiter = middleware.NewCartRateLimiter(cfg.RateLimit)
	}

	// Initialize services
	sessionService := services.NewSessionService(services.NewSessionStore(db, deps.Redis), cfg.Session)
	catalogService := services.NewCatalogService(db)
	cartService := services.NewCartService(db, catalogService)
	checkoutService := services.NewCheckoutService(db, cartService, deps.Gateway, deps.Events)
	paymentService := services.NewPaymentService(db, deps.Gateway, cartService, deps.Events)

	// Initialize handlers
	session := handlers.NewSessionResolver(sessionService, cfg.Session)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService, session)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, cartService, session)
	paymentHandler := handlers.NewPaymentHandler(paymentService, session)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	limited := deps.CartLimiter.Middleware()

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Catalog routes
		products := v1.Group("/products")
		{
			products.GET("", catalogHandler.GetProducts)
			products.GET("/:slug", catalogHandler.GetProduct)
		}

		// Cart routes
		cart := v1.Group("/cart")
		{
			cart.GET("", cartHandler.GetSummary)
			cart.GET("/modal", cartHandler.GetModal)
			cart.GET("/count", cartHandler.GetCount)

			cart.GET("/add/:slug", cartHandler.RedirectToProduct)
			cart.GET("/update/:item_id", cartHandler.RedirectToSummary)
			cart.GET("/remove/:item_id", cartHandler.RedirectToSummary)
			cart.GET("/clear", cartHandler.RedirectToSummary)

			cart.POST("/add/:slug", limited, cartHandler.AddItem)
			cart.POST("/update/:item_id", limited, cartHandler.UpdateItem)
			cart.POST("/remove/:item_id", limited, cartHandler.RemoveItem)
			cart.POST("/clear", limited, cartHandler.Clear)
		}

		// Checkout and order routes
		v1.GET("/checkout", checkoutHandler.GetCheckout)
		v1.POST("/checkout", limited, checkoutHandler.PlaceOrder)

		orders := v1.Group("/orders")
		{
			orders.GET("", checkoutHandler.GetOrders)
			orders.GET("/:id", checkoutHandler.GetOrder)
		}

		// Payment routes
		stripe := v1.Group("/payment/stripe")
		{
			stripe.POST("/webhook", paymentHandler.StripeWebhook)
			stripe.GET("/success", paymentHandler.StripeSuccess)
			stripe.GET("/cancel", paymentHandler.StripeCancel)
		}
	}

	return r
}
