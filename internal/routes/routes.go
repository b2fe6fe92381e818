package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/handlers"
	"github.com/01moynul/stepup-orders/internal/middleware"
)

// Options carries the router settings that come from configuration.
type Options struct {
	AllowedOrigins []string
	TrustedProxies []string // empty: client IP is the socket peer
	MediaRoot      string
	Log            *zap.Logger
}

func SetupRouter(h *handlers.Handlers, tokens middleware.TokenValidator, opts Options) (*gin.Engine, error) {
	handlers.RegisterValidators()

	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(opts.Log))

	// CORS must run before auth so preflight requests are answered.
	router.Use(middleware.CORSMiddleware(opts.AllowedOrigins))

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if opts.MediaRoot != "" {
		router.Static("/media", opts.MediaRoot)
	}

	// --- Protected Routes (Login Required) ---
	auth := router.Group("/")
	auth.Use(middleware.AuthMiddleware(tokens))
	{
		// Orders
		auth.POST("/checkout", h.Checkout)
		auth.POST("/cancelOrder", h.CancelOrder)
		auth.POST("/submitRating", h.SubmitRating)
		auth.GET("/getOrders", h.GetOrders)
		auth.POST("/getOrders", h.GetOrders)
		auth.GET("/orders/:id", h.GetOrderDetails)

		// Cart
		auth.GET("/getCart", h.GetCart)
		auth.POST("/getCart", h.GetCart)
		auth.POST("/addToCart", h.AddToCart)
		auth.POST("/updateCartQuantity", h.UpdateCartQuantity)
		auth.POST("/removeFromCart", h.RemoveFromCart)

		// --- Admin Routes ---
		admin := auth.Group("/")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.POST("/updateOrderStatus", h.UpdateOrderStatus)
			admin.POST("/updateDeliveryDate", h.UpdateDeliveryDate)
			admin.POST("/removeOrder", h.RemoveOrder)
			admin.GET("/admin_orders", h.AdminOrders)
		}
	}

	return router, nil
}
