// README: HTTP router registration.
package http

import (
	"github.com/gin-gonic/gin"

	"skyeats/internal/http/handlers"
	"skyeats/internal/http/middleware"
	"skyeats/internal/infra"
	"skyeats/internal/modules/cart"
	"skyeats/internal/modules/catalog"
	"skyeats/internal/modules/dispatch"
	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/modules/payment"
	"skyeats/internal/modules/tracking"
)

// Services bundles everything the router needs wired in.
type Services struct {
	Orders      *order.Service
	Dispatch    *dispatch.Service
	Drones      *drone.Service
	Payments    *payment.Service
	Carts       *cart.Store
	Catalog     *catalog.Store
	Hub         *tracking.Hub
	Tracking    *tracking.Handler
	FrontendURL string
}

func NewRouter(verifier infra.TokenVerifier, s Services) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	orderHandler := handlers.NewOrderHandler(s.Orders, s.Dispatch)
	shopHandler := handlers.NewShopHandler(s.Orders, s.Dispatch, s.Drones)
	droneHandler := handlers.NewDroneHandler(s.Drones, s.Orders, s.Hub)
	paymentHandler := handlers.NewPaymentHandler(s.Payments, s.FrontendURL)
	cartHandler := handlers.NewCartHandler(s.Carts, s.Catalog)

	// Gateway callbacks authenticate with the request signature, not a token.
	r.GET("/api/payments/return", paymentHandler.Return)
	r.GET("/api/payments/ipn", paymentHandler.IPN)

	api := r.Group("/api", middleware.Auth(verifier))

	customer := api.Group("", middleware.RequireRole("customer"))
	customer.POST("/orders", orderHandler.Create)
	customer.GET("/orders", orderHandler.List)
	customer.GET("/orders/:id", orderHandler.Get)
	customer.POST("/orders/:id/cancel", orderHandler.Cancel)
	customer.POST("/orders/:id/verify", orderHandler.Verify)
	customer.POST("/payments/initiate", paymentHandler.Initiate)
	customer.GET("/payments", paymentHandler.List)
	customer.GET("/payments/:id", paymentHandler.Get)
	customer.POST("/payments/:id/refund", paymentHandler.Refund)
	customer.GET("/cart", cartHandler.Get)
	customer.PUT("/cart", cartHandler.Put)
	customer.DELETE("/cart", cartHandler.Clear)

	operator := api.Group("", middleware.RequireRole("operator"))
	operator.GET("/shop/orders", shopHandler.List)
	operator.GET("/shop/orders/:id", shopHandler.Get)
	operator.PUT("/shop/orders/:id/status", shopHandler.UpdateStatus)
	operator.GET("/shop/orders/:id/drones", shopHandler.EligibleDrones)
	operator.POST("/shop/orders/:id/assign", shopHandler.Assign)
	operator.PUT("/shop/orders/:id/battery", shopHandler.UpdateBattery)
	operator.POST("/drones", droneHandler.Register)
	operator.PUT("/drones/:id/status", droneHandler.SetStatus)

	droneAPI := api.Group("", middleware.RequireRole("drone"))
	droneAPI.PUT("/drones/:id/position", droneHandler.UpdatePosition)
	droneAPI.GET("/drones/:id/active-order", droneHandler.ActiveOrder)

	// Any authenticated caller may listen on an order's channel; only drone
	// tokens get their position reports honored.
	r.GET("/ws/orders/:id/track", middleware.Auth(verifier), func(c *gin.Context) {
		s.Tracking.Serve(c, middleware.CallerRole(c))
	})

	return r
}
