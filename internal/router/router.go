package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/motosaga/moto-saga/internal/config"
	"github.com/motosaga/moto-saga/internal/handler"
	"github.com/motosaga/moto-saga/internal/middleware"
)

// Deps bundles everything route registration needs: the handlers, the JWT
// secret for the auth middleware, and the optional Redis-backed cache and
// rate limit configuration.
type Deps struct {
	Auth     *handler.AuthHandler
	Events   *handler.EventHandler
	Payments *handler.PaymentHandler
	Admin    *handler.AdminHandler

	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// Register wires every route onto the provided Echo instance. The layout:
//
//	/healthz                          public, unauthenticated
//	/v1/auth/*                        public (signup, login)
//	/v1/events GET                    public browse, response-cached
//	/v1/payments/razorpay/webhook     public, HMAC-authenticated
//	/v1/*                             JWT-protected
//	/v1/admin/*                       JWT-protected + admin role
//
// The rate limiter applies globally so unauthenticated routes are covered
// too; it degrades to pass-through when Redis is unavailable.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.RateLimit(d.RateLimit, d.Redis))

	e.GET("/healthz", handler.Health)

	// Routes that do not require an existing session.
	auth := e.Group("/v1/auth")
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/login", d.Auth.Login)

	// Public browse endpoints. The event feed is the hottest read on the
	// platform, so it sits behind the response cache.
	cached := middleware.ResponseCache(d.Cache, d.Redis)
	e.GET("/v1/events", d.Events.List, cached)
	e.GET("/v1/events/:id", d.Events.Get, cached)

	// Gateway callbacks carry no JWT; the webhook handler verifies the
	// HMAC signature over the raw body instead.
	e.POST("/v1/payments/razorpay/webhook", d.Payments.RazorpayWebhook)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))

	v1.GET("/auth/me", d.Auth.Me)
	v1.GET("/users/:id", d.Auth.GetProfile)
	v1.PUT("/users/:id", d.Auth.UpdateProfile)

	v1.POST("/events", d.Events.Create, middleware.RequireAdmin())
	v1.POST("/events/:id/rsvp", d.Events.ToggleRSVP)
	v1.PUT("/events/:id", d.Events.Update)
	v1.DELETE("/events/:id", d.Events.Delete)

	v1.POST("/payments/razorpay/create-order", d.Payments.RazorpayCreateOrder)
	v1.POST("/payments/razorpay/verify-payment", d.Payments.RazorpayVerify)
	v1.POST("/payments/paypal/create-order", d.Payments.PayPalCreateOrder)
	v1.POST("/payments/paypal/capture-order", d.Payments.PayPalCapture)
	v1.GET("/payments/my-payments", d.Payments.MyPayments)
	v1.GET("/payments/:id", d.Payments.Get)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.GET("/stats", d.Admin.Stats)
	admin.GET("/users", d.Admin.ListUsers)
	admin.GET("/payments", d.Admin.ListPayments)
}
