package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/motosaga/moto-saga/internal/config"
	"github.com/motosaga/moto-saga/internal/database"
	"github.com/motosaga/moto-saga/internal/gateway"
	"github.com/motosaga/moto-saga/internal/handler"
	"github.com/motosaga/moto-saga/internal/queue"
	"github.com/motosaga/moto-saga/internal/repository"
	"github.com/motosaga/moto-saga/internal/router"
	"github.com/motosaga/moto-saga/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(database.Config{
		User:         cfg.DBUser,
		Pass:         cfg.DBPass,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		Name:         cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpen,
		MaxIdleConns: cfg.DBMaxIdle,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is optional: a nil client disables the response cache and turns
	// the rate limiter into a pass-through.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	payments := repository.NewPaymentRepo(db)

	razorpay := gateway.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	paypal := gateway.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalMode)
	publisher := queue.NewPublisher(cfg.RabbitURL)

	svc := service.NewRSVPService(events, payments, razorpay, paypal, publisher, cfg.RazorpayKeyID)

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg, users),
		Events:    handler.NewEventHandler(events, users, svc),
		Payments:  handler.NewPaymentHandler(svc, razorpay, payments, events, users),
		Admin:     handler.NewAdminHandler(users, events, payments),
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
