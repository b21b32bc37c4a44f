package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/payment"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the response cache and the rate limiter. A nil client
	// disables both and the API still works.
	rdb := config.NewRedisClient()
	var cacheMW, limiterMW echo.MiddlewareFunc
	if rdb != nil {
		if cc := config.LoadCacheConfig(); cc.Enabled {
			cacheMW = middleware.NewRedisCache(cc, rdb)
		}
		if rl := config.LoadRateLimitConfig(); rl.Enabled {
			limiterMW = middleware.NewTokenBucket(rl, rdb)
		}
	} else {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	buses := repository.NewBusRepo(db)
	routes := repository.NewRouteRepo(db)
	trips := repository.NewTripRepo(db)
	bookings := repository.NewBookingRepo(db)

	bookingSvc := service.NewBookingService(
		trips, bookings, payment.StubGateway{},
		time.Duration(cfg.HoldWindowMin)*time.Minute,
		time.Duration(cfg.CancelCutoffHours)*time.Hour,
	)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(trips, bookingSvc)
	bookingH := handler.NewBookingHandler(bookingSvc, bookings)
	adminH := handler.NewAdminHandler(buses, routes, trips, bookingSvc)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cacheMW)
	router.RegisterCustomer(e, bookingH, cfg.JWTSecret, limiterMW)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	// Booking event consumers run for the lifetime of the process and
	// reconnect on broker failures.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartCancellationConsumer(); err != nil {
			log.Printf("cancellation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
