// Command seed populates the database with a demo fleet, routes and a
// week of future trips. It is idempotent enough to re-run: duplicate
// buses and routes are skipped, trips are always appended.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	busRepo := repository.NewBusRepo(db)
	routeRepo := repository.NewRouteRepo(db)
	tripRepo := repository.NewTripRepo(db)
	userRepo := repository.NewUserRepo(db)

	buses := []model.Bus{
		{BusNumber: "KA-01-F-1001", Capacity: 40, TypeOfBus: "seater", IsAvailable: true},
		{BusNumber: "KA-01-F-1002", Capacity: 30, TypeOfBus: "sleeper", IsAvailable: true},
		{BusNumber: "KA-01-F-1003", Capacity: 50, TypeOfBus: "seater", IsAvailable: true},
	}
	for i := range buses {
		if err := busRepo.Create(ctx, &buses[i]); err != nil {
			if errors.Is(err, repository.ErrBusNumberExists) {
				log.Printf("bus %s already exists, skipping", buses[i].BusNumber)
				continue
			}
			log.Fatalf("create bus: %v", err)
		}
	}

	routes := []model.Route{
		{LocationFrom: "Bengaluru", LocationTo: "Chennai"},
		{LocationFrom: "Bengaluru", LocationTo: "Hyderabad"},
		{LocationFrom: "Chennai", LocationTo: "Coimbatore"},
	}
	for i := range routes {
		if err := routeRepo.Create(ctx, &routes[i]); err != nil {
			if errors.Is(err, repository.ErrRouteExists) {
				log.Printf("route %s already exists, skipping", routes[i].RouteName())
				continue
			}
			log.Fatalf("create route: %v", err)
		}
	}

	// One trip per bus/route pair per day, departing 08:00 UTC, for the
	// next seven days.
	prices := []uint32{89900, 129900, 59900}
	start := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	created := 0
	for day := 0; day < 7; day++ {
		for i := range routes {
			if routes[i].ID == 0 || buses[i].ID == 0 {
				continue // skipped duplicates have no ID to schedule against
			}
			dep := start.AddDate(0, 0, day).Add(8 * time.Hour)
			trip := &model.Trip{
				BusID:         buses[i].ID,
				RouteID:       routes[i].ID,
				DepartureTime: dep,
				ArrivalTime:   dep.Add(6 * time.Hour),
				PriceCents:    prices[i],
			}
			if err := tripRepo.Create(ctx, trip); err != nil {
				log.Fatalf("create trip: %v", err)
			}
			created++
		}
	}
	log.Printf("seeded %d trips", created)

	if _, err := userRepo.Create(ctx, "admin@example.com", "admin123", model.RoleAdmin, cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			log.Printf("admin user already exists, skipping")
		} else {
			log.Fatalf("create admin: %v", err)
		}
	}
}
