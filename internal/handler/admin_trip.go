package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// AdminHandler bundles the fleet and trip management endpoints. The
// role middleware restricts all of them to ADMIN users.
type AdminHandler struct {
	Buses    *repository.BusRepo
	Routes   *repository.RouteRepo
	Trips    *repository.TripRepo
	Bookings *service.BookingService
}

// NewAdminHandler constructs an AdminHandler and panics if any
// dependency is nil.
func NewAdminHandler(buses *repository.BusRepo, routes *repository.RouteRepo, trips *repository.TripRepo, bookings *service.BookingService) *AdminHandler {
	if buses == nil || routes == nil || trips == nil || bookings == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Buses: buses, Routes: routes, Trips: trips, Bookings: bookings}
}

// CreateBus handles POST /v1/buses.
func (h *AdminHandler) CreateBus(c echo.Context) error {
	var body struct {
		BusNumber string `json:"bus_number"`
		Capacity  uint32 `json:"capacity"`
		TypeOfBus string `json:"type_of_bus"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.BusNumber == "" || body.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_number and capacity are required"})
	}
	bus := &model.Bus{
		BusNumber:   body.BusNumber,
		Capacity:    body.Capacity,
		TypeOfBus:   body.TypeOfBus,
		IsAvailable: true,
	}
	if err := h.Buses.Create(c.Request().Context(), bus); err != nil {
		if errors.Is(err, repository.ErrBusNumberExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "bus number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create bus failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":          bus.ID,
		"bus_number":  bus.BusNumber,
		"capacity":    bus.Capacity,
		"type_of_bus": bus.TypeOfBus,
	})
}

// ListBuses handles GET /v1/buses and returns available buses.
func (h *AdminHandler) ListBuses(c echo.Context) error {
	buses, err := h.Buses.ListAvailable(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(buses))
	for _, b := range buses {
		out = append(out, echo.Map{
			"id":          b.ID,
			"bus_number":  b.BusNumber,
			"capacity":    b.Capacity,
			"type_of_bus": b.TypeOfBus,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"buses": out})
}

// CreateRoute handles POST /v1/routes.
func (h *AdminHandler) CreateRoute(c echo.Context) error {
	var body struct {
		LocationFrom string `json:"location_from"`
		LocationTo   string `json:"location_to"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.LocationFrom == "" || body.LocationTo == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "location_from and location_to are required"})
	}
	if body.LocationFrom == body.LocationTo {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "endpoints must differ"})
	}
	rt := &model.Route{LocationFrom: body.LocationFrom, LocationTo: body.LocationTo}
	if err := h.Routes.Create(c.Request().Context(), rt); err != nil {
		if errors.Is(err, repository.ErrRouteExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "route already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create route failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         rt.ID,
		"route_name": rt.RouteName(),
	})
}

// ListRoutes handles GET /v1/routes.
func (h *AdminHandler) ListRoutes(c echo.Context) error {
	routes, err := h.Routes.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(routes))
	for _, rt := range routes {
		out = append(out, echo.Map{
			"id":         rt.ID,
			"route_name": rt.RouteName(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"routes": out})
}

// CreateTrip handles POST /v1/trips. Times are RFC 3339 and must be
// in order: departure in the future, arrival after departure.
func (h *AdminHandler) CreateTrip(c echo.Context) error {
	var body struct {
		BusID         uint64  `json:"bus_id"`
		RouteID       uint64  `json:"route_id"`
		DepartureTime string  `json:"departure_time"`
		ArrivalTime   string  `json:"arrival_time"`
		Price         float64 `json:"price"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.BusID == 0 || body.RouteID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_id and route_id are required"})
	}
	dep, err := time.Parse(time.RFC3339, body.DepartureTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid departure_time"})
	}
	arr, err := time.Parse(time.RFC3339, body.ArrivalTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid arrival_time"})
	}
	if !arr.After(dep) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "arrival must be after departure"})
	}
	if !dep.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure must be in the future"})
	}
	if body.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}

	ctx := c.Request().Context()
	bus, err := h.Buses.GetByID(ctx, body.BusID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !bus.IsAvailable {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bus is not available"})
	}
	if _, err := h.Routes.GetByID(ctx, body.RouteID); err != nil {
		if errors.Is(err, repository.ErrRouteNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	trip := &model.Trip{
		BusID:         body.BusID,
		RouteID:       body.RouteID,
		DepartureTime: dep.UTC(),
		ArrivalTime:   arr.UTC(),
		PriceCents:    uint32(body.Price * 100),
	}
	if err := h.Trips.Create(ctx, trip); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create trip failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":             trip.ID,
		"bus_id":         trip.BusID,
		"route_id":       trip.RouteID,
		"departure_time": trip.DepartureTime,
		"arrival_time":   trip.ArrivalTime,
		"price_cents":    trip.PriceCents,
		"status":         trip.Status,
	})
}

// CancelTrip handles POST /v1/trips/:id/cancel. Cancelling cascades:
// every remaining booking on the trip is cancelled in the same
// transaction, paid ones refunded.
func (h *AdminHandler) CancelTrip(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	n, err := h.Bookings.CancelTrip(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTripNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		case errors.Is(err, repository.ErrTripAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip already cancelled"})
		case errors.Is(err, repository.ErrTripCompleted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip already completed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel trip failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip_id":            id,
		"status":             model.TripCancelled,
		"bookings_cancelled": n,
	})
}

// CompleteTrip handles POST /v1/trips/:id/complete.
func (h *AdminHandler) CompleteTrip(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	if err := h.Bookings.CompleteTrip(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTripNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		case errors.Is(err, repository.ErrTripAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip already cancelled"})
		case errors.Is(err, repository.ErrTripCompleted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip already completed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete trip failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trip_id": id,
		"status":  model.TripCompleted,
	})
}
