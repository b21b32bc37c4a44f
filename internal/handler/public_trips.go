package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// PublicHandler serves the unauthenticated browsing endpoints: trip
// listings, trip details and per-trip seat availability.
type PublicHandler struct {
	Trips    *repository.TripRepo
	Bookings *service.BookingService
}

// NewPublicHandler constructs a PublicHandler. Both dependencies must
// be non-nil.
func NewPublicHandler(trips *repository.TripRepo, bookings *service.BookingService) *PublicHandler {
	if trips == nil || bookings == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Trips: trips, Bookings: bookings}
}

// ListTrips handles GET /v1/trips. Optional query parameters: from and
// to filter on route endpoints, q matches the bus number or route
// name, sort orders by departure_time, price or created_at with a
// leading "-" for descending.
func (h *PublicHandler) ListTrips(c echo.Context) error {
	q := repository.TripSearchQuery{
		From: c.QueryParam("from"),
		To:   c.QueryParam("to"),
		Text: c.QueryParam("q"),
		Sort: c.QueryParam("sort"),
	}
	trips, err := h.Trips.SearchActive(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": trips})
}

// GetTrip handles GET /v1/trips/:id.
func (h *PublicHandler) GetTrip(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	trip, err := h.Trips.GetActiveRow(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, trip)
}

// TripSeats handles GET /v1/trips/:id/seats. The snapshot reflects
// expired holds being reclaimed at read time.
func (h *PublicHandler) TripSeats(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	av, err := h.Bookings.AvailableSeats(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, av)
}
