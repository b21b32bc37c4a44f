package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// BookingHandler exposes the customer booking endpoints: placing a
// seat hold, paying for it, cancelling it and listing one's bookings.
// All methods assume JWT authentication has already run.
type BookingHandler struct {
	Bookings    *service.BookingService
	BookingRepo *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler. Both dependencies
// must be non-nil.
func NewBookingHandler(svc *service.BookingService, repo *repository.BookingRepo) *BookingHandler {
	if svc == nil || repo == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: svc, BookingRepo: repo}
}

// Hold handles POST /v1/trips/:id/hold. The body carries the seat
// number; on success the created hold is returned with its expiry so
// the client can show a countdown.
func (h *BookingHandler) Hold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	var body struct {
		SeatNumber uint32 `json:"seat_number"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number is required"})
	}

	b, err := h.Bookings.CreateHold(c.Request().Context(), userID, tripID, body.SeatNumber)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTripNotBookable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip is not open for booking"})
		case errors.Is(err, repository.ErrTripDeparted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip already departed"})
		case errors.Is(err, repository.ErrSeatOutOfRange):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat number out of range"})
		case errors.Is(err, repository.ErrSeatUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable"})
		case errors.Is(err, repository.ErrTripFull):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip fully booked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hold failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":      b.ID,
		"trip_id":         b.TripID,
		"seat_number":     b.SeatNumber,
		"payment_status":  b.PaymentStatus,
		"hold_expires_at": b.HoldExpiresAt,
	})
}

// Pay handles POST /v1/bookings/:id/pay. It charges the hold and, on
// approval, confirms the booking. Re-paying a confirmed booking is a
// no-op success.
func (h *BookingHandler) Pay(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	b, err := h.Bookings.ConfirmBooking(c.Request().Context(), userID, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrNotOwner):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		case errors.Is(err, repository.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		case errors.Is(err, repository.ErrHoldExpired):
			return c.JSON(http.StatusConflict, echo.Map{"error": "hold expired"})
		case errors.Is(err, service.ErrPaymentDeclined):
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment declined"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     b.ID,
		"trip_id":        b.TripID,
		"seat_number":    b.SeatNumber,
		"payment_status": b.PaymentStatus,
		"is_confirmed":   b.IsConfirmed,
	})
}

// Cancel handles POST /v1/bookings/:id/cancel. Only the booking's
// holder may cancel, and only while the trip's cancellation window is
// open.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	if err := h.Bookings.CancelBooking(c.Request().Context(), userID, bookingID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrNotOwner):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		case errors.Is(err, repository.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		case errors.Is(err, repository.ErrTripCompleted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip already completed"})
		case errors.Is(err, repository.ErrTooLateToCancel):
			return c.JSON(http.StatusConflict, echo.Map{"error": "too late to cancel"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// MyBookings handles GET /v1/my-bookings and lists the caller's
// bookings, newest first, with trip details attached.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.BookingRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}
