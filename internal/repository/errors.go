// Package repository defines error types that are reused across multiple
// repositories and the booking service. These sentinel values allow
// higher layers such as handlers to distinguish between different
// failure scenarios with errors.Is and map each one onto an HTTP
// status. Every value below is an expected, recoverable-by-caller
// outcome: a failed precondition guarantees zero state change.
package repository

import "errors"

// ErrTripNotFound indicates that no trip with the requested ID exists
// (or that it is hidden from the caller, e.g. inactive on public reads).
var ErrTripNotFound = errors.New("trip not found")

// ErrTripNotBookable is returned when a hold is requested on a trip
// that does not exist, is not active or is no longer scheduled.
var ErrTripNotBookable = errors.New("trip not bookable")

// ErrTripDeparted is returned when a hold is requested after the
// trip's departure time has passed.
var ErrTripDeparted = errors.New("trip already departed")

// ErrTripFull is returned when the trip's active bookings already
// occupy every seat of its bus.
var ErrTripFull = errors.New("trip fully booked")

// ErrTripAlreadyCancelled is returned when cancelling a trip that is
// already in the cancelled state.
var ErrTripAlreadyCancelled = errors.New("trip already cancelled")

// ErrTripCompleted is returned when an operation is not legal on a
// completed trip (cancelling its bookings, completing it again).
var ErrTripCompleted = errors.New("trip completed")

// ErrSeatOutOfRange is returned when the requested seat number falls
// outside [1, bus capacity].
var ErrSeatOutOfRange = errors.New("seat number out of range")

// ErrSeatUnavailable is returned when the requested seat is already
// held or booked. Losing a concurrent insert race surfaces as this
// same error: the duplicate-key verdict from the database is
// translated once, in the booking repository.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrBookingNotFound indicates that no booking with the requested ID
// exists.
var ErrBookingNotFound = errors.New("booking not found")

// ErrNotOwner is returned when the caller attempts an operation on a
// booking held by someone else. Handlers should translate this into
// an HTTP 403 response.
var ErrNotOwner = errors.New("not booking owner")

// ErrAlreadyCancelled is returned when acting on a booking that is
// already cancelled (including holds reclaimed by the expiry sweep).
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrHoldExpired is returned when confirming a hold whose window has
// already run out. The expiry sweep reclaims the row in the same
// transaction that detects this.
var ErrHoldExpired = errors.New("hold expired")

// ErrTooLateToCancel is returned when a holder-initiated cancellation
// arrives inside the cutoff window before departure.
var ErrTooLateToCancel = errors.New("too late to cancel")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")
