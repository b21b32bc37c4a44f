package model

import "time"

// Booking payment statuses.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Booking records one user's claim on one seat of one trip. A booking
// is created as a time-bound hold (pending payment, HoldExpiresAt set)
// and either becomes confirmed, is cancelled by its holder, or is
// reclaimed by the expiry sweep once the hold window passes.
//
// A booking is *active* (counts against seat and capacity
// availability) while it is not cancelled and is either confirmed or
// still inside its hold window. This predicate is evaluated in SQL by
// the booking repository; Active mirrors it for in-memory values.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – holder of the booking.
//  TripID        – trip the seat belongs to.
//  SeatNumber    – seat in [1, bus capacity].
//  PaymentStatus – pending, paid, failed or refunded.
//  IsConfirmed   – set when payment succeeded.
//  IsCancelled   – set by holder cancellation, trip cancellation or the sweep.
//  HoldExpiresAt – end of the hold window; nil once confirmed.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
	ID            uint64     // bookings.id
	UserID        uint64     // bookings.user_id
	TripID        uint64     // bookings.trip_id
	SeatNumber    uint32     // bookings.seat_number
	PaymentStatus string     // bookings.payment_status
	IsConfirmed   bool       // bookings.is_confirmed
	IsCancelled   bool       // bookings.is_cancelled
	HoldExpiresAt *time.Time // bookings.hold_expires_at (nullable)
	CreatedAt     time.Time  // bookings.created_at
	UpdatedAt     time.Time  // bookings.updated_at
}

// Active reports whether the booking holds its seat at the given
// instant. Keying the hold arm on HoldExpiresAt rather than on the
// payment status means a failed payment keeps the seat until the
// original window runs out, matching the SQL predicate.
func (b Booking) Active(asOf time.Time) bool {
	if b.IsCancelled {
		return false
	}
	if b.IsConfirmed {
		return true
	}
	return b.HoldExpiresAt != nil && b.HoldExpiresAt.After(asOf)
}
