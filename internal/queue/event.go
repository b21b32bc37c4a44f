// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// BookingConfirmedEvent is published when a seat hold is successfully
// paid and confirmed. It carries enough information for downstream
// consumers to log or notify without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64    `json:"booking_id"`
	UserID      uint64    `json:"user_id"`
	TripID      uint64    `json:"trip_id"`
	SeatNumber  uint32    `json:"seat_number"`
	PriceCents  uint32    `json:"price_cents"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a holder cancels their own
// booking. PaymentStatus records the terminal outcome: refunded when
// the booking had been paid, failed otherwise.
type BookingCancelledEvent struct {
	BookingID     uint64    `json:"booking_id"`
	UserID        uint64    `json:"user_id"`
	TripID        uint64    `json:"trip_id"`
	SeatNumber    uint32    `json:"seat_number"`
	PaymentStatus string    `json:"payment_status"`
	CancelledAt   time.Time `json:"cancelled_at"`
}
