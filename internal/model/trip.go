package model

import "time"

// Trip statuses. A trip starts scheduled and ends in exactly one of
// the two terminal states.
const (
	TripScheduled = "scheduled"
	TripCompleted = "completed"
	TripCancelled = "cancelled"
)

// Trip is a scheduled departure of one bus over one route. New holds
// are accepted only while the trip is scheduled, active and its
// departure lies in the future.
//
// Fields:
//  ID            – primary key identifier.
//  BusID         – bus serving the trip.
//  RouteID       – route the trip runs.
//  DepartureTime – scheduled departure (UTC).
//  ArrivalTime   – scheduled arrival (UTC), strictly after departure.
//  PriceCents    – ticket price in cents.
//  Status        – scheduled, completed or cancelled.
//  IsActive      – whether the trip is visible/bookable.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Trip struct {
	ID            uint64    // trips.id
	BusID         uint64    // trips.bus_id
	RouteID       uint64    // trips.route_id
	DepartureTime time.Time // trips.departure_time
	ArrivalTime   time.Time // trips.arrival_time
	PriceCents    uint32    // trips.price_cents
	Status        string    // trips.status
	IsActive      bool      // trips.is_active
	CreatedAt     time.Time // trips.created_at
	UpdatedAt     time.Time // trips.updated_at
}

// Bookable reports whether the trip accepts new holds at the given
// instant: it must be scheduled, active and not yet departed.
func (t Trip) Bookable(asOf time.Time) bool {
	return t.IsActive && t.Status == TripScheduled && t.DepartureTime.After(asOf)
}
