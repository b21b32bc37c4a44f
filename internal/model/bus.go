package model

import "time"

// Bus represents a physical vehicle that trips are scheduled on.
// Capacity fixes the seat numbering for every trip the bus serves:
// seats are numbered 1..Capacity and there is no per-seat record.
//
// Fields:
//  ID          – primary key identifier.
//  BusNumber   – unique registration/display number.
//  Capacity    – number of seats (positive).
//  TypeOfBus   – free-form classification (e.g. "sleeper", "seater").
//  IsAvailable – whether the bus can be assigned to new trips.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Bus struct {
	ID          uint64    // buses.id
	BusNumber   string    // buses.bus_number
	Capacity    uint32    // buses.capacity
	TypeOfBus   string    // buses.type_of_bus
	IsAvailable bool      // buses.is_available
	CreatedAt   time.Time // buses.created_at
	UpdatedAt   time.Time // buses.updated_at
}
