package model

import "time"

// Route describes a pair of endpoints served by trips. The display
// name is always derived from the endpoints via RouteName and is not
// stored or independently settable.
//
// Fields:
//  ID           – primary key identifier.
//  LocationFrom – origin city/stop.
//  LocationTo   – destination city/stop.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Route struct {
	ID           uint64    // routes.id
	LocationFrom string    // routes.location_from
	LocationTo   string    // routes.location_to
	CreatedAt    time.Time // routes.created_at
	UpdatedAt    time.Time // routes.updated_at
}

// RouteName returns the derived display name for the route. It is a
// pure function of the two endpoints.
func (r Route) RouteName() string {
	return r.LocationFrom + " → " + r.LocationTo
}
