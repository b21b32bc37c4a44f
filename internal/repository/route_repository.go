package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// ErrRouteExists is returned when creating a route whose endpoint pair
// is already registered.
var ErrRouteExists = errors.New("route already exists")

// ErrRouteNotFound indicates that a route was not located in the DB.
var ErrRouteNotFound = errors.New("route not found")

// RouteRepo manages persistence for routes. Only the two endpoints are
// stored; the display name is derived (model.Route.RouteName) and never
// persisted, so it cannot drift from the endpoints.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo constructs a RouteRepo with the given DB handle.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// Create inserts a new route and assigns the generated ID back to the
// struct. The (from, to) pair must be unique.
func (r *RouteRepo) Create(ctx context.Context, rt *model.Route) error {
	const q = `INSERT INTO routes (location_from, location_to) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(rt.LocationFrom), strings.TrimSpace(rt.LocationTo))
	if err != nil {
		if isDupKey(err) {
			return ErrRouteExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

// GetByID retrieves a route by its ID. It returns ErrRouteNotFound if
// there is no matching row.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (*model.Route, error) {
	const q = `SELECT id, location_from, location_to, created_at, updated_at FROM routes WHERE id = ?`
	var rt model.Route
	err := r.db.QueryRowContext(ctx, q, id).Scan(&rt.ID, &rt.LocationFrom, &rt.LocationTo, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// ListAll returns every route ordered by origin then destination.
func (r *RouteRepo) ListAll(ctx context.Context) ([]model.Route, error) {
	const q = `SELECT id, location_from, location_to, created_at, updated_at
	           FROM routes ORDER BY location_from ASC, location_to ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Route
	for rows.Next() {
		var rt model.Route
		if err := rows.Scan(&rt.ID, &rt.LocationFrom, &rt.LocationTo, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
