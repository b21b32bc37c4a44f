package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// TripSearchQuery defines filters and ordering for browsing trips.
// From and To match route endpoints, Text matches the bus number or
// the derived route name. Sort accepts a whitelisted column name with
// an optional leading "-" for descending order.
type TripSearchQuery struct {
	From string
	To   string
	Text string
	Sort string
}

// PublicTripRow is a trip as exposed to unauthenticated browsing.
type PublicTripRow struct {
	ID            uint64  `json:"id"`
	BusNumber     string  `json:"bus_number"`
	RouteName     string  `json:"route_name"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	PriceCents    uint32  `json:"price_cents"`
	Price         float64 `json:"price"`
	Capacity      uint32  `json:"capacity"`
}

// sortColumns whitelists the ORDER BY targets accepted from clients.
var sortColumns = map[string]string{
	"departure_time": "t.departure_time",
	"price":          "t.price_cents",
	"created_at":     "t.created_at",
}

// orderClause resolves a client sort key into a safe ORDER BY clause.
// Unknown keys fall back to departure time ascending.
func orderClause(sort string) string {
	dir := " ASC"
	key := strings.TrimSpace(sort)
	if strings.HasPrefix(key, "-") {
		dir = " DESC"
		key = key[1:]
	}
	col, ok := sortColumns[key]
	if !ok {
		return "t.departure_time ASC"
	}
	return col + dir
}

// SearchActive returns active scheduled trips matching the query,
// joined with their bus and route. Cancelled and deactivated trips are
// never shown to browsers.
func (r *TripRepo) SearchActive(ctx context.Context, q TripSearchQuery) ([]PublicTripRow, error) {
	where := []string{"t.is_active = 1", "t.status = ?"}
	args := []any{model.TripScheduled}

	if q.From != "" {
		where = append(where, "LOWER(ro.location_from) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.From)+"%")
	}
	if q.To != "" {
		where = append(where, "LOWER(ro.location_to) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.To)+"%")
	}
	if q.Text != "" {
		where = append(where, "(LOWER(b.bus_number) LIKE ? OR LOWER(CONCAT(ro.location_from, ' → ', ro.location_to)) LIKE ?)")
		needle := "%" + strings.ToLower(q.Text) + "%"
		args = append(args, needle, needle)
	}

	dataSQL := `SELECT
			t.id,
			b.bus_number,
			ro.location_from,
			ro.location_to,
			DATE_FORMAT(t.departure_time, '%Y-%m-%d %T') AS departure_time,
			DATE_FORMAT(t.arrival_time,   '%Y-%m-%d %T') AS arrival_time,
			t.price_cents,
			b.capacity
		FROM trips t
		JOIN buses b   ON b.id = t.bus_id
		JOIN routes ro ON ro.id = t.route_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + orderClause(q.Sort)

	rows, err := r.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PublicTripRow, 0)
	for rows.Next() {
		var d PublicTripRow
		var from, to string
		if err := rows.Scan(
			&d.ID,
			&d.BusNumber,
			&from,
			&to,
			&d.DepartureTime,
			&d.ArrivalTime,
			&d.PriceCents,
			&d.Capacity,
		); err != nil {
			return nil, err
		}
		d.RouteName = model.Route{LocationFrom: from, LocationTo: to}.RouteName()
		d.Price = float64(d.PriceCents) / 100.0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetActiveRow returns a single active trip as a PublicTripRow. It
// returns ErrTripNotFound for missing or hidden trips, matching the
// browse surface where inactive trips do not exist.
func (r *TripRepo) GetActiveRow(ctx context.Context, id uint64) (*PublicTripRow, error) {
	const q = `SELECT
			t.id,
			b.bus_number,
			ro.location_from,
			ro.location_to,
			DATE_FORMAT(t.departure_time, '%Y-%m-%d %T') AS departure_time,
			DATE_FORMAT(t.arrival_time,   '%Y-%m-%d %T') AS arrival_time,
			t.price_cents,
			b.capacity
		FROM trips t
		JOIN buses b   ON b.id = t.bus_id
		JOIN routes ro ON ro.id = t.route_id
		WHERE t.id = ? AND t.is_active = 1`
	var d PublicTripRow
	var from, to string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.BusNumber, &from, &to, &d.DepartureTime, &d.ArrivalTime, &d.PriceCents, &d.Capacity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	d.RouteName = model.Route{LocationFrom: from, LocationTo: to}.RouteName()
	d.Price = float64(d.PriceCents) / 100.0
	return &d, nil
}
