package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// ErrBusNumberExists is returned when creating a bus whose number is
// already registered.
var ErrBusNumberExists = errors.New("bus number already exists")

// ErrBusNotFound indicates that a bus was not located in the DB.
var ErrBusNotFound = errors.New("bus not found")

// BusRepo manages persistence for buses.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo constructs a BusRepo with the given DB handle.
func NewBusRepo(db *sql.DB) *BusRepo { return &BusRepo{db: db} }

// Create inserts a new bus and assigns the generated ID back to the
// struct. The bus number must be unique.
func (r *BusRepo) Create(ctx context.Context, b *model.Bus) error {
	const q = `INSERT INTO buses (bus_number, capacity, type_of_bus, is_available) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(b.BusNumber), b.Capacity, b.TypeOfBus, b.IsAvailable)
	if err != nil {
		if isDupKey(err) {
			return ErrBusNumberExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID retrieves a bus by its ID. It returns ErrBusNotFound if
// there is no matching row.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	const q = `SELECT id, bus_number, capacity, type_of_bus, is_available, created_at, updated_at FROM buses WHERE id = ?`
	var b model.Bus
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.BusNumber, &b.Capacity, &b.TypeOfBus, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListAvailable returns all buses flagged available for assignment,
// ordered by bus number.
func (r *BusRepo) ListAvailable(ctx context.Context) ([]model.Bus, error) {
	const q = `SELECT id, bus_number, capacity, type_of_bus, is_available, created_at, updated_at
	           FROM buses WHERE is_available = 1 ORDER BY bus_number ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bus
	for rows.Next() {
		var b model.Bus
		if err := rows.Scan(&b.ID, &b.BusNumber, &b.Capacity, &b.TypeOfBus, &b.IsAvailable, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
