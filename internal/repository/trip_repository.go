// Package repository contains data access logic for trip operations. A
// Trip is one scheduled departure of a bus over a route; its bus fixes
// the seat range bookings may claim.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// TripRepo manages persistence for trips.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo constructs a TripRepo with the given DB handle.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories. Use this method to
// obtain a *sql.DB when you need fine-grained transaction control.
func (r *TripRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new trip using the provided transaction. On
// success the generated ID and DB-default fields (status, timestamps)
// are populated on the given Trip. The caller must commit or roll
// back the transaction.
func (r *TripRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
	const q = `INSERT INTO trips (bus_id, route_id, departure_time, arrival_time, price_cents)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		t.BusID, t.RouteID,
		t.DepartureTime.UTC().Format(dbTime), t.ArrivalTime.UTC().Format(dbTime),
		t.PriceCents,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	const sel = `SELECT status, is_active, created_at, updated_at FROM trips WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, t.ID).Scan(&t.Status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
}

// Create inserts a new trip outside any caller transaction. It is a
// convenience for seeding.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.CreateTx(ctx, tx, t); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetByID retrieves a trip by its ID regardless of its state. It
// returns ErrTripNotFound when there is no matching row.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*model.Trip, error) {
	const q = `SELECT id, bus_id, route_id, departure_time, arrival_time, price_cents, status, is_active, created_at, updated_at
	           FROM trips WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads a trip inside the transaction, locking its row,
// together with the capacity of its bus. The lock serialises
// concurrent state transitions on the same trip (cancel/complete
// racing a new hold). It returns ErrTripNotFound when no row exists.
func (r *TripRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Trip, uint32, error) {
	const q = `SELECT t.id, t.bus_id, t.route_id, t.departure_time, t.arrival_time, t.price_cents, t.status, t.is_active, t.created_at, t.updated_at,
	                  b.capacity
	           FROM trips t
	           JOIN buses b ON b.id = t.bus_id
	           WHERE t.id = ?
	           FOR UPDATE OF t`
	var t model.Trip
	var capacity uint32
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.BusID, &t.RouteID, &t.DepartureTime, &t.ArrivalTime, &t.PriceCents,
		&t.Status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		&capacity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrTripNotFound
		}
		return nil, 0, err
	}
	return &t, capacity, nil
}

// CancelTx moves the trip into the terminal cancelled state and hides
// it from browsing. The booking cascade is a separate statement in the
// same transaction (see BookingRepo.CancelAllForTripTx).
func (r *TripRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE trips SET status = ?, is_active = 0 WHERE id = ?`,
		model.TripCancelled, id,
	)
	return err
}

// CompleteTx moves the trip into the terminal completed state.
// Bookings are left untouched: completed trips retain their history.
func (r *TripRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE trips SET status = ?, is_active = 0 WHERE id = ?`,
		model.TripCompleted, id,
	)
	return err
}

func (r *TripRepo) scanOne(row *sql.Row) (*model.Trip, error) {
	var t model.Trip
	err := row.Scan(
		&t.ID, &t.BusID, &t.RouteID, &t.DepartureTime, &t.ArrivalTime, &t.PriceCents,
		&t.Status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return &t, nil
}
