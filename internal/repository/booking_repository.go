package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// activeBookingCond is the single authoritative definition of "this
// booking currently holds its seat". Every availability read and every
// hold precondition goes through this fragment so that the calculator
// and the reservation path can never disagree. It takes one argument:
// the as-of timestamp compared against the hold window.
//
// The hold arm keys on hold_expires_at rather than payment_status so
// that a failed payment keeps the seat until its original window runs
// out (the chosen failed-payment policy); confirmed rows hold the seat
// indefinitely and cancelled rows never do.
const activeBookingCond = `is_cancelled = 0 AND (is_confirmed = 1 OR (hold_expires_at IS NOT NULL AND hold_expires_at > ?))`

// dbTime is the DATETIME format used for values sent to MySQL
// (stored in UTC, loc=UTC on the connection).
const dbTime = "2006-01-02 15:04:05"

// BookingRepo provides data access to the bookings table, which is the
// seat ledger: the only shared mutable state of the reservation core.
// All write methods take a *sql.Tx so an operation's precondition
// checks and its writes commit or roll back as one unit; the caller
// owns the transaction.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// isDupKey reports whether err is MySQL's duplicate-key verdict
// (ER_DUP_ENTRY, 1062). On hold creation this is the storage-level
// arbiter for two holds racing on the same seat: the loser's insert
// collides on uq_booking_active_seat.
func isDupKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// SweepExpiredTx reclaims all holds on the trip whose window has
// passed: unconfirmed, uncancelled rows with hold_expires_at <= asOf
// are marked cancelled with payment_status failed. It returns the seat
// numbers that were reclaimed so the caller can log them. Re-running
// it on already-swept rows is a no-op.
//
// The sweep must transition rows (not merely ignore them) because the
// uq_booking_active_seat key spans every non-cancelled row: an expired
// hold has to become cancelled before its seat can be inserted again.
func (r *BookingRepo) SweepExpiredTx(ctx context.Context, tx *sql.Tx, tripID uint64, asOf time.Time) ([]uint32, error) {
	at := asOf.UTC().Format(dbTime)
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_number FROM bookings
		 WHERE trip_id = ? AND is_confirmed = 0 AND is_cancelled = 0 AND hold_expires_at <= ?
		 FOR UPDATE`,
		tripID, at,
	)
	if err != nil {
		return nil, err
	}
	var expired []uint32
	for rows.Next() {
		var n uint32
		if scanErr := rows.Scan(&n); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		expired = append(expired, n)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return []uint32{}, nil
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE bookings
		 SET is_cancelled = 1, is_confirmed = 0, payment_status = ?
		 WHERE trip_id = ? AND is_confirmed = 0 AND is_cancelled = 0 AND hold_expires_at <= ?`,
		model.PaymentFailed, tripID, at,
	)
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// IsSeatActiveTx reports whether the given seat of the trip is held by
// an active booking at asOf.
func (r *BookingRepo) IsSeatActiveTx(ctx context.Context, tx *sql.Tx, tripID uint64, seat uint32, asOf time.Time) (bool, error) {
	const q = `SELECT EXISTS(
	             SELECT 1 FROM bookings
	             WHERE trip_id = ? AND seat_number = ? AND ` + activeBookingCond + `)`
	var taken bool
	if err := tx.QueryRowContext(ctx, q, tripID, seat, asOf.UTC().Format(dbTime)).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// ActiveCountTx returns the number of active bookings on the trip at
// asOf. The count is compared against bus capacity to prevent
// overbooking.
func (r *BookingRepo) ActiveCountTx(ctx context.Context, tx *sql.Tx, tripID uint64, asOf time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE trip_id = ? AND ` + activeBookingCond
	var n int
	if err := tx.QueryRowContext(ctx, q, tripID, asOf.UTC().Format(dbTime)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ActiveSeatNumbersTx returns the seat numbers of all active bookings
// on the trip at asOf, ordered ascending for deterministic output.
func (r *BookingRepo) ActiveSeatNumbersTx(ctx context.Context, tx *sql.Tx, tripID uint64, asOf time.Time) ([]uint32, error) {
	const q = `SELECT seat_number FROM bookings
	           WHERE trip_id = ? AND ` + activeBookingCond + `
	           ORDER BY seat_number ASC`
	rows, err := tx.QueryContext(ctx, q, tripID, asOf.UTC().Format(dbTime))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]uint32, 0)
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		seats = append(seats, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// CreateHoldTx inserts a new pending booking row within the provided
// transaction and populates the generated ID and timestamps on b.
// When the insert loses a race on uq_booking_active_seat, it returns
// ErrSeatUnavailable and the transaction can be rolled back with no
// partial state.
func (r *BookingRepo) CreateHoldTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, trip_id, seat_number, payment_status, is_confirmed, is_cancelled, hold_expires_at)
	           VALUES (?, ?, ?, ?, 0, 0, ?)`
	var exp interface{}
	if b.HoldExpiresAt != nil {
		exp = b.HoldExpiresAt.UTC().Format(dbTime)
	}
	res, err := tx.ExecContext(ctx, q, b.UserID, b.TripID, b.SeatNumber, model.PaymentPending, exp)
	if err != nil {
		if isDupKey(err) {
			return ErrSeatUnavailable
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.PaymentStatus = model.PaymentPending
	b.IsConfirmed = false
	b.IsCancelled = false
	// Query back the row to populate DB-default timestamps.
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByIDTx loads a booking by ID inside the transaction, locking the
// row for the remainder of the transaction. It returns
// ErrBookingNotFound when no such row exists.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, trip_id, seat_number, payment_status, is_confirmed, is_cancelled, hold_expires_at, created_at, updated_at
	           FROM bookings WHERE id = ? FOR UPDATE`
	var b model.Booking
	var exp sql.NullTime
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.TripID, &b.SeatNumber, &b.PaymentStatus,
		&b.IsConfirmed, &b.IsCancelled, &exp, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if exp.Valid {
		t := exp.Time
		b.HoldExpiresAt = &t
	}
	return &b, nil
}

// ConfirmTx transitions a booking into the confirmed state: paid,
// confirmed, hold window cleared. The caller has already validated the
// preconditions against the locked row.
func (r *BookingRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET payment_status = ?, is_confirmed = 1, hold_expires_at = NULL WHERE id = ?`,
		model.PaymentPaid, id,
	)
	return err
}

// MarkPaymentFailedTx records a failed payment attempt. The hold
// window is left untouched: the seat stays taken until the original
// expiry, when the sweep reclaims it.
func (r *BookingRepo) MarkPaymentFailedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET payment_status = ? WHERE id = ?`,
		model.PaymentFailed, id,
	)
	return err
}

// CancelTx marks a single booking cancelled with the given terminal
// payment status (refunded when it had been paid, failed otherwise).
// The generated active_seat_ref column collapses to NULL on this
// update, releasing the seat for new holds immediately.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, paymentStatus string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET is_cancelled = 1, is_confirmed = 0, payment_status = ? WHERE id = ?`,
		paymentStatus, id,
	)
	return err
}

// CancelAllForTripTx cancels every not-yet-cancelled booking on the
// trip in one statement, refunding paid rows and failing the rest. It
// returns the number of bookings cancelled. Used by trip-level
// cancellation, which cascades atomically.
func (r *BookingRepo) CancelAllForTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET is_cancelled = 1, is_confirmed = 0,
		     payment_status = IF(payment_status = ?, ?, ?)
		 WHERE trip_id = ? AND is_cancelled = 0`,
		model.PaymentPaid, model.PaymentRefunded, model.PaymentFailed, tripID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BookingDetail pairs a booking with the trip information customers
// need to recognise it. It is returned by ListByUser for display.
type BookingDetail struct {
	ID            uint64     `json:"id"`
	TripID        uint64     `json:"trip_id"`
	SeatNumber    uint32     `json:"seat_number"`
	PaymentStatus string     `json:"payment_status"`
	IsConfirmed   bool       `json:"is_confirmed"`
	IsCancelled   bool       `json:"is_cancelled"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	RouteName     string     `json:"route_name"`
	BusNumber     string     `json:"bus_number"`
	DepartureTime time.Time  `json:"departure_time"`
	ArrivalTime   time.Time  `json:"arrival_time"`
	PriceCents    uint32     `json:"price_cents"`
}

// ListByUser returns all bookings for the given user along with trip,
// bus and route details, newest first. When no bookings exist, an
// empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.trip_id, b.seat_number, b.payment_status, b.is_confirmed, b.is_cancelled, b.hold_expires_at,
	                  r.location_from, r.location_to, bu.bus_number,
	                  t.departure_time, t.arrival_time, t.price_cents
	           FROM bookings b
	           JOIN trips t ON t.id = b.trip_id
	           JOIN buses bu ON bu.id = t.bus_id
	           JOIN routes r ON r.id = t.route_id
	           WHERE b.user_id = ?
	           ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var exp sql.NullTime
		var from, to string
		if err := rows.Scan(
			&d.ID, &d.TripID, &d.SeatNumber, &d.PaymentStatus, &d.IsConfirmed, &d.IsCancelled, &exp,
			&from, &to, &d.BusNumber,
			&d.DepartureTime, &d.ArrivalTime, &d.PriceCents,
		); err != nil {
			return nil, err
		}
		if exp.Valid {
			t := exp.Time
			d.HoldExpiresAt = &t
		}
		d.RouteName = model.Route{LocationFrom: from, LocationTo: to}.RouteName()
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
