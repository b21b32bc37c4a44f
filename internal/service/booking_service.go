// Package service implements the booking workflows on top of the
// repository layer. Each operation runs as one database transaction:
// preconditions are checked against locked rows and either every write
// commits or none does.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/payment"
	q "github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// ErrPaymentDeclined is returned when the gateway declines the charge
// for a hold. The booking keeps its seat until the hold window runs
// out, so the holder may retry payment while the window lasts.
var ErrPaymentDeclined = errors.New("payment declined")

// SeatAvailability is the availability snapshot for one trip, computed
// after reclaiming expired holds.
type SeatAvailability struct {
	TripID         uint64   `json:"trip_id"`
	Capacity       uint32   `json:"capacity"`
	BookedSeats    []uint32 `json:"booked_seats"`
	AvailableSeats []uint32 `json:"available_seats"`
}

// BookingService coordinates trips and bookings. The exported knobs
// are set once at construction time and read concurrently afterwards.
type BookingService struct {
	trips    *repository.TripRepo
	bookings *repository.BookingRepo
	payments payment.Gateway

	// HoldWindow is how long a new hold keeps its seat before the
	// sweep reclaims it.
	HoldWindow time.Duration
	// CancelCutoff is the minimum time before departure at which a
	// holder may still cancel.
	CancelCutoff time.Duration
	// Now supplies the current instant; tests substitute a fixed
	// clock to hit window boundaries exactly.
	Now func() time.Time
}

// NewBookingService constructs a BookingService. All dependencies must
// be non-nil.
func NewBookingService(trips *repository.TripRepo, bookings *repository.BookingRepo, gw payment.Gateway, holdWindow, cancelCutoff time.Duration) *BookingService {
	if trips == nil || bookings == nil || gw == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		trips:        trips,
		bookings:     bookings,
		payments:     gw,
		HoldWindow:   holdWindow,
		CancelCutoff: cancelCutoff,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// begin starts a transaction and returns it along with a rollback
// closure. The closure is a no-op once commit succeeds.
func (s *BookingService) begin(ctx context.Context) (*sql.Tx, func(), error) {
	tx, err := s.trips.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	rollback := func() {
		if !committed {
			_ = tx.Rollback()
		}
	}
	return tx, rollback, nil
}

// sweep reclaims expired holds on the trip and logs any seats freed.
func (s *BookingService) sweep(ctx context.Context, tx *sql.Tx, tripID uint64, now time.Time) error {
	freed, err := s.bookings.SweepExpiredTx(ctx, tx, tripID, now)
	if err != nil {
		return err
	}
	if len(freed) > 0 {
		log.Printf("trip %d: reclaimed %d expired hold(s), seats %v", tripID, len(freed), freed)
	}
	return nil
}

// AvailableSeats returns the availability snapshot for an active trip.
// Expired holds are reclaimed first, so a seat whose hold just lapsed
// shows as available. Inactive or missing trips yield
// repository.ErrTripNotFound.
func (s *BookingService) AvailableSeats(ctx context.Context, tripID uint64) (*SeatAvailability, error) {
	now := s.Now()
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	trip, capacity, err := s.trips.GetForUpdateTx(ctx, tx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsActive {
		return nil, repository.ErrTripNotFound
	}
	if err := s.sweep(ctx, tx, tripID, now); err != nil {
		return nil, err
	}
	booked, err := s.bookings.ActiveSeatNumbersTx(ctx, tx, tripID, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	taken := make(map[uint32]struct{}, len(booked))
	for _, n := range booked {
		taken[n] = struct{}{}
	}
	available := make([]uint32, 0, int(capacity)-len(booked))
	for n := uint32(1); n <= capacity; n++ {
		if _, ok := taken[n]; !ok {
			available = append(available, n)
		}
	}
	return &SeatAvailability{
		TripID:         tripID,
		Capacity:       capacity,
		BookedSeats:    booked,
		AvailableSeats: available,
	}, nil
}

// CreateHold places a time-bound hold on one seat of a trip for the
// given user. Preconditions are checked in order against the locked
// trip row: the trip must be active and scheduled
// (repository.ErrTripNotBookable, which also covers a missing trip),
// not yet departed (ErrTripDeparted), the seat must lie in
// [1, capacity] (ErrSeatOutOfRange) and be free (ErrSeatUnavailable),
// and the trip must have capacity left (ErrTripFull). Two holds racing
// on the last check are arbitrated by the database's unique key; the
// loser also gets ErrSeatUnavailable.
func (s *BookingService) CreateHold(ctx context.Context, userID, tripID uint64, seat uint32) (*model.Booking, error) {
	now := s.Now()
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	trip, capacity, err := s.trips.GetForUpdateTx(ctx, tx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			return nil, repository.ErrTripNotBookable
		}
		return nil, err
	}
	if !trip.IsActive || trip.Status != model.TripScheduled {
		return nil, repository.ErrTripNotBookable
	}
	if !trip.DepartureTime.After(now) {
		return nil, repository.ErrTripDeparted
	}
	if seat < 1 || seat > capacity {
		return nil, repository.ErrSeatOutOfRange
	}
	if err := s.sweep(ctx, tx, tripID, now); err != nil {
		return nil, err
	}
	taken, err := s.bookings.IsSeatActiveTx(ctx, tx, tripID, seat, now)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, repository.ErrSeatUnavailable
	}
	count, err := s.bookings.ActiveCountTx(ctx, tx, tripID, now)
	if err != nil {
		return nil, err
	}
	if uint32(count) >= capacity {
		return nil, repository.ErrTripFull
	}
	expires := now.Add(s.HoldWindow)
	b := &model.Booking{
		UserID:        userID,
		TripID:        tripID,
		SeatNumber:    seat,
		HoldExpiresAt: &expires,
	}
	if err := s.bookings.CreateHoldTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// ConfirmBooking charges the holder and, on approval, transitions the
// hold into a confirmed booking. Confirming an already-confirmed
// booking is a no-op success. A lapsed window yields
// repository.ErrHoldExpired (the row is reclaimed in the same
// transaction); a declined charge yields ErrPaymentDeclined and leaves
// the hold window untouched so payment can be retried.
func (s *BookingService) ConfirmBooking(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	now := s.Now()
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	b, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, repository.ErrNotOwner
	}
	if b.IsCancelled {
		return nil, repository.ErrAlreadyCancelled
	}
	if b.IsConfirmed {
		return b, tx.Commit()
	}
	if b.HoldExpiresAt == nil || !b.HoldExpiresAt.After(now) {
		if err := s.sweep(ctx, tx, b.TripID, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, repository.ErrHoldExpired
	}

	trip, _, err := s.trips.GetForUpdateTx(ctx, tx, b.TripID)
	if err != nil {
		return nil, err
	}
	approved, err := s.payments.Charge(ctx, b.ID, trip.PriceCents)
	if err != nil {
		return nil, err
	}
	if !approved {
		if err := s.bookings.MarkPaymentFailedTx(ctx, tx, b.ID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, ErrPaymentDeclined
	}
	if err := s.bookings.ConfirmTx(ctx, tx, b.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	b.PaymentStatus = model.PaymentPaid
	b.IsConfirmed = true
	b.HoldExpiresAt = nil
	_ = PublishBookingConfirmed(ctx, q.BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		TripID:      b.TripID,
		SeatNumber:  b.SeatNumber,
		PriceCents:  trip.PriceCents,
		ConfirmedAt: now,
	})
	return b, nil
}

// CancelBooking cancels the caller's own booking. Held-but-unpaid rows
// end with payment status failed, paid rows are refunded. Cancellation
// is rejected inside the cutoff window before departure
// (repository.ErrTooLateToCancel) and on completed trips
// (ErrTripCompleted).
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uint64) error {
	now := s.Now()
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	b, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return repository.ErrNotOwner
	}
	if b.IsCancelled {
		return repository.ErrAlreadyCancelled
	}
	trip, _, err := s.trips.GetForUpdateTx(ctx, tx, b.TripID)
	if err != nil {
		return err
	}
	if !b.IsConfirmed && (b.HoldExpiresAt == nil || !b.HoldExpiresAt.After(now)) {
		// The window has lapsed; the sweep owns this row.
		if err := s.sweep(ctx, tx, b.TripID, now); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		return repository.ErrAlreadyCancelled
	}
	if trip.Status == model.TripCompleted {
		return repository.ErrTripCompleted
	}
	if trip.Status == model.TripScheduled && trip.DepartureTime.Sub(now) < s.CancelCutoff {
		return repository.ErrTooLateToCancel
	}
	status := model.PaymentFailed
	if b.PaymentStatus == model.PaymentPaid {
		status = model.PaymentRefunded
	}
	if err := s.bookings.CancelTx(ctx, tx, b.ID, status); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	_ = PublishBookingCancelled(ctx, q.BookingCancelledEvent{
		BookingID:     b.ID,
		UserID:        b.UserID,
		TripID:        b.TripID,
		SeatNumber:    b.SeatNumber,
		PaymentStatus: status,
		CancelledAt:   now,
	})
	return nil
}

// CancelTrip moves a trip into the cancelled state and cancels every
// remaining booking on it in the same transaction: paid bookings are
// refunded, the rest end failed. It returns the number of bookings
// cancelled by the cascade.
func (s *BookingService) CancelTrip(ctx context.Context, tripID uint64) (int64, error) {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer rollback()

	trip, _, err := s.trips.GetForUpdateTx(ctx, tx, tripID)
	if err != nil {
		return 0, err
	}
	switch trip.Status {
	case model.TripCancelled:
		return 0, repository.ErrTripAlreadyCancelled
	case model.TripCompleted:
		return 0, repository.ErrTripCompleted
	}
	if err := s.trips.CancelTx(ctx, tx, tripID); err != nil {
		return 0, err
	}
	n, err := s.bookings.CancelAllForTripTx(ctx, tx, tripID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("trip %d cancelled, %d booking(s) cancelled with it", tripID, n)
	}
	return n, nil
}

// CompleteTrip marks a scheduled trip completed. Bookings are left as
// they are; completed trips keep their history.
func (s *BookingService) CompleteTrip(ctx context.Context, tripID uint64) error {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	trip, _, err := s.trips.GetForUpdateTx(ctx, tx, tripID)
	if err != nil {
		return err
	}
	switch trip.Status {
	case model.TripCancelled:
		return repository.ErrTripAlreadyCancelled
	case model.TripCompleted:
		return repository.ErrTripCompleted
	}
	if err := s.trips.CompleteTx(ctx, tx, tripID); err != nil {
		return err
	}
	return tx.Commit()
}
