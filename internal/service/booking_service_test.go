package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/payment"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

const sqlTime = "2006-01-02 15:04:05"

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// newTestService wires a BookingService over a sqlmock database with a
// fixed clock, a five-minute hold window and a 24h cancellation cutoff.
func newTestService(t *testing.T, gw payment.Gateway) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewBookingService(
		repository.NewTripRepo(db),
		repository.NewBookingRepo(db),
		gw,
		5*time.Minute,
		24*time.Hour,
	)
	svc.Now = func() time.Time { return testNow }
	return svc, mock
}

func tripColumns() []string {
	return []string{"id", "bus_id", "route_id", "departure_time", "arrival_time", "price_cents", "status", "is_active", "created_at", "updated_at", "capacity"}
}

// expectTripRow queues the locked trip+capacity read.
func expectTripRow(mock sqlmock.Sqlmock, tripID uint64, status string, active bool, departure time.Time, capacity uint32) {
	rows := sqlmock.NewRows(tripColumns()).AddRow(
		tripID, 1, 1, departure, departure.Add(6*time.Hour), 89900, status, active, testNow.Add(-48*time.Hour), testNow.Add(-48*time.Hour), capacity,
	)
	mock.ExpectQuery("FROM trips t").WithArgs(tripID).WillReturnRows(rows)
}

// expectEmptySweep queues a sweep that finds nothing to reclaim.
func expectEmptySweep(mock sqlmock.Sqlmock, tripID uint64) {
	mock.ExpectQuery("SELECT seat_number FROM bookings").
		WithArgs(tripID, testNow.Format(sqlTime)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
}

func bookingColumns() []string {
	return []string{"id", "user_id", "trip_id", "seat_number", "payment_status", "is_confirmed", "is_cancelled", "hold_expires_at", "created_at", "updated_at"}
}

func TestCreateHoldSuccess(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	expectEmptySweep(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"taken"}).AddRow(false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery("SELECT created_at, updated_at FROM bookings").
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testNow, testNow))
	mock.ExpectCommit()

	b, err := svc.CreateHold(context.Background(), 5, 7, 12)
	if err != nil {
		t.Fatalf("CreateHold: %v", err)
	}
	if b.ID != 42 || b.UserID != 5 || b.TripID != 7 || b.SeatNumber != 12 {
		t.Fatalf("unexpected booking %+v", b)
	}
	if b.PaymentStatus != model.PaymentPending || b.IsConfirmed || b.IsCancelled {
		t.Fatalf("new hold must be pending: %+v", b)
	}
	if b.HoldExpiresAt == nil || !b.HoldExpiresAt.Equal(testNow.Add(5*time.Minute)) {
		t.Fatalf("hold expiry not clock+window: %v", b.HoldExpiresAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateHoldReclaimsExpiredBeforeChecking(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	// the sweep finds a lapsed hold on the requested seat
	mock.ExpectQuery("SELECT seat_number FROM bookings").
		WithArgs(uint64(7), testNow.Format(sqlTime)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(12))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"taken"}).AddRow(false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectQuery("SELECT created_at, updated_at FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testNow, testNow))
	mock.ExpectCommit()

	if _, err := svc.CreateHold(context.Background(), 5, 7, 12); err != nil {
		t.Fatalf("CreateHold after sweep: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateHoldSeatTaken(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	expectEmptySweep(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"taken"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.CreateHold(context.Background(), 5, 7, 12)
	if !errors.Is(err, repository.ErrSeatUnavailable) {
		t.Fatalf("want ErrSeatUnavailable, got %v", err)
	}
}

func TestCreateHoldLosesInsertRace(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	expectEmptySweep(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"taken"}).AddRow(false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := svc.CreateHold(context.Background(), 5, 7, 12)
	if !errors.Is(err, repository.ErrSeatUnavailable) {
		t.Fatalf("want ErrSeatUnavailable on duplicate key, got %v", err)
	}
}

func TestCreateHoldTripFull(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 2)
	expectEmptySweep(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"taken"}).AddRow(false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	_, err := svc.CreateHold(context.Background(), 5, 7, 1)
	if !errors.Is(err, repository.ErrTripFull) {
		t.Fatalf("want ErrTripFull, got %v", err)
	}
}

func TestCreateHoldSeatOutOfRange(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	mock.ExpectRollback()

	_, err := svc.CreateHold(context.Background(), 5, 7, 41)
	if !errors.Is(err, repository.ErrSeatOutOfRange) {
		t.Fatalf("want ErrSeatOutOfRange, got %v", err)
	}
}

func TestCreateHoldDepartedTrip(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(-time.Minute), 40)
	mock.ExpectRollback()

	_, err := svc.CreateHold(context.Background(), 5, 7, 1)
	if !errors.Is(err, repository.ErrTripDeparted) {
		t.Fatalf("want ErrTripDeparted, got %v", err)
	}
}

func TestCreateHoldMissingTripNotBookable(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips t").WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(tripColumns()))
	mock.ExpectRollback()

	_, err := svc.CreateHold(context.Background(), 5, 99, 1)
	if !errors.Is(err, repository.ErrTripNotBookable) {
		t.Fatalf("want ErrTripNotBookable, got %v", err)
	}
}

func TestCreateHoldCancelledTripNotBookable(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripCancelled, false, testNow.Add(48*time.Hour), 40)
	mock.ExpectRollback()

	_, err := svc.CreateHold(context.Background(), 5, 7, 1)
	if !errors.Is(err, repository.ErrTripNotBookable) {
		t.Fatalf("want ErrTripNotBookable, got %v", err)
	}
}

func TestConfirmBookingSuccess(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	exp := testNow.Add(3 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPending, false, false, exp, testNow, testNow))
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := svc.ConfirmBooking(context.Background(), 5, 42)
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if !b.IsConfirmed || b.PaymentStatus != model.PaymentPaid || b.HoldExpiresAt != nil {
		t.Fatalf("unexpected confirmed booking %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfirmBookingIdempotent(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPaid, true, false, nil, testNow, testNow))
	mock.ExpectCommit()

	b, err := svc.ConfirmBooking(context.Background(), 5, 42)
	if err != nil {
		t.Fatalf("re-confirm must be a no-op success: %v", err)
	}
	if !b.IsConfirmed {
		t.Fatalf("booking no longer confirmed: %+v", b)
	}
}

func TestConfirmBookingExpiredHold(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	exp := testNow.Add(-time.Second)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPending, false, false, exp, testNow, testNow))
	mock.ExpectQuery("SELECT seat_number FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(12))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.ConfirmBooking(context.Background(), 5, 42)
	if !errors.Is(err, repository.ErrHoldExpired) {
		t.Fatalf("want ErrHoldExpired, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expired hold must be reclaimed in the same transaction: %v", err)
	}
}

func TestConfirmBookingPaymentDeclined(t *testing.T) {
	svc, mock := newTestService(t, payment.DecliningGateway{})

	exp := testNow.Add(3 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPending, false, false, exp, testNow, testNow))
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.ConfirmBooking(context.Background(), 5, 42)
	if !errors.Is(err, ErrPaymentDeclined) {
		t.Fatalf("want ErrPaymentDeclined, got %v", err)
	}
}

func TestConfirmBookingNotOwner(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPending, false, false, testNow.Add(time.Minute), testNow, testNow))
	mock.ExpectRollback()

	_, err := svc.ConfirmBooking(context.Background(), 6, 42)
	if !errors.Is(err, repository.ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}
}

func TestCancelBookingRefundsPaid(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPaid, true, false, nil, testNow, testNow))
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	mock.ExpectExec("UPDATE bookings").
		WithArgs(model.PaymentRefunded, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.CancelBooking(context.Background(), 5, 42); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelBookingUnpaidEndsFailed(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPending, false, false, testNow.Add(3*time.Minute), testNow, testNow))
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	mock.ExpectExec("UPDATE bookings").
		WithArgs(model.PaymentFailed, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.CancelBooking(context.Background(), 5, 42); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
}

func TestCancelBookingInsideCutoff(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPaid, true, false, nil, testNow, testNow))
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(23*time.Hour+59*time.Minute), 40)
	mock.ExpectRollback()

	err := svc.CancelBooking(context.Background(), 5, 42)
	if !errors.Is(err, repository.ErrTooLateToCancel) {
		t.Fatalf("want ErrTooLateToCancel, got %v", err)
	}
}

func TestCancelBookingAtCutoffBoundary(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	// exactly 24h out is still allowed
	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentPaid, true, false, nil, testNow, testNow))
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(24*time.Hour), 40)
	mock.ExpectExec("UPDATE bookings").
		WithArgs(model.PaymentRefunded, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.CancelBooking(context.Background(), 5, 42); err != nil {
		t.Fatalf("cancel exactly at the cutoff: %v", err)
	}
}

func TestCancelBookingAlreadyCancelled(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(42, 5, 7, 12, model.PaymentFailed, false, true, nil, testNow, testNow))
	mock.ExpectRollback()

	err := svc.CancelBooking(context.Background(), 5, 42)
	if !errors.Is(err, repository.ErrAlreadyCancelled) {
		t.Fatalf("want ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelTripCascades(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 40)
	mock.ExpectExec("UPDATE trips").
		WithArgs(model.TripCancelled, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := svc.CancelTrip(context.Background(), 7)
	if err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 cancelled bookings, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelTripTwice(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripCancelled, false, testNow.Add(48*time.Hour), 40)
	mock.ExpectRollback()

	_, err := svc.CancelTrip(context.Background(), 7)
	if !errors.Is(err, repository.ErrTripAlreadyCancelled) {
		t.Fatalf("want ErrTripAlreadyCancelled, got %v", err)
	}
}

func TestCompleteTrip(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(-2*time.Hour), 40)
	mock.ExpectExec("UPDATE trips").
		WithArgs(model.TripCompleted, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.CompleteTrip(context.Background(), 7); err != nil {
		t.Fatalf("CompleteTrip: %v", err)
	}
}

func TestCompleteTripFromCancelled(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripCancelled, false, testNow.Add(48*time.Hour), 40)
	mock.ExpectRollback()

	err := svc.CompleteTrip(context.Background(), 7)
	if !errors.Is(err, repository.ErrTripAlreadyCancelled) {
		t.Fatalf("want ErrTripAlreadyCancelled, got %v", err)
	}
}

func TestAvailableSeats(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, true, testNow.Add(48*time.Hour), 4)
	expectEmptySweep(mock, 7)
	mock.ExpectQuery("SELECT seat_number FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(2).AddRow(4))
	mock.ExpectCommit()

	av, err := svc.AvailableSeats(context.Background(), 7)
	if err != nil {
		t.Fatalf("AvailableSeats: %v", err)
	}
	if av.Capacity != 4 {
		t.Fatalf("capacity = %d", av.Capacity)
	}
	if len(av.BookedSeats) != 2 || av.BookedSeats[0] != 2 || av.BookedSeats[1] != 4 {
		t.Fatalf("booked = %v", av.BookedSeats)
	}
	if len(av.AvailableSeats) != 2 || av.AvailableSeats[0] != 1 || av.AvailableSeats[1] != 3 {
		t.Fatalf("available = %v", av.AvailableSeats)
	}
}

func TestAvailableSeatsInactiveTripHidden(t *testing.T) {
	svc, mock := newTestService(t, payment.StubGateway{})

	mock.ExpectBegin()
	expectTripRow(mock, 7, model.TripScheduled, false, testNow.Add(48*time.Hour), 40)
	mock.ExpectRollback()

	_, err := svc.AvailableSeats(context.Background(), 7)
	if !errors.Is(err, repository.ErrTripNotFound) {
		t.Fatalf("want ErrTripNotFound, got %v", err)
	}
}
