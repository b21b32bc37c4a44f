package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var asOf = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func TestRouteName(t *testing.T) {
	r := Route{LocationFrom: "Bengaluru", LocationTo: "Chennai"}
	assert.Equal(t, "Bengaluru → Chennai", r.RouteName())
}

func TestTripBookable(t *testing.T) {
	base := Trip{Status: TripScheduled, IsActive: true, DepartureTime: asOf.Add(time.Hour)}

	assert.True(t, base.Bookable(asOf))

	departed := base
	departed.DepartureTime = asOf
	assert.False(t, departed.Bookable(asOf), "departure at asOf is no longer bookable")

	inactive := base
	inactive.IsActive = false
	assert.False(t, inactive.Bookable(asOf))

	cancelled := base
	cancelled.Status = TripCancelled
	assert.False(t, cancelled.Bookable(asOf))

	completed := base
	completed.Status = TripCompleted
	assert.False(t, completed.Bookable(asOf))
}

func TestBookingActive(t *testing.T) {
	future := asOf.Add(time.Minute)
	past := asOf.Add(-time.Minute)

	held := Booking{PaymentStatus: PaymentPending, HoldExpiresAt: &future}
	assert.True(t, held.Active(asOf))

	// a failed charge does not release the seat while the window lasts
	failedInWindow := Booking{PaymentStatus: PaymentFailed, HoldExpiresAt: &future}
	assert.True(t, failedInWindow.Active(asOf))

	lapsed := Booking{PaymentStatus: PaymentPending, HoldExpiresAt: &past}
	assert.False(t, lapsed.Active(asOf))

	// expiry is exclusive: at the exact boundary the hold is gone
	boundary := Booking{PaymentStatus: PaymentPending, HoldExpiresAt: &asOf}
	assert.False(t, boundary.Active(asOf))

	confirmed := Booking{PaymentStatus: PaymentPaid, IsConfirmed: true}
	assert.True(t, confirmed.Active(asOf))

	cancelledConfirmed := Booking{PaymentStatus: PaymentRefunded, IsConfirmed: false, IsCancelled: true}
	assert.False(t, cancelledConfirmed.Active(asOf))

	cancelledHold := Booking{PaymentStatus: PaymentFailed, IsCancelled: true, HoldExpiresAt: &future}
	assert.False(t, cancelledHold.Active(asOf))
}
