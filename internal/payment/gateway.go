// Package payment abstracts the charge step of booking confirmation.
// The real system would talk to a PSP here; the shipped implementation
// is a deterministic stub.
package payment

import "context"

// Gateway charges the holder of a booking. Implementations must be
// safe for concurrent use. A declined charge is reported via the
// approved return value, not an error; errors mean the charge outcome
// is unknown.
type Gateway interface {
	Charge(ctx context.Context, bookingID uint64, amountCents uint32) (approved bool, err error)
}

// StubGateway approves every charge. Useful for demos and tests.
type StubGateway struct{}

// Charge always approves.
func (StubGateway) Charge(_ context.Context, _ uint64, _ uint32) (bool, error) {
	return true, nil
}

// DecliningGateway declines every charge. Used in tests to exercise
// the failed-payment path.
type DecliningGateway struct{}

// Charge always declines.
func (DecliningGateway) Charge(_ context.Context, _ uint64, _ uint32) (bool, error) {
	return false, nil
}
