package domain

import "time"

// ReservationStatus represents the payment status of a reservation.
//
// The literal values are persisted and compared exactly; renaming or
// reordering them requires a data migration.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusPaid      ReservationStatus = "PAID"
	ReservationStatusManual    ReservationStatus = "MANUAL"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation binds a client, a vehicle and an inclusive date range,
// with a payment status driven by the reservation service.
type Reservation struct {
	ID               int64
	ClientID         int64
	VehicleID        int64
	StartDate        time.Time // date-only, UTC midnight
	EndDate          time.Time // date-only, UTC midnight, inclusive
	Cost             float64
	Status           ReservationStatus
	PaymentSessionID string // external checkout session handle, empty until checkout begins
	CreatedAt        time.Time
}

// Active reports whether the reservation still occupies its date range.
// Cancelled reservations are excluded from the conflict set.
func (r *Reservation) Active() bool {
	return r.Status != ReservationStatusCancelled
}

// Overlaps reports whether the reservation's inclusive date range
// intersects [start, end]. Two ranges overlap iff
// existing.start <= requested.end AND existing.end >= requested.start,
// so a shared boundary day counts as overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}
