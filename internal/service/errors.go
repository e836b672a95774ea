package service

import "errors"

var (
	// ErrInvalidDateRange is returned when a booking request carries a
	// malformed or inverted date range.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidReservationID is returned when a reservation id is missing
	// or not positive.
	ErrInvalidReservationID = errors.New("invalid reservation id")

	// ErrInvalidVehicleID is returned when a vehicle id is missing or not
	// positive.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidCost is returned when a booking request carries a negative
	// cost.
	ErrInvalidCost = errors.New("invalid cost")

	// ErrInvalidSessionID is returned when a payment session id is empty.
	ErrInvalidSessionID = errors.New("invalid payment session id")

	// ErrVehicleNotFound is returned when the booked vehicle does not exist
	// in the catalog.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrVehicleUnavailable is returned when the requested date range
	// overlaps an existing non-cancelled reservation.
	ErrVehicleUnavailable = errors.New("vehicle already booked for this date range")

	// ErrBookingContention is returned when the per-vehicle booking lock is
	// held by a concurrent request. Clients may simply retry.
	ErrBookingContention = errors.New("concurrent booking in progress for this vehicle")

	// ErrReservationCancelled is returned when a payment transition targets
	// a cancelled reservation. Cancellation is terminal for automatic
	// transitions; only an administrative record update can revive it.
	ErrReservationCancelled = errors.New("reservation is cancelled")

	// ErrInvalidSignature is returned when a webhook payload fails the
	// authenticity check.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
