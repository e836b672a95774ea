// Package queue defines message payloads exchanged over the message broker.
package queue

// Reservation event types published to the reservation.events queue.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationPaid      = "reservation.paid"
	EventReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published whenever a reservation is created or its
// payment status changes. It carries enough for downstream consumers
// (notifications, analytics) without querying the primary database.
type ReservationEvent struct {
	Type          string  `json:"type"`
	ReservationID int64   `json:"reservation_id"`
	ClientID      int64   `json:"client_id"`
	VehicleID     int64   `json:"vehicle_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Cost          float64 `json:"cost"`
	Status        string  `json:"status"`
	OccurredAt    string  `json:"occurred_at"`
}
