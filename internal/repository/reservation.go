package repository

import (
	"context"
	"time"

	"rental/internal/domain"
)

// ReservationRepository defines the persistence operations for reservations.
// It is the only shared mutable resource in the system; every component
// goes through it, never around it.
type ReservationRepository interface {
	// Create persists a new reservation and assigns its ID.
	// Returns ErrConflict if the insert violates the no-overlap constraint.
	Create(ctx context.Context, reservation *domain.Reservation) error

	// GetByID retrieves a reservation by ID.
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)

	// GetAll retrieves all reservations.
	GetAll(ctx context.Context) ([]*domain.Reservation, error)

	// GetByClientID retrieves all reservations owned by a client.
	GetByClientID(ctx context.Context, clientID int64) ([]*domain.Reservation, error)

	// FindConflicting returns the non-cancelled reservations for a vehicle
	// whose inclusive date range overlaps [start, end].
	FindConflicting(ctx context.Context, vehicleID int64, start, end time.Time) ([]*domain.Reservation, error)

	// FindBySessionID retrieves the reservation bound to an external
	// payment session id.
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Reservation, error)

	// UpdateStatus sets the reservation's status.
	UpdateStatus(ctx context.Context, id int64, status domain.ReservationStatus) error

	// UpdateSessionID binds (or rebinds) an external payment session id.
	UpdateSessionID(ctx context.Context, id int64, sessionID string) error

	// Update replaces the whole record. Administrative override only.
	Update(ctx context.Context, reservation *domain.Reservation) error

	// Delete removes a reservation. Administrative operation, independent
	// of status.
	Delete(ctx context.Context, id int64) error
}
