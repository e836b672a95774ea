package service

import (
	"context"
	"errors"
	"log"
	"time"

	"rental/internal/domain"
	"rental/internal/queue"
	"rental/internal/redis"
	"rental/internal/repository"
)

// vehicleLockTTL bounds how long a booking request may hold the per-vehicle
// lock. Long enough for a check-then-insert round trip, short enough that a
// crashed holder does not block the vehicle for long.
const vehicleLockTTL = 5 * time.Second

// EventPublisher publishes reservation lifecycle events.
// Implementations must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event queue.ReservationEvent) error
}

// Ensure the AMQP publisher satisfies the interface.
var _ EventPublisher = (*queue.Publisher)(nil)

// ReservationService owns the reservation state machine
// (PENDING -> PAID / MANUAL / CANCELLED) and is the only component that
// mutates reservation status.
type ReservationService struct {
	reservations repository.ReservationRepository
	catalog      repository.VehicleCatalog
	locks        redis.LockStoreInterface // optional
	events       EventPublisher           // optional
}

// NewReservationService creates a new ReservationService. The lock store and
// event publisher may be nil; booking then relies solely on the store-level
// no-overlap constraint, and no events are emitted.
func NewReservationService(
	reservations repository.ReservationRepository,
	catalog repository.VehicleCatalog,
	locks redis.LockStoreInterface,
	events EventPublisher,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		catalog:      catalog,
		locks:        locks,
		events:       events,
	}
}

// CreateReservationRequest contains the parameters for booking a vehicle.
type CreateReservationRequest struct {
	ClientID  int64
	VehicleID int64
	StartDate time.Time
	EndDate   time.Time
	Cost      float64
}

// CreateReservation books a vehicle for an inclusive date range and persists
// the reservation in PENDING state.
//
// The availability check and the insert are serialized per vehicle through a
// short distributed lock, and the insert itself is guarded by the store's
// exclusion constraint. Whichever of the two rejects a concurrent overlap,
// the caller sees the same ErrVehicleUnavailable outcome.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*domain.Reservation, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	exists, err := s.catalog.Exists(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrVehicleNotFound
	}

	if s.locks != nil {
		acquired, err := s.locks.AcquireVehicleLock(ctx, req.VehicleID, vehicleLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrBookingContention
		}
		defer func() {
			if err := s.locks.ReleaseVehicleLock(ctx, req.VehicleID); err != nil {
				log.Printf("failed to release vehicle lock: vehicle_id=%d err=%v", req.VehicleID, err)
			}
		}()
	}

	available, err := s.IsAvailable(ctx, req.VehicleID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrVehicleUnavailable
	}

	reservation := &domain.Reservation{
		ClientID:  req.ClientID,
		VehicleID: req.VehicleID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Cost:      req.Cost,
		Status:    domain.ReservationStatusPending,
	}

	if err := s.reservations.Create(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent booking slipped past the pre-check and won the
			// constraint race. Same client-visible outcome.
			return nil, ErrVehicleUnavailable
		}
		return nil, err
	}

	s.publish(ctx, queue.EventReservationCreated, reservation)

	return reservation, nil
}

// IsAvailable reports whether the vehicle has no non-cancelled reservation
// overlapping the inclusive range [start, end]. It has no side effects; the
// booking path re-validates under the per-vehicle lock and the store
// constraint.
func (s *ReservationService) IsAvailable(ctx context.Context, vehicleID int64, start, end time.Time) (bool, error) {
	conflicts, err := s.reservations.FindConflicting(ctx, vehicleID, start, end)
	if err != nil {
		return false, err
	}

	return len(conflicts) == 0, nil
}

// MarkPaid transitions a reservation to PAID. Calling it twice has the same
// effect as once. A cancelled reservation is not revived: the transition is
// refused with ErrReservationCancelled. Missing ids report ErrNotFound
// instead of being silently dropped so callers can tell "already handled"
// from "never existed".
func (s *ReservationService) MarkPaid(ctx context.Context, id int64) (*domain.Reservation, error) {
	return s.transition(ctx, id, domain.ReservationStatusPaid)
}

// MarkManual transitions a reservation to MANUAL: an administrator confirmed
// payment out-of-band. Same idempotency and cancellation rules as MarkPaid.
func (s *ReservationService) MarkManual(ctx context.Context, id int64) (*domain.Reservation, error) {
	return s.transition(ctx, id, domain.ReservationStatusManual)
}

// MarkCancelled transitions a reservation to CANCELLED, releasing its date
// range from the conflict set. Idempotent.
func (s *ReservationService) MarkCancelled(ctx context.Context, id int64) (*domain.Reservation, error) {
	return s.transition(ctx, id, domain.ReservationStatusCancelled)
}

// transition applies a status change with the shared guard rules.
//
// PAID, MANUAL and PENDING remain last-write-wins among themselves: a webhook
// racing an admin override lands on whichever write commits last, and either
// outcome is acceptable for this domain. CANCELLED is the one terminal state
// for automatic transitions.
func (s *ReservationService) transition(ctx context.Context, id int64, target domain.ReservationStatus) (*domain.Reservation, error) {
	if id <= 0 {
		return nil, ErrInvalidReservationID
	}

	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if reservation.Status == target {
		// Redelivered webhook or repeated admin action. Nothing to write.
		return reservation, nil
	}

	if reservation.Status == domain.ReservationStatusCancelled && target != domain.ReservationStatusCancelled {
		return nil, ErrReservationCancelled
	}

	if err := s.reservations.UpdateStatus(ctx, id, target); err != nil {
		return nil, err
	}
	reservation.Status = target

	switch target {
	case domain.ReservationStatusPaid, domain.ReservationStatusManual:
		s.publish(ctx, queue.EventReservationPaid, reservation)
	case domain.ReservationStatusCancelled:
		s.publish(ctx, queue.EventReservationCancelled, reservation)
	}

	return reservation, nil
}

// BindPaymentSession associates a reservation with an external checkout
// session handle. A retried checkout simply overwrites the previous binding.
func (s *ReservationService) BindPaymentSession(ctx context.Context, id int64, sessionID string) error {
	if id <= 0 {
		return ErrInvalidReservationID
	}
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	return s.reservations.UpdateSessionID(ctx, id, sessionID)
}

// GetReservation retrieves a reservation by ID.
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*domain.Reservation, error) {
	if id <= 0 {
		return nil, ErrInvalidReservationID
	}

	return s.reservations.GetByID(ctx, id)
}

// ListReservations retrieves all reservations.
func (s *ReservationService) ListReservations(ctx context.Context) ([]*domain.Reservation, error) {
	return s.reservations.GetAll(ctx)
}

// ListClientReservations retrieves the reservations owned by a client.
func (s *ReservationService) ListClientReservations(ctx context.Context, clientID int64) ([]*domain.Reservation, error) {
	return s.reservations.GetByClientID(ctx, clientID)
}

// UpdateReservation replaces a reservation record. Administrative override:
// it bypasses the transition guards, so it is the one path that may revive a
// cancelled reservation.
func (s *ReservationService) UpdateReservation(ctx context.Context, reservation *domain.Reservation) error {
	if reservation.ID <= 0 {
		return ErrInvalidReservationID
	}
	if reservation.EndDate.Before(reservation.StartDate) {
		return ErrInvalidDateRange
	}

	return s.reservations.Update(ctx, reservation)
}

// DeleteReservation removes a reservation regardless of status.
func (s *ReservationService) DeleteReservation(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidReservationID
	}

	return s.reservations.Delete(ctx, id)
}

func validateCreateRequest(req CreateReservationRequest) error {
	if req.VehicleID <= 0 {
		return ErrInvalidVehicleID
	}

	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate) {
		return ErrInvalidDateRange
	}

	if req.Cost < 0 {
		return ErrInvalidCost
	}

	return nil
}

// publish emits a lifecycle event. Failures are logged by the publisher and
// never interrupt the request flow.
func (s *ReservationService) publish(ctx context.Context, eventType string, r *domain.Reservation) {
	if s.events == nil {
		return
	}

	_ = s.events.Publish(ctx, queue.ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		ClientID:      r.ClientID,
		VehicleID:     r.VehicleID,
		StartDate:     r.StartDate.Format("2006-01-02"),
		EndDate:       r.EndDate.Format("2006-01-02"),
		Cost:          r.Cost,
		Status:        string(r.Status),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})
}
