package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"rental/internal/domain"
	"rental/internal/repository"
)

// Postgres error codes that indicate a reservation collided with another
// one at the constraint level.
const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// ReservationRepository is a PostgreSQL implementation of
// repository.ReservationRepository.
//
// The reservations table carries an exclusion constraint
// (reservations_no_overlap) over (vehicle_id, daterange) restricted to
// non-cancelled rows. Inserts racing past the availability pre-check are
// rejected there and surface as repository.ErrConflict.
type ReservationRepository struct {
	q Querier
}

// NewReservationRepository creates a new PostgreSQL reservation repository.
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{q: db}
}

// NewReservationRepositoryWithTx creates a reservation repository using a transaction.
func NewReservationRepositoryWithTx(tx *sql.Tx) *ReservationRepository {
	return &ReservationRepository{q: tx}
}

const reservationColumns = `id, client_id, vehicle_id, start_date, end_date, cost, status, payment_session_id, created_at`

// Create persists a new reservation and fills in the generated ID.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (client_id, vehicle_id, start_date, end_date, cost, status, payment_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, created_at
	`

	err := r.q.QueryRowContext(ctx, query,
		res.ClientID,
		res.VehicleID,
		res.StartDate,
		res.EndDate,
		res.Cost,
		res.Status,
		res.PaymentSessionID,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		if isConstraintConflict(err) {
			return repository.ErrConflict
		}
		return err
	}

	return nil
}

// GetByID retrieves a reservation by ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	return scanReservation(r.q.QueryRowContext(ctx, query, id))
}

// GetAll retrieves all reservations.
func (r *ReservationRepository) GetAll(ctx context.Context) ([]*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows)
}

// GetByClientID retrieves all reservations owned by a client.
func (r *ReservationRepository) GetByClientID(ctx context.Context, clientID int64) ([]*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE client_id = $1 ORDER BY start_date`

	rows, err := r.q.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows)
}

// FindConflicting returns non-cancelled reservations for the vehicle whose
// inclusive date range overlaps [start, end].
func (r *ReservationRepository) FindConflicting(ctx context.Context, vehicleID int64, start, end time.Time) ([]*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE vehicle_id = $1
		  AND status <> 'CANCELLED'
		  AND start_date <= $3
		  AND end_date >= $2
	`

	rows, err := r.q.QueryContext(ctx, query, vehicleID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows)
}

// FindBySessionID retrieves the reservation bound to a payment session id.
func (r *ReservationRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE payment_session_id = $1`

	return scanReservation(r.q.QueryRowContext(ctx, query, sessionID))
}

// UpdateStatus sets the reservation's status.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, status domain.ReservationStatus) error {
	query := `UPDATE reservations SET status = $1 WHERE id = $2`

	return r.exec(ctx, query, status, id)
}

// UpdateSessionID binds (or rebinds) an external payment session id.
func (r *ReservationRepository) UpdateSessionID(ctx context.Context, id int64, sessionID string) error {
	query := `UPDATE reservations SET payment_session_id = NULLIF($1, '') WHERE id = $2`

	return r.exec(ctx, query, sessionID, id)
}

// Update replaces the whole record.
func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	query := `
		UPDATE reservations
		SET client_id = $1, vehicle_id = $2, start_date = $3, end_date = $4,
		    cost = $5, status = $6, payment_session_id = NULLIF($7, '')
		WHERE id = $8
	`

	return r.exec(ctx, query,
		res.ClientID,
		res.VehicleID,
		res.StartDate,
		res.EndDate,
		res.Cost,
		res.Status,
		res.PaymentSessionID,
		res.ID,
	)
}

// Delete removes a reservation.
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM reservations WHERE id = $1`

	return r.exec(ctx, query, id)
}

// exec runs a mutation and folds "no rows touched" into ErrNotFound and
// constraint collisions into ErrConflict.
func (r *ReservationRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isConstraintConflict(err) {
			return repository.ErrConflict
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanReservation(row *sql.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	var sessionID sql.NullString

	err := row.Scan(
		&res.ID,
		&res.ClientID,
		&res.VehicleID,
		&res.StartDate,
		&res.EndDate,
		&res.Cost,
		&res.Status,
		&sessionID,
		&res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	res.PaymentSessionID = sessionID.String
	return &res, nil
}

func collectReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	var result []*domain.Reservation

	for rows.Next() {
		var res domain.Reservation
		var sessionID sql.NullString

		err := rows.Scan(
			&res.ID,
			&res.ClientID,
			&res.VehicleID,
			&res.StartDate,
			&res.EndDate,
			&res.Cost,
			&res.Status,
			&sessionID,
			&res.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		res.PaymentSessionID = sessionID.String
		result = append(result, &res)
	}

	return result, rows.Err()
}

// isConstraintConflict reports whether err is a postgres unique or exclusion
// violation on the reservations table.
func isConstraintConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUniqueViolation || pqErr.Code == pqExclusionViolation
}
