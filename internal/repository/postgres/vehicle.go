package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rental/internal/domain"
	"rental/internal/repository"
)

// VehicleCatalog is a PostgreSQL implementation of repository.VehicleCatalog.
type VehicleCatalog struct {
	q Querier
}

// NewVehicleCatalog creates a new PostgreSQL vehicle catalog.
func NewVehicleCatalog(db *sql.DB) *VehicleCatalog {
	return &VehicleCatalog{q: db}
}

// GetByID retrieves a vehicle by ID.
func (c *VehicleCatalog) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `SELECT id, make, model, daily_rate FROM vehicles WHERE id = $1`

	var v domain.Vehicle
	err := c.q.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Make, &v.Model, &v.DailyRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &v, nil
}

// Exists reports whether a vehicle exists in the catalog.
func (c *VehicleCatalog) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`

	var exists bool
	if err := c.q.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}
