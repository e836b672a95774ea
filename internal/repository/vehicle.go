package repository

import (
	"context"

	"rental/internal/domain"
)

// VehicleCatalog is the read-only view of the vehicle catalog this service
// consumes. Catalog writes belong to another part of the system.
type VehicleCatalog interface {
	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)

	// Exists reports whether a vehicle exists in the catalog.
	Exists(ctx context.Context, id int64) (bool, error)
}
