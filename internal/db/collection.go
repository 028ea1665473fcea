package db

import (
	"context"
	"errors"

	"github.com/fleetlab/carsim/internal/models"
)

// ErrNotFound is returned by the ByID lookups when no record exists.
var ErrNotFound = errors.New("record not found")

// CarCollection defines the interface for car record operations.
type CarCollection interface {
	InsertCar(ctx context.Context, car models.Car) error
	CarByID(ctx context.Context, id string) (*models.Car, error)
	Cars(ctx context.Context) ([]models.Car, error)
	UpdateCarStatus(ctx context.Context, id, status string) error
}

// RouteCollection defines the interface for route record operations.
type RouteCollection interface {
	InsertRoute(ctx context.Context, route models.Route) error
	RouteByCarID(ctx context.Context, carID string) (*models.Route, error)
}

// PositionCollection defines the interface for position history
// operations. Positions are append-only.
type PositionCollection interface {
	InsertPosition(ctx context.Context, pos models.Position) error
	LatestPositionByCarID(ctx context.Context, carID string) (*models.Position, error)
	LatestPositions(ctx context.Context) ([]models.Position, error)
}

// Store is the full record store the server runs against.
type Store interface {
	CarCollection
	RouteCollection
	PositionCollection

	// DeleteAll clears positions, routes and cars, in that order.
	DeleteAll(ctx context.Context) error
}
