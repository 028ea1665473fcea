package db

import (
	"context"
	"sort"
	"sync"

	"github.com/fleetlab/carsim/internal/models"
)

// MemoryStore is an in-memory Store used by tests and by store-less
// local runs. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	cars      map[string]models.Car
	routes    map[string]models.Route
	positions map[string][]models.Position
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cars:      make(map[string]models.Car),
		routes:    make(map[string]models.Route),
		positions: make(map[string][]models.Position),
	}
}

// InsertCar inserts a new car record.
func (s *MemoryStore) InsertCar(ctx context.Context, car models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cars[car.ID] = car
	return nil
}

// CarByID finds a car by its id. Returns ErrNotFound when no such car
// exists.
func (s *MemoryStore) CarByID(ctx context.Context, id string) (*models.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	car, ok := s.cars[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &car, nil
}

// Cars returns all car records, ordered by id.
func (s *MemoryStore) Cars(ctx context.Context) ([]models.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cars := make([]models.Car, 0, len(s.cars))
	for _, car := range s.cars {
		cars = append(cars, car)
	}
	sort.Slice(cars, func(i, j int) bool { return cars[i].ID < cars[j].ID })
	return cars, nil
}

// UpdateCarStatus sets a car's status field.
func (s *MemoryStore) UpdateCarStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	car, ok := s.cars[id]
	if !ok {
		return ErrNotFound
	}
	car.Status = status
	s.cars[id] = car
	return nil
}

// DeleteCar removes a car record. Used by tests to simulate external
// deletion.
func (s *MemoryStore) DeleteCar(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cars, id)
	return nil
}

// InsertRoute inserts a car's route record.
func (s *MemoryStore) InsertRoute(ctx context.Context, route models.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route.CarID] = route
	return nil
}

// RouteByCarID finds the route stored for a car.
func (s *MemoryStore) RouteByCarID(ctx context.Context, carID string) (*models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	route, ok := s.routes[carID]
	if !ok {
		return nil, ErrNotFound
	}
	return &route, nil
}

// InsertPosition appends one position sample.
func (s *MemoryStore) InsertPosition(ctx context.Context, pos models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.CarID] = append(s.positions[pos.CarID], pos)
	return nil
}

// LatestPositionByCarID returns the newest sample for a car.
func (s *MemoryStore) LatestPositionByCarID(ctx context.Context, carID string) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestLocked(carID)
}

func (s *MemoryStore) latestLocked(carID string) (*models.Position, error) {
	samples := s.positions[carID]
	if len(samples) == 0 {
		return nil, ErrNotFound
	}
	latest := samples[0]
	for _, pos := range samples[1:] {
		if pos.Timestamp.After(latest.Timestamp) {
			latest = pos
		}
	}
	return &latest, nil
}

// LatestPositions returns the newest sample of every car that has one,
// ordered by car id.
func (s *MemoryStore) LatestPositions(ctx context.Context) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.positions))
	for id := range s.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var latest []models.Position
	for _, id := range ids {
		pos, err := s.latestLocked(id)
		if err != nil {
			continue
		}
		latest = append(latest, *pos)
	}
	return latest, nil
}

// PositionCount reports how many samples a car has emitted. Test
// helper.
func (s *MemoryStore) PositionCount(carID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions[carID])
}

// DeleteAll clears all simulation data.
func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cars = make(map[string]models.Car)
	s.routes = make(map[string]models.Route)
	s.positions = make(map[string][]models.Position)
	return nil
}
