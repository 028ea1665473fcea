// Package sim moves registered cars along their routes. The Engine
// owns the live car registry and the per-tick state transition; the
// Scheduler drives it at a fixed interval for the process lifetime.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetlab/carsim/internal/db"
	"github.com/fleetlab/carsim/internal/geo"
	"github.com/fleetlab/carsim/internal/models"
)

// ErrInvalidPath rejects registration of a route with fewer than two
// coordinates.
var ErrInvalidPath = errors.New("route must have at least 2 coordinates")

// Store is the slice of the record store the engine needs: a per-tick
// speed lookup, the position sink, and the status writeback.
type Store interface {
	CarByID(ctx context.Context, id string) (*models.Car, error)
	InsertPosition(ctx context.Context, pos models.Position) error
	UpdateCarStatus(ctx context.Context, id, status string) error
}

// SampleSink receives every position sample the engine emits, after it
// has been persisted. Sinks must be cheap and must not block the tick.
type SampleSink interface {
	EmitSample(pos models.Position)
}

// carState is the in-memory state of one simulated car. The route
// itself is immutable; position is the movement cursor within the
// current segment.
type carState struct {
	path     []models.Coordinate
	segment  int     // index of the waypoint most recently reached
	position models.Coordinate
	progress float64 // percent, [0,100]
	heading  float64 // last emitted heading, degrees
	status   string
}

// Engine holds the registry of live cars and advances them along their
// routes. Safe for concurrent use: the tick loop advances cars while
// request handlers register, remove and clear.
type Engine struct {
	mu    sync.Mutex
	cars  map[string]*carState
	store Store
	sinks []SampleSink
}

// NewEngine builds an engine over the given store. Any sinks receive a
// copy of every emitted sample.
func NewEngine(store Store, sinks ...SampleSink) *Engine {
	return &Engine{
		cars:  make(map[string]*carState),
		store: store,
		sinks: sinks,
	}
}

// Register adds a car to the simulation and emits its initial position
// sample at the first waypoint, heading toward the second. Returns
// ErrInvalidPath when the route is too short to move along.
func (e *Engine) Register(ctx context.Context, id string, path []models.Coordinate) error {
	if len(path) < 2 {
		return ErrInvalidPath
	}

	heading := geo.BearingDegrees(path[0], path[1])
	e.mu.Lock()
	e.cars[id] = &carState{
		path:     path,
		segment:  0,
		position: path[0],
		progress: 0,
		heading:  heading,
		status:   models.CarStatusMoving,
	}
	e.mu.Unlock()

	sample := models.Position{
		CarID:     id,
		Lng:       path[0].Lng,
		Lat:       path[0].Lat,
		Heading:   heading,
		Progress:  0,
		Timestamp: time.Now().UTC(),
	}
	if err := e.emit(ctx, sample); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"car_id":    shortID(id),
		"waypoints": len(path),
	}).Info("Car added to simulation")
	return nil
}

// Advance moves one car along its route by the distance its current
// speed covers in tickSeconds. Unknown and finished cars are silent
// no-ops. A car whose record has been deleted externally is removed
// from the registry without emitting a sample.
func (e *Engine) Advance(ctx context.Context, id string, tickSeconds float64) error {
	e.mu.Lock()
	state, ok := e.cars[id]
	if !ok || state.status == models.CarStatusFinished {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	// Speed is read from the store every tick so changes take effect
	// on the next tick.
	car, err := e.store.CarByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		e.Remove(id)
		log.WithField("car_id", shortID(id)).Debug("Car deleted, removed from simulation")
		return nil
	}
	if err != nil {
		return fmt.Errorf("speed lookup for car %s: %w", shortID(id), err)
	}
	speedKmh := car.Speed
	if speedKmh <= 0 {
		speedKmh = models.DefaultSpeedKmh
	}

	e.mu.Lock()
	// The car may have been removed or cleared while the lookup was in
	// flight.
	state, ok = e.cars[id]
	if !ok || state.status == models.CarStatusFinished {
		e.mu.Unlock()
		return nil
	}

	if state.segment >= len(state.path)-1 {
		state.status = models.CarStatusFinished
		state.progress = 100
		e.mu.Unlock()
		return e.finish(ctx, id)
	}

	current := state.position
	next := state.path[state.segment+1]

	budget := (speedKmh / 3.6) * tickSeconds
	segmentLen := geo.DistanceMeters(current, next)

	var newPos models.Coordinate
	var heading float64
	if budget >= segmentLen {
		// Reached the next waypoint; leftover budget is discarded
		// rather than carried into the following segment.
		state.segment++
		newPos = state.path[state.segment]
		if state.segment < len(state.path)-1 {
			heading = geo.BearingDegrees(newPos, state.path[state.segment+1])
		} else {
			heading = state.heading
		}
	} else {
		ratio := 0.0
		if segmentLen > 0 {
			ratio = budget / segmentLen
		}
		newPos = models.Coordinate{
			Lng: current.Lng + (next.Lng-current.Lng)*ratio,
			Lat: current.Lat + (next.Lat-current.Lat)*ratio,
		}
		heading = geo.BearingDegrees(current, next)
	}

	state.position = newPos
	state.heading = heading
	state.progress = float64(state.segment) / float64(len(state.path)-1) * 100

	sample := models.Position{
		CarID:     id,
		Lng:       newPos.Lng,
		Lat:       newPos.Lat,
		Heading:   heading,
		Progress:  state.progress,
		Timestamp: time.Now().UTC(),
	}
	e.mu.Unlock()

	return e.emit(ctx, sample)
}

// finish records the one-way transition to finished in the store. The
// in-memory transition has already happened and stands even when the
// writeback fails; the failure is surfaced to the caller for logging.
func (e *Engine) finish(ctx context.Context, id string) error {
	if err := e.store.UpdateCarStatus(ctx, id, models.CarStatusFinished); err != nil {
		return fmt.Errorf("update status for car %s: %w", shortID(id), err)
	}
	log.WithField("car_id", shortID(id)).Info("Car finished route")
	return nil
}

// emit persists one sample and fans it out to the sinks.
func (e *Engine) emit(ctx context.Context, pos models.Position) error {
	if err := e.store.InsertPosition(ctx, pos); err != nil {
		return fmt.Errorf("insert position for car %s: %w", shortID(pos.CarID), err)
	}
	for _, sink := range e.sinks {
		sink.EmitSample(pos)
	}
	return nil
}

// Remove deregisters a car unconditionally. Removing an unknown id is
// a no-op.
func (e *Engine) Remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cars, id)
}

// Clear empties the registry. Used by the reset operation.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cars = make(map[string]*carState)
}

// CarIDs returns a snapshot of the registered car ids, so callers can
// iterate while the registry keeps changing.
func (e *Engine) CarIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.cars))
	for id := range e.cars {
		ids = append(ids, id)
	}
	return ids
}

// ActiveCars reports how many cars are registered, finished ones
// included until they are removed or cleared.
func (e *Engine) ActiveCars() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cars)
}

// shortID trims a uuid to its first 8 characters for log lines.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
