package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetlab/carsim/internal/db"
	"github.com/fleetlab/carsim/internal/models"
)

func TestScheduler_StartStopIdempotent(t *testing.T) {
	e := NewEngine(db.NewMemoryStore())
	s := NewScheduler(e, 10*time.Millisecond)

	assert.False(t, s.Running())
	s.Stop() // stopping before starting is a no-op

	s.Start()
	s.Start() // second start does not spawn a second loop
	assert.True(t, s.Running())

	s.Stop()
	assert.False(t, s.Running())
	s.Stop()

	// The loop can be restarted after a stop.
	s.Start()
	assert.True(t, s.Running())
	s.Stop()
}

func TestScheduler_AdvancesRegisteredCars(t *testing.T) {
	store := db.NewMemoryStore()
	sink := &recordingSink{}
	e := NewEngine(store, sink)
	s := NewScheduler(e, 10*time.Millisecond)

	path := []models.Coordinate{
		{Lng: 0, Lat: 0},
		{Lng: 0, Lat: 0.01},
	}
	addCar(t, e, store, "car-1", 36, path)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return store.PositionCount("car-1") > 3
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_FinishesShortRoute(t *testing.T) {
	store := db.NewMemoryStore()
	e := NewEngine(store)
	s := NewScheduler(e, 5*time.Millisecond)

	// A few metres at high speed finishes within a couple of ticks.
	path := []models.Coordinate{
		{Lng: 0, Lat: 0},
		{Lng: 0, Lat: latDegrees(5)},
	}
	addCar(t, e, store, "car-1", 3600, path)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		car, err := store.CarByID(context.Background(), "car-1")
		return err == nil && car.Status == models.CarStatusFinished
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_IsolatesFailingCar(t *testing.T) {
	store := &flakyStore{MemoryStore: db.NewMemoryStore()}
	e := NewEngine(store)
	s := NewScheduler(e, 5*time.Millisecond)
	ctx := context.Background()

	path := []models.Coordinate{
		{Lng: 0, Lat: 0},
		{Lng: 0, Lat: 0.01},
	}
	for _, id := range []string{"good-car", "bad-car"} {
		assert.NoError(t, store.InsertCar(ctx, models.Car{ID: id, Speed: 36}))
		assert.NoError(t, e.Register(ctx, id, path))
	}
	store.setFail("bad-car")

	s.Start()
	defer s.Stop()

	// The failing car must not stall the healthy one.
	assert.Eventually(t, func() bool {
		return store.PositionCount("good-car") > 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, store.PositionCount("bad-car"))
	assert.Equal(t, 2, e.ActiveCars())
}

func TestScheduler_StopHaltsTicking(t *testing.T) {
	store := db.NewMemoryStore()
	e := NewEngine(store)
	s := NewScheduler(e, 5*time.Millisecond)

	path := []models.Coordinate{
		{Lng: 0, Lat: 0},
		{Lng: 0, Lat: 0.01},
	}
	addCar(t, e, store, "car-1", 36, path)

	s.Start()
	assert.Eventually(t, func() bool {
		return store.PositionCount("car-1") > 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	count := store.PositionCount("car-1")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, store.PositionCount("car-1"))
}

func TestScheduler_RegisterWhileRunning(t *testing.T) {
	store := db.NewMemoryStore()
	e := NewEngine(store)
	s := NewScheduler(e, 5*time.Millisecond)

	s.Start()
	defer s.Stop()

	path := []models.Coordinate{
		{Lng: 0, Lat: 0},
		{Lng: 0, Lat: 0.01},
	}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a'+n)) + "-car"
			assert.NoError(t, store.InsertCar(context.Background(), models.Car{ID: id, Speed: 36}))
			assert.NoError(t, e.Register(context.Background(), id, path))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, e.ActiveCars())
}
