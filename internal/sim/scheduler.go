package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// errorCooldown is how long the loop sleeps after a cycle-level
// failure, preventing a tight error loop.
const errorCooldown = time.Second

// Scheduler drives the engine at a fixed interval for the process
// lifetime. Per-car failures are logged and isolated; a cycle-level
// failure triggers a cooldown sleep. Stopping is cooperative: the loop
// observes the stop signal between cycles, never mid-tick.
type Scheduler struct {
	engine   *Engine
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler builds a scheduler ticking every interval.
func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
	}
}

// Start launches the tick loop. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	log.WithField("interval", s.interval).Info("Simulation loop started")
	go s.loop()
}

// Stop signals the loop to exit and waits for the current cycle to
// complete. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	log.Info("Simulation loop stopped")
}

// Running reports whether the tick loop is active, for health checks.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.runCycle(); err != nil {
				log.WithError(err).Error("Simulation cycle failed")
				time.Sleep(errorCooldown)
			}
		}
	}
}

// runCycle advances every registered car once. The id snapshot
// tolerates cars being registered or removed mid-cycle. A panic is
// converted into a cycle error so the loop survives it.
func (s *Scheduler) runCycle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simulation cycle panic: %v", r)
		}
	}()

	ctx := context.Background()
	tickSeconds := s.interval.Seconds()
	for _, id := range s.engine.CarIDs() {
		if err := s.engine.Advance(ctx, id, tickSeconds); err != nil {
			log.WithError(err).WithField("car_id", shortID(id)).Error("Failed to update car")
		}
	}
	return nil
}
