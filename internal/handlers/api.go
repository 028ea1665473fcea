package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fleetlab/carsim/internal/cache"
	"github.com/fleetlab/carsim/internal/chat"
	"github.com/fleetlab/carsim/internal/db"
	"github.com/fleetlab/carsim/internal/geo"
	"github.com/fleetlab/carsim/internal/models"
	"github.com/fleetlab/carsim/internal/routing"
	"github.com/fleetlab/carsim/internal/sim"
)

// defaultNearbyRadiusKm bounds nearby-car queries without an explicit
// radius.
const defaultNearbyRadiusKm = 10.0

// RouteResolver resolves a driving route between two points.
type RouteResolver interface {
	Resolve(ctx context.Context, start, end models.Coordinate) routing.Route
}

// positionSource answers latest-position queries from the cache when
// possible, falling back to the store.
type positionSource struct {
	store db.Store
	cache *cache.Cache
}

func (s positionSource) Latest(ctx context.Context, carID string) (*models.Position, error) {
	if pos, ok := s.cache.Latest(ctx, carID); ok {
		return &pos, nil
	}
	return s.store.LatestPositionByCarID(ctx, carID)
}

func (s positionSource) LatestPositions(ctx context.Context) ([]models.Position, error) {
	if positions, ok := s.cache.LatestAll(ctx); ok && len(positions) > 0 {
		return positions, nil
	}
	return s.store.LatestPositions(ctx)
}

// APIHandler handles the simulation API requests.
type APIHandler struct {
	store     db.Store
	routes    RouteResolver
	engine    *sim.Engine
	sched     *sim.Scheduler
	cache     *cache.Cache
	positions positionSource
	chat      *chat.Interpreter
}

// NewAPIHandler creates the handler for every /api endpoint.
func NewAPIHandler(store db.Store, routes RouteResolver, engine *sim.Engine, sched *sim.Scheduler, c *cache.Cache) *APIHandler {
	positions := positionSource{store: store, cache: c}
	return &APIHandler{
		store:     store,
		routes:    routes,
		engine:    engine,
		sched:     sched,
		cache:     c,
		positions: positions,
		chat:      chat.NewInterpreter(positions),
	}
}

// SpawnCar resolves a route, records the car and adds it to the
// simulation.
func (h *APIHandler) SpawnCar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.SpawnCarRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate input
	if !validLat(req.StartLat) || !validLat(req.EndLat) {
		http.Error(w, "Latitude must be between -90 and 90", http.StatusBadRequest)
		return
	}
	if !validLng(req.StartLng) || !validLng(req.EndLng) {
		http.Error(w, "Longitude must be between -180 and 180", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 {
		http.Error(w, "Speed must be non-negative", http.StatusBadRequest)
		return
	}
	speed := req.Speed
	if speed == 0 {
		speed = models.DefaultSpeedKmh
	}

	start := models.Coordinate{Lng: req.StartLng, Lat: req.StartLat}
	end := models.Coordinate{Lng: req.EndLng, Lat: req.EndLat}
	route := h.routes.Resolve(r.Context(), start, end)

	carID := uuid.NewString()
	now := time.Now().UTC()
	car := models.Car{
		ID:        carID,
		StartLat:  req.StartLat,
		StartLng:  req.StartLng,
		EndLat:    req.EndLat,
		EndLng:    req.EndLng,
		Speed:     speed,
		Status:    models.CarStatusMoving,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.InsertCar(r.Context(), car); err != nil {
		log.WithError(err).Error("Failed to insert car")
		http.Error(w, "Failed to spawn car", http.StatusInternalServerError)
		return
	}

	record := models.Route{
		CarID:     carID,
		Geometry:  route.Geometry(),
		Distance:  route.Distance,
		Duration:  route.Duration,
		CreatedAt: now,
	}
	if err := h.store.InsertRoute(r.Context(), record); err != nil {
		log.WithError(err).Error("Failed to insert route")
		http.Error(w, "Failed to spawn car", http.StatusInternalServerError)
		return
	}

	if err := h.engine.Register(r.Context(), carID, route.Coordinates); err != nil {
		log.WithError(err).Error("Failed to add car to simulation")
		http.Error(w, "Failed to spawn car", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.SpawnCarResponse{
		Success: true,
		CarID:   carID,
		Message: fmt.Sprintf("Car spawned successfully with %d waypoints", len(route.Coordinates)),
		Route:   models.RouteSummary{Distance: route.Distance, Duration: route.Duration},
	})
}

// Cars returns every car joined with its latest position and route
// geometry.
func (h *APIHandler) Cars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cars, err := h.store.Cars(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to fetch cars")
		http.Error(w, "Failed to fetch cars", http.StatusInternalServerError)
		return
	}

	result := make([]models.CarWithPosition, 0, len(cars))
	for _, car := range cars {
		entry := models.CarWithPosition{
			ID:       car.ID,
			StartLat: car.StartLat,
			StartLng: car.StartLng,
			EndLat:   car.EndLat,
			EndLng:   car.EndLng,
			Speed:    car.Speed,
			Status:   car.Status,
		}

		pos, err := h.positions.Latest(r.Context(), car.ID)
		switch {
		case err == nil:
			entry.CurrentLat = &pos.Lat
			entry.CurrentLng = &pos.Lng
			entry.Heading = &pos.Heading
			entry.Progress = &pos.Progress
		case !errors.Is(err, db.ErrNotFound):
			log.WithError(err).Error("Failed to fetch car position")
			http.Error(w, "Failed to fetch cars", http.StatusInternalServerError)
			return
		}

		route, err := h.store.RouteByCarID(r.Context(), car.ID)
		switch {
		case err == nil:
			entry.Geometry = &route.Geometry
		case !errors.Is(err, db.ErrNotFound):
			log.WithError(err).Error("Failed to fetch car route")
			http.Error(w, "Failed to fetch cars", http.StatusInternalServerError)
			return
		}

		result = append(result, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// RoutePreview resolves a route between two query-string points
// without spawning anything.
func (h *APIHandler) RoutePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	startLng, err1 := parseFloatParam(q, "start_lng")
	startLat, err2 := parseFloatParam(q, "start_lat")
	endLng, err3 := parseFloatParam(q, "end_lng")
	endLat, err4 := parseFloatParam(q, "end_lat")
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		http.Error(w, "start_lng, start_lat, end_lng and end_lat are required", http.StatusBadRequest)
		return
	}

	route := h.routes.Resolve(r.Context(),
		models.Coordinate{Lng: startLng, Lat: startLat},
		models.Coordinate{Lng: endLng, Lat: endLat})
	geom := route.Geometry()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.RouteResponse{
		Geometry:    geom,
		Distance:    route.Distance,
		Duration:    route.Duration,
		Coordinates: geom.Coordinates,
	})
}

// NearbyCars lists cars within a radius of the user, closest first.
func (h *APIHandler) NearbyCars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	userLat, err1 := parseFloatParam(q, "user_lat")
	userLng, err2 := parseFloatParam(q, "user_lng")
	if err1 != nil || err2 != nil {
		http.Error(w, "user_lat and user_lng are required", http.StatusBadRequest)
		return
	}
	radiusKm := defaultNearbyRadiusKm
	if raw := q.Get("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid radius_km", http.StatusBadRequest)
			return
		}
		radiusKm = parsed
	}

	positions, err := h.positions.LatestPositions(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to fetch positions")
		http.Error(w, "Failed to fetch nearby cars", http.StatusInternalServerError)
		return
	}

	user := models.Coordinate{Lng: userLng, Lat: userLat}
	nearby := make([]models.NearbyCar, 0)
	for _, pos := range positions {
		dist := geo.HaversineKm(user, models.Coordinate{Lng: pos.Lng, Lat: pos.Lat})
		if dist <= radiusKm {
			nearby = append(nearby, models.NearbyCar{
				CarID:      pos.CarID,
				Lat:        pos.Lat,
				Lng:        pos.Lng,
				Heading:    pos.Heading,
				DistanceKm: round2(dist),
			})
		}
	}
	sort.Slice(nearby, func(a, b int) bool { return nearby[a].DistanceKm < nearby[b].DistanceKm })

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nearby)
}

// CarToUser resolves a route from a car's current position to the
// user's location.
func (h *APIHandler) CarToUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	carID := q.Get("car_id")
	if carID == "" {
		http.Error(w, "car_id is required", http.StatusBadRequest)
		return
	}
	userLat, err1 := parseFloatParam(q, "user_lat")
	userLng, err2 := parseFloatParam(q, "user_lng")
	if err1 != nil || err2 != nil {
		http.Error(w, "user_lat and user_lng are required", http.StatusBadRequest)
		return
	}

	pos, err := h.positions.Latest(r.Context(), carID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Car not found or has no position", http.StatusNotFound)
			return
		}
		log.WithError(err).Error("Failed to fetch car position")
		http.Error(w, "Failed to compute route", http.StatusInternalServerError)
		return
	}

	route := h.routes.Resolve(r.Context(),
		models.Coordinate{Lng: pos.Lng, Lat: pos.Lat},
		models.Coordinate{Lng: userLng, Lat: userLat})
	geom := route.Geometry()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CarToUserRoute{
		CarID:       carID,
		UserLat:     userLat,
		UserLng:     userLng,
		Coordinates: geom.Coordinates,
		Distance:    route.Distance,
		Duration:    route.Duration,
	})
}

// Chat runs a chat command against the live fleet.
func (h *APIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	resp, err := h.chat.Handle(r.Context(), req)
	if err != nil {
		log.WithError(err).Error("Chat command failed")
		http.Error(w, "Chat command failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Reset stops every car and wipes all stored data.
func (h *APIHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.engine.Clear()
	if err := h.store.DeleteAll(r.Context()); err != nil {
		log.WithError(err).Error("Failed to reset simulation")
		http.Error(w, "Failed to reset simulation", http.StatusInternalServerError)
		return
	}
	h.cache.Clear(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Simulation reset successfully",
	})
}

// Health reports engine liveness.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.HealthResponse{
		Status:            "healthy",
		SimulationRunning: h.sched.Running(),
		ActiveCars:        h.engine.ActiveCars(),
	})
}

// Root serves the service banner on / and 404s everything else.
func (h *APIHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "carsim - car circulation simulation API",
		"version": "1.0.0",
	})
}

func parseFloatParam(q url.Values, key string) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	return strconv.ParseFloat(raw, 64)
}

func validLat(v float64) bool { return v >= -90 && v <= 90 }

func validLng(v float64) bool { return v >= -180 && v <= 180 }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
