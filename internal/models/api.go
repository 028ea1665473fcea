package models

// SpawnCarRequest asks for a new car driving from start to end.
type SpawnCarRequest struct {
	StartLng float64 `json:"start_lng"`
	StartLat float64 `json:"start_lat"`
	EndLng   float64 `json:"end_lng"`
	EndLat   float64 `json:"end_lat"`
	Speed    float64 `json:"speed,omitempty"` // km/h, defaults to DefaultSpeedKmh
}

// RouteSummary is the distance/duration part of a resolved route.
type RouteSummary struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
}

// SpawnCarResponse reports a successful spawn.
type SpawnCarResponse struct {
	Success bool         `json:"success"`
	CarID   string       `json:"car_id"`
	Message string       `json:"message"`
	Route   RouteSummary `json:"route"`
}

// CarWithPosition joins a car record with its latest sample and route
// geometry for list responses. Position fields are nil until the first
// sample exists.
type CarWithPosition struct {
	ID         string      `json:"id"`
	StartLat   float64     `json:"start_lat"`
	StartLng   float64     `json:"start_lng"`
	EndLat     float64     `json:"end_lat"`
	EndLng     float64     `json:"end_lng"`
	Speed      float64     `json:"speed"`
	Status     string      `json:"status"`
	CurrentLat *float64    `json:"current_lat,omitempty"`
	CurrentLng *float64    `json:"current_lng,omitempty"`
	Heading    *float64    `json:"heading,omitempty"`
	Progress   *float64    `json:"progress,omitempty"`
	Geometry   *LineString `json:"route_geometry,omitempty"`
}

// RouteResponse is a resolved route for the preview endpoint.
type RouteResponse struct {
	Geometry    LineString  `json:"geometry"`
	Distance    float64     `json:"distance"`    // meters
	Duration    float64     `json:"duration"`    // seconds
	Coordinates [][]float64 `json:"coordinates"` // [lng, lat] pairs
}

// CarToUserRoute is a route from a car's current position to the user.
type CarToUserRoute struct {
	CarID       string      `json:"car_id"`
	UserLat     float64     `json:"user_lat"`
	UserLng     float64     `json:"user_lng"`
	Coordinates [][]float64 `json:"coordinates"`
	Distance    float64     `json:"distance"` // meters
	Duration    float64     `json:"duration"` // seconds
}

// NearbyCar is a car position annotated with its distance to the user.
type NearbyCar struct {
	CarID      string  `json:"car_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Heading    float64 `json:"heading"`
	DistanceKm float64 `json:"distance_km"`
}

// ChatRequest is a chat command plus the user's location.
type ChatRequest struct {
	Message string  `json:"message"`
	UserLat float64 `json:"user_lat"`
	UserLng float64 `json:"user_lng"`
}

// ChatResponse is the interpreter's reply with any matched cars.
type ChatResponse struct {
	Reply          string      `json:"reply"`
	Cars           []NearbyCar `json:"cars"`
	HighlightCarID string      `json:"highlight_car_id,omitempty"`
}

// HealthResponse reports engine liveness for the health endpoint.
type HealthResponse struct {
	Status            string `json:"status"`
	SimulationRunning bool   `json:"simulation_running"`
	ActiveCars        int    `json:"active_cars"`
}
