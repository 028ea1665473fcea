package models

import (
	"time"
)

// Car statuses. A car only ever moves from moving to finished.
const (
	CarStatusMoving   = "moving"
	CarStatusFinished = "finished"
)

// DefaultSpeedKmh is used when a spawn request does not set a speed.
const DefaultSpeedKmh = 30.0

// Car represents a simulated car record.
type Car struct {
	ID        string    `bson:"_id" json:"id"`
	StartLat  float64   `bson:"start_lat" json:"start_lat"`
	StartLng  float64   `bson:"start_lng" json:"start_lng"`
	EndLat    float64   `bson:"end_lat" json:"end_lat"`
	EndLng    float64   `bson:"end_lng" json:"end_lng"`
	Speed     float64   `bson:"speed" json:"speed"` // km/h
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
