package models

import (
	"time"
)

// Position is one emitted sample of a car's location. Samples are
// append-only; the newest one per car is the car's current position.
type Position struct {
	CarID     string    `bson:"car_id" json:"car_id"`
	Lng       float64   `bson:"lng" json:"lng"`
	Lat       float64   `bson:"lat" json:"lat"`
	Heading   float64   `bson:"heading" json:"heading"`   // degrees, [0,360)
	Progress  float64   `bson:"progress" json:"progress"` // percent, [0,100]
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
