package models

import (
	"time"
)

// Route stores the driving geometry a car follows, as resolved at
// spawn time. One route per car.
type Route struct {
	CarID     string     `json:"car_id" bson:"car_id"`
	Geometry  LineString `json:"geometry" bson:"geometry"`
	Distance  float64    `json:"distance" bson:"distance"` // meters
	Duration  float64    `json:"duration" bson:"duration"` // seconds
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}
