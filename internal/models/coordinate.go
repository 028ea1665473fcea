package models

// Coordinate is a point on the map in decimal degrees, kept in
// GeoJSON (longitude, latitude) order.
type Coordinate struct {
	Lng float64 `bson:"lng" json:"lng"`
	Lat float64 `bson:"lat" json:"lat"`
}

// LineString is a GeoJSON LineString geometry. Coordinates are
// [lng, lat] pairs, matching what OSRM returns.
type LineString struct {
	Type        string      `bson:"type" json:"type"`
	Coordinates [][]float64 `bson:"coordinates" json:"coordinates"`
}

// NewLineString builds a LineString from an ordered coordinate list.
func NewLineString(coords []Coordinate) LineString {
	pairs := make([][]float64, 0, len(coords))
	for _, c := range coords {
		pairs = append(pairs, []float64{c.Lng, c.Lat})
	}
	return LineString{Type: "LineString", Coordinates: pairs}
}
