package domain

import (
	"math"
	"strings"
	"time"
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is the axis-aligned envelope of a coordinate set.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Observation is a single normalized species occurrence row.
// Species, Lat, and Lng are always present; Count defaults to 1 when the
// source column is missing or blank; Date and Location are pass-through
// strings, empty when absent.
type Observation struct {
	Species   string    `json:"species"`
	Lat       float64   `json:"latitude"`
	Lng       float64   `json:"longitude"`
	Count     int       `json:"count"`
	Date      string    `json:"date,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidLatitude reports whether v is a usable latitude in degrees.
// NaN fails the range check.
func ValidLatitude(v float64) bool {
	return v >= -90 && v <= 90
}

// ValidLongitude reports whether v is a usable longitude in degrees.
func ValidLongitude(v float64) bool {
	return v >= -180 && v <= 180
}

// IsNullSentinel reports whether a cell value means "absent": empty, "nan",
// or "none" after trimming, case-insensitive.
func IsNullSentinel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none":
		return true
	}
	return false
}

// BoundsOf computes the envelope of a coordinate set.
// Returns the zero Bounds for an empty set.
func BoundsOf(coords []Coordinate) Bounds {
	if len(coords) == 0 {
		return Bounds{}
	}
	b := Bounds{North: -90, South: 90, East: -180, West: 180}
	for _, c := range coords {
		b.North = math.Max(b.North, c.Lat)
		b.South = math.Min(b.South, c.Lat)
		b.East = math.Max(b.East, c.Lng)
		b.West = math.Min(b.West, c.Lng)
	}
	return b
}
