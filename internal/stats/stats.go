// Package stats computes aggregate summaries over observation rows: count-
// weighted totals, location density, species rankings, and the planar
// centroid used to center export maps.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

// MinSpeciesRows is the observation-row threshold for per-species export
// artifacts. A species below it can still appear in TopSpecies rankings; it
// just gets no dedicated map layer.
const MinSpeciesRows = 3

// SpeciesCount pairs a species with its count-weighted total.
type SpeciesCount struct {
	Species string `json:"species"`
	Total   int    `json:"total"`
}

// Summary is the aggregate view of one dataset's observations.
// TotalObservations weighs each row by its Count; UniqueLocations counts
// distinct (lat,lng) pairs by exact float equality.
type Summary struct {
	TotalObservations int               `json:"total_observations"`
	UniqueSpecies     int               `json:"unique_species"`
	UniqueLocations   int               `json:"unique_locations"`
	AverageDensity    float64           `json:"average_density"`
	Centroid          domain.Coordinate `json:"centroid"`
	Bounds            domain.Bounds     `json:"bounds"`

	totals    map[string]int
	rows      map[string]int
	firstSeen map[string]int
}

// Aggregate computes the summary for a set of observations. An empty set
// yields the zero summary: density 0, never NaN.
func Aggregate(obs []domain.Observation) Summary {
	s := Summary{
		totals:    make(map[string]int),
		rows:      make(map[string]int),
		firstSeen: make(map[string]int),
	}
	if len(obs) == 0 {
		return s
	}

	lats := make([]float64, len(obs))
	lngs := make([]float64, len(obs))
	coords := make([]domain.Coordinate, len(obs))
	locations := make(map[domain.Coordinate]struct{}, len(obs))
	for i, o := range obs {
		s.TotalObservations += o.Count
		if _, seen := s.totals[o.Species]; !seen {
			s.firstSeen[o.Species] = len(s.firstSeen)
		}
		s.totals[o.Species] += o.Count
		s.rows[o.Species]++

		lats[i], lngs[i] = o.Lat, o.Lng
		coords[i] = domain.Coordinate{Lat: o.Lat, Lng: o.Lng}
		locations[coords[i]] = struct{}{}
	}

	s.UniqueSpecies = len(s.totals)
	s.UniqueLocations = len(locations)
	if s.UniqueLocations > 0 {
		s.AverageDensity = round1(float64(s.TotalObservations) / float64(s.UniqueLocations))
	}
	// Centroid is a planar mean, not geodesic. Fine at survey extents.
	s.Centroid = domain.Coordinate{Lat: stat.Mean(lats, nil), Lng: stat.Mean(lngs, nil)}
	s.Bounds = domain.BoundsOf(coords)
	return s
}

// TopSpecies returns up to n species ordered by count-weighted total,
// descending. Ties keep first-seen row order, so rankings are stable across
// runs.
func (s Summary) TopSpecies(n int) []SpeciesCount {
	out := make([]SpeciesCount, 0, len(s.totals))
	for species, total := range s.totals {
		out = append(out, SpeciesCount{Species: species, Total: total})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return s.firstSeen[out[i].Species] < s.firstSeen[out[j].Species]
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RowCount reports how many observation rows a species has, unweighted by
// Count.
func (s Summary) RowCount(species string) int {
	return s.rows[species]
}

// EligibleForDetail reports whether a species has enough rows for a
// dedicated export layer.
func (s Summary) EligibleForDetail(species string) bool {
	return s.rows[species] >= MinSpeciesRows
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
