// Package export builds download artifacts from stored datasets: declarative
// map plans for rendering clients and CSV streams for file export. Plans
// carry data only, never HTML or tile URLs, so any frontend can render them.
package export

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/couchcryptid/species-atlas/internal/domain"
	"github.com/couchcryptid/species-atlas/internal/stats"
)

const (
	heatmapZoom   = 10
	dashboardZoom = 9
	speciesZoom   = 11

	maxDashboardMarkers = 50
	maxSpeciesMaps      = 5

	minMarkerRadius = 5
	maxMarkerRadius = 15
)

// markerPalette colors species markers. The color is chosen by a stable hash
// of the species name so the same species renders the same color across
// processes and exports.
var markerPalette = [...]string{"red", "blue", "green", "purple", "orange"}

// heatmapGradient is the fixed three-stop gradient of the main heatmap.
var heatmapGradient = map[string]string{"0.0": "blue", "0.5": "green", "1.0": "red"}

// ExportPlan is the full export artifact for one dataset.
type ExportPlan struct {
	DatasetID   string           `json:"dataset_id"`
	DatasetName string           `json:"dataset_name"`
	GeneratedAt time.Time        `json:"generated_at"`
	Heatmap     MapSpec          `json:"heatmap"`
	Dashboard   MapSpec          `json:"dashboard"`
	SpeciesMaps []SpeciesMapSpec `json:"species_maps"`
	Stats       StatsBlock       `json:"stats"`
}

// MapSpec describes one renderable map.
type MapSpec struct {
	Title      string            `json:"title"`
	Subtitle   string            `json:"subtitle,omitempty"`
	Center     domain.Coordinate `json:"center"`
	Zoom       int               `json:"zoom"`
	Heat       HeatLayer         `json:"heat"`
	Boundaries []BoundaryOverlay `json:"boundaries,omitempty"`
	Markers    []Marker          `json:"markers,omitempty"`
	Panel      *StatsPanel       `json:"stats_panel,omitempty"`
}

// HeatLayer is a weighted-point heat layer.
type HeatLayer struct {
	Points   []HeatPoint       `json:"points"`
	Radius   int               `json:"radius"`
	Blur     int               `json:"blur"`
	Gradient map[string]string `json:"gradient,omitempty"`
}

// HeatPoint weighs a coordinate by its observation count.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight int     `json:"weight"`
}

// BoundaryOverlay draws a study-area polygon on a map.
type BoundaryOverlay struct {
	Name        string              `json:"name,omitempty"`
	Coordinates []domain.Coordinate `json:"coordinates"`
	Color       string              `json:"color"`
	Weight      int                 `json:"weight"`
	Opacity     float64             `json:"opacity"`
	FillOpacity float64             `json:"fill_opacity"`
}

// Marker is a clickable circle marker on the dashboard map.
type Marker struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius int     `json:"radius"`
	Color  string  `json:"color"`
	Popup  string  `json:"popup"`
}

// StatsPanel is the floating summary box rendered on the heatmap.
type StatsPanel struct {
	TotalObservations int    `json:"total_observations"`
	UniqueSpecies     int    `json:"unique_species"`
	GeneratedDate     string `json:"generated_date"`
}

// SpeciesMapSpec is a dedicated map for one high-volume species.
type SpeciesMapSpec struct {
	Species    string  `json:"species"`
	RowCount   int     `json:"row_count"`
	TotalCount int     `json:"total_count"`
	Map        MapSpec `json:"map"`
}

// StatsBlock is the aggregate summary attached to the plan.
type StatsBlock struct {
	stats.Summary
	TopSpecies []stats.SpeciesCount `json:"top_species"`
}

// Plan builds the export artifact for a dataset: a gradient heatmap, a marker
// dashboard, and per-species maps for the top species that clear the
// row-count threshold. Boundary regions from the same session are overlaid
// on every map. A dataset with no observation rows cannot be planned.
func Plan(meta domain.Dataset, obs []domain.Observation, boundaries []domain.BoundaryRegion) (ExportPlan, error) {
	if len(obs) == 0 {
		return ExportPlan{}, fmt.Errorf("plan export for %s: %w", meta.ID, domain.ErrEmptyDataset)
	}

	summary := stats.Aggregate(obs)
	overlays := boundaryOverlays(boundaries)
	generatedAt := domain.Now()

	return ExportPlan{
		DatasetID:   meta.ID,
		DatasetName: meta.Name,
		GeneratedAt: generatedAt,
		Heatmap:     heatmapSpec(meta.Name, summary, obs, overlays, generatedAt),
		Dashboard:   dashboardSpec(meta.Name, summary, obs, overlays),
		SpeciesMaps: speciesMapSpecs(meta.Name, summary, obs, overlays),
		Stats: StatsBlock{
			Summary:    summary,
			TopSpecies: summary.TopSpecies(maxSpeciesMaps),
		},
	}, nil
}

func heatmapSpec(datasetName string, summary stats.Summary, obs []domain.Observation, overlays []BoundaryOverlay, generatedAt time.Time) MapSpec {
	return MapSpec{
		Title:    "Species Distribution Heatmap",
		Subtitle: datasetName,
		Center:   summary.Centroid,
		Zoom:     heatmapZoom,
		Heat: HeatLayer{
			Points:   heatPoints(obs),
			Radius:   25,
			Blur:     15,
			Gradient: heatmapGradient,
		},
		Boundaries: overlays,
		Panel: &StatsPanel{
			TotalObservations: summary.TotalObservations,
			UniqueSpecies:     summary.UniqueSpecies,
			GeneratedDate:     generatedAt.Format("2006-01-02"),
		},
	}
}

func dashboardSpec(datasetName string, summary stats.Summary, obs []domain.Observation, overlays []BoundaryOverlay) MapSpec {
	limit := len(obs)
	if limit > maxDashboardMarkers {
		limit = maxDashboardMarkers
	}
	markers := make([]Marker, 0, limit)
	for _, o := range obs[:limit] {
		markers = append(markers, Marker{
			Lat:    o.Lat,
			Lng:    o.Lng,
			Radius: markerRadius(o.Count),
			Color:  markerColor(o.Species),
			Popup:  fmt.Sprintf("<b>%s</b><br>Count: %d", o.Species, o.Count),
		})
	}

	return MapSpec{
		Title:    "Interactive Species Dashboard",
		Subtitle: datasetName,
		Center:   summary.Centroid,
		Zoom:     dashboardZoom,
		Heat: HeatLayer{
			Points: heatPoints(obs),
			Radius: 30,
			Blur:   20,
		},
		Boundaries: overlays,
		Markers:    markers,
	}
}

// speciesMapSpecs builds one map per top species, skipping species below the
// row-count threshold regardless of their rank.
func speciesMapSpecs(datasetName string, summary stats.Summary, obs []domain.Observation, overlays []BoundaryOverlay) []SpeciesMapSpec {
	var specs []SpeciesMapSpec
	for _, sc := range summary.TopSpecies(maxSpeciesMaps) {
		if !summary.EligibleForDetail(sc.Species) {
			continue
		}
		rows := make([]domain.Observation, 0, summary.RowCount(sc.Species))
		for _, o := range obs {
			if o.Species == sc.Species {
				rows = append(rows, o)
			}
		}
		speciesSummary := stats.Aggregate(rows)
		specs = append(specs, SpeciesMapSpec{
			Species:    sc.Species,
			RowCount:   len(rows),
			TotalCount: sc.Total,
			Map: MapSpec{
				Title:    sc.Species,
				Subtitle: datasetName,
				Center:   speciesSummary.Centroid,
				Zoom:     speciesZoom,
				Heat: HeatLayer{
					Points: heatPoints(rows),
					Radius: 20,
					Blur:   10,
				},
				Boundaries: overlays,
			},
		})
	}
	return specs
}

func heatPoints(obs []domain.Observation) []HeatPoint {
	points := make([]HeatPoint, len(obs))
	for i, o := range obs {
		points[i] = HeatPoint{Lat: o.Lat, Lng: o.Lng, Weight: o.Count}
	}
	return points
}

func boundaryOverlays(boundaries []domain.BoundaryRegion) []BoundaryOverlay {
	var overlays []BoundaryOverlay
	for _, b := range boundaries {
		overlays = append(overlays, BoundaryOverlay{
			Name:        b.Name,
			Coordinates: b.Coordinates,
			Color:       "red",
			Weight:      2,
			Opacity:     0.8,
			FillOpacity: 0.1,
		})
	}
	return overlays
}

func markerRadius(count int) int {
	r := count
	if r > maxMarkerRadius {
		r = maxMarkerRadius
	}
	if r < minMarkerRadius {
		r = minMarkerRadius
	}
	return r
}

// markerColor picks from the palette by FNV-1a hash so the assignment is
// stable across processes.
func markerColor(species string) string {
	h := fnv.New32a()
	h.Write([]byte(species))
	return markerPalette[h.Sum32()%uint32(len(markerPalette))]
}
