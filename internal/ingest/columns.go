// Package ingest turns uploaded survey files into domain records: tabular
// species observations from CSV/XLSX/XLS and study-area boundaries from
// KML/KMZ. Ingestion is tolerant: columns are mapped by fuzzy name matching,
// and bad rows are skipped and reported, never fatal.
package ingest

import (
	"strings"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

// Synonym lists for column roles. Matching is by substring against the
// lowercased, trimmed header; the first column in sheet order containing any
// synonym wins the role. The lists and their looseness are load-bearing:
// years of field spreadsheets bind through them (see internal/domain doc).
var (
	speciesSynonyms   = []string{"species", "species_name", "scientific_name", "name", "taxon", "bird_name"}
	latitudeSynonyms  = []string{"latitude", "lat", "y", "decimal_latitude", "y_coord"}
	longitudeSynonyms = []string{"longitude", "long", "lng", "lon", "x", "decimal_longitude", "x_coord"}
	countSynonyms     = []string{"count", "abundance", "number", "individuals", "quantity", "total", "no_of_birds"}
	dateSynonyms      = []string{"date", "observation_date", "survey_date", "recorded_date", "date_observed"}
	locationSynonyms  = []string{"location", "place", "site", "area", "locality"}
)

// ColumnMap binds column roles to 0-based column indexes.
// Unmapped optional roles hold -1.
type ColumnMap struct {
	Species   int
	Latitude  int
	Longitude int
	Count     int
	Date      int
	Location  int
}

// MapColumns resolves column roles for a header row. Species, latitude, and
// longitude are required; if any cannot be mapped the result is a
// *domain.SchemaError listing the missing roles and the headers that were
// available. Mapping depends only on header names, never on column order
// beyond the first-match rule.
func MapColumns(headers []string) (ColumnMap, error) {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cm := ColumnMap{
		Species:   findColumn(norm, speciesSynonyms),
		Latitude:  findColumn(norm, latitudeSynonyms),
		Longitude: findColumn(norm, longitudeSynonyms),
		Count:     findColumn(norm, countSynonyms),
		Date:      findColumn(norm, dateSynonyms),
		Location:  findColumn(norm, locationSynonyms),
	}

	var missing []string
	if cm.Species < 0 {
		missing = append(missing, "species")
	}
	if cm.Latitude < 0 {
		missing = append(missing, "latitude")
	}
	if cm.Longitude < 0 {
		missing = append(missing, "longitude")
	}
	if len(missing) > 0 {
		return ColumnMap{}, &domain.SchemaError{Missing: missing, Available: norm}
	}
	return cm, nil
}

// findColumn returns the index of the first header containing any synonym,
// or -1. The outer loop is over columns so that sheet order, not synonym
// order, breaks ties.
func findColumn(headers []string, synonyms []string) int {
	for i, h := range headers {
		for _, syn := range synonyms {
			if strings.Contains(h, syn) {
				return i
			}
		}
	}
	return -1
}
