package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

// Normalize maps the header row and converts each data row into an
// Observation. Rows that fail validation become RowErrors and are skipped;
// numbering is 1-based with the header as row 1, so data row i (0-based) is
// reported as row i+2. A hard error is returned only when the header cannot
// be mapped at all.
func Normalize(rows [][]string) ([]domain.Observation, []domain.RowError, error) {
	if len(rows) == 0 {
		return nil, nil, &domain.SchemaError{Missing: []string{"species", "latitude", "longitude"}}
	}

	cm, err := MapColumns(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var (
		obs     []domain.Observation
		rowErrs []domain.RowError
	)
	for i, row := range rows[1:] {
		o, reason := buildObservation(row, cm)
		if reason != "" {
			rowErrs = append(rowErrs, domain.RowError{Row: i + 2, Reason: reason})
			continue
		}
		o.CreatedAt = domain.Now()
		obs = append(obs, o)
	}
	return obs, rowErrs, nil
}

// buildObservation validates one data row against the column map. The first
// failing field wins; the returned reason is empty on success.
func buildObservation(row []string, cm ColumnMap) (domain.Observation, string) {
	species := strings.TrimSpace(cell(row, cm.Species))
	if domain.IsNullSentinel(species) {
		return domain.Observation{}, "missing species name"
	}

	latRaw := strings.TrimSpace(cell(row, cm.Latitude))
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return domain.Observation{}, fmt.Sprintf("invalid latitude %q", latRaw)
	}
	if !domain.ValidLatitude(lat) {
		return domain.Observation{}, fmt.Sprintf("latitude %v out of range", latRaw)
	}

	lngRaw := strings.TrimSpace(cell(row, cm.Longitude))
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return domain.Observation{}, fmt.Sprintf("invalid longitude %q", lngRaw)
	}
	if !domain.ValidLongitude(lng) {
		return domain.Observation{}, fmt.Sprintf("longitude %v out of range", lngRaw)
	}

	count := 1
	if cm.Count >= 0 {
		raw := strings.TrimSpace(cell(row, cm.Count))
		if !domain.IsNullSentinel(raw) {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return domain.Observation{}, fmt.Sprintf("invalid count %q", raw)
			}
			if n < 0 {
				return domain.Observation{}, fmt.Sprintf("negative count %d", n)
			}
			count = n
		}
	}

	return domain.Observation{
		Species:  species,
		Lat:      lat,
		Lng:      lng,
		Count:    count,
		Date:     optionalCell(row, cm.Date),
		Location: optionalCell(row, cm.Location),
	}, ""
}

// cell reads a column from a possibly ragged row; out-of-range reads are
// blank, matching how spreadsheets treat missing trailing cells.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func optionalCell(row []string, idx int) string {
	v := strings.TrimSpace(cell(row, idx))
	if domain.IsNullSentinel(v) {
		return ""
	}
	return v
}
