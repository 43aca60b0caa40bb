package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

// csvHeader is the fixed export column order. Every header maps back to the
// same role through the ingest synonym tables, so an exported file
// re-ingests to identical observations.
var csvHeader = []string{"Species", "Latitude", "Longitude", "Count", "Date", "Location", "Created_At"}

// WriteCSV streams observations as CSV in the fixed column order. Absent
// optional fields are written as empty cells.
func WriteCSV(w io.Writer, obs []domain.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range obs {
		rec := []string{
			o.Species,
			strconv.FormatFloat(o.Lat, 'f', -1, 64),
			strconv.FormatFloat(o.Lng, 'f', -1, 64),
			strconv.Itoa(o.Count),
			o.Date,
			o.Location,
			formatCreatedAt(o.CreatedAt),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVFilename derives the download filename from the dataset name and the
// export instant, e.g. "species_export_birds_20260314_093000.csv".
func CSVFilename(datasetName string, t time.Time) string {
	base := strings.TrimSuffix(datasetName, filepath.Ext(datasetName))
	return fmt.Sprintf("species_export_%s_%s.csv", base, t.Format("20060102_150405"))
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
