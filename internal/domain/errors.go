package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across the service. Callers match with errors.Is.
var (
	// ErrNotFound means the dataset ID does not exist in the caller's session.
	ErrNotFound = errors.New("dataset not found")

	// ErrEmptyDataset means an export plan was requested for a dataset with
	// no observation rows (e.g. a boundary-only dataset).
	ErrEmptyDataset = errors.New("dataset has no observations")

	// ErrNoValidRows means normalization produced zero usable rows; the
	// dataset is never registered.
	ErrNoValidRows = errors.New("no valid species data found in file")

	// ErrUnsupportedFile means the upload's extension is not one of
	// csv, xlsx, xls, kml, kmz.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrPayloadTooLarge means the upload exceeded the configured byte cap.
	ErrPayloadTooLarge = errors.New("upload exceeds size limit")
)

// SchemaError reports that required column roles could not be mapped.
// Missing holds role names; Available holds the headers actually present so
// the uploader can see what the file looked like to the mapper.
type SchemaError struct {
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("missing required columns: %s. Available columns: %s",
		strings.Join(e.Missing, ", "), available)
}

// GeometryError reports that a KML/KMZ payload yielded no usable geometry.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "geometry: " + e.Reason
}

// RowError records one rejected tabular row. It is a value, not an error:
// row rejections are expected and collected, they never abort ingestion.
// Row uses 1-based spreadsheet numbering with the header as row 1.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}
