package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// MaxBoundaryCoordinates caps the vertex list stored per boundary region.
// The Bounds envelope is still computed over the full geometry.
const MaxBoundaryCoordinates = 100

// BoundaryRegion is a study-area polygon parsed from KML/KMZ.
type BoundaryRegion struct {
	Name        string       `json:"name"`
	Coordinates []Coordinate `json:"coordinates"`
	Bounds      Bounds       `json:"bounds"`
}

// Dataset is the stored metadata for one uploaded file. Observation rows and
// boundary geometry live beside it in the store; Dataset itself is what list
// endpoints return.
type Dataset struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	FileType        string    `json:"file_type"`
	UploadDate      time.Time `json:"upload_date"`
	IsBoundary      bool      `json:"is_boundary"`
	TotalRecords    int       `json:"total_records"`
	UniqueSpecies   int       `json:"unique_species"`
	UniqueLocations int       `json:"unique_locations"`
	Bounds          Bounds    `json:"bounds"`
}

// GenerateDatasetID derives a dataset ID from the owning session, the
// dataset name, and the upload instant. The same inputs always produce the
// same ID.
func GenerateDatasetID(sessionID, name string, t time.Time) string {
	input := fmt.Sprintf("%s|%s|%d", sessionID, name, t.UnixNano())
	hash := sha256.Sum256([]byte(input))
	return "ds_" + hex.EncodeToString(hash[:8])
}
