package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

// ParseBoundary extracts a study-area boundary from a KML document or a KMZ
// archive. The region's Bounds cover every accepted point; the stored vertex
// list is capped at domain.MaxBoundaryCoordinates.
func ParseBoundary(raw []byte, filename string) (domain.BoundaryRegion, error) {
	kmlData := raw
	if strings.ToLower(filepath.Ext(filename)) == ".kmz" {
		var err error
		kmlData, err = extractKML(raw)
		if err != nil {
			return domain.BoundaryRegion{}, err
		}
	}

	coords, err := parseKMLCoordinates(kmlData)
	if err != nil {
		return domain.BoundaryRegion{}, err
	}

	region := domain.BoundaryRegion{
		Bounds:      domain.BoundsOf(coords),
		Coordinates: coords,
	}
	if len(region.Coordinates) > domain.MaxBoundaryCoordinates {
		region.Coordinates = region.Coordinates[:domain.MaxBoundaryCoordinates]
	}
	return region, nil
}

// extractKML returns the first .kml entry of a KMZ archive.
func extractKML(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, &domain.GeometryError{Reason: fmt.Sprintf("open kmz: %v", err)}
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in kmz: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s in kmz: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, &domain.GeometryError{Reason: "kmz archive contains no kml file"}
}

// parseKMLCoordinates collects every <coordinates> element in document order.
// Elements in the KML 2.2 namespace are preferred; documents written without
// a namespace fall back to matching the bare local name.
func parseKMLCoordinates(data []byte) ([]domain.Coordinate, error) {
	var namespaced, local []string

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.GeometryError{Reason: fmt.Sprintf("malformed kml: %v", err)}
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "coordinates" {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return nil, &domain.GeometryError{Reason: fmt.Sprintf("malformed kml: %v", err)}
		}
		if start.Name.Space == kmlNamespace {
			namespaced = append(namespaced, text)
		}
		local = append(local, text)
	}

	texts := local
	if len(namespaced) > 0 {
		texts = namespaced
	}
	coords := parseCoordinateText(texts)
	if len(coords) == 0 {
		return nil, &domain.GeometryError{Reason: "no valid coordinates found in kml document"}
	}
	return coords, nil
}

// parseCoordinateText tokenizes coordinate blocks. Tuples are "lng,lat[,alt]"
// with longitude first per the KML spec, separated by any whitespace.
// Altitude is ignored; malformed or out-of-range tuples are dropped silently.
func parseCoordinateText(texts []string) []domain.Coordinate {
	var coords []domain.Coordinate
	for _, text := range texts {
		for _, token := range strings.Fields(text) {
			parts := strings.Split(token, ",")
			if len(parts) < 2 {
				continue
			}
			lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errLng != nil || errLat != nil {
				continue
			}
			if !domain.ValidLatitude(lat) || !domain.ValidLongitude(lng) {
				continue
			}
			coords = append(coords, domain.Coordinate{Lat: lat, Lng: lng})
		}
	}
	return coords
}
