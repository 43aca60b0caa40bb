// Command genfixtures writes the sample survey files used in docs and
// manual testing, then round-trips them through the real ingestion path so
// the fixtures are guaranteed to be accepted by the server.
//
// Usage:
//
//	go run ./cmd/genfixtures -dir testdata
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/species-atlas/internal/domain"
	"github.com/couchcryptid/species-atlas/internal/ingest"
	"github.com/couchcryptid/species-atlas/internal/stats"
)

const sampleCSV = `species,latitude,longitude,count,date,location
House Sparrow,28.6139,77.2090,5,2024-01-15,Delhi
Rock Pigeon,28.6129,77.2295,12,2024-01-15,Connaught Place
Indian Myna,28.6328,77.2197,8,2024-01-16,Karol Bagh
House Crow,28.6517,77.2219,15,2024-01-16,Civil Lines
Rose-ringed Parakeet,28.6280,77.2065,6,2024-01-17,Rajouri Garden
Red-vented Bulbul,28.6100,77.2300,4,2024-01-17,India Gate
Common Babbler,28.6200,77.2100,3,2024-01-18,Lodhi Gardens
White-cheeked Barbet,28.6050,77.2450,2,2024-01-18,Humayun Tomb
Oriental Magpie-Robin,28.6400,77.2000,7,2024-01-19,Red Fort
Spotted Dove,28.6300,77.2200,9,2024-01-19,Lotus Temple
`

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <name>Delhi Study Area</name>
    <Placemark>
      <name>Delhi Boundary</name>
      <Polygon>
        <outerBoundaryIs>
          <LinearRing>
            <coordinates>
              77.1000,28.7000,0
              77.3000,28.7000,0
              77.3000,28.5000,0
              77.1000,28.5000,0
              77.1000,28.7000,0
            </coordinates>
          </LinearRing>
        </outerBoundaryIs>
      </Polygon>
    </Placemark>
  </Document>
</kml>
`

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir := flag.String("dir", ".", "output directory for sample files")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(*dir, "sample_species_data.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0o600); err != nil {
		return fmt.Errorf("write csv fixture: %w", err)
	}
	log.Printf("wrote %s", csvPath)

	kmlPath := filepath.Join(*dir, "sample_delhi_boundary.kml")
	if err := os.WriteFile(kmlPath, []byte(sampleKML), 0o600); err != nil {
		return fmt.Errorf("write kml fixture: %w", err)
	}
	log.Printf("wrote %s", kmlPath)

	// Round-trip both files through the real ingestion path.
	obs, rowErrs, err := ingest.Tabular([]byte(sampleCSV), "sample_species_data.csv")
	if err != nil {
		return fmt.Errorf("sample csv rejected: %w", err)
	}
	if len(rowErrs) > 0 {
		return fmt.Errorf("sample csv has %d row errors, first: %s", len(rowErrs), rowErrs[0])
	}

	region, err := ingest.ParseBoundary([]byte(sampleKML), "sample_delhi_boundary.kml")
	if err != nil {
		return fmt.Errorf("sample kml rejected: %w", err)
	}

	printStats(obs, region)
	return nil
}

func printStats(obs []domain.Observation, region domain.BoundaryRegion) {
	summary := stats.Aggregate(obs)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: %d\n", len(obs))
	fmt.Printf("Total observations: %d\n", summary.TotalObservations)
	fmt.Printf("Unique species: %d\n", summary.UniqueSpecies)
	fmt.Printf("Unique locations: %d\n", summary.UniqueLocations)
	fmt.Printf("Average density: %.1f\n", summary.AverageDensity)
	fmt.Printf("Bounds: lat %.4f..%.4f, lng %.4f..%.4f\n",
		summary.Bounds.South, summary.Bounds.North, summary.Bounds.West, summary.Bounds.East)

	fmt.Println("Top species:")
	for i, sc := range summary.TopSpecies(5) {
		fmt.Printf("  %d. %s (%d)\n", i+1, sc.Species, sc.Total)
	}

	fmt.Printf("Boundary coordinates: %d\n", len(region.Coordinates))
	fmt.Printf("Boundary bounds: lat %.4f..%.4f, lng %.4f..%.4f\n",
		region.Bounds.South, region.Bounds.North, region.Bounds.West, region.Bounds.East)
}
