// Command validate checks a species data file offline using the same
// ingestion path as the server: column mapping, per-row validation, and
// KML/KMZ geometry parsing. It reports what an upload would accept and
// reject, so files can be fixed before they reach the service.
//
// Usage:
//
//	go run ./cmd/validate -file data/bird_survey.csv
//	go run ./cmd/validate -file delhi_ncr.kmz -max-errors 50
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/species-atlas/internal/domain"
	"github.com/couchcryptid/species-atlas/internal/ingest"
	"github.com/couchcryptid/species-atlas/internal/stats"
)

const (
	colorPass = "\033[32mPASS\033[0m"
	colorFail = "\033[31mFAIL\033[0m"
)

func main() {
	file := flag.String("file", "", "path to a species CSV/Excel file or KML/KMZ boundary")
	maxErrors := flag.Int("max-errors", 10, "maximum row errors to print (0 prints all)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*file, *maxErrors); code != 0 {
		os.Exit(code)
	}
}

func run(path string, maxErrors int) int {
	fmt.Println("=== Species Data Validation ===")
	fmt.Println()

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read file: %v\n", err)
		return 1
	}

	kind, err := ingest.KindForFilename(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	if kind == ingest.KindBoundary {
		return reportBoundary(path, raw)
	}
	return reportTabular(path, raw, maxErrors)
}

func reportTabular(path string, raw []byte, maxErrors int) int {
	obs, rowErrs, err := ingest.Tabular(raw, filepath.Base(path))
	if err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			fmt.Printf("File: %s (tabular)\n\n", filepath.Base(path))
			fmt.Printf("  Missing roles:     %v\n", schemaErr.Missing)
			fmt.Printf("  Available headers: %v\n\n", schemaErr.Available)
			fmt.Printf("  %s column mapping\n", colorFail)
			return 1
		}
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Printf("File: %s (tabular)\n", filepath.Base(path))
	fmt.Printf("Rows: %d accepted, %d skipped\n", len(obs), len(rowErrs))

	if len(rowErrs) > 0 {
		fmt.Println("\nRow errors:")
		shown := rowErrs
		if maxErrors > 0 && len(shown) > maxErrors {
			shown = shown[:maxErrors]
		}
		for _, re := range shown {
			fmt.Printf("  %s\n", re)
		}
		if len(shown) < len(rowErrs) {
			fmt.Printf("  ... and %d more\n", len(rowErrs)-len(shown))
		}
	}

	if len(obs) == 0 {
		fmt.Printf("\n  %s no valid rows; an upload of this file would be rejected\n", colorFail)
		return 1
	}

	summary := stats.Aggregate(obs)
	fmt.Println("\nSummary:")
	fmt.Printf("  Total observations: %d (count-weighted)\n", summary.TotalObservations)
	fmt.Printf("  Unique species:     %d\n", summary.UniqueSpecies)
	fmt.Printf("  Unique locations:   %d\n", summary.UniqueLocations)
	fmt.Printf("  Average density:    %.1f\n", summary.AverageDensity)
	fmt.Printf("  Bounds:             lat %.4f..%.4f, lng %.4f..%.4f\n",
		summary.Bounds.South, summary.Bounds.North, summary.Bounds.West, summary.Bounds.East)

	if top := summary.TopSpecies(5); len(top) > 0 {
		fmt.Println("  Top species:")
		for i, sc := range top {
			detail := ""
			if summary.EligibleForDetail(sc.Species) {
				detail = " (gets a detail map)"
			}
			fmt.Printf("    %d. %s: %d%s\n", i+1, sc.Species, sc.Total, detail)
		}
	}

	status := colorPass
	if len(rowErrs) > 0 {
		status = fmt.Sprintf("%s with %d skipped rows", colorPass, len(rowErrs))
	}
	fmt.Printf("\n  %s\n", status)
	return 0
}

func reportBoundary(path string, raw []byte) int {
	region, err := ingest.ParseBoundary(raw, filepath.Base(path))
	if err != nil {
		fmt.Printf("File: %s (boundary)\n\n", filepath.Base(path))
		fmt.Printf("  %s %v\n", colorFail, err)
		return 1
	}

	fmt.Printf("File: %s (boundary)\n\n", filepath.Base(path))
	fmt.Printf("  Coordinates kept: %d (cap %d)\n", len(region.Coordinates), domain.MaxBoundaryCoordinates)
	fmt.Printf("  Bounds:           lat %.4f..%.4f, lng %.4f..%.4f\n",
		region.Bounds.South, region.Bounds.North, region.Bounds.West, region.Bounds.East)
	fmt.Printf("\n  %s\n", colorPass)
	return 0
}
