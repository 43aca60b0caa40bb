// Package domain models species occurrence data uploaded by field surveyors.
//
// # Data Source
//
// Occurrence records arrive as user-uploaded files: tabular species
// observations (CSV, XLSX, or legacy XLS) and study-area boundaries
// (KML, or KMZ archives wrapping a KML). Files come from many survey tools
// (eBird exports, hand-kept spreadsheets, GIS software), so the ingestion
// layer is deliberately tolerant: it maps columns by fuzzy name matching and
// skips bad rows instead of rejecting whole files.
//
// # Tabular Conventions
//
// Column roles are resolved by case-insensitive substring matching against
// known synonym lists (see internal/ingest). Three roles are required:
//
//	species    species, species_name, scientific_name, name, taxon, bird_name
//	latitude   latitude, lat, y, decimal_latitude, y_coord
//	longitude  longitude, long, lng, lon, x, decimal_longitude, x_coord
//
// and three are optional:
//
//	count      count, abundance, number, individuals, quantity, total, no_of_birds
//	date       date, observation_date, survey_date, recorded_date, date_observed
//	location   location, place, site, area, locality
//
// The first column (in sheet order) containing a synonym wins the role.
// Matching is by substring, so short synonyms bind aggressively: any header
// containing the letter y can bind latitude. Changing the synonym lists or
// the match rule re-maps files that ingested cleanly before.
//
// Null sentinels:
//
//	"", "nan", and "none" (case-insensitive, after trimming) mean absent.
//	A sentinel species cell fails the row; a sentinel count defaults to 1;
//	sentinel date/location cells become empty strings.
//
// Row numbering:
//
//	Row errors are reported with 1-based spreadsheet numbering where the
//	header is row 1, so data row i (0-based) is row i+2. This matches what
//	a surveyor sees when they open the file.
//
// # Boundary Conventions
//
// KML coordinate tuples are "lng,lat[,alt]" with longitude first, per the
// KML 2.2 specification. Altitude is ignored. Out-of-range and malformed
// tuples are dropped silently. A boundary's Bounds envelope is computed over
// every accepted point; the stored coordinate list is capped at
// [MaxBoundaryCoordinates] points, and the envelope still covers the full
// geometry when the vertex list is truncated.
//
// # ID Generation
//
// Dataset IDs are deterministic SHA-256 hashes of session|name|timestamp,
// shortened to 8 bytes and prefixed "ds_". See [GenerateDatasetID].
package domain
