// Package service orchestrates uploads, queries, and exports over the
// session-scoped dataset store. It is the single place where ingestion,
// aggregation, and export planning are composed; transport adapters stay
// thin and delegate here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/species-atlas/internal/domain"
	"github.com/couchcryptid/species-atlas/internal/export"
	"github.com/couchcryptid/species-atlas/internal/ingest"
	"github.com/couchcryptid/species-atlas/internal/observability"
	"github.com/couchcryptid/species-atlas/internal/stats"
	"github.com/couchcryptid/species-atlas/internal/store"
)

// maxRowErrorsReturned caps how many per-row failures an upload response
// carries. The full count is still reported in RowsSkipped.
const maxRowErrorsReturned = 10

// UploadResult describes the outcome of a successful upload, including any
// rows that were skipped along the way.
type UploadResult struct {
	Dataset      domain.Dataset    `json:"dataset"`
	IsBoundary   bool              `json:"is_boundary"`
	RowsAccepted int               `json:"rows_accepted"`
	RowsSkipped  int               `json:"rows_skipped,omitempty"`
	RowErrors    []domain.RowError `json:"row_errors,omitempty"`
	Warning      string            `json:"warning,omitempty"`
}

// Service coordinates ingestion, storage, aggregation, and export planning.
type Service struct {
	store          *store.Store
	planner        *export.CachedPlanner
	metrics        *observability.Metrics
	logger         *slog.Logger
	maxUploadBytes int64
}

// New creates a Service with the given store and observability.
func New(st *store.Store, metrics *observability.Metrics, logger *slog.Logger, maxUploadBytes int64, planCacheSize int) *Service {
	return &Service{
		store:          st,
		planner:        export.NewCachedPlanner(planCacheSize),
		metrics:        metrics,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// CheckReadiness returns nil when the service can accept uploads.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.store == nil {
		return errors.New("dataset store not initialized")
	}
	return nil
}

// Upload parses a file payload, stores the resulting dataset under the
// session, and returns its metadata. The file kind is chosen by extension:
// tabular data goes through column mapping and row validation, boundary
// files through KML parsing. Nothing is stored unless parsing yields at
// least one valid record or coordinate.
func (s *Service) Upload(ctx context.Context, sessionID, filename string, raw []byte) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}

	if int64(len(raw)) > s.maxUploadBytes {
		s.metrics.Uploads.WithLabelValues("unknown", "rejected").Inc()
		return UploadResult{}, fmt.Errorf("%s is %d bytes, limit is %d: %w",
			filename, len(raw), s.maxUploadBytes, domain.ErrPayloadTooLarge)
	}

	kind, err := ingest.KindForFilename(filename)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("unknown", "rejected").Inc()
		return UploadResult{}, err
	}

	switch kind {
	case ingest.KindBoundary:
		return s.uploadBoundary(sessionID, filename, raw)
	default:
		return s.uploadTabular(sessionID, filename, raw)
	}
}

func (s *Service) uploadTabular(sessionID, filename string, raw []byte) (UploadResult, error) {
	start := time.Now()

	obs, rowErrs, err := ingest.Tabular(raw, filename)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("tabular", "rejected").Inc()
		return UploadResult{}, err
	}
	if len(obs) == 0 {
		s.metrics.Uploads.WithLabelValues("tabular", "rejected").Inc()
		s.metrics.RowErrors.Add(float64(len(rowErrs)))
		return UploadResult{}, fmt.Errorf("%s: %w", filename, domain.ErrNoValidRows)
	}

	summary := stats.Aggregate(obs)
	now := domain.Now()
	meta := domain.Dataset{
		ID:              domain.GenerateDatasetID(sessionID, filename, now),
		Name:            filename,
		FileType:        fileType(filename),
		UploadDate:      now,
		TotalRecords:    len(obs),
		UniqueSpecies:   summary.UniqueSpecies,
		UniqueLocations: summary.UniqueLocations,
		Bounds:          summary.Bounds,
	}

	if err := s.store.PutTabular(sessionID, meta, obs); err != nil {
		s.metrics.Uploads.WithLabelValues("tabular", "rejected").Inc()
		return UploadResult{}, fmt.Errorf("store dataset: %w", err)
	}

	s.metrics.Uploads.WithLabelValues("tabular", "accepted").Inc()
	s.metrics.RowsProcessed.Add(float64(len(obs)))
	s.metrics.RowErrors.Add(float64(len(rowErrs)))
	s.metrics.DatasetsStored.Set(float64(s.store.Len()))
	s.metrics.IngestDuration.WithLabelValues("tabular").Observe(time.Since(start).Seconds())

	s.logger.Info("dataset ingested",
		"session_id", sessionID,
		"dataset_id", meta.ID,
		"filename", filename,
		"rows_accepted", len(obs),
		"rows_skipped", len(rowErrs),
	)

	result := UploadResult{
		Dataset:      meta,
		RowsAccepted: len(obs),
		RowsSkipped:  len(rowErrs),
	}
	if len(rowErrs) > 0 {
		result.Warning = fmt.Sprintf("%d rows had issues and were skipped", len(rowErrs))
		if len(rowErrs) > maxRowErrorsReturned {
			rowErrs = rowErrs[:maxRowErrorsReturned]
		}
		result.RowErrors = rowErrs
	}
	return result, nil
}

func (s *Service) uploadBoundary(sessionID, filename string, raw []byte) (UploadResult, error) {
	start := time.Now()

	region, err := ingest.ParseBoundary(raw, filename)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("boundary", "rejected").Inc()
		return UploadResult{}, err
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	region.Name = base + " (Study Area)"

	now := domain.Now()
	meta := domain.Dataset{
		ID:              domain.GenerateDatasetID(sessionID, region.Name, now),
		Name:            region.Name,
		FileType:        fileType(filename),
		UploadDate:      now,
		IsBoundary:      true,
		TotalRecords:    len(region.Coordinates),
		UniqueLocations: len(region.Coordinates),
		Bounds:          region.Bounds,
	}

	if err := s.store.PutBoundary(sessionID, meta, region); err != nil {
		s.metrics.Uploads.WithLabelValues("boundary", "rejected").Inc()
		return UploadResult{}, fmt.Errorf("store boundary: %w", err)
	}

	// Every cached plan in the session now renders a stale overlay set.
	s.planner.InvalidateSession(sessionID)

	s.metrics.Uploads.WithLabelValues("boundary", "accepted").Inc()
	s.metrics.DatasetsStored.Set(float64(s.store.Len()))
	s.metrics.IngestDuration.WithLabelValues("boundary").Observe(time.Since(start).Seconds())

	s.logger.Info("boundary ingested",
		"session_id", sessionID,
		"dataset_id", meta.ID,
		"filename", filename,
		"coordinates", len(region.Coordinates),
	)

	return UploadResult{
		Dataset:      meta,
		IsBoundary:   true,
		RowsAccepted: len(region.Coordinates),
	}, nil
}

// Datasets lists every dataset in the session, boundaries included, in
// upload order.
func (s *Service) Datasets(sessionID string) []domain.Dataset {
	return s.store.List(sessionID)
}

// Boundaries lists only the session's boundary datasets in upload order.
func (s *Service) Boundaries(sessionID string) []domain.Dataset {
	return s.store.ListBoundaries(sessionID)
}

// DatasetData returns a dataset's metadata and observation rows. Boundary
// datasets have no rows.
func (s *Service) DatasetData(sessionID, datasetID string) (domain.Dataset, []domain.Observation, error) {
	return s.store.Observations(sessionID, datasetID)
}

// ExportCSV renders a dataset's observations as a CSV attachment. Exported
// files use the canonical column set, so they can be re-uploaded as-is.
func (s *Service) ExportCSV(ctx context.Context, sessionID, datasetID string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	start := time.Now()

	meta, obs, err := s.DatasetData(sessionID, datasetID)
	if err != nil {
		return "", nil, err
	}
	if len(obs) == 0 {
		return "", nil, fmt.Errorf("export %s: %w", datasetID, domain.ErrEmptyDataset)
	}

	var buf strings.Builder
	if err := export.WriteCSV(&buf, obs); err != nil {
		return "", nil, fmt.Errorf("write csv: %w", err)
	}

	s.metrics.ExportDuration.WithLabelValues("csv").Observe(time.Since(start).Seconds())
	return export.CSVFilename(meta.Name, domain.Now()), []byte(buf.String()), nil
}

// ExportPlan builds (or serves from cache) the declarative map and dashboard
// plan for a dataset, overlaying every boundary in the session.
func (s *Service) ExportPlan(ctx context.Context, sessionID, datasetID string) (export.ExportPlan, error) {
	if err := ctx.Err(); err != nil {
		return export.ExportPlan{}, err
	}
	start := time.Now()

	meta, obs, err := s.DatasetData(sessionID, datasetID)
	if err != nil {
		return export.ExportPlan{}, err
	}

	plan, err := s.planner.Plan(sessionID, meta, obs, s.store.BoundaryRegions(sessionID))
	if err != nil {
		return export.ExportPlan{}, err
	}

	s.metrics.ExportDuration.WithLabelValues("plan").Observe(time.Since(start).Seconds())
	return plan, nil
}

// Delete removes a dataset from the session. It reports whether anything
// was removed; deleting an unknown id is not an error.
func (s *Service) Delete(sessionID, datasetID string) bool {
	deleted := s.store.Delete(sessionID, datasetID)
	if deleted {
		// Dropped boundaries change the overlays on every remaining plan.
		s.planner.InvalidateSession(sessionID)
		s.metrics.DatasetsStored.Set(float64(s.store.Len()))
		s.logger.Info("dataset deleted", "session_id", sessionID, "dataset_id", datasetID)
	}
	return deleted
}

func fileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
