// Package httpapi exposes the upload, query, and export API over HTTP.
//
// Sessions are tracked with an opaque cookie: the first request mints a
// random session id, and every dataset operation is scoped to it. Handlers
// stay thin and delegate to the service layer; errors are translated to
// status codes in one place.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/species-atlas/internal/config"
	"github.com/couchcryptid/species-atlas/internal/domain"
	"github.com/couchcryptid/species-atlas/internal/export"
	"github.com/couchcryptid/species-atlas/internal/service"
)

// Server exposes the dataset API plus health, readiness, and metrics routes.
type Server struct {
	httpServer     *http.Server
	router         *chi.Mux
	svc            *service.Service
	logger         *slog.Logger
	cookieName     string
	maxUploadBytes int64
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(cfg *config.Config, svc *service.Service, logger *slog.Logger) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		svc:            svc,
		logger:         logger,
		cookieName:     cfg.SessionCookie,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/boundaries", s.handleListBoundaries)
		r.Get("/datasets/{datasetID}/data", s.handleDatasetData)
		r.Get("/datasets/{datasetID}/export", s.handleExportCSV)
		r.Get("/datasets/{datasetID}/plan", s.handleExportPlan)
		r.Delete("/datasets/{datasetID}", s.handleDelete)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// session returns the request's session id, minting a new cookie when the
// client does not carry one yet.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, fmt.Errorf("upload body: %w", domain.ErrPayloadTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	result, err := s.svc.Upload(r.Context(), sessionID, header.Filename, raw)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Success bool `json:"success"`
		service.UploadResult
	}{true, result})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	datasets := s.svc.Datasets(sessionID)
	if datasets == nil {
		datasets = []domain.Dataset{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool             `json:"success"`
		Datasets []domain.Dataset `json:"datasets"`
	}{true, datasets})
}

func (s *Server) handleListBoundaries(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	boundaries := s.svc.Boundaries(sessionID)
	if boundaries == nil {
		boundaries = []domain.Dataset{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success    bool             `json:"success"`
		Boundaries []domain.Dataset `json:"boundaries"`
	}{true, boundaries})
}

func (s *Server) handleDatasetData(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	meta, obs, err := s.svc.DatasetData(sessionID, chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if obs == nil {
		obs = []domain.Observation{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success      bool                 `json:"success"`
		Dataset      domain.Dataset       `json:"dataset"`
		Observations []domain.Observation `json:"observations"`
	}{true, meta, obs})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	name, data, err := s.svc.ExportCSV(r.Context(), sessionID, chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client disconnects are not actionable
}

func (s *Server) handleExportPlan(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	plan, err := s.svc.ExportPlan(r.Context(), sessionID, chi.URLParam(r, "datasetID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool              `json:"success"`
		Plan    export.ExportPlan `json:"plan"`
	}{true, plan})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := s.session(w, r)

	deleted := s.svc.Delete(sessionID, chi.URLParam(r, "datasetID"))
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Deleted bool `json:"deleted"`
	}{true, deleted})
}

// respondError translates service errors into HTTP status codes and logs
// the technical detail with the request id for correlation.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	s.logger.Error("request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	var schemaErr *domain.SchemaError
	var geomErr *domain.GeometryError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrEmptyDataset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoValidRows),
		errors.Is(err, domain.ErrUnsupportedFile),
		errors.As(err, &schemaErr),
		errors.As(err, &geomErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
