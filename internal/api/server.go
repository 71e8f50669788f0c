package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajitpratap0/groupmapper/internal/export"
	"github.com/ajitpratap0/groupmapper/internal/mapper"
	"github.com/ajitpratap0/groupmapper/internal/models"
	"github.com/ajitpratap0/groupmapper/internal/registry"
	"github.com/ajitpratap0/groupmapper/internal/report"
)

// Server is an HTTP API server that exposes search, officer listing and
// group mapping.
type Server struct {
	svc       *mapper.Service
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(svc *mapper.Service, logger *slog.Logger, authToken string) *Server {
	return &Server{
		svc:       svc,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Health check and metrics: no auth required.
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/v1/sources", s.handleSources)
		r.Get("/v1/companies/search", s.handleSearch)
		r.Get("/v1/companies/{id}/officers", s.handleOfficers)
		r.Post("/v1/map", s.handleMap)
	})

	return r
}

// --- middleware ---

// auth enforces Bearer token authentication when authToken is set.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sourcesResponse struct {
	Sources []string `json:"sources"`
	Default string   `json:"default,omitempty"`
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	resp := sourcesResponse{Sources: s.svc.Sources()}
	if len(resp.Sources) > 0 {
		resp.Default = resp.Sources[0]
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type searchResponse struct {
	Results []models.Company `json:"results"`
	// Categories maps company id to its name category; set for variant searches.
	Categories map[string]report.Category `json:"categories,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	search := s.svc.Search
	variants := q.Get("variants") == "true"
	if variants {
		search = s.svc.SearchVariants
	}
	results, err := search(r.Context(), q.Get("source"), query, q.Get("jurisdiction"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp := searchResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []models.Company{}
	}
	if variants {
		resp.Categories = make(map[string]report.Category, len(results))
		for _, c := range results {
			resp.Categories[c.ID] = report.Categorize(c, query)
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type officersResponse struct {
	CompanyID string           `json:"company_id"`
	Officers  []models.Officer `json:"officers"`
}

func (s *Server) handleOfficers(w http.ResponseWriter, r *http.Request) {
	// OpenCorporates ids contain a slash and arrive escaped.
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || id == "" {
		s.writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	roster, err := s.svc.Officers(r.Context(), r.URL.Query().Get("source"), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if roster == nil {
		roster = []models.Officer{}
	}
	s.writeJSON(w, http.StatusOK, officersResponse{CompanyID: id, Officers: roster})
}

// mapRequest is the body accepted by POST /v1/map.
type mapRequest struct {
	CompanyID            string `json:"company_id"`
	Name                 string `json:"name"`
	Jurisdiction         string `json:"jurisdiction"`
	Source               string `json:"source"`
	MaxDepth             int    `json:"max_depth"`
	MaxCompaniesPerLevel int    `json:"max_companies_per_level"`
	TimeoutSeconds       int    `json:"timeout_seconds"`
}

// mapResponse is returned by POST /v1/map when no file format is requested.
type mapResponse struct {
	RunID  string                `json:"run_id"`
	Result *models.MappingResult `json:"result"`
	Report report.Report         `json:"report"`
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID == "" && strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "company_id or name is required")
		return
	}
	if req.MaxDepth < 0 || req.MaxCompaniesPerLevel < 0 || req.TimeoutSeconds < 0 {
		s.writeError(w, http.StatusBadRequest, "bounds must not be negative")
		return
	}

	format := export.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = export.ParseFormat(f); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	runID := uuid.NewString()
	res, err := s.svc.Map(r.Context(), mapper.Request{
		Source:               req.Source,
		CompanyID:            req.CompanyID,
		Name:                 req.Name,
		Jurisdiction:         req.Jurisdiction,
		MaxDepth:             req.MaxDepth,
		MaxCompaniesPerLevel: req.MaxCompaniesPerLevel,
		Timeout:              time.Duration(req.TimeoutSeconds) * time.Second,
		RunID:                runID,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	rep := report.Assemble(res)
	if r.URL.Query().Get("format") == "" {
		s.writeJSON(w, http.StatusOK, mapResponse{RunID: runID, Result: res, Report: rep})
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(rep, format)))
	w.Header().Set("X-Run-Id", runID)
	if err := export.Write(w, format, rep); err != nil {
		s.logger.Error("failed to write export", "run_id", runID, "format", format, "error", err)
	}
}

// --- helpers ---

type ambiguousResponse struct {
	Error      string           `json:"error"`
	Candidates []models.Company `json:"candidates"`
}

// writeFailure maps lookup and mapping failures to status codes.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var amb *mapper.AmbiguousMatchError
	switch {
	case errors.As(err, &amb):
		s.writeJSON(w, http.StatusConflict, ambiguousResponse{Error: amb.Error(), Candidates: amb.Candidates})
		return
	case errors.Is(err, registry.ErrNoSource):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, mapper.ErrInvalidOptions):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, registry.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "company not found")
		return
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		return
	}

	s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	switch {
	case errors.Is(err, registry.ErrAuth):
		s.writeError(w, http.StatusBadGateway, "registry rejected the configured API key")
	case errors.Is(err, registry.ErrRateLimited):
		s.writeError(w, http.StatusServiceUnavailable, "registry rate limit exceeded, retry later")
	case errors.Is(err, registry.ErrTransient), errors.Is(err, registry.ErrUnexpected):
		s.writeError(w, http.StatusBadGateway, "registry unavailable")
	default:
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
