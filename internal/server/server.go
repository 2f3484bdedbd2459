// Package server exposes the lift chart dashboard and its data over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	liftchart "github.com/aouyang1/go-liftchart"
	"github.com/aouyang1/go-liftchart/datarobot"
	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/aouyang1/go-liftchart/lift"
)

// Dashboard is the part of liftchart.Dashboard the server calls.
type Dashboard interface {
	Build(ctx context.Context, req liftchart.Request) (*liftchart.Report, error)
	Load(ctx context.Context, req liftchart.Request) (*dataset.Joined, error)
	Lift(ctx context.Context, req liftchart.Request) (*lift.Result, error)
	Invalidate(ctx context.Context, req liftchart.Request) error
}

// Server routes dashboard requests.
type Server struct {
	dash    Dashboard
	metrics *Metrics
	router  chi.Router
}

// New creates a server over dash. A nil metrics creates a fresh registry.
func New(dash Dashboard, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Server{
		dash:    dash,
		metrics: metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/dashboard", s.dashboard)
	r.Route("/api", func(r chi.Router) {
		r.Get("/report", s.report)
		r.Get("/rows", s.rows)
		r.Get("/lift", s.lift)
		r.Delete("/cache", s.invalidate)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// parseRequest reads the interaction from the query string. A leaderboard url takes precedence over
// explicit project and model ids.
func parseRequest(r *http.Request) (liftchart.Request, error) {
	q := r.URL.Query()
	req := liftchart.Request{
		ProjectID:   strings.TrimSpace(q.Get("project")),
		ModelID:     strings.TrimSpace(q.Get("model")),
		DatasetID:   strings.TrimSpace(q.Get("dataset")),
		SeriesID:    q.Get("series"),
		PartitionID: q.Get("partition"),
	}
	if u := strings.TrimSpace(q.Get("url")); u != "" {
		projectID, modelID, err := datarobot.ParseModelURL(u)
		if err != nil {
			return liftchart.Request{}, err
		}
		req.ProjectID, req.ModelID = projectID, modelID
	}
	if b := q.Get("bins"); b != "" {
		bins, err := strconv.Atoi(b)
		if err != nil {
			return liftchart.Request{}, eris.Wrapf(liftchart.ErrInvalidRequest, "bins %q is not an integer", b)
		}
		req.Bins = bins
	}
	if req.ProjectID == "" || req.ModelID == "" {
		return liftchart.Request{}, eris.Wrap(liftchart.ErrInvalidRequest, "url or project and model are required")
	}
	return req, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, liftchart.ErrInvalidRequest),
		errors.Is(err, datarobot.ErrInvalidModelURL),
		errors.Is(err, lift.ErrInvalidBinCount):
		return http.StatusBadRequest
	case errors.Is(err, lift.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, liftchart.ErrDataUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("marshal response", zap.Error(err))
		status = http.StatusInternalServerError
		data = []byte(`{"error":"unable to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", fields...)
	} else {
		zap.L().Warn("request rejected", fields...)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) (*liftchart.Report, bool) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	report, err := s.dash.Build(r.Context(), req)
	if err != nil {
		s.metrics.observeReport("error")
		writeError(w, r, err)
		return nil, false
	}
	if len(report.Warnings) > 0 {
		s.metrics.observeReport("warning")
	} else {
		s.metrics.observeReport("ok")
	}
	return report, true
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	report, ok := s.build(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := liftchart.Plot(&buf, report); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	report, ok := s.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) rows(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := dataset.Filter{SeriesID: req.SeriesID, PartitionID: dataset.NormalizePartitionID(req.PartitionID)}
	if d := r.URL.Query().Get("distance"); d != "" {
		distance, err := strconv.Atoi(d)
		if err != nil || distance < 1 {
			writeError(w, r, eris.Wrapf(liftchart.ErrInvalidRequest, "distance %q is not a positive integer", d))
			return
		}
		f.ForecastDistance = distance
	}

	joined, err := s.dash.Load(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows := joined.Filter(f)
	if rows == nil {
		rows = []dataset.JoinedRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filter": f.String(),
		"count":  len(rows),
		"rows":   rows,
	})
}

func (s *Server) lift(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.dash.Lift(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.dash.Invalidate(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
