// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/irr/internal/app"
	"github.com/okian/irr/internal/domain/rubric"
	"github.com/okian/irr/internal/domain/types"
	"github.com/okian/irr/pkg/logger"
)

// ReportDependencies builds reports on request.
type ReportDependencies interface {
	Report(ctx context.Context, version, basis string) (*types.Report, error)
}

// RubricDependencies exposes the rubric catalogue.
type RubricDependencies interface {
	Rubrics() []rubric.Version
	Rubric(version string) (*rubric.Rubric, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ReportDependencies
	RubricDependencies
	ScoreDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	irrHandler     *IRRHandler
	rubricsHandler *RubricsHandler
	scoresHandler  *ScoresHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		irrHandler:     NewIRRHandler(deps),
		rubricsHandler: NewRubricsHandler(deps),
		scoresHandler:  NewScoresHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/irr", MetricsMiddleware(s.irrHandler.HandleGetIRR, "irr"))
	mux.HandleFunc("/rubrics", MetricsMiddleware(s.rubricsHandler.HandleListRubrics, "rubrics"))
	mux.HandleFunc("/rubrics/", MetricsMiddleware(s.rubricsHandler.HandleGetRubric, "rubric"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandlePostScores, "scores"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps service and domain errors to an HTTP status, an error code
// and an API kind.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, rubric.ErrUnknownVersion), errors.Is(err, service.ErrInvalidBasis),
		errors.Is(err, service.ErrInvalidScore):
		return http.StatusBadRequest, "bad_request", ErrBadRequest
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure", ErrBackpressure
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrNotConfigured),
		errors.Is(err, service.ErrIngestDisabled):
		return http.StatusServiceUnavailable, "unavailable", ErrUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", ErrTimeout
	case errors.Is(err, service.ErrFetch):
		return http.StatusBadGateway, "repository_error", ErrUnavailable
	default:
		return http.StatusInternalServerError, "internal_error", ErrInternal
	}
}

// fail writes err using classify and logs server-side failures.
func fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, code, kind := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed",
			logger.String("op", op),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeError(w, status, code, WrapKind(op, kind, err))
}
