// Package api serves stored match artifacts over HTTP.
package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/pitchlens/internal/adapters/repository"
	service "github.com/okian/pitchlens/internal/app"
	"github.com/okian/pitchlens/internal/domain/introspect"
	"github.com/okian/pitchlens/pkg/metrics"
)

// Dependencies required by HTTP handlers. *service.Pipeline satisfies it.
type Dependencies interface {
	KnowledgeBank(ctx context.Context, matchID string) (*introspect.KnowledgeBank, error)
	Field(ctx context.Context, matchID, dataset, field string) (introspect.FieldDescriptor, error)
	RunReport(ctx context.Context, matchID string) (*service.Report, error)
}

// Server wires HTTP routes for the artifact API.
type Server struct {
	healthHandler *HealthHandler
	matchHandler  *MatchHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		matchHandler:  NewMatchHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /matches/{match}/report",
		MetricsMiddleware(s.matchHandler.HandleGetReport, "report"))
	mux.HandleFunc("GET /matches/{match}/knowledge-bank",
		MetricsMiddleware(s.matchHandler.HandleGetKnowledgeBank, "knowledge_bank"))
	mux.HandleFunc("GET /matches/{match}/datasets/{dataset}/fields/{field}",
		MetricsMiddleware(s.matchHandler.HandleGetField, "field"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := sonic.ConfigStd.NewEncoder(&buf).Encode(v); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeBody(w, status, "application/json; charset=utf-8", buf.Bytes())
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	body, _ := sonic.ConfigStd.Marshal(errorResponse{Code: code, Message: msg})
	writeBody(w, status, "application/json; charset=utf-8", append(body, '\n'))
}

// writeLookupError translates store and knowledge bank errors to statuses.
func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, introspect.ErrFieldNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
