package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/okian/pitchlens/internal/domain/introspect"
)

// MatchHandler serves the artifacts of processed matches.
type MatchHandler struct {
	deps Dependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps Dependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

// HandleGetReport handles GET /matches/{match}/report requests.
func (h *MatchHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.RunReport(r.Context(), r.PathValue("match"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleGetKnowledgeBank handles GET /matches/{match}/knowledge-bank
// requests. The optional format query parameter selects json or yaml.
func (h *MatchHandler) HandleGetKnowledgeBank(w http.ResponseWriter, r *http.Request) {
	format := introspect.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := introspect.ParseFormat(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		format = f
	}

	kb, err := h.deps.KnowledgeBank(r.Context(), r.PathValue("match"))
	if err != nil {
		writeLookupError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := kb.Encode(&buf, format); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	contentType := "application/json; charset=utf-8"
	if format == introspect.FormatYAML {
		contentType = "application/yaml; charset=utf-8"
	}
	writeBody(w, http.StatusOK, contentType, buf.Bytes())
}

// HandleGetField handles GET /matches/{match}/datasets/{dataset}/fields/{field}
// requests.
func (h *MatchHandler) HandleGetField(w http.ResponseWriter, r *http.Request) {
	fd, err := h.deps.Field(r.Context(), r.PathValue("match"), r.PathValue("dataset"), r.PathValue("field"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fd)
}
