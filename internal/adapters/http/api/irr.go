package api

import (
	"net/http"
)

// IRRHandler serves inter-rater reliability reports.
type IRRHandler struct {
	deps ReportDependencies
}

// NewIRRHandler creates a new report handler.
func NewIRRHandler(deps ReportDependencies) *IRRHandler {
	return &IRRHandler{deps: deps}
}

// HandleGetIRR handles GET /irr?version=V&basis=question|total requests.
// Both parameters are optional.
func (h *IRRHandler) HandleGetIRR(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_irr"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	rep, err := h.deps.Report(r.Context(), q.Get("version"), q.Get("basis"))
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
