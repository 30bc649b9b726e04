package api

import (
	"net/http"
	"strings"

	"github.com/okian/irr/internal/domain/rubric"
)

type rubricSummary struct {
	Version   string `json:"version"`
	Questions int    `json:"questions"`
	MaxScore  int    `json:"maxScore"`
}

type optionView struct {
	Token   string   `json:"token"`
	Score   int      `json:"score"`
	Aliases []string `json:"aliases,omitempty"`
}

type questionView struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	MaxScore int          `json:"maxScore"`
	Options  []optionView `json:"options"`
}

type rubricView struct {
	Version   string         `json:"version"`
	MaxScore  int            `json:"maxScore"`
	Questions []questionView `json:"questions"`
}

func viewOf(rb *rubric.Rubric) rubricView {
	qs := rb.Questions()
	out := rubricView{
		Version:   string(rb.Version()),
		MaxScore:  rb.MaxScore(),
		Questions: make([]questionView, len(qs)),
	}
	for i, q := range qs {
		opts := make([]optionView, len(q.Options))
		for j, o := range q.Options {
			opts[j] = optionView{Token: o.Token, Score: o.Score, Aliases: o.Aliases}
		}
		out.Questions[i] = questionView{ID: q.ID, Label: q.Label, MaxScore: q.MaxScore(), Options: opts}
	}
	return out
}

// RubricsHandler serves the rubric catalogue.
type RubricsHandler struct {
	deps RubricDependencies
}

// NewRubricsHandler creates a new rubrics handler.
func NewRubricsHandler(deps RubricDependencies) *RubricsHandler {
	return &RubricsHandler{deps: deps}
}

// HandleListRubrics handles GET /rubrics requests.
func (h *RubricsHandler) HandleListRubrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_rubrics"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	versions := h.deps.Rubrics()
	out := make([]rubricSummary, 0, len(versions))
	for _, v := range versions {
		rb, err := h.deps.Rubric(string(v))
		if err != nil {
			fail(r.Context(), w, op, err)
			return
		}
		out = append(out, rubricSummary{Version: string(v), Questions: len(rb.Questions()), MaxScore: rb.MaxScore()})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetRubric handles GET /rubrics/{version} requests.
func (h *RubricsHandler) HandleGetRubric(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rubric"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	version := strings.TrimPrefix(r.URL.Path, "/rubrics/")
	if version == "" || strings.Contains(version, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rb, err := h.deps.Rubric(version)
	if err != nil {
		status, code, kind := classify(err)
		if status == http.StatusBadRequest {
			// An unknown version in the path is a missing resource.
			status, code, kind = http.StatusNotFound, "not_found", ErrNotFound
		}
		writeError(w, status, code, WrapKind(op, kind, err))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rb))
}
