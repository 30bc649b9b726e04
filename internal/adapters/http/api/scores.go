package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/irr/internal/app"
	"github.com/okian/irr/internal/domain/model"
)

const maxScoresBody = 4 << 20

// ScoreDependencies accepts submitted score records.
type ScoreDependencies interface {
	Submit(ctx context.Context, recs []model.ScoreRecord) (service.Ack, error)
}

// ScoresHandler handles score submissions.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// scoreRequest mirrors the OpenAPI ScoreRecord schema.
type scoreRequest struct {
	ID            string            `json:"id"`
	StudyID       string            `json:"studyId"`
	RaterAlias    string            `json:"raterAlias"`
	RubricVersion string            `json:"rubricVersion"`
	Answers       map[string]string `json:"answers"`
	Notes         string            `json:"notes"`
	Timestamp     string            `json:"timestamp"`
}

func (s *scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(s.StudyID) == "":
		return errors.New("missing studyId")
	case strings.TrimSpace(s.RaterAlias) == "":
		return errors.New("missing raterAlias")
	case strings.TrimSpace(s.RubricVersion) == "":
		return errors.New("missing rubricVersion")
	case len(s.Answers) == 0:
		return errors.New("missing answers")
	}
	if s.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, s.Timestamp); err != nil {
			return errors.New("invalid timestamp; must be RFC3339")
		}
	}
	return nil
}

func (s *scoreRequest) record() model.ScoreRecord {
	rec := model.ScoreRecord{
		ID:            s.ID,
		StudyID:       s.StudyID,
		RaterAlias:    s.RaterAlias,
		RubricVersion: s.RubricVersion,
		Answers:       s.Answers,
		Notes:         s.Notes,
	}
	if ts, err := time.Parse(time.RFC3339, s.Timestamp); err == nil {
		rec.Timestamp = ts.UTC()
	}
	return rec
}

// decodeScores reads one score object or an array of them.
func decodeScores(r io.Reader) ([]scoreRequest, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] == '[' {
		var reqs []scoreRequest
		if err := json.Unmarshal(body, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}
	var req scoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return []scoreRequest{req}, nil
}

// HandlePostScores handles POST /scores requests. The body is one score
// record or an array of them; accepted records are written asynchronously.
func (h *ScoresHandler) HandlePostScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_scores"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	reqs, err := decodeScores(http.MaxBytesReader(w, r.Body, maxScoresBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("no records")))
		return
	}
	recs := make([]model.ScoreRecord, len(reqs))
	for i := range reqs {
		if err := reqs[i].validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("record %d: %w", i, err)))
			return
		}
		recs[i] = reqs[i].record()
	}

	ack, err := h.deps.Submit(r.Context(), recs)
	if err != nil {
		fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
