package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/types"
	"github.com/okian/rapport/pkg/logger"
)

const maxBodyBytes = 1 << 20

// ScoresDependencies defines the interface for score submission.
type ScoresDependencies interface {
	Submit(ctx context.Context, userKey string, rec model.ScoreRecord) (types.Submission, error)
}

// ScoresHandler handles score submissions.
type ScoresHandler struct {
	deps    ScoresDependencies
	timeout time.Duration
	logger  logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies, timeout time.Duration, log logger.Logger) *ScoresHandler {
	return &ScoresHandler{deps: deps, timeout: timeout, logger: log}
}

// scoreRequest mirrors the OpenAPI schema for POST /users/{user}/scores.
// Pointers tell a missing field from a real zero.
type scoreRequest struct {
	ConversationID string            `json:"conversation_id"`
	Overall        *float64          `json:"overall"`
	SubSkills      *subSkillsRequest `json:"sub_skills"`
}

type subSkillsRequest struct {
	ClarityAndSpecificity        *float64 `json:"clarity_and_specificity"`
	MutualUnderstanding          *float64 `json:"mutual_understanding"`
	ProactiveProblemSolving      *float64 `json:"proactive_problem_solving"`
	AppropriateCustomization     *float64 `json:"appropriate_customization"`
	DocumentationAndVerification *float64 `json:"documentation_and_verification"`
}

// record converts the request, requiring all six values.
func (r scoreRequest) record() (model.ScoreRecord, error) {
	rec := model.ScoreRecord{ConversationID: strings.TrimSpace(r.ConversationID)}
	if r.SubSkills == nil {
		return rec, errors.New("missing sub_skills")
	}
	values := map[model.Field]*float64{
		model.FieldOverall:                      r.Overall,
		model.FieldClarityAndSpecificity:        r.SubSkills.ClarityAndSpecificity,
		model.FieldMutualUnderstanding:          r.SubSkills.MutualUnderstanding,
		model.FieldProactiveProblemSolving:      r.SubSkills.ProactiveProblemSolving,
		model.FieldAppropriateCustomization:     r.SubSkills.AppropriateCustomization,
		model.FieldDocumentationAndVerification: r.SubSkills.DocumentationAndVerification,
	}
	for _, f := range model.Fields() {
		v := values[f]
		if v == nil {
			return rec, errors.New("missing " + f.String())
		}
		rec.Set(f, *v)
	}
	return rec, nil
}

// HandlePostScores handles POST /users/{user}/scores requests.
func (h *ScoresHandler) HandlePostScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_scores"
	user := r.PathValue("user")
	if strings.TrimSpace(user) == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, WrapKind(op, ErrBodyTooLarge, err))
			return
		}
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := req.record()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.deps.Submit(ctx, user, rec)
	if err != nil {
		h.logger.Debug(ctx, "score submission failed",
			logger.String("user", user),
			logger.Error(err),
		)
		writeFailure(w, Wrap(op, err))
		return
	}

	view := types.NewRatingView(user, res.Snapshot)
	view.Duplicate = res.Duplicate
	writeJSON(w, http.StatusOK, view)
}
