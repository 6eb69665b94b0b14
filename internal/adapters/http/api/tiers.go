package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/tier"
	"github.com/okian/rapport/internal/domain/types"
	"github.com/okian/rapport/pkg/logger"
)

// TiersHandler classifies bare values.
type TiersHandler struct{}

// NewTiersHandler creates a new tiers handler.
func NewTiersHandler() *TiersHandler {
	return &TiersHandler{}
}

type tiersResponse struct {
	Value  float64               `json:"value"`
	Labels map[string]tier.Label `json:"labels"`
}

// HandleGetTiers handles GET /tiers?value=V[&preset=P] requests. Without a
// preset every vocabulary is returned.
func (h *TiersHandler) HandleGetTiers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_tiers"
	q := r.URL.Query()

	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("value: %w", err)))
		return
	}
	if math.IsNaN(value) || value < model.MinScore || value > model.MaxScore {
		writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("value %v out of range [0, 100]", value)))
		return
	}

	presets := tier.Presets()
	if name := q.Get("preset"); name != "" {
		p, err := tier.ParsePreset(name)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		presets = []tier.Preset{p}
	}

	resp := tiersResponse{Value: value, Labels: make(map[string]tier.Label, len(presets))}
	for _, p := range presets {
		resp.Labels[p.String()] = tier.New(p).Classify(value)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UserTierDependencies labels a user's rating.
type UserTierDependencies interface {
	Tier(ctx context.Context, userKey string, preset tier.Preset) (map[model.Field]tier.Label, error)
}

// UserTiersHandler labels every field of a user's rating in one vocabulary.
type UserTiersHandler struct {
	deps   UserTierDependencies
	preset tier.Preset
	logger logger.Logger
}

// NewUserTiersHandler creates a handler that falls back to preset when a
// request names none.
func NewUserTiersHandler(deps UserTierDependencies, preset tier.Preset, log logger.Logger) *UserTiersHandler {
	return &UserTiersHandler{deps: deps, preset: preset, logger: log}
}

type userTiersResponse struct {
	User   string           `json:"user"`
	Preset string           `json:"preset"`
	Labels types.FieldTiers `json:"labels"`
}

// HandleGetUserTiers handles GET /users/{user}/tiers[?preset=P] requests.
func (h *UserTiersHandler) HandleGetUserTiers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user_tiers"
	user := r.PathValue("user")
	if strings.TrimSpace(user) == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}

	preset := h.preset
	if name := r.URL.Query().Get("preset"); name != "" {
		p, err := tier.ParsePreset(name)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		preset = p
	}

	labels, err := h.deps.Tier(r.Context(), user, preset)
	if err != nil {
		h.logger.Warn(r.Context(), "tier lookup failed", logger.String("user", user), logger.Error(err))
		writeFailure(w, Wrap(op, err))
		return
	}

	resp := userTiersResponse{User: user, Preset: preset.String(), Labels: make(types.FieldTiers, len(labels))}
	for f, l := range labels {
		resp.Labels[f.String()] = l
	}
	writeJSON(w, http.StatusOK, resp)
}
