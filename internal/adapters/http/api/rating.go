package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/types"
	"github.com/okian/rapport/pkg/logger"
)

// RatingDependencies defines the interface for reading and resetting ratings.
type RatingDependencies interface {
	Snapshot(ctx context.Context, userKey string) (model.Snapshot, error)
	Reset(ctx context.Context, userKey string) error
}

// RatingHandler handles rating reads and resets.
type RatingHandler struct {
	deps   RatingDependencies
	logger logger.Logger
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingDependencies, log logger.Logger) *RatingHandler {
	return &RatingHandler{deps: deps, logger: log}
}

// HandleGetRating handles GET /users/{user}/rating requests. Users with no
// history get the default snapshot.
func (h *RatingHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rating"
	user := r.PathValue("user")
	if strings.TrimSpace(user) == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	snap, err := h.deps.Snapshot(r.Context(), user)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewRatingView(user, snap))
}

// HandleDeleteRating handles DELETE /users/{user}/rating requests.
func (h *RatingHandler) HandleDeleteRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_rating"
	user := r.PathValue("user")
	if strings.TrimSpace(user) == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.Reset(r.Context(), user); err != nil {
		h.logger.Warn(r.Context(), "reset failed", logger.String("user", user), logger.Error(err))
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
