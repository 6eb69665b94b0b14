// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/rapport/internal/adapters/repository"
	service "github.com/okian/rapport/internal/app"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/rating"
	"github.com/okian/rapport/internal/domain/tier"
	"github.com/okian/rapport/internal/domain/types"
	"github.com/okian/rapport/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit folds a score record into a user's rating.
	Submit(ctx context.Context, userKey string, rec model.ScoreRecord) (types.Submission, error)

	// Snapshot and Reset read and clear a user's rating.
	Snapshot(ctx context.Context, userKey string) (model.Snapshot, error)
	Reset(ctx context.Context, userKey string) error

	// Tier labels every field of a user's rating under one preset.
	Tier(ctx context.Context, userKey string, preset tier.Preset) (map[model.Field]tier.Label, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	scoresHandler *ScoresHandler
	ratingHandler *RatingHandler
	tiersHandler  *TiersHandler
	userTiers     *UserTiersHandler
	logger        logger.Logger
}

// Option configures a Server.
type Option func(*serverSettings)

type serverSettings struct {
	requestTimeout time.Duration
	preset         tier.Preset
	logger         logger.Logger
}

// WithRequestTimeout bounds how long a request waits for its update.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *serverSettings) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithDefaultPreset sets the vocabulary of user tier lookups that name
// no preset.
func WithDefaultPreset(p tier.Preset) Option {
	return func(s *serverSettings) {
		s.preset = p
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *serverSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverSettings{requestTimeout: 5 * time.Second, preset: tier.PresetCumulative, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		scoresHandler: NewScoresHandler(deps, cfg.requestTimeout, cfg.logger),
		ratingHandler: NewRatingHandler(deps, cfg.logger),
		tiersHandler:  NewTiersHandler(),
		userTiers:     NewUserTiersHandler(deps, cfg.preset, cfg.logger),
		logger:        cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /tiers", MetricsMiddleware(s.tiersHandler.HandleGetTiers, "tiers"))
	mux.HandleFunc("POST /users/{user}/scores", MetricsMiddleware(s.scoresHandler.HandlePostScores, "scores"))
	mux.HandleFunc("GET /users/{user}/rating", MetricsMiddleware(s.ratingHandler.HandleGetRating, "rating"))
	mux.HandleFunc("DELETE /users/{user}/rating", MetricsMiddleware(s.ratingHandler.HandleDeleteRating, "rating"))
	mux.HandleFunc("GET /users/{user}/tiers", MetricsMiddleware(s.userTiers.HandleGetUserTiers, "user_tiers"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	resp := errorResponse{Code: code, Message: http.StatusText(status)}
	if err != nil {
		resp.Message = err.Error()
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	writeJSON(w, status, resp)
}

// writeFailure maps an upstream error to its status and code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ErrBadRequest), errors.Is(err, rating.ErrEmptyUserKey):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, repository.ErrStorage):
		return http.StatusServiceUnavailable, "storage_error"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
