// Package rating orchestrates one user's rating lifecycle: load the
// snapshot, fold a score record in through the update policy, persist.
package rating

import (
	"context"
	"errors"
	"time"

	"github.com/okian/rapport/internal/adapters/repository"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/policy"
	"github.com/okian/rapport/pkg/logger"
	"github.com/okian/rapport/pkg/metrics"
)

// Engine applies updates for a single user at a time. It does no locking;
// callers serialize calls per user key.
type Engine struct {
	store  repository.Store
	policy policy.UpdatePolicy
	now    func() time.Time
	log    logger.Logger
}

// New creates an engine over store using p.
func New(store repository.Store, p policy.UpdatePolicy, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		policy: p,
		now:    time.Now,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the update policy in use.
func (e *Engine) Policy() policy.UpdatePolicy { return e.policy }

// StorageKey returns the key userKey is persisted under. Updates for
// users with equal storage keys must be serialized together.
func (e *Engine) StorageKey(userKey string) string {
	if k, ok := e.store.(repository.Keyer); ok {
		return k.Key(userKey)
	}
	return userKey
}

// Current returns the user's snapshot. A missing snapshot is the zero
// default. A snapshot that cannot be loaded is logged and also treated as
// the zero default.
func (e *Engine) Current(ctx context.Context, userKey string) (model.Snapshot, error) {
	return e.load(ctx, userKey, false)
}

// load reads the user's snapshot. With strict set, only a corrupt blob
// falls back to the default; an unreachable store is returned as is so an
// update never overwrites history it could not read.
func (e *Engine) load(ctx context.Context, userKey string, strict bool) (model.Snapshot, error) {
	if userKey == "" {
		return model.Snapshot{}, ErrEmptyUserKey
	}
	snap, ok, err := e.store.Load(ctx, userKey)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Snapshot{}, ctxErr
		}
		reason := "unavailable"
		if errors.Is(err, repository.ErrCorrupt) {
			reason = "corrupt"
		} else if strict {
			metrics.RecordUpdateRejected("storage")
			e.log.Error(ctx, "snapshot load failed, update not applied",
				logger.String("user", userKey),
				logger.Error(err),
			)
			return model.Snapshot{}, err
		}
		metrics.RecordLoadFallback(reason)
		e.log.Warn(ctx, "snapshot load failed, using defaults",
			logger.String("user", userKey),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return model.NewSnapshot(), nil
	}
	if !ok {
		return model.NewSnapshot(), nil
	}
	return snap, nil
}

// Update folds rec into the user's snapshot and persists the result.
// A corrupt stored snapshot is replaced; any other load failure is
// returned and nothing is saved.
// A rejected record returns a *model.ValidationError and saves nothing.
// A failed save returns a *repository.StorageError; the returned snapshot
// is then the one that failed to persist.
func (e *Engine) Update(ctx context.Context, userKey string, rec model.ScoreRecord) (model.Snapshot, error) {
	prev, err := e.load(ctx, userKey, true)
	if err != nil {
		return model.Snapshot{}, err
	}

	start := time.Now()
	next, err := e.policy.Apply(prev, rec, e.now())
	metrics.RecordPolicyLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordUpdateRejected("validation")
		e.log.Debug(ctx, "score record rejected",
			logger.String("user", userKey),
			logger.Error(err),
		)
		return prev, err
	}

	if err := e.store.Save(ctx, userKey, next); err != nil {
		metrics.RecordUpdateRejected("storage")
		e.log.Error(ctx, "snapshot save failed, progress not recorded",
			logger.String("user", userKey),
			logger.Int("conversations", next.ConversationsCount),
			logger.Error(err),
		)
		return next, err
	}

	metrics.RecordUpdateApplied(e.policy.Name())
	e.log.Debug(ctx, "rating updated",
		logger.String("user", userKey),
		logger.String("policy", e.policy.Name()),
		logger.Int("conversations", next.ConversationsCount),
		logger.Float64("overall", model.Round1(next.Ratings.Overall)),
	)
	return next, nil
}

// Reset clears the user's snapshot back to defaults.
func (e *Engine) Reset(ctx context.Context, userKey string) error {
	if userKey == "" {
		return ErrEmptyUserKey
	}
	if err := e.store.Reset(ctx, userKey); err != nil {
		return err
	}
	metrics.RecordReset()
	e.log.Info(ctx, "rating reset", logger.String("user", userKey))
	return nil
}
