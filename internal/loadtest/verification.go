package loadtest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/policy"
	"github.com/okian/rapport/internal/domain/types"
	"github.com/okian/rapport/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const tolerance = 1e-6

// Replay folds plan's records through p from the unrated default.
func Replay(p policy.UpdatePolicy, records []model.ScoreRecord) (model.Snapshot, error) {
	snap := model.NewSnapshot()
	now := time.Now()
	for i, rec := range records {
		next, err := p.Apply(snap, rec, now)
		if err != nil {
			return snap, fmt.Errorf("record %d: %w", i, err)
		}
		snap = next
	}
	return snap, nil
}

// Compare lists the fields where view differs from the rounded replay.
func Compare(user string, view types.RatingView, expected model.Snapshot) []Mismatch {
	var out []Mismatch
	want := expected.Rounded()
	for _, f := range model.Fields() {
		if math.Abs(view.Ratings.Get(f)-want.Get(f)) > tolerance {
			out = append(out, Mismatch{User: user, Field: f.String(), Served: view.Ratings.Get(f), Expected: want.Get(f)})
		}
	}
	if view.ConversationsCount != expected.ConversationsCount {
		out = append(out, Mismatch{
			User:     user,
			Field:    "conversations_count",
			Served:   float64(view.ConversationsCount),
			Expected: float64(expected.ConversationsCount),
		})
	}
	return out
}

// verifyAll fetches every user's rating and compares it with a local replay.
func verifyAll(ctx context.Context, cfg *Config, client *Client, plans []Plan, stats *Stats, log logger.Logger) error {
	log.Info(ctx, "verifying ratings", logger.Int("users", len(plans)))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, plan := range plans {
		g.Go(func() error {
			expected, err := Replay(cfg.Policy, plan.Records)
			if err != nil {
				return err
			}
			view, err := client.Rating(gctx, plan.User)
			if err != nil {
				log.Warn(gctx, "rating fetch failed", logger.String("user", plan.User), logger.Error(err))
				return nil
			}
			diff := Compare(plan.User, view, expected)

			mu.Lock()
			stats.UsersVerified++
			stats.Mismatches = append(stats.Mismatches, diff...)
			mu.Unlock()

			if cfg.Verbose {
				for _, m := range diff {
					log.Warn(gctx, "rating mismatch",
						logger.String("user", m.User),
						logger.String("field", m.Field),
						logger.Float64("served", m.Served),
						logger.Float64("expected", m.Expected),
					)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	log.Info(ctx, "verification completed",
		logger.Int("verified", stats.UsersVerified),
		logger.Int("mismatches", len(stats.Mismatches)),
	)
	return nil
}
