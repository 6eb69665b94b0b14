package loadtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rapport/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Run generates plans, submits them and verifies the served ratings.
// Records of one user are submitted in order; users run concurrently.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	stats := &Stats{Users: cfg.Users, StartTime: time.Now()}

	log.Info(ctx, "starting rating load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("conversations", cfg.Conversations),
		logger.Int("workers", cfg.Workers),
		logger.String("policy", cfg.Policy.Name()),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, err
	}

	plans := Generate(cfg.Users, cfg.Conversations)
	log.Info(ctx, "generated plans", logger.Int("users", len(plans)))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, plan := range plans {
		g.Go(func() error {
			res := submitPlan(gctx, client, plan, log)

			mu.Lock()
			stats.Submitted += res.submitted
			stats.Applied += res.applied
			stats.Duplicate += res.duplicate
			stats.Failed += res.failed
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("submission interrupted: %w", err)
	}
	log.Info(ctx, "submission completed",
		logger.Int("applied", stats.Applied),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
	)

	if err := verifyAll(ctx, cfg, client, plans, stats, log); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, log)
	return stats, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.BaseURL == "":
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	case cfg.Users <= 0:
		return fmt.Errorf("%w: users must be positive", ErrInvalidConfig)
	case cfg.Conversations <= 0:
		return fmt.Errorf("%w: conversations must be positive", ErrInvalidConfig)
	case cfg.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case cfg.Policy == nil:
		return fmt.Errorf("%w: policy is required", ErrInvalidConfig)
	}
	return nil
}

type planResult struct {
	submitted, applied, duplicate, failed int
}

// submitPlan sends every record of plan in order, then resends the first
// one, which the server must report as a duplicate.
func submitPlan(ctx context.Context, client *Client, plan Plan, log logger.Logger) planResult {
	var res planResult
	for _, rec := range plan.Records {
		res.submitted++
		view, err := client.Submit(ctx, plan.User, rec)
		switch {
		case err != nil:
			res.failed++
			log.Warn(ctx, "submission failed", logger.String("user", plan.User), logger.Error(err))
		case view.Duplicate:
			res.duplicate++
		default:
			res.applied++
		}
	}

	res.submitted++
	view, err := client.Submit(ctx, plan.User, plan.Records[0])
	switch {
	case err != nil:
		res.failed++
	case !view.Duplicate:
		res.failed++
		log.Warn(ctx, "retried conversation was applied twice", logger.String("user", plan.User))
	default:
		res.duplicate++
	}
	return res
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats, log logger.Logger) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("users", stats.Users),
		logger.Int("submitted", stats.Submitted),
		logger.Int("applied", stats.Applied),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("usersVerified", stats.UsersVerified),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
