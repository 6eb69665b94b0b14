// Package service ties the rating engine to the per-user job queue and
// exposes the operations the HTTP API and CLI need.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/rapport/internal/adapters/mq/queue"
	"github.com/okian/rapport/internal/adapters/mq/worker"
	"github.com/okian/rapport/internal/domain/dedupe"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/rating"
	"github.com/okian/rapport/internal/domain/tier"
	"github.com/okian/rapport/internal/domain/types"
	"github.com/okian/rapport/pkg/logger"
	"github.com/okian/rapport/pkg/metrics"
)

// Service implements the API dependencies for the rating system.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine  *rating.Engine
	deduper dedupe.Deduper
	queue   *queue.Partitioned
	pool    *worker.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	// State
	started   bool
	startedAt time.Time

	// Conversations recorded in the deduper whose job has not finished.
	flightMu sync.Mutex
	flights  map[string]*flight

	// Logging
	logger logger.Logger
}

// flight is closed once the job that recorded a conversation finishes.
type flight struct {
	done chan struct{}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of workers, which is also the number of
// queue partitions.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the total queue capacity across partitions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many conversation IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service over engine with default configuration.
func New(engine *rating.Engine, opts ...Option) *Service {
	s := &Service{
		engine:      engine,
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
		logger:      logger.Nop(),
		flights:     make(map[string]*flight),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start creates the queue, deduper and worker pool and starts the workers.
// Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.engine == nil {
		return ErrNoEngine
	}

	s.logger.Info(ctx, "starting rating service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	perPartition := s.queueSize / s.workerCount
	if perPartition < 1 {
		perPartition = 1
	}
	s.queue = queue.NewPartitioned(s.workerCount, queue.WithCapacity(perPartition))
	s.pool = worker.NewPool(s.queue, s.engine, s.logger)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "rating service started",
		logger.String("policy", s.engine.Policy().Name()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop closes the queue and waits for queued updates to be applied.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping rating service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool did not drain", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// Submit folds rec into the user's rating and waits for the result.
// A record whose conversation was already applied for this user returns
// the current snapshot with Duplicate set. A record whose conversation is
// still being applied waits for that job first: if it succeeded the record
// is a duplicate, otherwise this record is applied in its place. A full
// queue returns ErrBackpressure and forgets the conversation so it can be
// retried.
func (s *Service) Submit(ctx context.Context, userKey string, rec model.ScoreRecord) (types.Submission, error) {
	if userKey == "" {
		return types.Submission{}, rating.ErrEmptyUserKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Submission{}, ErrNotStarted
	}

	j := queue.Job{UserKey: userKey, Record: rec}
	id := dedupeID(userKey, rec.ConversationID)
	if id == "" {
		res, _, err := s.dispatch(ctx, j, nil)
		return types.Submission{Snapshot: res.Snapshot}, err
	}

	for {
		f, owner := s.claim(ctx, id)
		if owner {
			return s.apply(ctx, id, f, j)
		}
		if f == nil {
			return s.duplicate(ctx, userKey, rec.ConversationID)
		}
		select {
		case <-f.done:
		case <-ctx.Done():
			return types.Submission{}, ctx.Err()
		}
	}
}

// claim records id. owner reports that the caller recorded it and must
// apply the job; otherwise f is the unfinished job holding id, or nil when
// id was applied already.
func (s *Service) claim(ctx context.Context, id string) (f *flight, owner bool) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if !s.deduper.SeenAndRecord(ctx, id) {
		f = &flight{done: make(chan struct{})}
		s.flights[id] = f
		return f, true
	}
	return s.flights[id], false
}

// land finishes the flight for id. A failed job forgets id so the
// conversation can be submitted again.
func (s *Service) land(ctx context.Context, id string, f *flight, err error) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if err != nil {
		s.deduper.Unrecord(ctx, id)
	}
	delete(s.flights, id)
	close(f.done)
}

func (s *Service) apply(ctx context.Context, id string, f *flight, j queue.Job) (types.Submission, error) { //nolint:gocritic // hugeParam
	res, pending, err := s.dispatch(ctx, j, func(late queue.Result) {
		s.land(context.WithoutCancel(ctx), id, f, late.Err)
	})
	// A pending job lands when its worker replies.
	if !pending {
		s.land(ctx, id, f, err)
	}
	return types.Submission{Snapshot: res.Snapshot}, err
}

func (s *Service) duplicate(ctx context.Context, userKey, conversationID string) (types.Submission, error) {
	metrics.RecordUpdateDuplicate()
	s.logger.Debug(ctx, "duplicate conversation, skipping",
		logger.String("user", userKey),
		logger.String("conversation", conversationID),
	)
	snap, err := s.engine.Current(ctx, userKey)
	if err != nil {
		return types.Submission{}, err
	}
	return types.Submission{Snapshot: snap, Duplicate: true}, nil
}

// Snapshot returns the user's current snapshot.
func (s *Service) Snapshot(ctx context.Context, userKey string) (model.Snapshot, error) {
	return s.engine.Current(ctx, userKey)
}

// Reset clears the user's snapshot. It is queued behind any pending
// updates for the same user.
func (s *Service) Reset(ctx context.Context, userKey string) error {
	if userKey == "" {
		return rating.ErrEmptyUserKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	_, _, err := s.dispatch(ctx, queue.Job{UserKey: userKey, Reset: true}, nil)
	return err
}

// Tier returns the labels of every field of the user's snapshot under
// preset.
func (s *Service) Tier(ctx context.Context, userKey string, preset tier.Preset) (map[model.Field]tier.Label, error) {
	snap, err := s.Snapshot(ctx, userKey)
	if err != nil {
		return nil, err
	}
	c := tier.New(preset)
	out := make(map[model.Field]tier.Label, len(model.Fields()))
	for _, f := range model.Fields() {
		out[f] = c.ClassifySnapshot(snap, f)
	}
	return out, nil
}

// dispatch enqueues j and waits for its result. pending reports that ctx
// ended after the job was queued, so it may still run; late, when set,
// then receives the result once the worker replies. Callers hold s.mu.
func (s *Service) dispatch(ctx context.Context, j queue.Job, late func(queue.Result)) (res queue.Result, pending bool, err error) { //nolint:gocritic // hugeParam
	reply := make(chan queue.Result, 1)
	j.Reply = reply
	j.RequestID = logger.RequestID(ctx)
	j.PartitionKey = s.engine.StorageKey(j.UserKey)

	if !s.queue.Enqueue(ctx, j) {
		if err := ctx.Err(); err != nil {
			return queue.Result{}, false, err
		}
		s.logger.Warn(ctx, "queue full, rejecting job",
			logger.String("user", j.UserKey),
			logger.Int("queue_length", s.queue.Len()),
		)
		return queue.Result{}, false, ErrBackpressure
	}

	select {
	case res = <-reply:
		return res, false, res.Err
	case <-ctx.Done():
		if late != nil {
			go func() { late(<-reply) }()
		}
		return queue.Result{}, true, ctx.Err()
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.engine != nil {
		stats["policy"] = s.engine.Policy().Name()
	}

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["dedupeEntries"] = s.deduper.Size()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}

	return stats
}

func dedupeID(userKey, conversationID string) string {
	if conversationID == "" {
		return ""
	}
	return userKey + "/" + conversationID
}
