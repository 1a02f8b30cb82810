// Package poller drives every active ledger job through the remote status
// endpoint on a fixed interval.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/connections-cli/internal/ledger"
	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/pkg/openai"
)

const (
	defaultInterval    = 60 * time.Second
	defaultConcurrency = 4
)

// Option configures the scheduler.
type Option func(*Scheduler)

// WithInterval overrides the default poll interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithConcurrency bounds how many jobs are polled in parallel within a tick.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		s.concurrency = n
	}
}

// WithStopWhenIdle makes Run return once a tick finds no active jobs.
func WithStopWhenIdle() Option {
	return func(s *Scheduler) {
		s.stopWhenIdle = true
	}
}

// Scheduler periodically polls every active job and writes the remote's
// report back into the ledger. Ticks never overlap: the loop runs one tick
// to completion before waiting for the next, which bounds concurrent
// outbound requests at the per-tick concurrency limit.
type Scheduler struct {
	store        ledger.Store
	client       openai.Client
	interval     time.Duration
	concurrency  int
	stopWhenIdle bool

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a scheduler over the given ledger and lifecycle client.
func New(store ledger.Store, client openai.Client, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		client:      client,
		interval:    defaultInterval,
		concurrency: defaultConcurrency,
		stop:        make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run ticks immediately, then on every interval, until Stop is called or the
// context is canceled. The immediate first tick means a client reconnecting
// mid-job sees fresh state without waiting out the interval.
func (s *Scheduler) Run(ctx context.Context) error {
	active, err := s.Tick(ctx)
	if err != nil {
		zap.L().Error("poller: tick failed", zap.Error(err))
	}
	if s.stopWhenIdle && err == nil && active == 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticker.C:
			active, err := s.Tick(ctx)
			if err != nil {
				zap.L().Error("poller: tick failed", zap.Error(err))
				continue
			}
			if s.stopWhenIdle && active == 0 {
				return nil
			}
		}
	}
}

// Stop prevents further ticks. An in-flight tick completes; individual
// network calls are not aborted mid-flight.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Tick polls every active job once and returns how many remain active.
// A failure polling one job is logged and does not affect the others.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	jobs, err := s.store.ListActiveJobs(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "poller: list active jobs")
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var active atomic.Int64
	for _, job := range jobs {
		g.Go(func() error {
			if s.pollOne(gctx, job.ID) {
				active.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(active.Load()), nil
}

// pollOne refreshes a single job from the remote and reports whether it is
// still active afterwards. All updates are read-modify-write against the
// ledger so concurrent writers never clobber locally captured fields.
func (s *Scheduler) pollOne(ctx context.Context, jobID string) bool {
	log := zap.L().With(zap.String("job_id", jobID))

	batch, err := s.client.GetBatch(ctx, jobID)
	if err != nil {
		log.Warn("poller: poll failed", zap.Error(err))
		return true
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if eris.Is(err, ledger.ErrJobNotFound) {
			// Deleted between listing and polling; nothing to update.
			return false
		}
		log.Warn("poller: reload job failed", zap.Error(err))
		return true
	}

	prev := job.Status
	if err := ledger.ApplyBatch(job, batch, time.Now()); err != nil {
		log.Error("poller: remote reported unusable state", zap.Error(err))
		return true
	}
	if err := s.store.UpsertJob(ctx, *job); err != nil {
		log.Warn("poller: upsert failed", zap.Error(err))
		return true
	}

	if job.Status != prev {
		log.Info("poller: job transitioned",
			zap.String("from", string(prev)),
			zap.String("to", string(job.Status)),
		)
	}
	return job.Status.IsActive()
}

// Reattach lists batches known to the remote, diffs them against the
// ledger, and imports the unknown ones. It is a manual action: a job whose
// contact snapshot this ledger never had can be tracked but not reconciled,
// so nothing imports automatically.
func Reattach(ctx context.Context, store ledger.Store, client openai.Client, limit int) ([]model.Job, error) {
	remote, err := client.ListBatches(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "poller: list remote batches")
	}

	var imported []model.Job
	for i := range remote {
		b := &remote[i]
		if _, err := store.GetJob(ctx, b.ID); err == nil {
			continue
		} else if !eris.Is(err, ledger.ErrJobNotFound) {
			return imported, eris.Wrapf(err, "poller: check job %s", b.ID)
		}

		job, err := ledger.JobFromBatch(b)
		if err != nil {
			zap.L().Warn("poller: skip remote batch with unknown status",
				zap.String("job_id", b.ID),
				zap.Error(err),
			)
			continue
		}
		job.Description = b.Metadata["description"]
		if err := store.UpsertJob(ctx, job); err != nil {
			return imported, eris.Wrapf(err, "poller: import job %s", b.ID)
		}
		imported = append(imported, job)
	}
	return imported, nil
}
