// Package webhookrunner pulls webhook delivery jobs off the durable queue
// and posts verification results to their destinations.
package webhookrunner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roadsideiq/verify-api/internal/core"
	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	"github.com/roadsideiq/verify-api/internal/service"
)

const (
	defaultLease        = 30 * time.Second
	defaultPollInterval = 5 * time.Second
)

// RunnerOptions configures the webhook delivery runner.
type RunnerOptions struct {
	DB       *sql.DB
	Delivery *service.DeliveryService
	Logger   *slog.Logger

	// Job processing settings
	Lease        time.Duration // per-job lease duration; defaults to 30s
	Concurrency  int           // number of worker goroutines; defaults to 1
	PollInterval time.Duration // fallback poll cadence for backoff-scheduled retries; defaults to 5s

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo   core.JobRepository
	StatusRepo core.VerificationStatusRepository
}

// Runner reserves webhook jobs and executes deliveries until stopped.
// Retries are not scheduled here; the queue reschedules failed jobs per
// their backoff, and the runner simply picks them up again.
type Runner struct {
	jobs     *service.JobService
	delivery *service.DeliveryService
	status   core.VerificationStatusRepository
	logger   *slog.Logger
	lease    time.Duration
	poll     time.Duration
	workers  int
}

// NewRunner wires the job service and constructs a webhook delivery runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.JobsRepo == nil {
		return nil, errors.New("either DB or JobsRepo must be provided")
	}
	if opts.Delivery == nil {
		return nil, errors.New("delivery service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lease := opts.Lease
	if lease <= 0 {
		lease = defaultLease
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}

	repo := opts.JobsRepo
	if repo == nil {
		repo = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: logger})
	}
	jobs := service.MustNewJobService(service.JobServiceOptions{
		Repo:         repo,
		DefaultLease: lease,
		Logger:       logger,
	})

	return &Runner{
		jobs:     jobs,
		delivery: opts.Delivery,
		status:   opts.StatusRepo,
		logger:   logger,
		lease:    lease,
		poll:     poll,
		workers:  workers,
	}, nil
}

// Run starts worker goroutines and processes webhook jobs until the context
// is cancelled. The first fatal worker error stops all workers.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting webhook runner",
		"workers", r.workers, "lease", r.lease, "poll_interval", r.poll)

	unsub, ch := r.jobs.Subscribe(model.JobTypeWebhook)
	defer unsub()
	defer r.jobs.StopAllListeners()

	g, ctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			return r.workerLoop(ctx, ch)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (r *Runner) workerLoop(ctx context.Context, notify <-chan struct{}) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx, model.JobTypeWebhook, r.lease)
		switch {
		case err == nil:
			if job != nil {
				r.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			// Backoff-scheduled retries fire no notification, so the
			// ticker is the only thing that picks them up.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-notify:
			case <-ticker.C:
			}
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return ctx.Err()
}

func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	attempt := job.RetryCount + 1

	var result model.VerificationResult
	if err := json.Unmarshal(job.Payload, &result); err != nil {
		r.fail(ctx, job, attempt, fmt.Errorf("decode payload: %w", err))
		return
	}

	stopKeepAlive := r.keepAlive(ctx, job.ID)
	resp, err := r.delivery.Deliver(ctx, result)
	stopKeepAlive()
	if err != nil {
		if resp != nil {
			r.logger.WarnContext(ctx, "webhook delivery rejected",
				"job_id", job.ID, "attempt", attempt, "status", resp.StatusCode)
		}
		r.fail(ctx, job, attempt, err)
		return
	}

	if _, err := r.jobs.Complete(ctx, job.ID); err != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
	}
	r.trackDelivery(ctx, job, result, attempt, nil)
}

// keepAlive extends the job lease at half-lease cadence while a delivery is
// in flight. A delivery may legitimately run as long as the request timeout,
// which can exceed the lease; without the heartbeat the reaper would requeue
// the job mid-flight and a second worker could POST it again.
func (r *Runner) keepAlive(ctx context.Context, jobID string) func() {
	interval := r.lease / 2
	if interval <= 0 {
		interval = time.Second
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := r.jobs.Heartbeat(ctx, jobID, r.lease)
				if err != nil || !ok {
					r.logger.WarnContext(ctx, "job lease heartbeat failed",
						"job_id", jobID, "extended", ok, "error", err)
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

// fail records the attempt on the queue and, when attempts are exhausted,
// marks the verification as terminally failed in the status store.
func (r *Runner) fail(ctx context.Context, job *model.Job, attempt int, cause error) {
	var result model.VerificationResult
	_ = json.Unmarshal(job.Payload, &result)

	if _, err := r.jobs.Fail(ctx, job.ID, cause.Error()); err != nil {
		r.logger.ErrorContext(ctx, "fail job error",
			"job_id", job.ID, "error", err, "original_error", cause)
	}

	if attempt > job.MaxRetries {
		r.logger.ErrorContext(ctx, "webhook delivery exhausted",
			"job_id", job.ID, "attempts", attempt, "error", cause)
		r.trackDelivery(ctx, job, result, attempt, cause)
		return
	}

	r.logger.WarnContext(ctx, "webhook delivery failed, will retry",
		"job_id", job.ID, "attempt", attempt, "max_retries", job.MaxRetries, "error", cause)
}

// trackDelivery writes the terminal delivered/delivery_failed state for
// results that carry a correlation key. Best effort; store failures are
// logged and swallowed.
func (r *Runner) trackDelivery(
	ctx context.Context,
	job *model.Job,
	result model.VerificationResult,
	attempts int,
	cause error,
) {
	if r.status == nil {
		return
	}
	verificationID := result.VerificationID()
	if verificationID == "" {
		return
	}

	status := &model.VerificationStatus{
		VerificationID: verificationID,
		State:          model.VerificationStateDelivered,
		JobID:          job.ID,
		Attempts:       attempts,
	}
	if cause != nil {
		status.State = model.VerificationStateDeliveryFailed
		status.Detail = cause.Error()
	}

	if err := r.status.Set(ctx, status); err != nil {
		r.logger.WarnContext(ctx, "failed to record delivery status",
			"verification_id", verificationID, "state", status.State, "error", err)
	}
}
