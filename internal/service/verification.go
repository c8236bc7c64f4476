package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roadsideiq/verify-api/internal/core"
	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
)

// VerificationServiceOptions groups dependencies for VerificationService.
type VerificationServiceOptions struct {
	Queue        core.JobQueue                     // Required: webhook job enqueuer
	Status       core.VerificationStatusRepository // Required: observable task status store
	Provider     core.VerificationProvider         // Required: the (simulated) verification backend
	SyncProvider core.VerificationProvider         // Optional: inline provider for the simulation endpoint, defaults to Provider
	TaskTimeout  time.Duration                     // Optional: bounds a background task end to end
	Logger       *slog.Logger                      // Optional: structured logger
	TimeProvider data.TimeProvider                 // Optional: defaults to real time
}

// VerificationService accepts verify-customer-info submissions, runs the
// verification provider on a background context, and enqueues the result for
// durable webhook delivery. Enqueue and provider failures are recorded in
// the status store and logged; they are never surfaced to the original
// caller, who already received the ack.
type VerificationService struct {
	queue        core.JobQueue
	status       core.VerificationStatusRepository
	provider     core.VerificationProvider
	syncProvider core.VerificationProvider
	taskTimeout  time.Duration
	logger       *slog.Logger
	timeProvider data.TimeProvider

	baseCtx context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
}

// NewVerificationService constructs a new VerificationService.
func NewVerificationService(opts VerificationServiceOptions) (*VerificationService, error) {
	if opts.Queue == nil {
		return nil, errors.New("JobQueue is required")
	}
	if opts.Status == nil {
		return nil, errors.New("VerificationStatusRepository is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("VerificationProvider is required")
	}

	syncProvider := opts.SyncProvider
	if syncProvider == nil {
		syncProvider = opts.Provider
	}

	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "verification_service")
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	return &VerificationService{
		queue:        opts.Queue,
		status:       opts.Status,
		provider:     opts.Provider,
		syncProvider: syncProvider,
		taskTimeout:  opts.TaskTimeout,
		logger:       logger,
		timeProvider: tp,
		baseCtx:      baseCtx,
		cancel:       cancel,
	}, nil
}

// SubmitAck is the immediate response to an accepted submission.
type SubmitAck struct {
	Status         string
	VerificationID string
}

// Submit accepts a verification request, records the received status, and
// schedules the deferred verification task. The task runs on a
// service-owned background context so a client disconnect cannot cancel it.
// Submit never fails the caller for downstream problems; the returned error
// covers only the initial status write.
func (s *VerificationService) Submit(ctx context.Context, req model.VerificationRequest) (*SubmitAck, error) {
	taskID := uuid.NewString()

	if req.VerificationID != "" {
		if err := s.setStatus(ctx, &model.VerificationStatus{
			VerificationID: req.VerificationID,
			State:          model.VerificationStateReceived,
			TaskID:         taskID,
		}); err != nil {
			return nil, fmt.Errorf("record received status: %w", err)
		}
	}

	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		taskCtx := s.baseCtx
		if s.taskTimeout > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(s.baseCtx, s.taskTimeout)
			defer cancel()
		}
		s.runTask(taskCtx, taskID, req)
	}()

	if s.logger != nil {
		s.logger.InfoContext(ctx, "verification accepted",
			"task_id", taskID,
			"verification_id", req.VerificationID,
			"has_webhook_url", req.WebhookURL != "",
		)
	}

	return &SubmitAck{Status: "queued", VerificationID: req.VerificationID}, nil
}

// Simulate runs the provider inline and returns the full result without
// touching the queue. This backs the synchronous simulation endpoint.
func (s *VerificationService) Simulate(
	ctx context.Context,
	req model.VerificationRequest,
) (model.VerificationResult, error) {
	outcome, err := s.syncProvider.Verify(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("simulate verification: %w", err)
	}
	return s.buildResult(req, outcome), nil
}

// GetStatus returns the observable status record for a verificationId.
func (s *VerificationService) GetStatus(
	ctx context.Context,
	verificationID string,
) (*model.VerificationStatus, error) {
	if verificationID == "" {
		return nil, errors.New("verification id is required")
	}
	return s.status.Get(ctx, verificationID)
}

// Shutdown stops accepting new background work and waits for in-flight
// tasks, bounded by the given context.
func (s *VerificationService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("verification shutdown: %w", ctx.Err())
	}

	s.cancel()
	return nil
}

// runTask is the deferred half of Submit: verify, build the result payload,
// enqueue it for webhook delivery, and track state transitions.
func (s *VerificationService) runTask(ctx context.Context, taskID string, req model.VerificationRequest) {
	log := s.logger
	if log != nil {
		log = log.With("task_id", taskID, "verification_id", req.VerificationID)
	}

	s.trackState(ctx, taskID, req.VerificationID, model.VerificationStateVerifying, "", "")

	outcome, err := s.provider.Verify(ctx, req)
	if err != nil {
		if log != nil {
			log.ErrorContext(ctx, "verification provider failed", "error", err)
		}
		s.trackState(ctx, taskID, req.VerificationID, model.VerificationStateEnqueueFailed, err.Error(), "")
		return
	}

	result := s.buildResult(req, outcome)
	payload, err := json.Marshal(result)
	if err != nil {
		if log != nil {
			log.ErrorContext(ctx, "marshal verification result", "error", err)
		}
		s.trackState(ctx, taskID, req.VerificationID, model.VerificationStateEnqueueFailed, err.Error(), "")
		return
	}

	job, err := s.queue.Create(ctx, &model.CreateJobRequest{
		Type:    model.JobTypeWebhook,
		Payload: payload,
	})
	if err != nil {
		if log != nil {
			log.ErrorContext(ctx, "enqueue webhook job", "error", err)
		}
		s.trackState(ctx, taskID, req.VerificationID, model.VerificationStateEnqueueFailed, err.Error(), "")
		return
	}

	s.trackState(ctx, taskID, req.VerificationID, model.VerificationStateQueued, "", job.ID)

	if log != nil {
		log.InfoContext(ctx, "verification result queued for delivery", "job_id", job.ID)
	}
}

// buildResult merges the provider outcome over the request context and
// stamps the correlation id, delivery destination, and creation time.
func (s *VerificationService) buildResult(
	req model.VerificationRequest,
	outcome model.VerificationResult,
) model.VerificationResult {
	result := make(model.VerificationResult, len(req.Fields)+len(outcome)+3)
	for k, v := range req.Fields {
		result[k] = v
	}
	for k, v := range outcome {
		result[k] = v
	}

	if req.VerificationID != "" {
		result[model.FieldVerificationID] = req.VerificationID
	}
	if req.WebhookURL != "" {
		result[model.FieldWebhookURL] = req.WebhookURL
	}
	result[model.FieldTimestamp] = s.timeProvider.Now().UTC().Format(time.RFC3339)

	return result
}

// trackState writes a status transition, skipping requests with no
// correlation key. Store failures are logged and swallowed; status is
// best-effort observability, not part of the delivery contract.
func (s *VerificationService) trackState(
	ctx context.Context,
	taskID, verificationID string,
	state model.VerificationState,
	detail, jobID string,
) {
	if verificationID == "" {
		return
	}
	err := s.setStatus(ctx, &model.VerificationStatus{
		VerificationID: verificationID,
		State:          state,
		Detail:         detail,
		TaskID:         taskID,
		JobID:          jobID,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record verification status",
			"verification_id", verificationID,
			"state", state,
			"error", err,
		)
	}
}

func (s *VerificationService) setStatus(ctx context.Context, status *model.VerificationStatus) error {
	return s.status.Set(ctx, status)
}
