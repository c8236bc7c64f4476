package core

import (
	"context"
	"time"

	"github.com/roadsideiq/verify-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobRepository defines the interface for durable job queue operations.
// A job type is a named queue; persistence and attempt accounting live
// behind this interface so the broker is substitutable.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context, jobType model.JobType) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
	ListRecentByType(ctx context.Context, jobType model.JobType, limit int) ([]*model.Job, error)
	Delete(ctx context.Context, id string) error
}

// JobQueue is the enqueue-side seam of the durable job queue. Producers
// depend on this narrow interface rather than the full repository.
type JobQueue interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// VerificationStatusRepository defines the interface for the observable
// background-task status store, keyed by verificationId.
type VerificationStatusRepository interface {
	Set(ctx context.Context, status *model.VerificationStatus) error
	Get(ctx context.Context, verificationID string) (*model.VerificationStatus, error)
	Delete(ctx context.Context, verificationID string) error
}

// VerificationProvider performs (or simulates) the long-running customer
// verification call. Implementations must honor context cancellation.
type VerificationProvider interface {
	Verify(ctx context.Context, req model.VerificationRequest) (model.VerificationResult, error)
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs to keep param count ≤3.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for job cleanup operations.
type ReaperRepository interface {
	// FailStalePendingJobs marks pending jobs older than maxAge as failed.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs marked as failed.
	FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// DeleteOldJobs deletes jobs with the given status older than maxAge.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}
