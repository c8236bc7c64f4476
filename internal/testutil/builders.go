// Package testutil provides testing utilities and helpers for the verify-api job system.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/roadsideiq/verify-api/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Type:       model.JobTypeWebhook,
			Priority:   50,
			Payload:    json.RawMessage(`{"verificationId": "ver-123", "webhookUrl": "https://example.com/hook"}`),
			MaxRetries: 3,
		},
	}
}

// WithPriority sets the job priority.
func (b *JobRequestBuilder) WithPriority(priority int) *JobRequestBuilder {
	b.req.Priority = priority
	return b
}

// WithPayloadString sets the job payload from a string.
func (b *JobRequestBuilder) WithPayloadString(payload string) *JobRequestBuilder {
	b.req.Payload = json.RawMessage(payload)
	return b
}

// WithScheduledAt sets the scheduled time.
func (b *JobRequestBuilder) WithScheduledAt(scheduledAt time.Time) *JobRequestBuilder {
	b.req.ScheduledAt = &scheduledAt
	return b
}

// WithMaxRetries sets the number of retries allowed after the first attempt.
func (b *JobRequestBuilder) WithMaxRetries(maxRetries int) *JobRequestBuilder {
	b.req.MaxRetries = maxRetries
	return b
}

// WithRetryBackoff sets the per-job backoff schedule in seconds.
func (b *JobRequestBuilder) WithRetryBackoff(seconds ...int32) *JobRequestBuilder {
	b.req.RetryBackoff = seconds
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// Common test job request presets

// WebhookJobRequest creates a webhook delivery job request with default values.
func WebhookJobRequest() *model.CreateJobRequest {
	return NewJobRequest().
		WithPayloadString(`{"verificationId": "ver-123", "customerName": "Martin Briggs", "webhookUrl": "https://example.com/hook"}`).
		Build()
}

// ScheduledJobRequest creates a job request scheduled for the future.
func ScheduledJobRequest(scheduledAt time.Time) *model.CreateJobRequest {
	return NewJobRequest().
		WithScheduledAt(scheduledAt).
		WithPayloadString(`{"scheduled": true}`).
		Build()
}

// RetryableJobRequest creates a job request with custom retry settings.
func RetryableJobRequest(maxRetries int) *model.CreateJobRequest {
	return NewJobRequest().
		WithMaxRetries(maxRetries).
		WithPayloadString(`{"retryable": true}`).
		Build()
}
