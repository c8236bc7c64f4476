package model

import (
	"errors"
	"time"
)

// Well-known keys in verification payloads. Everything else in the inbound
// request body is opaque context carried through to the result untouched.
const (
	FieldVerificationID = "verificationId"
	FieldWebhookURL     = "webhookUrl"
	FieldCustomerName   = "customerName"
	FieldTimestamp      = "timestamp"
)

// VerificationRequest is an accepted verify-customer-info submission.
// VerificationID is a caller-chosen correlation key and WebhookURL the
// destination for the eventual result; both may be empty. Fields holds the
// full request body, including the two extracted keys. Immutable once
// accepted.
type VerificationRequest struct {
	VerificationID string
	WebhookURL     string
	Fields         map[string]any
}

// VerificationRequestFromMap extracts the well-known keys from a decoded
// request body. Missing or non-string values default to empty; nothing is
// rejected at this layer.
func VerificationRequestFromMap(m map[string]any) VerificationRequest {
	req := VerificationRequest{Fields: m}
	if m == nil {
		req.Fields = map[string]any{}
		return req
	}
	if v, ok := m[FieldVerificationID].(string); ok {
		req.VerificationID = v
	}
	if v, ok := m[FieldWebhookURL].(string); ok {
		req.WebhookURL = v
	}
	return req
}

// VerificationResult is the webhook payload: the provider's outcome fields
// merged with the request context, the original verificationId, the
// creation timestamp, and the webhookUrl carried through from the request.
// Constructed once per request and never mutated after enqueue.
type VerificationResult map[string]any

// VerificationID returns the correlation key carried in the result, or "".
func (r VerificationResult) VerificationID() string {
	v, _ := r[FieldVerificationID].(string)
	return v
}

// WebhookURL returns the delivery destination carried in the result, or "".
func (r VerificationResult) WebhookURL() string {
	v, _ := r[FieldWebhookURL].(string)
	return v
}

// VerificationState represents the lifecycle of a background verification
// task as recorded in the status store.
type VerificationState string

const (
	// VerificationStateReceived indicates the request was accepted.
	VerificationStateReceived VerificationState = "received"
	// VerificationStateVerifying indicates the provider call is in flight.
	VerificationStateVerifying VerificationState = "verifying"
	// VerificationStateQueued indicates the result was enqueued for delivery.
	VerificationStateQueued VerificationState = "queued"
	// VerificationStateEnqueueFailed indicates the broker rejected the job.
	VerificationStateEnqueueFailed VerificationState = "enqueue_failed"
	// VerificationStateDelivered indicates the webhook was delivered.
	VerificationStateDelivered VerificationState = "delivered"
	// VerificationStateDeliveryFailed indicates delivery attempts were exhausted.
	VerificationStateDeliveryFailed VerificationState = "delivery_failed"
)

// Valid returns true if the VerificationState is valid.
func (s VerificationState) Valid() bool {
	switch s {
	case VerificationStateReceived,
		VerificationStateVerifying,
		VerificationStateQueued,
		VerificationStateEnqueueFailed,
		VerificationStateDelivered,
		VerificationStateDeliveryFailed:
		return true
	}
	return false
}

// VerificationStatus is the observable record of a background verification
// task, keyed by verificationId in the status store. TaskID identifies the
// background task that produced the record and ties it to the task's log
// lines.
type VerificationStatus struct {
	VerificationID string            `json:"verification_id"`
	State          VerificationState `json:"state"`
	Detail         string            `json:"detail,omitempty"`
	TaskID         string            `json:"task_id,omitempty"`
	JobID          string            `json:"job_id,omitempty"`
	Attempts       int               `json:"attempts"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Validate validates the VerificationStatus fields.
func (s *VerificationStatus) Validate() error {
	if s.VerificationID == "" {
		return errors.New("verification id is required")
	}
	if !s.State.Valid() {
		return errors.New("invalid verification state")
	}
	return nil
}
