package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/roadsideiq/verify-api/internal/domain/model"
)

// StubProviderOptions groups dependencies for StubProvider.
type StubProviderOptions struct {
	SimulatedDelay time.Duration // Optional: defaults to 10s
	Logger         *slog.Logger  // Optional: structured logger
}

// StubProvider simulates the outbound verification call. It sleeps for the
// configured delay and returns a fixed positive outcome, echoing the
// customer name from the request when present. It stands in for the real
// telephony verification backend and is swappable behind
// core.VerificationProvider.
type StubProvider struct {
	delay  time.Duration
	logger *slog.Logger
}

const defaultSimulatedDelay = 10 * time.Second

// NewStubProvider constructs a StubProvider.
func NewStubProvider(opts StubProviderOptions) *StubProvider {
	delay := opts.SimulatedDelay
	if delay <= 0 {
		delay = defaultSimulatedDelay
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "stub_provider")
	}

	return &StubProvider{delay: delay, logger: logger}
}

// NewImmediateStubProvider constructs a StubProvider that skips the
// simulated call duration. Used by the synchronous simulation endpoint.
func NewImmediateStubProvider(logger *slog.Logger) *StubProvider {
	if logger != nil {
		logger = logger.With("component", "stub_provider")
	}
	return &StubProvider{logger: logger}
}

// Verify waits out the simulated call duration and returns the canned
// outcome. Returns the context error if the caller gives up first.
func (p *StubProvider) Verify(
	ctx context.Context,
	req model.VerificationRequest,
) (model.VerificationResult, error) {
	if p.logger != nil {
		p.logger.DebugContext(ctx, "simulating verification call",
			"verification_id", req.VerificationID,
			"delay", p.delay,
		)
	}

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return p.simulatedOutcome(req), nil
}

// simulatedOutcome mirrors the static response of the upstream verification
// mock. The customer name is echoed from the request when the caller
// supplied one.
func (p *StubProvider) simulatedOutcome(req model.VerificationRequest) model.VerificationResult {
	customerName := "Martin Briggs"
	if v, ok := req.Fields[model.FieldCustomerName].(string); ok && v != "" {
		customerName = v
	}

	return model.VerificationResult{
		"Customer Name":      customerName,
		"Agent Name":         "Jessica",
		"Company":            "ABC Towing",
		"Service Requested":  "Jumpstart",
		"Vehicle Location":   "10692 World Place San Diego 92126",
		"ETA":                "30 minutes",
		"Call Outcome":       "Confirmed jumpstart service request. Customer was satisfied and engaged positively with the agent.",
		"CallOutcome":        "Confirmed jumpstart service request. Customer was satisfied and engaged positively with the agent.",
		"Reason":             "Jumpstart",
		"PurchaseOrder":      "88025677bond",
		"Purchase_Order":     "88025677",
		"Tow_Destination":    "",
		"outBoundCallNumber": "123456789",
		"callDurationMin":    "94",
		"userSentiment":      "Positive",
		"disconnectReason":   "agent_hangup",
		"CallScore":          "60",
		"CallScoreReview":    "Positive",
		"response":           "SUCCESS",
	}
}
