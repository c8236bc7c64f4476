package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/roadsideiq/verify-api/config"
	"github.com/roadsideiq/verify-api/internal/adapters/reaper"
	"github.com/roadsideiq/verify-api/internal/adapters/webhookrunner"
	"github.com/roadsideiq/verify-api/internal/core"
	"github.com/roadsideiq/verify-api/internal/service"
)

// WebhookRunnerConfig contains configuration for the webhook runner.
type WebhookRunnerConfig struct {
	DB           *sql.DB
	Logger       *slog.Logger
	Webhook      config.WebhookConfig
	AuthSecret   string
	Lease        time.Duration
	Concurrency  int
	PollInterval time.Duration
	StatusRepo   core.VerificationStatusRepository
}

// RunWebhookRunner starts the webhook delivery runner service.
func RunWebhookRunner(ctx context.Context, cfg WebhookRunnerConfig) error {
	signingSecret := cfg.Webhook.SigningSecret
	if signingSecret == "" {
		signingSecret = cfg.AuthSecret
	}

	if cfg.Webhook.InsecureSkipVerify && cfg.Logger != nil {
		cfg.Logger.Warn("webhook TLS verification is disabled")
	}

	delivery, err := service.NewDeliveryService(service.DeliveryServiceOptions{
		SigningSecret:      signingSecret,
		TokenSubject:       cfg.Webhook.TokenSubject,
		TokenTTL:           cfg.Webhook.TokenTTL,
		FallbackWebhookURL: cfg.Webhook.TargetURL,
		RequestTimeout:     cfg.Webhook.RequestTimeout,
		InsecureSkipVerify: cfg.Webhook.InsecureSkipVerify,
		Logger:             cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("create delivery service: %w", err)
	}

	runner, err := webhookrunner.NewRunner(webhookrunner.RunnerOptions{
		DB:           cfg.DB,
		Delivery:     delivery,
		Logger:       cfg.Logger,
		Lease:        cfg.Lease,
		Concurrency:  cfg.Concurrency,
		PollInterval: cfg.PollInterval,
		StatusRepo:   cfg.StatusRepo,
	})
	if err != nil {
		return fmt.Errorf("create webhook runner: %w", err)
	}

	return runner.Run(ctx)
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB     *sql.DB
	Logger *slog.Logger
	Config config.ReaperConfig
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:     cfg.DB,
		Config: cfg.Config,
		Logger: cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
