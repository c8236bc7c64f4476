package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roadsideiq/verify-api/config"
	"github.com/roadsideiq/verify-api/internal/core"
	"github.com/roadsideiq/verify-api/internal/data"
	domainjob "github.com/roadsideiq/verify-api/internal/domain/job"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	"github.com/roadsideiq/verify-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs         *service.JobService
	Auth         *service.AuthService
	Verification *service.VerificationService
	Status       core.VerificationStatusRepository
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	JobRepo    *data.JobRepo
	UserRepo   *data.UserRepo
	StatusRepo *data.VerificationStatusRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rc redis.UniversalClient, cfg *config.AppConfig, logger *slog.Logger) *serviceRepositories {
	statusTTL := time.Duration(0)
	if cfg != nil {
		statusTTL = cfg.Verification.StatusTTL
	}
	return &serviceRepositories{
		JobRepo:    data.NewJobRepo(db, data.RepoConfig{Logger: logger}),
		UserRepo:   data.NewUserRepo(db),
		StatusRepo: data.NewVerificationStatusRepo(rc, data.VerificationStatusRepoConfig{TTL: statusTTL}),
	}
}

// retryPolicyQueue stamps the configured webhook retry policy on every job
// it enqueues, leaving explicitly set values alone.
type retryPolicyQueue struct {
	inner  core.JobQueue
	policy domainjob.RetryPolicy
}

func (q *retryPolicyQueue) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req.MaxRetries == 0 {
		req.MaxRetries = q.policy.MaxRetries
	}
	if len(req.RetryBackoff) == 0 {
		req.RetryBackoff = q.policy.BackoffSeconds()
	}
	return q.inner.Create(ctx, req)
}

// NewServices wires repositories and domain services from configuration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}

	repos := buildRepositories(deps.DB, deps.RedisClient, cfg, logger)

	jobService := service.MustNewJobService(service.JobServiceOptions{
		Repo:         repos.JobRepo,
		DefaultLease: cfg.WebhookRunner.JobLease,
		Logger:       logger,
	})

	authService, err := service.NewAuthService(service.AuthServiceOptions{
		Users:          repos.UserRepo,
		SigningSecret:  cfg.Auth.SigningSecret,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
		Logger:         logger,
	})
	if err != nil {
		jobService.StopAllListeners()
		return ServiceContainer{}, fmt.Errorf("wire auth service: %w", err)
	}

	queue := &retryPolicyQueue{
		inner: jobService,
		policy: domainjob.RetryPolicyFromSeconds(
			cfg.Webhook.MaxRetries,
			cfg.Webhook.RetryBackoffSeconds,
		),
	}

	verificationService, err := service.NewVerificationService(service.VerificationServiceOptions{
		Queue:  queue,
		Status: repos.StatusRepo,
		Provider: service.NewStubProvider(service.StubProviderOptions{
			SimulatedDelay: cfg.Verification.SimulatedDelay,
			Logger:         logger,
		}),
		SyncProvider: service.NewImmediateStubProvider(logger),
		TaskTimeout:  cfg.Verification.TaskTimeout,
		Logger:       logger,
	})
	if err != nil {
		jobService.StopAllListeners()
		return ServiceContainer{}, fmt.Errorf("wire verification service: %w", err)
	}

	return ServiceContainer{
		Jobs:         jobService,
		Auth:         authService,
		Verification: verificationService,
		Status:       repos.StatusRepo,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newWebhookRunnerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeWebhookRunner,
		name: "webhook runner",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			appCfg := deps.cfg.Config
			if appCfg == nil {
				appCfg = &config.AppConfig{}
			}
			return RunWebhookRunner(ctx, WebhookRunnerConfig{
				DB:           deps.cfg.DB,
				Logger:       deps.logger,
				Webhook:      appCfg.Webhook,
				AuthSecret:   appCfg.Auth.SigningSecret,
				Lease:        appCfg.WebhookRunner.JobLease,
				Concurrency:  appCfg.WebhookRunner.Concurrency,
				PollInterval: appCfg.WebhookRunner.PollInterval,
				StatusRepo:   deps.cfg.Services.Status,
			})
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var reaperCfg config.ReaperConfig
			if deps.cfg.Config != nil {
				reaperCfg = deps.cfg.Config.Reaper
			}
			return RunReaper(ctx, ReaperConfig{
				DB:     deps.cfg.DB,
				Logger: deps.logger,
				Config: reaperCfg,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newWebhookRunnerBackgroundService(deps),
		newReaperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:          serviceCtx,
		cancel:       cancel,
		errCh:        errCh,
		httpServer:   result.HTTPServer,
		jobService:   cfg.Services.Jobs,
		verification: cfg.Services.Verification,
		logger:       logger,
		backgrounds:  result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx          context.Context
	cancel       context.CancelFunc
	errCh        <-chan error
	httpServer   *http.Server
	jobService   *service.JobService
	verification *service.VerificationService
	logger       *slog.Logger
	backgrounds  []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context:      shutdownCtx,
			Server:       cfg.httpServer,
			JobService:   cfg.jobService,
			Verification: cfg.verification,
			Logger:       cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
