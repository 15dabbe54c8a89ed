package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openbench/jurisync/config"
	"github.com/openbench/jurisync/internal/core"
	"github.com/openbench/jurisync/internal/data"
	"github.com/openbench/jurisync/internal/observability/notify/pagerduty"
	"github.com/openbench/jurisync/internal/observability/notify/slack"
	"github.com/openbench/jurisync/internal/observability/statsd"
	"github.com/openbench/jurisync/internal/service"
	"github.com/openbench/jurisync/internal/service/failurenotifier"
	"github.com/openbench/jurisync/internal/upstream"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Queue         *service.QueueService
	CourtSync     *service.CourtSyncService
	JudgeSync     *service.JudgeSyncService
	DecisionSync  *service.DecisionSyncService
	FullSync      *service.FullSyncService
	Cleanup       *service.CleanupService
	Validation    *service.ValidationService
	AutoFix       *service.AutoFixService
	Reports       *service.ReportService
	Upstream      *upstream.Client
	RefCache      *core.ReferenceCacheService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
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
	DB           *sql.DB
	Redis        redis.UniversalClient
	QueueRepo    *data.QueueRepo
	CourtRepo    *data.CourtRepo
	JudgeRepo    *data.JudgeRepo
	DecisionRepo *data.DecisionRepo
	ProgressRepo *data.ProgressRepo
	QualityRepo  *data.QualityRepo
	ReportRepo   *data.ReportRepo
	FixRepo      *data.FixRepo
	CacheRepo    *data.RedisCacheRepo
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "jurisync",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	failureNotifier := buildFailureNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: failureNotifier,
		NotifierConfig:  cfg.Notifications,
	}
}

// workerIdentity builds the claimed_by value recorded on leased jobs. The
// random suffix disambiguates restarts of the same pod, where hostname and
// pid can both repeat.
func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "jurisync"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	repos := &serviceRepositories{
		DB:           db,
		Redis:        redisClient,
		QueueRepo:    data.NewQueueRepo(db, data.RepoConfig{WorkerID: workerIdentity()}),
		CourtRepo:    data.NewCourtRepo(db),
		JudgeRepo:    data.NewJudgeRepo(db),
		DecisionRepo: data.NewDecisionRepo(db),
		ProgressRepo: data.NewProgressRepo(db),
		QualityRepo:  data.NewQualityRepo(db),
		ReportRepo:   data.NewReportRepo(db),
		FixRepo:      data.NewFixRepo(db),
	}
	if redisClient != nil {
		repos.CacheRepo = data.NewRedisCacheRepo(redisClient)
	}
	return repos
}

// BuildUpstreamClient constructs the shared catalog client from configuration.
// Returns nil without error when no base URL is configured; callers that need
// the catalog check for nil.
func BuildUpstreamClient(
	cfg config.UpstreamConfig,
	logger *slog.Logger,
	metrics statsd.Sink,
) (*upstream.Client, error) {
	if cfg.BaseURL == "" {
		return nil, nil
	}

	clientCfg := upstream.Config{
		BaseURL:        cfg.BaseURL,
		APIToken:       cfg.APIToken,
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		PageSize:       cfg.PageSize,
		UserAgent:      cfg.UserAgent,
		Logger:         logger,
		Metrics:        metrics,
		Limiter: upstream.NewHourlyLimiter(upstream.LimiterConfig{
			Name:         cfg.BaseURL,
			HourlyQuota:  cfg.HourlyQuota,
			SafetyMargin: cfg.SafetyMargin,
			Burst:        cfg.Burst,
		}),
		Breaker: upstream.NewBreaker(upstream.BreakerConfig{
			Name:             cfg.BaseURL,
			FailureThreshold: cfg.BreakerFailureThreshold,
			Cooldown:         cfg.BreakerCooldown,
			Logger:           logger,
			Metrics:          metrics,
		}),
	}
	if cfg.HasOAuth() {
		clientCfg.OAuth = &upstream.OAuthConfig{
			TokenURL:     cfg.OAuthTokenURL,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			Scopes:       cfg.OAuthScopes,
		}
	}

	client, err := upstream.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("build upstream client: %w", err)
	}
	return client, nil
}

func newReferenceCacheService(repos *serviceRepositories, cfg config.CacheConfig) *core.ReferenceCacheService {
	if repos.CacheRepo == nil {
		return nil
	}
	cacheCfg := core.DefaultReferenceCacheConfig()
	if cfg.ReferenceTTL > 0 {
		cacheCfg.TTL = cfg.ReferenceTTL
	}
	return core.NewReferenceCacheService(core.ReferenceCacheServiceOptions{
		Cache:  repos.CacheRepo,
		Courts: repos.CourtRepo,
		Judges: repos.JudgeRepo,
		Config: cacheCfg,
	})
}

func newQueueService(
	repos *serviceRepositories,
	observability ObservabilityContainer,
	cfg *config.AppConfig,
	logger *slog.Logger,
) *service.QueueService {
	lease := 2 * time.Minute
	if cfg != nil && cfg.SyncWorker.JobLease > 0 {
		lease = cfg.SyncWorker.JobLease
	}
	return service.MustNewQueueService(service.QueueServiceOptions{
		Repo:            repos.QueueRepo,
		DefaultLease:    lease,
		Logger:          logger,
		FailureNotifier: observability.FailureNotifier,
	})
}

// pipelineBundle groups the entity pipelines built from one upstream client.
type pipelineBundle struct {
	court    *service.CourtSyncService
	judge    *service.JudgeSyncService
	decision *service.DecisionSyncService
	full     *service.FullSyncService
}

type pipelineDeps struct {
	Repos    *serviceRepositories
	Catalog  *upstream.Client
	Queue    *service.QueueService
	RefCache *core.ReferenceCacheService
	Sync     config.SyncConfig
	Logger   *slog.Logger
}

// buildPipelines wires the per-entity sync services. The upstream client is
// the catalog for all of them; without one the sync worker cannot run, so a
// nil catalog returns an empty bundle and the worker mode reports the
// misconfiguration at startup.
func buildPipelines(deps pipelineDeps) (pipelineBundle, error) {
	if deps.Catalog == nil {
		return pipelineBundle{}, nil
	}

	court, err := service.NewCourtSyncService(service.CourtSyncServiceOptions{
		Catalog:  deps.Catalog,
		Courts:   deps.Repos.CourtRepo,
		Progress: deps.Repos.ProgressRepo,
		RefCache: deps.RefCache,
		Logger:   deps.Logger,
	})
	if err != nil {
		return pipelineBundle{}, fmt.Errorf("build court sync service: %w", err)
	}

	judgeCfg := service.DefaultJudgeSyncConfig()
	judgeCfg.OpinionPageCap = deps.Sync.OpinionPageCap
	judgeCfg.DocketPageCap = deps.Sync.DocketPageCap
	judgeCfg.EnqueueCap = deps.Sync.DecisionEnqueueCap
	judgeCfg.DecisionPriority = deps.Sync.DecisionPriority
	judgeCfg.AnalyticsCaseThreshold = deps.Sync.AnalyticsCaseThreshold

	judge, err := service.NewJudgeSyncService(service.JudgeSyncServiceOptions{
		Catalog:   deps.Catalog,
		Judges:    deps.Repos.JudgeRepo,
		Decisions: deps.Repos.DecisionRepo,
		Progress:  deps.Repos.ProgressRepo,
		Queue:     deps.Queue,
		RefCache:  deps.RefCache,
		Config:    &judgeCfg,
		Logger:    deps.Logger,
	})
	if err != nil {
		return pipelineBundle{}, fmt.Errorf("build judge sync service: %w", err)
	}

	decision, err := service.NewDecisionSyncService(service.DecisionSyncServiceOptions{
		Catalog:   deps.Catalog,
		Decisions: deps.Repos.DecisionRepo,
		Progress:  deps.Repos.ProgressRepo,
		RefCache:  deps.RefCache,
		Logger:    deps.Logger,
	})
	if err != nil {
		return pipelineBundle{}, fmt.Errorf("build decision sync service: %w", err)
	}

	fullCfg := service.DefaultFullSyncConfig()
	fullCfg.CourtPageCap = deps.Sync.FullCourtPageCap
	fullCfg.JudgePageCap = deps.Sync.FullJudgePageCap

	full, err := service.NewFullSyncService(service.FullSyncServiceOptions{
		Catalog: deps.Catalog,
		Queue:   deps.Queue,
		Config:  &fullCfg,
		Logger:  deps.Logger,
	})
	if err != nil {
		return pipelineBundle{}, fmt.Errorf("build full sync service: %w", err)
	}

	return pipelineBundle{court: court, judge: judge, decision: decision, full: full}, nil
}

// qualityBundle groups the validation, auto-fix, cleanup, and report services.
type qualityBundle struct {
	validation *service.ValidationService
	autoFix    *service.AutoFixService
	cleanup    *service.CleanupService
	reports    *service.ReportService
}

type qualityDeps struct {
	Repos         *serviceRepositories
	Queue         *service.QueueService
	Observability ObservabilityContainer
	Config        *config.AppConfig
	Logger        *slog.Logger
}

func buildQualityServices(deps qualityDeps) (qualityBundle, error) {
	cfg := deps.Config

	validationCfg := service.DefaultValidationConfig()
	validationCfg.JudgeStaleAfter = cfg.Sync.JudgeStaleAfter
	validationCfg.CourtStaleAfter = cfg.Sync.CourtStaleAfter
	validationCfg.AnalyticsCaseThreshold = cfg.Sync.AnalyticsCaseThreshold
	validationCfg.ScanLimit = cfg.Validator.ScanLimit
	validationCfg.AlertCriticalThreshold = cfg.Validator.AlertCriticalThreshold

	validation, err := service.NewValidationService(service.ValidationServiceOptions{
		Quality:         deps.Repos.QualityRepo,
		Reports:         deps.Repos.ReportRepo,
		Judges:          deps.Repos.JudgeRepo,
		Courts:          deps.Repos.CourtRepo,
		Config:          &validationCfg,
		FailureNotifier: deps.Observability.FailureNotifier,
		Metrics:         deps.Observability.MetricsSink,
		Logger:          deps.Logger,
	})
	if err != nil {
		return qualityBundle{}, fmt.Errorf("build validation service: %w", err)
	}

	autoFixCfg := service.DefaultAutoFixConfig()
	autoFixCfg.OutcomeConfidenceMin = cfg.AutoFix.OutcomeConfidenceMin
	autoFixCfg.ConfirmFromSeverity = cfg.AutoFix.ConfirmFromSeverity
	autoFixCfg.JudgeStaleAfter = cfg.Sync.JudgeStaleAfter
	autoFixCfg.CourtStaleAfter = cfg.Sync.CourtStaleAfter

	autoFix, err := service.NewAutoFixService(service.AutoFixServiceOptions{
		Reports:   deps.Repos.ReportRepo,
		Fixes:     deps.Repos.FixRepo,
		Decisions: deps.Repos.DecisionRepo,
		Judges:    deps.Repos.JudgeRepo,
		Courts:    deps.Repos.CourtRepo,
		Progress:  deps.Repos.ProgressRepo,
		Queue:     deps.Queue,
		Cache:     cacheOrNil(deps.Repos),
		Config:    &autoFixCfg,
		Metrics:   deps.Observability.MetricsSink,
		Logger:    deps.Logger,
	})
	if err != nil {
		return qualityBundle{}, fmt.Errorf("build auto-fix service: %w", err)
	}

	cleanupCfg := service.DefaultCleanupConfig()
	cleanupCfg.RecountBatchSize = cfg.Sync.RecountBatchSize
	cleanupCfg.AnalyticsCaseThreshold = cfg.Sync.AnalyticsCaseThreshold
	cleanupCfg.JudgeStaleAfter = cfg.Sync.JudgeStaleAfter
	cleanupCfg.CourtStaleAfter = cfg.Sync.CourtStaleAfter
	cleanupCfg.StaleScanLimit = cfg.Sync.StaleScanLimit
	cleanupCfg.ResyncPriority = cfg.Sync.ResyncPriority

	cleanup, err := service.NewCleanupService(service.CleanupServiceOptions{
		Fixer:    autoFix,
		Judges:   deps.Repos.JudgeRepo,
		Progress: deps.Repos.ProgressRepo,
		Quality:  deps.Repos.QualityRepo,
		Queue:    deps.Queue,
		Config:   &cleanupCfg,
		Logger:   deps.Logger,
	})
	if err != nil {
		return qualityBundle{}, fmt.Errorf("build cleanup service: %w", err)
	}

	reports, err := service.NewReportService(service.ReportServiceOptions{
		Repo:   deps.Repos.ReportRepo,
		Logger: deps.Logger,
	})
	if err != nil {
		return qualityBundle{}, fmt.Errorf("build report service: %w", err)
	}

	return qualityBundle{
		validation: validation,
		autoFix:    autoFix,
		cleanup:    cleanup,
		reports:    reports,
	}, nil
}

// cacheOrNil keeps the optional cache dependency a typed nil-free interface value.
func cacheOrNil(repos *serviceRepositories) core.CacheRepository {
	if repos.CacheRepo == nil {
		return nil
	}
	return repos.CacheRepo
}

// NewServices wires the full service graph from infrastructure handles.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Config == nil {
		return ServiceContainer{}, errors.New("application config is required")
	}

	observability := buildObservability(logger, deps.Config.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient)

	upstreamClient, err := BuildUpstreamClient(deps.Config.Upstream, logger, observability.MetricsSink)
	if err != nil {
		return ServiceContainer{}, err
	}

	refCache := newReferenceCacheService(repos, deps.Config.Cache)
	queueService := newQueueService(repos, observability, deps.Config, logger)

	pipelines, err := buildPipelines(pipelineDeps{
		Repos:    repos,
		Catalog:  upstreamClient,
		Queue:    queueService,
		RefCache: refCache,
		Sync:     deps.Config.Sync,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	quality, err := buildQualityServices(qualityDeps{
		Repos:         repos,
		Queue:         queueService,
		Observability: observability,
		Config:        deps.Config,
		Logger:        logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Queue:         queueService,
		CourtSync:     pipelines.court,
		JudgeSync:     pipelines.judge,
		DecisionSync:  pipelines.decision,
		FullSync:      pipelines.full,
		Cleanup:       quality.cleanup,
		Validation:    quality.validation,
		AutoFix:       quality.autoFix,
		Reports:       quality.reports,
		Upstream:      upstreamClient,
		RefCache:      refCache,
		Observability: observability,
	}, nil
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:      cfg.Slack.WebhookURL,
			Channel:         cfg.Slack.Channel,
			Username:        cfg.Slack.Username,
			Timeout:         cfg.Timeout,
			RetryLimit:      cfg.RetryLimit,
			ReportURLPrefix: cfg.Slack.ReportURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger.With("component", "failure_notifier"),
		Sinks:  sinks,
	})
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
				deps.logger.WarnContext(
					ctx,
					"dropping background service error",
					"service",
					descriptor.name,
					"error",
					errMsg,
				)
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

func newSyncWorkerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeSyncWorker,
		name: "sync worker",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			workerCfg := config.SyncWorkerConfig{}
			if deps.cfg.Config != nil {
				workerCfg = deps.cfg.Config.SyncWorker
			}
			return RunSyncWorker(ctx, SyncWorkerRunnerConfig{
				Services: deps.cfg.Services,
				Logger:   deps.logger,
				Worker:   workerCfg,
				Metrics:  deps.cfg.Services.Observability.MetricsSink,
			})
		},
	}
}

func newSchedulerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeScheduler,
		name: "scheduler",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			schedulerCfg := config.SchedulerConfig{}
			if deps.cfg.Config != nil {
				schedulerCfg = deps.cfg.Config.Scheduler
			}
			return RunScheduler(ctx, SchedulerRunnerConfig{
				DB:              deps.cfg.DB,
				Logger:          deps.logger,
				BatchSize:       schedulerCfg.BatchSize,
				DefaultPriority: schedulerCfg.DefaultPriority,
				MaxAttempts:     schedulerCfg.MaxAttempts,
				OverrunPolicy:   schedulerCfg.OverrunPolicy,
				OverrunStates:   schedulerCfg.OverrunStates,
				Interval:        schedulerCfg.Interval,
				Metrics:         deps.cfg.Services.Observability.MetricsSink,
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
			return RunReaper(ctx, ReaperRunnerConfig{
				DB:      deps.cfg.DB,
				Logger:  deps.logger,
				Config:  reaperCfg,
				Metrics: deps.cfg.Services.Observability.MetricsSink,
			})
		},
	}
}

func newValidatorBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeValidator,
		name: "validator",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var validatorCfg config.ValidatorConfig
			if deps.cfg.Config != nil {
				validatorCfg = deps.cfg.Config.Validator
			}
			return RunValidator(ctx, ValidatorRunnerConfig{
				Validation: deps.cfg.Services.Validation,
				Logger:     deps.logger,
				Config:     validatorCfg,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newSyncWorkerBackgroundService(deps),
		newSchedulerBackgroundService(deps),
		newReaperBackgroundService(deps),
		newValidatorBackgroundService(deps),
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

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}
	handles := startBackgroundServices(deps, buildBackgroundServices(deps))

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:          serviceCtx,
		cancel:       cancel,
		errCh:        errCh,
		queueService: cfg.Services.Queue,
		logger:       logger,
		backgrounds:  handles,
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
	queueService *service.QueueService
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

// gracefulStop waits for background services to drain, then tears down the
// queue notification listeners.
func gracefulStop(cfg shutdownConfig) error {
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.queueService != nil {
		cfg.queueService.StopAllListeners()
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
