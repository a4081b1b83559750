package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mediafetch/config"
	"github.com/target/mediafetch/internal/adapters/artifacts"
	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/data"
	"github.com/target/mediafetch/internal/domain/model"
	"github.com/target/mediafetch/internal/observability/statsd"
	"github.com/target/mediafetch/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Downloads     *service.DownloadService
	Jobs          *data.JobRegistry
	Artifacts     *artifacts.FSSink
	Extractors    *service.ExtractorRegistry
	InfoCache     *service.InfoCacheService // nil when caching is disabled
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// Close releases observability resources.
func (c ServiceContainer) Close() error {
	if c.Observability.MetricsSink == nil {
		return nil
	}
	return c.Observability.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient // Optional: shared info cache tier
	Extractors  []core.Extractor      // Optional: built from Config when empty
	Logger      *slog.Logger
}

// buildObservability configures the metrics client. A failed dial degrades
// to a disabled client so metrics never block startup.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		client, _ = statsd.NewClient(statsd.Config{Logger: logger})
	}
	return ObservabilityContainer{
		MetricsSink:   client,
		MetricsConfig: cfg.Metrics,
	}
}

// newInfoCache builds the two-tier content info cache. Returns nil when
// caching is disabled.
func newInfoCache(cfg config.CacheConfig, client redis.UniversalClient, logger *slog.Logger) (*service.InfoCacheService, error) {
	if !cfg.InfoEnabled {
		return nil, nil //nolint:nilnil // disabled cache is not an error
	}

	opts := service.InfoCacheServiceOptions{
		Local:  data.NewLocalLRU[model.ContentInfo](data.LocalLRUConfig{Capacity: cfg.LocalCapacity}),
		TTL:    cfg.InfoTTL,
		Logger: logger,
	}
	if cfg.RedisEnabled && client != nil {
		opts.Redis = data.NewRedisCacheRepo(client, cfg.Namespace)
	}
	return service.NewInfoCacheService(opts)
}

// NewServices wires the download engine from configuration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(logger, cfg.Observability)

	exs := deps.Extractors
	if len(exs) == 0 {
		built, err := BuildExtractors(cfg.Extractors, logger)
		if err != nil {
			return ServiceContainer{}, err
		}
		exs = built
	}
	registry, err := service.NewExtractorRegistry(exs...)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("register extractors: %w", err)
	}

	sink, err := artifacts.NewFSSink(artifacts.FSSinkOptions{Root: cfg.Storage.Root, Logger: logger})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("artifact storage: %w", err)
	}

	infoCache, err := newInfoCache(cfg.Cache, deps.RedisClient, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("info cache: %w", err)
	}

	jobs := data.NewJobRegistry()
	downloads, err := service.NewDownloadService(service.DownloadServiceOptions{
		Registry:   jobs,
		Extractors: registry,
		Sink:       sink,
		Config:     cfg.Orchestrator,
		InfoCache:  infoCache,
		Logger:     logger,
		Metrics:    obs.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("download service: %w", err)
	}

	return ServiceContainer{
		Downloads:     downloads,
		Jobs:          jobs,
		Artifacts:     sink,
		Extractors:    registry,
		InfoCache:     infoCache,
		Observability: obs,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// RunServicesWithShutdown starts the enabled services and blocks until a
// signal arrives or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

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
	server, err := startHTTPServerIfEnabled(deps)
	if err != nil {
		return err
	}
	backgrounds := startBackgroundServices(deps, []backgroundService{
		newReaperBackgroundService(deps),
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return waitForShutdown(shutdownConfig{
		quit:        quit,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  server,
		downloads:   cfg.Services.Downloads,
		logger:      logger,
		backgrounds: backgrounds,
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
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	quit        <-chan os.Signal
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	downloads   *service.DownloadService
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	select {
	case sig := <-cfg.quit:
		cfg.logger.Info("shutting down services...", "signal", sig.String())
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop drains HTTP, stops the download workers and waits for
// background services. The service context is already cancelled here, so
// shutdown runs on a fresh deadline.
func gracefulStop(cfg shutdownConfig) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
	defer cancel()

	err := ShutdownHTTPServer(ShutdownConfig{
		Context:   shutdownCtx,
		Server:    cfg.httpServer,
		Downloads: cfg.downloads,
		Logger:    cfg.logger,
	})

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return err
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	timer := time.NewTimer(shutdownWaitTimeout)
	defer timer.Stop()
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-timer.C:
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}

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
func startHTTPServerIfEnabled(deps *serviceStartupDeps) (*http.Server, error) {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil, nil //nolint:nilnil // http mode disabled
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
		ErrCh:    deps.errCh,
	})
}

func launchBackground(deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}
	ctx := deps.ctx

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := descriptor.start(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
		select {
		case deps.errCh <- errMsg:
		case <-ctx.Done():
		default:
			deps.logger.WarnContext(ctx, "dropping background service error",
				"service", descriptor.name, "error", errMsg)
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
		done := launchBackground(deps, svc)
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

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil || deps.cfg.Config == nil {
				return nil
			}
			services := deps.cfg.Services
			if services.Jobs == nil {
				return errors.New("job registry is required")
			}
			rc := ReaperConfig{
				Jobs:   services.Jobs,
				Logger: deps.logger,
				Config: deps.cfg.Config.Reaper,
			}
			if services.Artifacts != nil {
				rc.Sink = services.Artifacts
			}
			if services.Observability.MetricsSink != nil {
				rc.Metrics = services.Observability.MetricsSink
			}
			return RunReaper(ctx, rc)
		},
	}
}
