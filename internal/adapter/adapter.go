package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dirstore/dirstore/internal/config"
	"github.com/dirstore/dirstore/internal/metrics"
	"github.com/dirstore/dirstore/pkg/gateway"
	"github.com/dirstore/dirstore/pkg/gateway/local"
	"github.com/dirstore/dirstore/pkg/gateway/memory"
	s3gw "github.com/dirstore/dirstore/pkg/gateway/s3"
	"github.com/dirstore/dirstore/pkg/health"
	"github.com/dirstore/dirstore/pkg/store"
)

// Adapter wires the configured gateway, the store engine, and the metrics
// collector together and manages their shared lifecycle.
type Adapter struct {
	config  *config.Configuration
	logger  *slog.Logger
	gw      gateway.Filesystem
	store   *store.Store
	metrics *metrics.Collector
	health  *health.Tracker

	// s3 keeps the concrete handle when the s3 gateway is selected, for
	// health checks on Start and pool teardown on Stop.
	s3 *s3gw.Gateway

	mu          sync.Mutex
	started     bool
	probeCancel context.CancelFunc
}

// New builds an adapter from the given configuration. A nil cfg uses
// defaults, a nil logger derives one from the logging configuration.
func New(ctx context.Context, cfg *config.Configuration, logger *slog.Logger) (*Adapter, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if logger == nil {
		logger = cfg.Logging.NewLogger(os.Stderr)
	}

	a := &Adapter{
		config: cfg,
		logger: logger,
	}

	if err := a.buildGateway(ctx); err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Address: cfg.Metrics.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("create metrics collector: %w", err)
	}
	a.metrics = collector

	a.health = health.NewTracker(health.DefaultConfig())
	a.health.RegisterComponent(metrics.GatewayComponent)
	collector.SetHealthTracker(a.health)

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithMetrics(collector),
	}
	if cfg.Storage.UniqueTempNames {
		opts = append(opts, store.WithUniqueTempNames())
	}

	st, err := store.New(a.gw, cfg.StoreConfig(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	a.store = st

	return a, nil
}

// buildGateway constructs the backend selected by the configuration.
func (a *Adapter) buildGateway(ctx context.Context) error {
	switch a.config.Storage.Gateway {
	case config.GatewayLocal:
		a.gw = local.New()
	case config.GatewayMemory:
		a.gw = memory.New()
	case config.GatewayS3:
		gw, err := s3gw.New(ctx, a.config.Storage.Bucket, &a.config.Storage.S3, a.logger)
		if err != nil {
			return fmt.Errorf("create s3 gateway: %w", err)
		}
		a.s3 = gw
		a.gw = gw
	default:
		// Validate rejects unknown gateways before we get here.
		return fmt.Errorf("unsupported gateway: %s", a.config.Storage.Gateway)
	}
	return nil
}

// Start verifies backend reachability and brings up the metrics server.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("adapter already started")
	}

	a.logger.Info("starting adapter",
		"gateway", a.config.Storage.Gateway,
		"data_dir", a.config.Storage.DataDir,
		"temp_dir", a.config.Storage.TempDir,
		"metrics_enabled", a.config.Metrics.Enabled)

	if a.s3 != nil {
		if err := a.s3.HealthCheck(ctx); err != nil {
			a.health.RecordError(metrics.GatewayComponent, err)
			return fmt.Errorf("s3 health check: %w", err)
		}
		a.health.RecordSuccess(metrics.GatewayComponent)
		a.logger.Info("s3 bucket reachable", "bucket", a.config.Storage.Bucket)
	}

	if err := a.metrics.Start(ctx); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	// The remote backend gets periodic probes; the local gateways only
	// surface health through operation outcomes.
	if a.s3 != nil {
		probeCtx, cancel := context.WithCancel(context.Background())
		a.probeCancel = cancel
		go a.health.StartChecks(probeCtx, func(ctx context.Context, _ string) error {
			return a.s3.HealthCheck(ctx)
		})
	}

	a.started = true
	a.logger.Info("adapter started")
	return nil
}

// Stop tears the adapter down, continuing past individual component
// failures and reporting the first one encountered.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return fmt.Errorf("adapter not started")
	}

	a.logger.Info("stopping adapter")

	if a.probeCancel != nil {
		a.probeCancel()
		a.probeCancel = nil
	}

	var firstErr error
	if err := a.metrics.Stop(ctx); err != nil {
		a.logger.Error("stopping metrics server", "error", err)
		firstErr = err
	}
	if a.s3 != nil {
		if err := a.s3.Close(); err != nil {
			a.logger.Error("closing s3 gateway", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.started = false
	if firstErr == nil {
		a.logger.Info("adapter stopped")
	}
	return firstErr
}

// Store returns the engine the adapter composed.
func (a *Adapter) Store() *store.Store {
	return a.store
}

// Gateway returns the backend the engine runs against.
func (a *Adapter) Gateway() gateway.Filesystem {
	return a.gw
}

// Metrics returns the collector shared with the engine.
func (a *Adapter) Metrics() *metrics.Collector {
	return a.metrics
}

// Health returns the tracker fed from backend probes and operation
// outcomes.
func (a *Adapter) Health() *health.Tracker {
	return a.health
}

// ApplyStorageURI rewrites the storage section of cfg from a URI shorthand:
//
//	local:///var/lib/dirstore   gateway=local, dirs under the given root
//	memory://                   gateway=memory, virtual dirs
//	s3://bucket/prefix          gateway=s3, dirs become key prefixes
//
// Data and temp directories land side by side under the root so renames
// stay on one volume.
func ApplyStorageURI(cfg *config.Configuration, uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("failed to parse URI: %w", err)
	}

	switch parsed.Scheme {
	case "local":
		root := parsed.Host + parsed.Path
		if root == "" {
			return fmt.Errorf("local URI must include a directory")
		}
		cfg.Storage.Gateway = config.GatewayLocal
		cfg.Storage.DataDir = filepath.Join(filepath.FromSlash(root), "data")
		cfg.Storage.TempDir = filepath.Join(filepath.FromSlash(root), "tmp")
	case "memory":
		root := parsed.Host + parsed.Path
		if root == "" {
			root = "dirstore"
		}
		cfg.Storage.Gateway = config.GatewayMemory
		cfg.Storage.DataDir = path.Join(root, "data")
		cfg.Storage.TempDir = path.Join(root, "tmp")
	case "s3":
		if parsed.Host == "" {
			return fmt.Errorf("S3 URI must include bucket name")
		}
		prefix := strings.Trim(parsed.Path, "/")
		cfg.Storage.Gateway = config.GatewayS3
		cfg.Storage.Bucket = parsed.Host
		cfg.Storage.DataDir = path.Join(prefix, "data")
		cfg.Storage.TempDir = path.Join(prefix, "tmp")
	default:
		return fmt.Errorf("unsupported storage scheme: %s (local://, memory://, s3:// supported)", parsed.Scheme)
	}

	return nil
}
