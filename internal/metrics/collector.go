package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dserrors "github.com/dirstore/dirstore/pkg/errors"
	"github.com/dirstore/dirstore/pkg/health"
	"github.com/dirstore/dirstore/pkg/store"
)

// GatewayComponent is the health tracker name for the storage backend all
// engine operations flow through.
const GatewayComponent = "gateway"

// Collector implements store.MetricsCollector on a Prometheus registry and
// optionally serves it over HTTP. A disabled collector discards everything,
// so callers can wire it unconditionally.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	// Prometheus metrics
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	payloadSize       *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec

	// Internal tracking for the debug endpoints
	operations map[string]*OperationStats
	lastReset  time.Time

	// Optional backend health tracker fed from operation outcomes
	health *health.Tracker

	// HTTP server for the metrics endpoint
	server *http.Server
}

var _ store.MetricsCollector = (*Collector)(nil)

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// OperationStats tracks aggregate numbers for one operation type, feeding
// the plain-text debug endpoint.
type OperationStats struct {
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"total_duration"`
	TotalBytes    int64         `json:"total_bytes"`
	Errors        int64         `json:"errors"`
	LastOperation time.Time     `json:"last_operation"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// NewCollector creates a new metrics collector
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Address:   ":8080",
			Path:      "/metrics",
			Namespace: "dirstore",
		}
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.Namespace == "" {
		config.Namespace = "dirstore"
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	collector := &Collector{
		config:     config,
		registry:   prometheus.NewRegistry(),
		operations: make(map[string]*OperationStats),
		lastReset:  time.Now(),
	}

	collector.initMetrics()
	if err := collector.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return collector, nil
}

// Start serves the metrics endpoint in the background until Stop or a server
// error.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", c.healthHandler)
	mux.HandleFunc("/debug/operations", c.debugOperationsHandler)

	c.server = &http.Server{
		Addr:              c.config.Address,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second, // Prevent Slowloris attacks
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the metrics server down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// SetHealthTracker attaches a tracker that the collector feeds from
// operation outcomes and serves on /health. Works on disabled collectors
// too, where it only feeds the tracker.
func (c *Collector) SetHealthTracker(t *health.Tracker) {
	c.mu.Lock()
	c.health = t
	c.mu.Unlock()
}

// RecordOperation observes one completed store operation.
func (c *Collector) RecordOperation(operation, collection string, duration time.Duration, err error) {
	c.observeHealth(err)

	if !c.config.Enabled {
		return
	}

	c.mu.Lock()
	stats, exists := c.operations[operation]
	if !exists {
		stats = &OperationStats{}
		c.operations[operation] = stats
	}
	stats.Count++
	stats.TotalDuration += duration
	if err != nil {
		stats.Errors++
	}
	stats.LastOperation = time.Now()
	stats.AvgDuration = time.Duration(int64(stats.TotalDuration) / stats.Count)
	c.mu.Unlock()

	status := "success"
	if err != nil {
		status = "error"
	}
	c.operationCounter.With(prometheus.Labels{
		"operation":  operation,
		"collection": collection,
		"status":     status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{
		"operation": operation,
	}).Observe(duration.Seconds())

	if err != nil {
		c.errorCounter.With(prometheus.Labels{
			"operation": operation,
			"code":      classifyError(err),
		}).Inc()
	}
}

// RecordPayloadSize observes the encoded size of a document moved by
// operation.
func (c *Collector) RecordPayloadSize(operation, collection string, size int) {
	if !c.config.Enabled {
		return
	}

	c.mu.Lock()
	stats, exists := c.operations[operation]
	if !exists {
		stats = &OperationStats{}
		c.operations[operation] = stats
	}
	stats.TotalBytes += int64(size)
	c.mu.Unlock()

	c.payloadSize.With(prometheus.Labels{
		"operation":  operation,
		"collection": collection,
	}).Observe(float64(size))
}

// Snapshot returns a copy of the per-operation statistics.
func (c *Collector) Snapshot() map[string]OperationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]OperationStats, len(c.operations))
	for name, stats := range c.operations {
		snapshot[name] = *stats
	}
	return snapshot
}

// Reset clears the per-operation statistics. Prometheus series are
// cumulative and left untouched.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.operations = make(map[string]*OperationStats)
	c.lastReset = time.Now()
}

// Registry exposes the Prometheus registry, nil when disabled. Embedders
// that already run an HTTP server can mount it instead of calling Start.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Helper methods

func (c *Collector) initMetrics() {
	c.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "operations_total",
			Help:      "Total number of store operations",
		},
		[]string{"operation", "collection", "status"},
	)

	c.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 100µs to ~1.6s
		},
		[]string{"operation"},
	)

	c.payloadSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Name:      "payload_size_bytes",
			Help:      "Encoded document sizes in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 12), // 64B to ~1GB
		},
		[]string{"operation", "collection"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "errors_total",
			Help:      "Total number of failed store operations",
		},
		[]string{"operation", "code"},
	)
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.payloadSize,
		c.errorCounter,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// classifyError maps a failure to its taxonomy code for the errors_total
// label, keeping label cardinality bounded.
func classifyError(err error) string {
	var se *dserrors.StorageError
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return "OTHER"
}

// observeHealth feeds the attached tracker. Only filesystem errors count
// against the backend: not-found, corrupt documents and key validation
// mean the gateway itself answered fine.
func (c *Collector) observeHealth(err error) {
	c.mu.RLock()
	t := c.health
	c.mu.RUnlock()
	if t == nil {
		return
	}

	if err != nil && dserrors.IsFilesystem(err) {
		t.RecordError(GatewayComponent, err)
		return
	}
	t.RecordSuccess(GatewayComponent)
}

// HTTP handlers

func (c *Collector) healthHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	t := c.health
	c.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if t == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"dirstore-metrics"}`))
		return
	}

	overall := t.GetOverallHealth()
	code := http.StatusOK
	if overall == health.StateUnavailable {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)

	payload := struct {
		Status     string                             `json:"status"`
		Components map[string]*health.ComponentHealth `json:"components"`
	}{
		Status:     overall.String(),
		Components: t.GetAllComponents(),
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (c *Collector) debugOperationsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain")

	// Helper to avoid errcheck issues
	writef := func(format string, args ...interface{}) { _, _ = fmt.Fprintf(w, format, args...) }

	writef("DirStore Operations Summary\n")
	writef("===========================\n\n")
	writef("Uptime: %v\n", time.Since(c.lastReset))
	writef("Last Reset: %v\n\n", c.lastReset)

	if len(c.operations) == 0 {
		writef("No operations recorded.\n")
		return
	}

	writef("%-12s %10s %10s %12s %12s %10s\n",
		"Operation", "Count", "Errors", "Avg Duration", "Total Bytes", "Last Op")
	writef("%-12s %10s %10s %12s %12s %10s\n",
		"---------", "-----", "------", "------------", "-----------", "-------")

	for name, op := range c.operations {
		writef("%-12s %10d %10d %12v %12d %10s\n",
			name, op.Count, op.Errors, op.AvgDuration,
			op.TotalBytes, op.LastOperation.Format("15:04:05"))
	}
}
