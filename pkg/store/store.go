package store

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	dserrors "github.com/dirstore/dirstore/pkg/errors"
	"github.com/dirstore/dirstore/pkg/gateway"
	"github.com/dirstore/dirstore/pkg/utils"
)

// Config carries the engine's two root directories.
//
// With the local gateway both directories must reside on the same volume:
// the final step of every write is a rename from TempDir into DataDir, and
// rename is only atomic within one volume. The engine does not probe for
// this; deployments that split the directories across volumes lose the
// all-or-nothing visibility guarantee.
type Config struct {
	// DataDir is the root of the persisted object tree.
	DataDir string `yaml:"data_dir"`
	// TempDir is the staging directory pending writes pass through.
	TempDir string `yaml:"temp_dir"`
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return dserrors.NewInvalidConfig("data directory cannot be empty")
	}
	if err := utils.ValidatePath(c.DataDir, true); err != nil {
		return dserrors.NewInvalidConfig("invalid data directory: " + err.Error())
	}
	if c.TempDir == "" {
		return dserrors.NewInvalidConfig("temporary directory cannot be empty")
	}
	if err := utils.ValidatePath(c.TempDir, true); err != nil {
		return dserrors.NewInvalidConfig("invalid temporary directory: " + err.Error())
	}
	return nil
}

// MetricsCollector receives the outcome of every engine operation. The
// engine calls it synchronously, so implementations must be cheap.
// internal/metrics provides a Prometheus-backed implementation; the zero
// configuration discards everything.
type MetricsCollector interface {
	// RecordOperation observes one completed operation; err is nil on success.
	RecordOperation(operation, collection string, duration time.Duration, err error)
	// RecordPayloadSize observes the encoded size of a document moved by
	// operation.
	RecordPayloadSize(operation, collection string, size int)
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(string, string, time.Duration, error) {}
func (noopMetrics) RecordPayloadSize(string, string, int)                {}

// Option customizes a Store at construction.
type Option func(*Store)

// WithLogger routes the engine's logging to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics wires a collector into every operation.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Store) {
		if collector != nil {
			s.metrics = collector
		}
	}
}

// WithUniqueTempNames makes every write stage through a uniquely named
// temporary file instead of the deterministic <collection>-<id> name.
// Deterministic names let a retried write reuse its staging file; unique
// names keep concurrent writers of the same id from truncating each other's
// staging data, at the cost of leaking a file when a writer dies between
// staging and rename.
func WithUniqueTempNames() Option {
	return func(s *Store) {
		s.tempSuffix = uuid.NewString
	}
}

// Store is the object store engine. It owns no state beyond its
// configuration and is safe for concurrent use; all persistence goes through
// the gateway it was built with.
type Store struct {
	gw         gateway.Filesystem
	layout     *Layout
	logger     *slog.Logger
	metrics    MetricsCollector
	tempSuffix func() string
}

// New builds a Store over gw rooted at the directories in cfg.
func New(gw gateway.Filesystem, cfg Config, opts ...Option) (*Store, error) {
	if gw == nil {
		return nil, dserrors.NewInvalidConfig("gateway cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, err := NewLayout(cfg.DataDir, cfg.TempDir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		gw:         gw,
		layout:     layout,
		logger:     slog.Default(),
		metrics:    noopMetrics{},
		tempSuffix: func() string { return "" },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Layout exposes the store's path resolver, primarily for tooling that needs
// to locate documents on disk without going through a Collection.
func (s *Store) Layout() *Layout {
	return s.layout
}
