package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	s3gw "github.com/dirstore/dirstore/pkg/gateway/s3"
	"github.com/dirstore/dirstore/pkg/store"
	"github.com/dirstore/dirstore/pkg/utils"
)

// Configuration represents the complete application configuration
type Configuration struct {
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects the gateway and the directories the store writes
// under. DataDir and TempDir feed store.Config unchanged; for the s3 gateway
// they become key prefixes inside Bucket.
type StorageConfig struct {
	// Gateway picks the backend: "local", "memory", or "s3".
	Gateway string `yaml:"gateway"`
	DataDir string `yaml:"data_dir"`
	TempDir string `yaml:"temp_dir"`
	// UniqueTempNames switches staging files from the deterministic
	// <collection>-<id> name to a unique name per write.
	UniqueTempNames bool `yaml:"unique_temp_names"`

	// Bucket and S3 apply only when Gateway is "s3".
	Bucket string      `yaml:"bucket"`
	S3     s3gw.Config `yaml:"s3"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig represents logging settings. With File set, output goes to
// a size-rotated file instead of the process stream; see OpenLogger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	File       string `yaml:"file"`
	MaxSizeMB  int64  `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// Supported gateway names.
const (
	GatewayLocal  = "local"
	GatewayMemory = "memory"
	GatewayS3     = "s3"
)

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Storage: StorageConfig{
			Gateway:         GatewayLocal,
			DataDir:         "/var/lib/dirstore/data",
			TempDir:         "/var/lib/dirstore/tmp",
			UniqueTempNames: false,
			S3:              *s3gw.NewDefaultConfig(),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":8080",
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// StoreConfig converts the storage section into the engine's configuration.
func (c *Configuration) StoreConfig() store.Config {
	return store.Config{
		DataDir: c.Storage.DataDir,
		TempDir: c.Storage.TempDir,
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	// Storage settings
	if val := os.Getenv("DIRSTORE_GATEWAY"); val != "" {
		c.Storage.Gateway = val
	}
	if val := os.Getenv("DIRSTORE_DATA_DIR"); val != "" {
		c.Storage.DataDir = val
	}
	if val := os.Getenv("DIRSTORE_TEMP_DIR"); val != "" {
		c.Storage.TempDir = val
	}
	if val := os.Getenv("DIRSTORE_UNIQUE_TEMP_NAMES"); val != "" {
		c.Storage.UniqueTempNames = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DIRSTORE_BUCKET"); val != "" {
		c.Storage.Bucket = val
	}

	// S3 gateway settings
	if val := os.Getenv("DIRSTORE_S3_REGION"); val != "" {
		c.Storage.S3.Region = val
	}
	if val := os.Getenv("DIRSTORE_S3_ENDPOINT"); val != "" {
		c.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("DIRSTORE_S3_ACCESS_KEY_ID"); val != "" {
		c.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("DIRSTORE_S3_SECRET_ACCESS_KEY"); val != "" {
		c.Storage.S3.SecretAccessKey = val
	}
	if val := os.Getenv("DIRSTORE_S3_FORCE_PATH_STYLE"); val != "" {
		c.Storage.S3.ForcePathStyle = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DIRSTORE_S3_POOL_SIZE"); val != "" {
		if poolSize, err := strconv.Atoi(val); err == nil {
			c.Storage.S3.PoolSize = poolSize
		}
	}

	// Metrics settings
	if val := os.Getenv("DIRSTORE_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DIRSTORE_METRICS_ADDRESS"); val != "" {
		c.Metrics.Address = val
	}

	// Logging settings
	if val := os.Getenv("DIRSTORE_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("DIRSTORE_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
	if val := os.Getenv("DIRSTORE_LOG_FILE"); val != "" {
		c.Logging.File = val
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	switch c.Storage.Gateway {
	case GatewayLocal, GatewayMemory:
	case GatewayS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("bucket is required for the s3 gateway")
		}
		if err := c.Storage.S3.Validate(); err != nil {
			return fmt.Errorf("invalid s3 settings: %w", err)
		}
	default:
		return fmt.Errorf("unknown gateway: %s (must be one of: %s)",
			c.Storage.Gateway, strings.Join([]string{GatewayLocal, GatewayMemory, GatewayS3}, ", "))
	}

	storeCfg := c.StoreConfig()
	if err := storeCfg.Validate(); err != nil {
		return err
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// NewLogger builds a slog.Logger honoring the configured level and format,
// writing to w. Unknown levels fall back to INFO rather than failing, so a
// logger is always available.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenLogger builds a logger like NewLogger, but honors File: when set,
// output goes to a size-rotated file and the returned closer owns it. With
// File empty the fallback writer is used and the closer is nil.
func (l LoggingConfig) OpenLogger(fallback io.Writer) (*slog.Logger, io.Closer, error) {
	if l.File == "" {
		return l.NewLogger(fallback), nil, nil
	}

	rotator, err := utils.NewLogRotator(&utils.RotationConfig{
		Filename:   l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		Compress:   l.Compress,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log rotator: %w", err)
	}
	return l.NewLogger(rotator), rotator, nil
}
