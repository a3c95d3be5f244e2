package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	// Storage defaults
	if cfg.Storage.Gateway != GatewayLocal {
		t.Errorf("Expected Gateway to be local, got %s", cfg.Storage.Gateway)
	}
	if cfg.Storage.DataDir != "/var/lib/dirstore/data" {
		t.Errorf("Expected DataDir to be /var/lib/dirstore/data, got %s", cfg.Storage.DataDir)
	}
	if cfg.Storage.TempDir != "/var/lib/dirstore/tmp" {
		t.Errorf("Expected TempDir to be /var/lib/dirstore/tmp, got %s", cfg.Storage.TempDir)
	}
	if cfg.Storage.UniqueTempNames {
		t.Error("Expected UniqueTempNames to be disabled by default")
	}

	// S3 defaults come from the gateway package
	if cfg.Storage.S3.Region != "us-east-1" {
		t.Errorf("Expected S3 region to be us-east-1, got %s", cfg.Storage.S3.Region)
	}
	if cfg.Storage.S3.PoolSize != 8 {
		t.Errorf("Expected S3 pool size to be 8, got %d", cfg.Storage.S3.PoolSize)
	}

	// Metrics defaults
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
	if cfg.Metrics.Address != ":8080" {
		t.Errorf("Expected metrics address to be :8080, got %s", cfg.Metrics.Address)
	}

	// Logging defaults
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected log level to be INFO, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected log format to be text, got %s", cfg.Logging.Format)
	}
	if cfg.Logging.File != "" {
		t.Errorf("Expected file logging to be off by default, got %s", cfg.Logging.File)
	}
	if cfg.Logging.MaxSizeMB != 100 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Expected rotation defaults 100MB/3 backups, got %d/%d",
			cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default configuration should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid default config",
			config: NewDefault,
		},
		{
			name: "valid memory gateway",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Gateway = GatewayMemory
				cfg.Storage.DataDir = "data"
				cfg.Storage.TempDir = "tmp"
				return cfg
			},
		},
		{
			name: "valid s3 gateway",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Gateway = GatewayS3
				cfg.Storage.Bucket = "dirstore-test"
				return cfg
			},
		},
		{
			name: "unknown gateway",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Gateway = "nfs"
				return cfg
			},
			wantErr: true,
			errMsg:  "unknown gateway",
		},
		{
			name: "s3 gateway without bucket",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Gateway = GatewayS3
				return cfg
			},
			wantErr: true,
			errMsg:  "bucket is required",
		},
		{
			name: "s3 gateway with empty region",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Gateway = GatewayS3
				cfg.Storage.Bucket = "dirstore-test"
				cfg.Storage.S3.Region = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid s3 settings",
		},
		{
			name: "empty data directory",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.DataDir = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "data directory",
		},
		{
			name: "metrics enabled without address",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Metrics.Enabled = true
				cfg.Metrics.Address = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "metrics address",
		},
		{
			name: "invalid log level",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Logging.Level = "TRACE"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log level",
		},
		{
			name: "invalid log format",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Logging.Format = "xml"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config().Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() should fail")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
storage:
  gateway: s3
  data_dir: data
  temp_dir: tmp
  unique_temp_names: true
  bucket: dirstore-test
  s3:
    region: eu-central-1
    endpoint: http://localhost:9000
    force_path_style: true
metrics:
  enabled: true
  address: ":9095"
logging:
  level: DEBUG
  format: json
  file: /var/log/dirstore/dirstore.log
  max_size_mb: 25
  max_backups: 5
  compress: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Storage.Gateway != GatewayS3 {
		t.Errorf("Gateway = %s, want s3", cfg.Storage.Gateway)
	}
	if !cfg.Storage.UniqueTempNames {
		t.Error("UniqueTempNames should be true")
	}
	if cfg.Storage.Bucket != "dirstore-test" {
		t.Errorf("Bucket = %s, want dirstore-test", cfg.Storage.Bucket)
	}
	if cfg.Storage.S3.Region != "eu-central-1" {
		t.Errorf("S3 region = %s, want eu-central-1", cfg.Storage.S3.Region)
	}
	if !cfg.Storage.S3.ForcePathStyle {
		t.Error("ForcePathStyle should be true")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9095" {
		t.Errorf("Metrics = %+v, want enabled at :9095", cfg.Metrics)
	}
	if cfg.Logging.Level != "DEBUG" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want DEBUG/json", cfg.Logging)
	}
	if cfg.Logging.File != "/var/log/dirstore/dirstore.log" {
		t.Errorf("log file = %s, want /var/log/dirstore/dirstore.log", cfg.Logging.File)
	}
	if cfg.Logging.MaxSizeMB != 25 || cfg.Logging.MaxBackups != 5 || !cfg.Logging.Compress {
		t.Errorf("rotation settings = %+v, want 25MB/5 backups/compressed", cfg.Logging)
	}

	// Values absent from the file keep their defaults.
	if cfg.Storage.S3.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Storage.S3.MaxRetries)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Loaded configuration should validate, got %v", err)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := NewDefault()

	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFromFile() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("storage: [not a mapping"), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	if err := cfg.LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() should fail for malformed YAML")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DIRSTORE_GATEWAY", "memory")
	t.Setenv("DIRSTORE_DATA_DIR", "envdata")
	t.Setenv("DIRSTORE_TEMP_DIR", "envtmp")
	t.Setenv("DIRSTORE_UNIQUE_TEMP_NAMES", "TRUE")
	t.Setenv("DIRSTORE_S3_REGION", "ap-southeast-2")
	t.Setenv("DIRSTORE_S3_POOL_SIZE", "16")
	t.Setenv("DIRSTORE_METRICS_ENABLED", "true")
	t.Setenv("DIRSTORE_LOG_LEVEL", "WARN")
	t.Setenv("DIRSTORE_LOG_FILE", "/tmp/dirstore.log")

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Storage.Gateway != GatewayMemory {
		t.Errorf("Gateway = %s, want memory", cfg.Storage.Gateway)
	}
	if cfg.Storage.DataDir != "envdata" || cfg.Storage.TempDir != "envtmp" {
		t.Errorf("directories = %s/%s, want envdata/envtmp", cfg.Storage.DataDir, cfg.Storage.TempDir)
	}
	if !cfg.Storage.UniqueTempNames {
		t.Error("UniqueTempNames should parse case-insensitively")
	}
	if cfg.Storage.S3.Region != "ap-southeast-2" {
		t.Errorf("S3 region = %s, want ap-southeast-2", cfg.Storage.S3.Region)
	}
	if cfg.Storage.S3.PoolSize != 16 {
		t.Errorf("S3 pool size = %d, want 16", cfg.Storage.S3.PoolSize)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics should be enabled")
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("log level = %s, want WARN", cfg.Logging.Level)
	}
	if cfg.Logging.File != "/tmp/dirstore.log" {
		t.Errorf("log file = %s, want /tmp/dirstore.log", cfg.Logging.File)
	}
}

func TestLoadFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("DIRSTORE_S3_POOL_SIZE", "many")

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Storage.S3.PoolSize != 8 {
		t.Errorf("unparseable pool size should keep default 8, got %d", cfg.Storage.S3.PoolSize)
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	cfg := NewDefault()
	cfg.Storage.Gateway = GatewayS3
	cfg.Storage.Bucket = "dirstore-test"
	cfg.Logging.Format = "json"

	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded := NewDefault()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loaded.Storage.Gateway != GatewayS3 {
		t.Errorf("Gateway = %s, want s3", loaded.Storage.Gateway)
	}
	if loaded.Storage.Bucket != "dirstore-test" {
		t.Errorf("Bucket = %s, want dirstore-test", loaded.Storage.Bucket)
	}
	if loaded.Logging.Format != "json" {
		t.Errorf("log format = %s, want json", loaded.Logging.Format)
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := NewDefault()
	cfg.Storage.DataDir = "some/data"
	cfg.Storage.TempDir = "some/tmp"

	storeCfg := cfg.StoreConfig()
	if storeCfg.DataDir != "some/data" {
		t.Errorf("DataDir = %s, want some/data", storeCfg.DataDir)
	}
	if storeCfg.TempDir != "some/tmp" {
		t.Errorf("TempDir = %s, want some/tmp", storeCfg.TempDir)
	}
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := LoggingConfig{Level: "DEBUG", Format: "text"}.NewLogger(&buf)
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("DEBUG logger should enable debug records")
	}
	logger.Debug("probe", "k", "v")
	if !strings.Contains(buf.String(), "msg=probe") {
		t.Errorf("text output = %q, want slog text format", buf.String())
	}

	buf.Reset()
	logger = LoggingConfig{Level: "WARN", Format: "json"}.NewLogger(&buf)
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("WARN logger should suppress info records")
	}
	logger.Warn("probe")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("json output = %q, want a JSON object", buf.String())
	}
}

func TestOpenLogger(t *testing.T) {
	t.Run("without file logs to the fallback", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer, err := LoggingConfig{Level: "INFO", Format: "text"}.OpenLogger(&buf)
		if err != nil {
			t.Fatalf("OpenLogger() error = %v", err)
		}
		if closer != nil {
			t.Error("closer should be nil when no file is opened")
		}

		logger.Info("probe")
		if !strings.Contains(buf.String(), "msg=probe") {
			t.Errorf("fallback output = %q, want the log record", buf.String())
		}
	})

	t.Run("with file logs to the rotator", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dirstore.log")

		var buf bytes.Buffer
		logger, closer, err := LoggingConfig{
			Level:  "INFO",
			Format: "json",
			File:   path,
		}.OpenLogger(&buf)
		if err != nil {
			t.Fatalf("OpenLogger() error = %v", err)
		}
		if closer == nil {
			t.Fatal("closer should own the opened file")
		}

		logger.Info("probe")
		if err := closer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !strings.Contains(string(content), `"msg":"probe"`) {
			t.Errorf("file content = %q, want the log record", content)
		}
		if buf.Len() != 0 {
			t.Errorf("fallback received %q, want nothing", buf.String())
		}
	})
}
