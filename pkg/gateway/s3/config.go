package s3

import "fmt"

// Config holds the bucket gateway settings.
type Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	ForcePathStyle  bool   `yaml:"force_path_style"`

	// Performance settings
	MaxRetries int `yaml:"max_retries"`
	PoolSize   int `yaml:"pool_size"`

	// CargoShip optimization settings
	EnableCargoShipOptimization bool `yaml:"enable_cargoship_optimization"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Region:     "us-east-1",
		MaxRetries: 3,
		PoolSize:   8,
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("pool size cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access key id and secret access key must be set together")
	}
	return nil
}
