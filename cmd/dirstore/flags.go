package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	StoreURI    string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool

	Command string
	Args    []string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Config path and store URI fall back to environment variables; the
	// remaining DIRSTORE_* variables are read by the config layer itself.
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("DIRSTORE_CONFIG", ""),
		"Path to configuration file (env: DIRSTORE_CONFIG)")

	flag.StringVar(&cfg.StoreURI, "store",
		getEnv("DIRSTORE_STORE", ""),
		"Storage URI: local://dir, memory://, s3://bucket/prefix; overrides config (env: DIRSTORE_STORE)")

	flag.StringVar(&cfg.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error; overrides config")

	flag.StringVar(&cfg.LogFormat, "log-format", "",
		"Log format: text, json; overrides config")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	cfg.Command = flag.Arg(0)
	if flag.NArg() > 1 {
		cfg.Args = flag.Args()[1:]
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !containsString(validLevels, strings.ToLower(cfg.LogLevel)) {
			return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
		}
	}

	if cfg.LogFormat != "" {
		validFormats := []string{"text", "json"}
		if !containsString(validFormats, strings.ToLower(cfg.LogFormat)) {
			return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
		}
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - durable JSON object store

Usage: %s [options] <command> [arguments]

Commands:
  put <collection> <key> [file]   Store a JSON document (reads stdin when file is absent or -)
  get <collection> <key>          Print one document
  rm <collection> <key>           Delete a document (succeeds when already absent)
  ls <collection> [namespace]     List ids directly inside a namespace
  dump <collection> [namespace]   Print every document in a namespace as one JSON object

Keys are slash-separated: every segment but the last names the namespace,
the last is the id (for example invoices/2026/inv-17).

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # store a document from stdin
  echo '{"name":"Ada"}' | %s -store local:///var/lib/dirstore put users alice

  # read it back
  %s -store local:///var/lib/dirstore get users alice

  # list a namespace in a bucket
  %s -store s3://my-bucket/dirstore ls users

  # validate a config file and exit
  %s -config /etc/dirstore/config.yaml -validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
