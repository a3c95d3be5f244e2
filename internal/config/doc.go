/*
Package config provides configuration management for DirStore with
multi-source support.

Configuration is resolved in layers with later sources overriding earlier
ones: compiled-in defaults, then a YAML file, then DIRSTORE_* environment
variables, then whatever the embedding program sets directly before calling
Validate.

# Usage

	cfg := config.NewDefault()

	if err := cfg.LoadFromFile("/etc/dirstore/config.yaml"); err != nil {
		log.Fatal(err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

# Configuration file format

	storage:
	  gateway: local          # local, memory, or s3
	  data_dir: /var/lib/dirstore/data
	  temp_dir: /var/lib/dirstore/tmp
	  unique_temp_names: false
	  bucket: ""              # s3 gateway only
	  s3:
	    region: us-east-1
	    endpoint: ""          # set for MinIO/LocalStack
	    force_path_style: false
	    max_retries: 3
	    pool_size: 8

	metrics:
	  enabled: false
	  address: ":8080"

	logging:
	  level: INFO             # DEBUG, INFO, WARN, ERROR
	  format: text            # text or json
	  file: ""                # rotate-in-place log file; empty logs to stderr
	  max_size_mb: 100
	  max_backups: 3
	  compress: false

# Environment variable mapping

	DIRSTORE_GATEWAY="s3"
	DIRSTORE_DATA_DIR="data"
	DIRSTORE_TEMP_DIR="tmp"
	DIRSTORE_BUCKET="dirstore-prod"
	DIRSTORE_S3_REGION="eu-central-1"
	DIRSTORE_S3_ACCESS_KEY_ID="..."
	DIRSTORE_S3_SECRET_ACCESS_KEY="..."
	DIRSTORE_METRICS_ENABLED="true"
	DIRSTORE_LOG_LEVEL="DEBUG"
	DIRSTORE_LOG_FILE="/var/log/dirstore/dirstore.log"

Credentials belong in environment variables rather than files; when both are
present the environment wins. Configuration files written by SaveToFile use
0600 permissions for that reason.

With the local gateway, data_dir and temp_dir must live on the same volume:
the store's crash safety rests on rename being atomic between the two.
*/
package config
