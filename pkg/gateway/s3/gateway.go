// Package s3 implements the store gateway on an S3 bucket. Paths computed
// by the engine become object keys after slash normalization, so a store
// configured with relative data and temp directories (for example "data"
// and "tmp") maps directly onto key prefixes.
//
// Semantics differ from the local gateway in two documented ways: buckets
// have no directories, so MkdirAll is a no-op and listing an absent prefix
// yields an empty result; and Rename is CopyObject followed by DeleteObject,
// which is not atomic. Visibility of a write is instead provided by S3's
// own all-or-nothing PUT semantics, so readers still never observe a partial
// object.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	cargoconfig "github.com/scttfrdmn/cargoship/pkg/aws/config"
	cargoships3 "github.com/scttfrdmn/cargoship/pkg/aws/s3"

	"github.com/dirstore/dirstore/pkg/gateway"
)

// Gateway is a bucket-backed filesystem for the store engine.
type Gateway struct {
	bucket      string
	client      *s3.Client
	pool        *ConnectionPool
	transporter *cargoships3.Transporter
	config      *Config
	logger      *slog.Logger
}

var _ gateway.Filesystem = (*Gateway)(nil)

// New creates a gateway for the given bucket. The client configuration is
// loaded from the environment and overridden by cfg; static credentials in
// cfg take precedence over the default chain.
func New(ctx context.Context, bucket string, cfg *Config, logger *slog.Logger) (*Gateway, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(cfg.MaxRetries),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}

	client := s3.NewFromConfig(awsCfg, clientOpts)

	pool, err := NewConnectionPool(cfg.PoolSize, func() (*s3.Client, error) {
		return s3.NewFromConfig(awsCfg, clientOpts), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	var transporter *cargoships3.Transporter
	if cfg.EnableCargoShipOptimization {
		cargoCfg := cargoconfig.S3Config{
			Bucket:             bucket,
			StorageClass:       cargoconfig.StorageClassStandard,
			MultipartThreshold: 32 * 1024 * 1024, // 32MB threshold
			MultipartChunkSize: 16 * 1024 * 1024, // 16MB chunks
			Concurrency:        cfg.PoolSize,
		}
		transporter = cargoships3.NewTransporter(client, cargoCfg)
		logger.Info("CargoShip upload optimization enabled",
			"bucket", bucket,
			"concurrency", cfg.PoolSize)
	}

	return &Gateway{
		bucket:      bucket,
		client:      client,
		pool:        pool,
		transporter: transporter,
		config:      cfg,
		logger:      logger,
	}, nil
}

// MkdirAll is a no-op: buckets have no directories, prefixes exist by
// virtue of the keys below them.
func (g *Gateway) MkdirAll(context.Context, string) error {
	return nil
}

func (g *Gateway) WriteFile(ctx context.Context, path string, data []byte) error {
	key := pathKey(path)

	if g.transporter != nil {
		archive := cargoships3.Archive{
			Key:          key,
			Reader:       bytes.NewReader(data),
			Size:         int64(len(data)),
			StorageClass: cargoconfig.StorageClassStandard,
			Metadata: map[string]string{
				"content-type": contentType(key),
			},
		}

		result, uploadErr := g.transporter.Upload(ctx, archive)
		if uploadErr == nil {
			g.logger.Debug("optimized upload completed",
				"key", key,
				"size", len(data),
				"throughput", result.Throughput,
				"duration", result.Duration)
			return nil
		}
		g.logger.Warn("optimized upload failed, falling back to standard client", "key", key, "error", uploadErr)
	}

	client := g.pool.Get()
	defer g.pool.Put(client)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(g.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(key)),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return g.translateError(err, "PutObject", path)
	}
	return nil
}

func (g *Gateway) ReadFile(ctx context.Context, path string) ([]byte, error) {
	key := pathKey(path)

	client := g.pool.Get()
	defer g.pool.Put(client)

	input := &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}

	result, err := client.GetObject(ctx, input)
	if err != nil {
		return nil, g.translateError(err, "GetObject", path)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body for %s: %w", key, err)
	}
	return data, nil
}

// Rename copies oldPath's object to newPath and deletes the source. Unlike
// the local gateway this is two bucket operations, not one atomic step; a
// crash in between leaves both objects, never a partial one.
func (g *Gateway) Rename(ctx context.Context, oldPath, newPath string) error {
	oldKey := pathKey(oldPath)
	newKey := pathKey(newPath)

	client := g.pool.Get()
	defer g.pool.Put(client)

	copyInput := &s3.CopyObjectInput{
		Bucket:     aws.String(g.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(url.PathEscape(g.bucket + "/" + oldKey)),
	}
	if _, err := client.CopyObject(ctx, copyInput); err != nil {
		return g.translateError(err, "CopyObject", oldPath)
	}

	deleteInput := &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(oldKey),
	}
	if _, err := client.DeleteObject(ctx, deleteInput); err != nil {
		return g.translateError(err, "DeleteObject", oldPath)
	}
	return nil
}

// Remove deletes the object at path. S3 reports success for missing keys,
// which satisfies the engine's idempotent delete without translation.
func (g *Gateway) Remove(ctx context.Context, path string) error {
	key := pathKey(path)

	client := g.pool.Get()
	defer g.pool.Put(client)

	input := &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}
	if _, err := client.DeleteObject(ctx, input); err != nil {
		return g.translateError(err, "DeleteObject", path)
	}
	return nil
}

// ReadDir lists the direct children below path using a delimited listing.
// Common prefixes become directory entries; an absent prefix lists as
// empty, which the engine treats the same as a missing directory.
func (g *Gateway) ReadDir(ctx context.Context, path string) ([]gateway.DirEntry, error) {
	prefix := pathKey(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	client := g.pool.Get()
	defer g.pool.Put(client)

	var entries []gateway.DirEntry
	var continuation *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(g.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuation,
		}

		result, err := client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, g.translateError(err, "ListObjects", path)
		}

		for _, obj := range result.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			entries = append(entries, gateway.DirEntry{Name: name})
		}
		for _, cp := range result.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name == "" {
				continue
			}
			entries = append(entries, gateway.DirEntry{Name: name, IsDir: true})
		}

		if !aws.ToBool(result.IsTruncated) {
			break
		}
		continuation = result.NextContinuationToken
	}

	return entries, nil
}

// HealthCheck verifies the bucket is reachable.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	client := g.pool.Get()
	defer g.pool.Put(client)

	input := &s3.HeadBucketInput{
		Bucket: aws.String(g.bucket),
	}
	if _, err := client.HeadBucket(ctx, input); err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}
	return nil
}

// Stats returns connection pool statistics.
func (g *Gateway) Stats() PoolStats {
	return g.pool.Stats()
}

// Close releases the gateway's pooled clients.
func (g *Gateway) Close() error {
	return g.pool.Close()
}

// pathKey converts an engine path into a bucket key.
func pathKey(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}

func (g *Gateway) translateError(err error, operation, path string) error {
	switch {
	case isErrorType[*s3types.NoSuchKey](err):
		return &fs.PathError{Op: operation, Path: path, Err: fs.ErrNotExist}
	case isErrorType[*s3types.NoSuchBucket](err):
		return fmt.Errorf("bucket not found: %s: %w", g.bucket, err)
	default:
		return fmt.Errorf("%s failed for %s: %w", operation, path, err)
	}
}

// isErrorType checks if an error is of a specific type.
func isErrorType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
