//go:build integration
// +build integration

package s3

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"testing"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdks3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dirstore/dirstore/pkg/codec"
	dserrors "github.com/dirstore/dirstore/pkg/errors"
	"github.com/dirstore/dirstore/pkg/store"
)

// GatewayIntegrationSuite runs the bucket gateway against a real S3
// endpoint (MinIO or LocalStack). Start one and point AWS_ENDPOINT_URL at
// it:
//
//	docker run -p 4566:4566 localstack/localstack
//	AWS_ENDPOINT_URL=http://localhost:4566 go test -tags integration ./pkg/gateway/s3/
type GatewayIntegrationSuite struct {
	suite.Suite
	ctx      context.Context
	client   *sdks3.Client
	gw       *Gateway
	bucket   string
	endpoint string
}

func TestGatewayIntegration(t *testing.T) {
	if os.Getenv("AWS_ENDPOINT_URL") == "" {
		t.Skip("Skipping S3 integration tests - no endpoint configured")
	}

	suite.Run(t, new(GatewayIntegrationSuite))
}

func (s *GatewayIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.bucket = "dirstore-integration"
	s.endpoint = os.Getenv("AWS_ENDPOINT_URL")

	awsCfg, err := awsconfig.LoadDefaultConfig(s.ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", "test", "",
		)),
		awsconfig.WithRegion("us-east-1"),
	)
	require.NoError(s.T(), err)

	s.client = sdks3.NewFromConfig(awsCfg, func(o *sdks3.Options) {
		o.BaseEndpoint = &s.endpoint
		o.UsePathStyle = true
	})

	s.gw, err = New(s.ctx, s.bucket, &Config{
		Region:          "us-east-1",
		Endpoint:        s.endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
		MaxRetries:      3,
		PoolSize:        4,
	}, nil)
	require.NoError(s.T(), err)
}

func (s *GatewayIntegrationSuite) TearDownSuite() {
	if s.gw != nil {
		_ = s.gw.Close()
	}
}

func (s *GatewayIntegrationSuite) SetupTest() {
	_, _ = s.client.CreateBucket(s.ctx, &sdks3.CreateBucketInput{
		Bucket: &s.bucket,
	})

	// Empty the bucket so tests never see each other's objects.
	resp, err := s.client.ListObjectsV2(s.ctx, &sdks3.ListObjectsV2Input{
		Bucket: &s.bucket,
	})
	require.NoError(s.T(), err)

	for _, obj := range resp.Contents {
		_, err := s.client.DeleteObject(s.ctx, &sdks3.DeleteObjectInput{
			Bucket: &s.bucket,
			Key:    obj.Key,
		})
		require.NoError(s.T(), err)
	}
}

func (s *GatewayIntegrationSuite) TestWriteReadRoundTrip() {
	t := s.T()

	path := "data/users/alice.json"
	data := []byte(`{"name":"Ada"}`)

	err := s.gw.WriteFile(s.ctx, path, data)
	require.NoError(t, err)

	got, err := s.gw.ReadFile(s.ctx, path)
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = s.gw.ReadFile(s.ctx, "data/users/missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "missing object should map to fs.ErrNotExist, got %v", err)
}

func (s *GatewayIntegrationSuite) TestRename() {
	t := s.T()

	data := []byte(`{"state":"staged"}`)
	require.NoError(t, s.gw.WriteFile(s.ctx, "tmp/users-alice.json", data))

	err := s.gw.Rename(s.ctx, "tmp/users-alice.json", "data/users/alice.json")
	require.NoError(t, err)

	got, err := s.gw.ReadFile(s.ctx, "data/users/alice.json")
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = s.gw.ReadFile(s.ctx, "tmp/users-alice.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "source should be gone after rename, got %v", err)
}

func (s *GatewayIntegrationSuite) TestRemoveIsIdempotent() {
	t := s.T()

	require.NoError(t, s.gw.WriteFile(s.ctx, "data/users/alice.json", []byte("{}")))

	assert.NoError(t, s.gw.Remove(s.ctx, "data/users/alice.json"))
	assert.NoError(t, s.gw.Remove(s.ctx, "data/users/alice.json"))
}

func (s *GatewayIntegrationSuite) TestReadDir() {
	t := s.T()

	for _, path := range []string{
		"data/users/alice.json",
		"data/users/bob.json",
		"data/users/eu/carol.json",
	} {
		require.NoError(t, s.gw.WriteFile(s.ctx, path, []byte("{}")))
	}

	entries, err := s.gw.ReadDir(s.ctx, "data/users")
	require.NoError(t, err)

	var files, dirs []string
	for _, entry := range entries {
		if entry.IsDir {
			dirs = append(dirs, entry.Name)
		} else {
			files = append(files, entry.Name)
		}
	}
	sort.Strings(files)
	assert.Equal(t, []string{"alice.json", "bob.json"}, files)
	assert.Equal(t, []string{"eu"}, dirs)

	// An absent prefix lists as empty rather than failing.
	entries, err = s.gw.ReadDir(s.ctx, "data/nothing")
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func (s *GatewayIntegrationSuite) TestHealthCheck() {
	assert.NoError(s.T(), s.gw.HealthCheck(s.ctx))
}

func (s *GatewayIntegrationSuite) TestConcurrentWritesThroughPool() {
	t := s.T()

	const writers = 20
	done := make(chan error, writers)

	for i := 0; i < writers; i++ {
		go func(id int) {
			path := fmt.Sprintf("data/users/user-%d.json", id)
			if err := s.gw.WriteFile(s.ctx, path, []byte(fmt.Sprintf(`{"id":%d}`, id))); err != nil {
				done <- err
				return
			}
			_, err := s.gw.ReadFile(s.ctx, path)
			done <- err
		}(i)
	}

	for i := 0; i < writers; i++ {
		assert.NoError(t, <-done)
	}

	entries, err := s.gw.ReadDir(s.ctx, "data/users")
	require.NoError(t, err)
	assert.Len(t, entries, writers)
}

// TestStoreOnBucket drives the whole engine over the gateway: the relative
// data and temp directories become key prefixes inside the bucket.
func (s *GatewayIntegrationSuite) TestStoreOnBucket() {
	t := s.T()

	type User struct {
		Name string `json:"name"`
	}

	st, err := store.New(s.gw, store.Config{DataDir: "data", TempDir: "tmp"})
	require.NoError(t, err)

	users, err := store.NewCollection[User](st, "users", codec.JSON[User]())
	require.NoError(t, err)

	key := store.Key{Namespace: []string{"eu", "berlin"}, ID: "alice"}
	require.NoError(t, users.Write(s.ctx, key, User{Name: "Ada"}))

	got, err := users.Read(s.ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	// The staged object must be gone once the write has landed.
	entries, err := s.gw.ReadDir(s.ctx, "tmp")
	require.NoError(t, err)
	assert.Empty(t, entries)

	ids, err := users.List(s.ctx, []string{"eu", "berlin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	require.NoError(t, users.Delete(s.ctx, key))
	_, err = users.Read(s.ctx, key)
	assert.True(t, dserrors.IsObjectNotFound(err), "read after delete should be OBJECT_NOT_FOUND, got %v", err)

	// Deleting again stays silent.
	assert.NoError(t, users.Delete(s.ctx, key))
}
