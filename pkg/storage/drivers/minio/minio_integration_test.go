//go:build integration

package minio_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/minio"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
	testBucket    = "resources"
)

// startMinio runs a MinIO server with one pre-created bucket and returns its endpoint.
func startMinio(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     testAccessKey,
				"MINIO_ROOT_PASSWORD": testSecretKey,
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start MinIO container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("%s:%s", host, port.Port())

	admin, err := miniogo.New(endpoint, &miniogo.Options{Creds: credentials.NewStaticV4(testAccessKey, testSecretKey, "")})
	require.NoError(t, err)
	require.NoError(t, admin.MakeBucket(ctx, testBucket, miniogo.MakeBucketOptions{}))

	return endpoint
}

func TestMinio_Backend(t *testing.T) {
	endpoint := startMinio(t)
	ctx := context.Background()
	reg := storage.NewRegistry(minio.Provider())

	cfg := storage.Config{
		Driver:        "MINIO",
		DriverOptions: fmt.Sprintf(`{'endpoint': '%s', 'key': '%s', 'secret': '%s'}`, endpoint, testAccessKey, testSecretKey),
		Container:     testBucket,
	}

	t.Run("missing bucket", func(t *testing.T) {
		c := cfg
		c.Container = "does-not-exist"
		_, err := storage.Open(ctx, c, reg)
		assert.ErrorIs(t, err, storage.ErrContainerNotFound)
	})

	t.Run("bad credentials", func(t *testing.T) {
		c := cfg
		c.DriverOptions = fmt.Sprintf(`{"endpoint": %q, "key": "nobody", "secret": "wrong-secret"}`, endpoint)
		_, err := storage.Open(ctx, c, reg)
		assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
	})

	b, err := storage.Open(ctx, cfg, reg)
	require.NoError(t, err)
	defer b.Close()
	assert.False(t, b.AdvancedSecureURLSupport())

	t.Run("upload resolve clear", func(t *testing.T) {
		require.NoError(t, b.Apply(ctx, "res-1", storage.Upload{
			Body:     strings.NewReader("a,b\n1,2\n"),
			Filename: "Data File.csv",
		}))

		obj, err := b.Container().GetObject(ctx, "resources/res-1/data-file.csv")
		require.NoError(t, err)
		assert.Equal(t, int64(8), obj.Size)
		assert.Equal(t, "text/csv", obj.ContentType)

		u, ok, err := b.ResolveURL(ctx, "res-1", "data-file.csv")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("http://%s/%s/resources/res-1/data-file.csv", endpoint, testBucket), u)

		require.NoError(t, b.Apply(ctx, "res-1", storage.Clear{PriorFilename: "data-file.csv"}))

		_, ok, err = b.ResolveURL(ctx, "res-1", "data-file.csv")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear missing object", func(t *testing.T) {
		assert.NoError(t, b.Apply(ctx, "res-2", storage.Clear{PriorFilename: "never.csv"}))
	})

	t.Run("upload replaces", func(t *testing.T) {
		for _, body := range []string{"first", "second version"} {
			require.NoError(t, b.Apply(ctx, "res-3", storage.Upload{Body: strings.NewReader(body), Filename: "f.txt"}))
		}
		obj, err := b.Container().GetObject(ctx, "resources/res-3/f.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(len("second version")), obj.Size)
	})

	t.Run("healthcheck", func(t *testing.T) {
		assert.NoError(t, storage.Healthcheck(b)(ctx))
	})
}
