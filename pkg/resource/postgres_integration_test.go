//go:build integration

package resource_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/cloudstorage/pkg/db"
	"github.com/dmitrymomot/cloudstorage/pkg/logger"
	"github.com/dmitrymomot/cloudstorage/pkg/resource"
)

// startPostgres runs a disposable PostgreSQL and returns a migrated pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "cloudstorage",
				"POSTGRES_PASSWORD": "cloudstorage",
				"POSTGRES_DB":       "cloudstorage",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := db.Connect(ctx, db.Config{
		URL:           fmt.Sprintf("postgres://cloudstorage:cloudstorage@%s:%s/cloudstorage?sslmode=disable", host, port.Port()),
		RetryAttempts: 5,
		RetryInterval: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool, resource.Migrations(), "cloudstorage_migrations", logger.NewNope()))
	return pool
}

func TestPostgresStore(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	s := resource.NewPostgresStore(pool)

	id := uuid.NewString()

	t.Run("get unknown", func(t *testing.T) {
		_, err := s.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, resource.ErrNotFound)

		_, err = s.Get(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, resource.ErrNotFound)
	})

	t.Run("create and update", func(t *testing.T) {
		rec, err := s.Create(ctx, resource.Record{ID: id, PackageID: "pkg", Name: "Data", URL: "data.csv", URLType: resource.URLTypeUpload})
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())

		rec.URL, rec.URLType = "https://example.com", ""
		updated, err := s.Update(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", updated.URL)
		assert.False(t, updated.Uploaded())

		_, err = s.Update(ctx, resource.Record{ID: uuid.NewString()})
		assert.ErrorIs(t, err, resource.ErrNotFound)
	})

	t.Run("list uploads", func(t *testing.T) {
		for range 3 {
			_, err := s.Create(ctx, resource.Record{ID: uuid.NewString(), URL: "f.bin", URLType: resource.URLTypeUpload})
			require.NoError(t, err)
		}

		first, err := s.ListUploads(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, first, 2)

		rest, err := s.ListUploads(ctx, first[1].ID, 10)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Greater(t, rest[0].ID, first[1].ID)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		assert.NoError(t, db.Migrate(ctx, pool, resource.Migrations(), "cloudstorage_migrations", logger.NewNope()))
	})
}
