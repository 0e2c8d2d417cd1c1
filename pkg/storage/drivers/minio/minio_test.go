package minio

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

func TestPublicURL(t *testing.T) {
	t.Parallel()

	obj := &storage.Object{Path: "resources/abc/f.csv"}

	t.Run("endpoint path style", func(t *testing.T) {
		t.Parallel()
		d, err := New(Options{Endpoint: "localhost:9000", Key: "k", Secret: "s"})
		require.NoError(t, err)

		c := &Container{client: d.client, bucket: "bucket", publicURL: d.publicURL}
		u, ok, err := c.PublicURL(context.Background(), obj)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "http://localhost:9000/bucket/resources/abc/f.csv", u)
	})

	t.Run("secure endpoint", func(t *testing.T) {
		t.Parallel()
		d, err := New(Options{Endpoint: "s3.example.com", Key: "k", Secret: "s", Secure: true})
		require.NoError(t, err)

		c := &Container{client: d.client, bucket: "bucket"}
		u, _, err := c.PublicURL(context.Background(), obj)
		require.NoError(t, err)
		assert.Equal(t, "https://s3.example.com/bucket/resources/abc/f.csv", u)
	})

	t.Run("custom public url", func(t *testing.T) {
		t.Parallel()
		d, err := New(Options{Endpoint: "localhost:9000", Key: "k", Secret: "s", PublicURL: "https://cdn.example.com/"})
		require.NoError(t, err)

		c := &Container{client: d.client, bucket: "bucket", publicURL: d.publicURL}
		u, _, err := c.PublicURL(context.Background(), obj)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/resources/abc/f.csv", u)
	})
}

func TestNew_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Endpoint: "http://localhost:9000/path", Key: "k", Secret: "s"})
	assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		fallback error
		expected error
	}{
		{name: "no such key", err: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, fallback: storage.ErrObjectNotFound, expected: storage.ErrObjectNotFound},
		{name: "no such bucket", err: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}, fallback: storage.ErrUploadFailed, expected: storage.ErrContainerNotFound},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, fallback: storage.ErrContainerNotFound, expected: storage.ErrInvalidCredentials},
		{name: "bare forbidden", err: minio.ErrorResponse{StatusCode: http.StatusForbidden}, fallback: storage.ErrContainerNotFound, expected: storage.ErrInvalidCredentials},
		{name: "bare not found", err: minio.ErrorResponse{StatusCode: http.StatusNotFound}, fallback: storage.ErrProviderFailed, expected: storage.ErrObjectNotFound},
		{name: "lookup bad request", err: minio.ErrorResponse{Code: "BadRequest", StatusCode: http.StatusBadRequest}, fallback: storage.ErrProviderFailed, expected: storage.ErrProviderFailed},
		{name: "lookup slow down", err: minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}, fallback: storage.ErrProviderFailed, expected: storage.ErrProviderFailed},
		{name: "other", err: errors.New("connection refused"), fallback: storage.ErrDeleteFailed, expected: storage.ErrDeleteFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, wrapError(tt.err, tt.fallback), tt.expected)
		})
	}
}
