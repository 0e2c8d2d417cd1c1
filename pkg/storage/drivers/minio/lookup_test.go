package minio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// fakeMinio answers bucket checks with 200 and object stats with statStatus.
type fakeMinio struct {
	statStatus int
	deletes    atomic.Int32
}

func (f *fakeMinio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/bucket/":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead && r.URL.Path == "/bucket":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		w.WriteHeader(f.statStatus)
	case r.Method == http.MethodDelete:
		f.deletes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newLookupBackend(t *testing.T, fake *fakeMinio) *storage.Backend {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	d, err := New(Options{Endpoint: u.Host, Key: "minioadmin", Secret: "minioadmin", Region: "us-east-1"})
	require.NoError(t, err)

	b, err := storage.NewBackend(context.Background(), storage.Config{Driver: Name, Container: "bucket"}, d)
	require.NoError(t, err)
	return b
}

func TestContainer_LookupErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bad request is not a missing object", func(t *testing.T) {
		t.Parallel()
		fake := &fakeMinio{statStatus: http.StatusBadRequest}
		b := newLookupBackend(t, fake)

		_, err := b.Container().GetObject(ctx, "resources/abc/f.csv")
		require.ErrorIs(t, err, storage.ErrProviderFailed)
		assert.NotErrorIs(t, err, storage.ErrObjectNotFound)

		require.ErrorIs(t, b.Apply(ctx, "abc", storage.Clear{PriorFilename: "f.csv"}), storage.ErrDeleteFailed)
		assert.Zero(t, fake.deletes.Load())

		_, _, err = b.ResolveURL(ctx, "abc", "f.csv")
		require.ErrorIs(t, err, storage.ErrResolveFailed)
	})

	t.Run("missing object clears", func(t *testing.T) {
		t.Parallel()
		fake := &fakeMinio{statStatus: http.StatusNotFound}
		b := newLookupBackend(t, fake)

		require.NoError(t, b.Apply(ctx, "abc", storage.Clear{PriorFilename: "f.csv"}))
		assert.Zero(t, fake.deletes.Load())

		_, ok, err := b.ResolveURL(ctx, "abc", "f.csv")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
