package gcs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudstorage "github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// fakeGCS serves the JSON API: bucket metadata succeeds, object metadata
// answers with objectStatus.
type fakeGCS struct {
	objectStatus int
	deletes      atomic.Int32
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodDelete:
		f.deletes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	case strings.Contains(r.URL.Path, "/o/"):
		if f.objectStatus != http.StatusOK {
			w.WriteHeader(f.objectStatus)
			_, _ = fmt.Fprintf(w, `{"error": {"code": %d, "message": "%s"}}`, f.objectStatus, http.StatusText(f.objectStatus))
			return
		}
		_, _ = fmt.Fprint(w, `{"bucket": "bucket", "name": "resources/abc/f.csv", "size": "3"}`)
	default:
		_, _ = fmt.Fprint(w, `{"name": "bucket"}`)
	}
}

func newLookupBackend(t *testing.T, fake *fakeGCS) *cloudstorage.Backend {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	d, err := New(context.Background(), Options{WithoutAuthentication: true, Endpoint: srv.URL + "/storage/v1/"})
	require.NoError(t, err)

	b, err := cloudstorage.NewBackend(context.Background(), cloudstorage.Config{Driver: Name, Container: "bucket"}, d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestContainer_LookupErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bad request is not a missing object", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGCS{objectStatus: http.StatusBadRequest}
		b := newLookupBackend(t, fake)

		_, err := b.Container().GetObject(ctx, "resources/abc/f.csv")
		require.ErrorIs(t, err, cloudstorage.ErrProviderFailed)
		assert.NotErrorIs(t, err, cloudstorage.ErrObjectNotFound)

		require.ErrorIs(t, b.Apply(ctx, "abc", cloudstorage.Clear{PriorFilename: "f.csv"}), cloudstorage.ErrDeleteFailed)
		assert.Zero(t, fake.deletes.Load())

		_, _, err = b.ResolveURL(ctx, "abc", "f.csv")
		require.ErrorIs(t, err, cloudstorage.ErrResolveFailed)
	})

	t.Run("missing object clears", func(t *testing.T) {
		t.Parallel()
		fake := &fakeGCS{objectStatus: http.StatusNotFound}
		b := newLookupBackend(t, fake)

		require.NoError(t, b.Apply(ctx, "abc", cloudstorage.Clear{PriorFilename: "f.csv"}))
		assert.Zero(t, fake.deletes.Load())
	})
}
