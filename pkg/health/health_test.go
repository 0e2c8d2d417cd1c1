package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cloudstorage/pkg/health"
)

func ok(context.Context) error { return nil }

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("no checks", func(t *testing.T) {
		t.Parallel()
		r := health.Run(context.Background(), nil)
		assert.Equal(t, health.StatusHealthy, r.Status)
		assert.NoError(t, r.Err())
	})

	t.Run("one failing", func(t *testing.T) {
		t.Parallel()
		r := health.Run(context.Background(), health.Checks{
			"storage":  ok,
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		})

		assert.Equal(t, health.StatusUnhealthy, r.Status)
		assert.Equal(t, []string{"postgres", "storage"}, r.Names())
		assert.Equal(t, health.StatusHealthy, r.Checks["storage"].Status)
		assert.Equal(t, "connection refused", r.Checks["postgres"].Error)

		err := r.Err()
		assert.ErrorIs(t, err, health.ErrCheckFailed)
		assert.Contains(t, err.Error(), "postgres: connection refused")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		r := health.Run(context.Background(), health.Checks{
			"slow": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}, health.WithTimeout(20*time.Millisecond))

		assert.Equal(t, health.StatusUnhealthy, r.Status)
		assert.Contains(t, r.Checks["slow"].Error, "deadline exceeded")
	})
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	failing := health.Checks{"redis": func(context.Context) error { return errors.New("down") }}

	t.Run("plain text", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		health.ReadinessHandler(health.Checks{"storage": ok})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy\nstorage: healthy\n", rec.Body.String())
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("plain text unhealthy", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		health.ReadinessHandler(failing)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy\nredis: unhealthy\n", rec.Body.String())
	})

	t.Run("head has no body", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		health.ReadinessHandler(failing)(rec, httptest.NewRequest(http.MethodHead, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("json unhealthy", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		health.ReadinessHandler(failing)(rec, httptest.NewRequest(http.MethodGet, "/health/ready?format=json", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var report health.Report
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		assert.Equal(t, health.StatusUnhealthy, report.Status)
		assert.Equal(t, "down", report.Checks["redis"].Error)
	})

	t.Run("accept header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		health.ReadinessHandler(failing)(rec, req)

		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy\n", rec.Body.String())
}
