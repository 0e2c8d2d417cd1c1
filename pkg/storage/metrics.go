package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation label values.
const (
	opUpload    = "upload"
	opGet       = "get"
	opDelete    = "delete"
	opPublicURL = "public_url"
	opSign      = "sign"
)

// Result label values.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

type containerMetrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newContainerMetrics creates the collectors and registers them with reg.
// Collectors already registered by another Backend are reused.
func newContainerMetrics(reg prometheus.Registerer) (*containerMetrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudstorage",
		Subsystem: "container",
		Name:      "operations_total",
		Help:      "Total number of container operations",
	}, []string{"driver", "operation", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cloudstorage",
		Subsystem: "container",
		Name:      "operation_duration_seconds",
		Help:      "Container operation duration in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"driver", "operation"})

	var err error
	if ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &containerMetrics{ops: ops, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *containerMetrics) observe(driver, op string, start time.Time, err error) {
	result := resultOK
	switch {
	case errors.Is(err, ErrObjectNotFound):
		result = resultNotFound
	case err != nil:
		result = resultError
	}
	m.ops.WithLabelValues(driver, op, result).Inc()
	m.duration.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
}

// instrumentedContainer records metrics around every Container call.
type instrumentedContainer struct {
	Container
	metrics *containerMetrics
	driver  string
}

func (c *instrumentedContainer) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	start := time.Now()
	err := c.Container.UploadStream(ctx, path, body, contentType)
	c.metrics.observe(c.driver, opUpload, start, err)
	return err
}

func (c *instrumentedContainer) GetObject(ctx context.Context, path string) (*Object, error) {
	start := time.Now()
	obj, err := c.Container.GetObject(ctx, path)
	c.metrics.observe(c.driver, opGet, start, err)
	return obj, err
}

func (c *instrumentedContainer) DeleteObject(ctx context.Context, obj *Object) error {
	start := time.Now()
	err := c.Container.DeleteObject(ctx, obj)
	c.metrics.observe(c.driver, opDelete, start, err)
	return err
}

func (c *instrumentedContainer) PublicURL(ctx context.Context, obj *Object) (string, bool, error) {
	start := time.Now()
	u, ok, err := c.Container.PublicURL(ctx, obj)
	c.metrics.observe(c.driver, opPublicURL, start, err)
	return u, ok, err
}

// instrumentedSigner records metrics around URL signing.
type instrumentedSigner struct {
	URLSigner
	metrics *containerMetrics
	driver  string
}

func (s *instrumentedSigner) SignedURL(ctx context.Context, container, path string, expiry time.Time) (string, error) {
	start := time.Now()
	u, err := s.URLSigner.SignedURL(ctx, container, path, expiry)
	s.metrics.observe(s.driver, opSign, start, err)
	return u, err
}
