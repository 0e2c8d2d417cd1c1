package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/cloudstorage/pkg/urlcache"
)

// Backend is the configured storage backend: one driver, one bound container
// and the secure-URL capability detected at startup. It is safe for
// concurrent use and lives for the whole process.
type Backend struct {
	driver    Driver
	container Container
	signer    URLSigner
	cache     urlcache.Cache
	now       func() time.Time
	cfg       Config
	cacheTTL  time.Duration

	// writes counts uploads and clears. A cached lookup that overlapped a
	// write is returned but not stored.
	writes atomic.Uint64
}

// Option configures a Backend.
type Option func(*backendOptions)

type backendOptions struct {
	registerer prometheus.Registerer
	cache      urlcache.Cache
	now        func() time.Time
	cacheTTL   time.Duration
}

// WithMetrics records per-operation counters and latency histograms in reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *backendOptions) {
		o.registerer = reg
	}
}

// WithURLCache caches URLs found on the generic resolution path for ttl.
// Signed URLs are never cached. Zero ttl uses the cache default.
//
// Writes through this Backend invalidate the entry. Writes made by another
// process are only seen once the entry expires, so replicas sharing a
// container should share a Redis cache or keep ttl short.
func WithURLCache(c urlcache.Cache, ttl time.Duration) Option {
	return func(o *backendOptions) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// WithClock overrides the time source used for signed-URL expiry.
func WithClock(now func() time.Time) Option {
	return func(o *backendOptions) {
		o.now = now
	}
}

// Open resolves cfg.Driver in reg, builds the driver from cfg.DriverOptions
// and binds cfg.Container. Every failure is fatal and leaves nothing open.
func Open(ctx context.Context, cfg Config, reg *Registry, opts ...Option) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	driver, err := reg.Construct(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewBackend(ctx, cfg, driver, opts...)
}

// NewBackend binds cfg.Container on an already constructed driver.
// The driver is closed if binding fails.
func NewBackend(ctx context.Context, cfg Config, driver Driver, opts ...Option) (*Backend, error) {
	o := &backendOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	container, err := driver.Container(ctx, cfg.Container)
	if err != nil {
		return nil, errors.Join(Wrap(err, ErrContainerNotFound), driver.Close())
	}

	var signer URLSigner
	if sp, ok := driver.(SignerProvider); ok {
		if s, ok := sp.Signer(); ok {
			signer = s
		}
	}

	if o.registerer != nil {
		m, err := newContainerMetrics(o.registerer)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("storage: register metrics: %w", err), driver.Close())
		}
		name := cfg.driverName()
		container = &instrumentedContainer{Container: container, metrics: m, driver: name}
		if signer != nil {
			signer = &instrumentedSigner{URLSigner: signer, metrics: m, driver: name}
		}
	}

	return &Backend{
		cfg:       cfg,
		driver:    driver,
		container: container,
		signer:    signer,
		cache:     o.cache,
		cacheTTL:  o.cacheTTL,
		now:       o.now,
	}, nil
}

// AdvancedSecureURLSupport reports whether the driver can sign URLs.
// It is decided once in Open and does not change.
func (b *Backend) AdvancedSecureURLSupport() bool {
	return b.signer != nil
}

// Config returns the configuration the backend was opened with.
func (b *Backend) Config() Config {
	return b.cfg
}

// Container returns the bound container.
func (b *Backend) Container() Container {
	return b.container
}

// Close releases the driver.
func (b *Backend) Close() error {
	return b.driver.Close()
}

// Healthcheck returns a health check that re-binds the configured container.
func Healthcheck(b *Backend) func(context.Context) error {
	return func(ctx context.Context) error {
		if b == nil {
			return fmt.Errorf("%w: backend is nil", ErrContainerNotFound)
		}
		if _, err := b.driver.Container(ctx, b.cfg.Container); err != nil {
			return Wrap(err, ErrContainerNotFound)
		}
		return nil
	}
}
