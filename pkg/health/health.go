package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	defaultTimeout = 5 * time.Second

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ErrCheckFailed is returned by Report.Err when at least one check failed.
var ErrCheckFailed = errors.New("health: check failed")

// CheckFunc reports nil when the dependency is usable.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name to its check.
type Checks map[string]CheckFunc

// Report is the aggregated outcome of a run.
type Report struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the outcome of one named check.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Names returns the check names in sorted order.
func (r *Report) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns ErrCheckFailed joined with each failing check, or nil.
func (r *Report) Err() error {
	if r.Status == StatusHealthy {
		return nil
	}
	errs := []error{ErrCheckFailed}
	for _, name := range r.Names() {
		if c := r.Checks[name]; c.Status == StatusUnhealthy {
			errs = append(errs, errors.New(name+": "+c.Error))
		}
	}
	return errors.Join(errs...)
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a run.
type Option func(*config)

// WithTimeout bounds the whole run. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger logs failing checks at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes all checks in parallel and aggregates the result.
func Run(ctx context.Context, checks Checks, opts ...Option) *Report {
	return run(ctx, checks, newConfig(opts...))
}

func run(ctx context.Context, checks Checks, cfg *config) *Report {
	report := &Report{Status: StatusHealthy, Checks: make(map[string]Check, len(checks))}
	if len(checks) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range checks {
		wg.Go(func() {
			start := time.Now()
			err := check(ctx)

			result := Check{Status: StatusHealthy, Duration: time.Since(start).Round(time.Millisecond).String()}
			if err != nil {
				result.Status = StatusUnhealthy
				result.Error = err.Error()
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			report.Checks[name] = result
			if err != nil {
				report.Status = StatusUnhealthy
			}
			mu.Unlock()
		})
	}
	wg.Wait()

	return report
}
