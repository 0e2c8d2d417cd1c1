package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/cloudstorage/pkg/logger"
)

// Config holds queue settings.
type Config struct {
	// ReconcileSchedule is a five-field cron expression. "off" or empty
	// disables the periodic reconcile.
	ReconcileSchedule string `env:"CLEANUP_RECONCILE_SCHEDULE" envDefault:"0 3 * * *"`

	Workers     int `env:"CLEANUP_WORKERS" envDefault:"5"`
	MaxAttempts int `env:"CLEANUP_MAX_ATTEMPTS" envDefault:"10"`
}

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the manager and worker logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics exports the reconcile result as a gauge.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// Manager enqueues cleanup jobs and, once started, works them.
type Manager struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	log    *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewManager builds the River client. Jobs may be enqueued before Start.
func NewManager(pool *pgxpool.Pool, backend Backend, records Records, cfg Config, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	o := &options{logger: logger.NewNope()}
	for _, opt := range opts {
		opt(o)
	}

	missing, err := missingGauge(o.registerer)
	if err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &orphanWorker{backend: backend, records: records, log: o.logger})
	river.AddWorker(workers, &reconcileWorker{backend: backend, uploads: records, missing: missing, log: o.logger})

	var periodic []*river.PeriodicJob
	if cfg.ReconcileSchedule != "" && cfg.ReconcileSchedule != "off" {
		schedule, err := parseSchedule(cfg.ReconcileSchedule)
		if err != nil {
			return nil, err
		}
		periodic = append(periodic, river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return ReconcileArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: false},
		))
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       map[string]river.QueueConfig{QueueName: {MaxWorkers: max(cfg.Workers, 1)}},
		Workers:      workers,
		PeriodicJobs: periodic,
		MaxAttempts:  cfg.MaxAttempts,
		Logger:       o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup: create client: %w", err)
	}

	return &Manager{pool: pool, client: client, log: o.logger}, nil
}

func missingGauge(reg prometheus.Registerer) (prometheus.Gauge, error) {
	if reg == nil {
		return nil, nil
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cloudstorage",
		Subsystem: "reconcile",
		Name:      "missing_objects",
		Help:      "Upload records whose file was missing at the last reconcile run.",
	})
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("cleanup: register metrics: %w", err)
	}
	return g, nil
}

// EnqueueOrphan schedules deletion of filename under resourceID.
func (m *Manager) EnqueueOrphan(ctx context.Context, resourceID, filename string) error {
	if _, err := m.client.Insert(ctx, OrphanArgs{ResourceID: resourceID, Filename: filename}, nil); err != nil {
		return fmt.Errorf("cleanup: enqueue: %w", err)
	}
	return nil
}

// EnqueueReconcile schedules a reconcile run now.
func (m *Manager) EnqueueReconcile(ctx context.Context) error {
	if _, err := m.client.Insert(ctx, ReconcileArgs{}, nil); err != nil {
		return fmt.Errorf("cleanup: enqueue: %w", err)
	}
	return nil
}

// Start begins working jobs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("cleanup: start: %w", err)
	}
	m.started = true
	m.log.Info("cleanup worker started", slog.String("queue", QueueName))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("cleanup: stop: %w", err)
	}
	m.started = false
	m.log.Info("cleanup worker stopped")
	return nil
}

// Healthcheck reports whether the manager runs and its database answers.
func Healthcheck(m *Manager) func(context.Context) error {
	return func(ctx context.Context) error {
		if m == nil {
			return errors.Join(ErrHealthcheckFailed, errors.New("manager is nil"))
		}

		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if !started {
			return errors.Join(ErrHealthcheckFailed, ErrNotStarted)
		}

		if err := m.pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Migrate applies River's schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), &rivermigrate.Config{Logger: log})
	if err != nil {
		return fmt.Errorf("cleanup: migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("cleanup: migrate: %w", err)
	}
	return nil
}

type cronSchedule struct {
	schedule cron.Schedule
}

func (s *cronSchedule) Next(current time.Time) time.Time {
	return s.schedule.Next(current)
}

func parseSchedule(expr string) (river.PeriodicSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, expr, err)
	}
	return &cronSchedule{schedule: schedule}, nil
}
