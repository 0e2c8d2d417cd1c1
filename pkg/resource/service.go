package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cloudstorage/pkg/filename"
	"github.com/dmitrymomot/cloudstorage/pkg/logger"
	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Backend is the part of storage.Backend the service drives.
type Backend interface {
	Apply(ctx context.Context, resourceID string, intent storage.Intent) error
	ResolveURL(ctx context.Context, resourceID, name string) (string, bool, error)
}

// OrphanQueue schedules deletion of a stored file that no record points at.
type OrphanQueue interface {
	EnqueueOrphan(ctx context.Context, resourceID, filename string) error
}

// Upload is a file submitted with a save.
type Upload struct {
	Body        io.Reader
	Filename    string
	ContentType string
}

// SaveInput is one create or edit submission. An empty ID creates a record.
type SaveInput struct {
	Upload *Upload

	// Name and URL replace the stored values when non-nil.
	Name *string
	URL  *string

	ID        string
	PackageID string

	// ClearUpload removes the stored file of an existing upload record and
	// turns it into a link to URL.
	ClearUpload bool
}

// Service runs the resource edit workflow.
type Service struct {
	store   Store
	backend Backend
	orphans OrphanQueue
	log     *slog.Logger
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithOrphanQueue enables deferred deletion of files left behind by a
// rename or a failed clear.
func WithOrphanQueue(q OrphanQueue) Option {
	return func(s *Service) {
		s.orphans = q
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIDGenerator overrides the UUID v4 id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService creates a service on store and backend.
func NewService(store Store, backend Backend, opts ...Option) *Service {
	s := &Service{
		store:   store,
		backend: backend,
		log:     logger.NewNope(),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the record with id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.Get(ctx, id)
}

// Save persists the record, then applies the storage intent derived from the
// submission. The record is written first so a new resource has an id to
// store its file under. Storage errors are returned after the record has
// been saved and are not rolled back.
func (s *Service) Save(ctx context.Context, in SaveInput) (Record, error) {
	var (
		rec    Record
		exists bool
	)
	if in.ID != "" {
		existing, err := s.store.Get(ctx, in.ID)
		if err != nil {
			return Record{}, err
		}
		rec, exists = existing, true
	} else {
		rec = Record{ID: s.newID(), PackageID: in.PackageID}
	}

	var prior string
	if exists && rec.Uploaded() {
		prior = rec.URL
	}

	var (
		body io.Reader
		name string
	)
	if in.Upload != nil {
		body, name = in.Upload.Body, in.Upload.Filename
	}

	intent, err := storage.NewIntent(body, name, in.ClearUpload && exists, prior)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if in.Name != nil {
		rec.Name = strings.TrimSpace(*in.Name)
	}

	switch it := intent.(type) {
	case storage.Upload:
		it.ContentType = in.Upload.ContentType
		intent = it
		rec.URL = filename.Munge(it.Filename)
		rec.URLType = URLTypeUpload
	case storage.Clear:
		rec.URLType = ""
		rec.URL = ""
		if in.URL != nil {
			rec.URL = strings.TrimSpace(*in.URL)
		}
	default:
		if in.URL != nil && !rec.Uploaded() {
			rec.URL = strings.TrimSpace(*in.URL)
		}
	}

	if exists {
		rec, err = s.store.Update(ctx, rec)
	} else {
		rec, err = s.store.Create(ctx, rec)
	}
	if err != nil {
		return Record{}, err
	}

	ctx = logger.WithResourceID(ctx, rec.ID)
	if err := s.backend.Apply(ctx, rec.ID, intent); err != nil {
		if _, isClear := intent.(storage.Clear); isClear && errors.Is(err, storage.ErrDeleteFailed) {
			s.enqueueOrphan(ctx, rec.ID, prior)
		}
		s.log.ErrorContext(ctx, "storage apply failed", slog.String("error", err.Error()))
		return rec, err
	}

	if _, isUpload := intent.(storage.Upload); isUpload && prior != "" && prior != rec.URL {
		s.enqueueOrphan(ctx, rec.ID, prior)
	}

	return rec, nil
}

func (s *Service) enqueueOrphan(ctx context.Context, id, name string) {
	if s.orphans == nil {
		return
	}
	if err := s.orphans.EnqueueOrphan(ctx, id, name); err != nil {
		s.log.WarnContext(ctx, "failed to enqueue orphan delete",
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
		return
	}
	s.log.InfoContext(ctx, "orphan delete enqueued", slog.String("filename", name))
}

// URL resolves the download URL of an uploaded record.
func (s *Service) URL(ctx context.Context, id string) (string, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !rec.Uploaded() {
		return "", fmt.Errorf("%w: %s", ErrNotUploaded, id)
	}
	return s.resolve(ctx, rec.ID, rec.URL)
}

// URLFor resolves the download URL for an explicit filename of an uploaded record.
func (s *Service) URLFor(ctx context.Context, id, name string) (string, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !rec.Uploaded() {
		return "", fmt.Errorf("%w: %s", ErrNotUploaded, id)
	}
	return s.resolve(ctx, rec.ID, name)
}

func (s *Service) resolve(ctx context.Context, id, name string) (string, error) {
	u, ok, err := s.backend.ResolveURL(ctx, id, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrURLUnavailable, id)
	}
	return u, nil
}
