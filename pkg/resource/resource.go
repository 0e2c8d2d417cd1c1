// Package resource keeps resource records and runs the edit workflow that
// turns a form submission into a storage intent.
//
// A record whose URLType is "upload" owns a file in the storage backend; its
// URL field holds the munged filename. Any other record is a plain link and
// URL is the link target.
package resource

import (
	"context"
	"errors"
	"time"
)

// URLTypeUpload marks a record backed by an uploaded file.
const URLTypeUpload = "upload"

var (
	ErrNotFound       = errors.New("resource: not found")
	ErrNotUploaded    = errors.New("resource: not an uploaded file")
	ErrURLUnavailable = errors.New("resource: no download URL available")
	ErrInvalidInput   = errors.New("resource: invalid input")
)

// Record is one resource as persisted by a Store.
type Record struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	ID        string    `json:"id" db:"id"`
	PackageID string    `json:"package_id" db:"package_id"`
	Name      string    `json:"name" db:"name"`
	URL       string    `json:"url" db:"url"`
	URLType   string    `json:"url_type" db:"url_type"`
}

// Uploaded reports whether the record owns a stored file.
func (r Record) Uploaded() bool {
	return r.URLType == URLTypeUpload
}

// Store persists records. Get reports ErrNotFound for unknown ids.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)

	// ListUploads pages through uploaded records ordered by id, starting
	// after the given id ("" for the first page).
	ListUploads(ctx context.Context, after string, limit int) ([]Record, error)
}
