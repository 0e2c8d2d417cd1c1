package storage

import (
	"context"
	"io"
	"time"
)

// Driver is a live handle to one storage provider, built from a Config by the
// provider's factory. A Driver is not a network connection; it is safe for
// concurrent use and one instance per process is enough.
type Driver interface {
	// Container binds a named bucket/container.
	// Returns ErrContainerNotFound if it does not exist. Containers are never created.
	Container(ctx context.Context, name string) (Container, error)

	// Close releases provider clients.
	Close() error
}

// Container is a named bucket bound to a Driver. All paths are relative to it.
type Container interface {
	// Name returns the bucket/container name.
	Name() string

	// UploadStream writes body to path, replacing any existing object.
	UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error

	// GetObject returns the object stored at path.
	// Returns ErrObjectNotFound only when the provider says nothing is stored
	// there, and ErrProviderFailed when the lookup itself fails.
	GetObject(ctx context.Context, path string) (*Object, error)

	// DeleteObject removes obj. Returns ErrObjectNotFound if it is already gone.
	DeleteObject(ctx context.Context, obj *Object) error

	// PublicURL returns the provider-native public/CDN URL for obj.
	// ok is false when the provider has no public URL concept.
	PublicURL(ctx context.Context, obj *Object) (url string, ok bool, err error)
}

// URLSigner issues time-limited, read-only URLs for a single object.
type URLSigner interface {
	// SignedURL returns a URL granting read access to container/path until expiry.
	SignedURL(ctx context.Context, container, path string, expiry time.Time) (string, error)
}

// SignerProvider is implemented by drivers that can sign URLs directly with
// their provider credentials. ok is false when the driver was built without
// credentials that allow signing.
type SignerProvider interface {
	Signer() (signer URLSigner, ok bool)
}

// Object is a provider-returned handle to stored bytes.
type Object struct {
	// LastModified is the provider's modification time, zero if unknown.
	LastModified time.Time

	// Extra carries provider-specific metadata.
	Extra map[string]string

	// Path is the object key within its container.
	Path string

	// ContentType is the stored MIME type.
	ContentType string

	// ETag is the provider's entity tag, if any.
	ETag string

	// Size is the object size in bytes.
	Size int64
}

// ExtraURL is the Extra key under which providers report a direct object URL.
const ExtraURL = "url"

// MetadataURL returns the provider-reported direct URL, if the provider
// populated one.
func (o *Object) MetadataURL() (string, bool) {
	if o == nil || o.Extra == nil {
		return "", false
	}
	u, ok := o.Extra[ExtraURL]
	return u, ok && u != ""
}

// Default values.
const (
	// SignedURLTTL is the lifetime of URLs issued on the secure-URL path.
	SignedURLTTL = time.Hour

	// PathPrefix is the first segment of every derived storage path.
	PathPrefix = "resources"
)
