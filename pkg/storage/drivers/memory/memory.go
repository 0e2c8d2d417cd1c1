// Package memory is an in-process storage driver for tests and local runs.
//
// Containers must be declared when the driver is built; binding an
// undeclared name fails just as a missing bucket does on a real provider.
//
//	CLOUDSTORAGE_DRIVER=MEMORY
//	CLOUDSTORAGE_DRIVER_OPTIONS={"containers": ["resources"], "base_url": "http://localhost:8080/files"}
package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Name is the provider identifier.
const Name = "MEMORY"

// Schema validates the driver options.
const Schema = `{
	"type": "object",
	"properties": {
		"containers": {"type": "array", "items": {"type": "string", "minLength": 1}},
		"base_url":   {"type": "string"}
	},
	"additionalProperties": false
}`

// Options configures the driver.
type Options struct {
	// BaseURL enables public URLs as "{BaseURL}/{container}/{path}".
	BaseURL string `json:"base_url"`

	// Containers lists the container names that exist.
	Containers []string `json:"containers"`
}

// Provider returns the registry entry for the memory driver.
func Provider() storage.Provider {
	return storage.Provider{
		Name:   Name,
		Schema: Schema,
		New: func(_ context.Context, opts storage.Options) (storage.Driver, error) {
			var o Options
			if err := opts.Decode(&o); err != nil {
				return nil, err
			}
			return New(o), nil
		},
	}
}

type object struct {
	modified    time.Time
	contentType string
	etag        string
	data        []byte
}

// Driver keeps objects in memory. It is safe for concurrent use.
type Driver struct {
	containers map[string]*Container
	baseURL    string
}

// New creates a driver with the declared containers.
func New(o Options) *Driver {
	d := &Driver{
		containers: make(map[string]*Container, len(o.Containers)),
		baseURL:    strings.TrimRight(o.BaseURL, "/"),
	}
	for _, name := range o.Containers {
		d.containers[name] = &Container{
			name:    name,
			baseURL: d.baseURL,
			objects: make(map[string]object),
		}
	}
	return d
}

// Container binds a declared container.
func (d *Driver) Container(_ context.Context, name string) (storage.Container, error) {
	c, ok := d.containers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrContainerNotFound, name)
	}
	return c, nil
}

// Close is a no-op. Stored objects survive until the driver is garbage collected.
func (d *Driver) Close() error {
	return nil
}

// Container is one in-memory bucket.
type Container struct {
	objects map[string]object
	name    string
	baseURL string
	mu      sync.RWMutex
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.name
}

// UploadStream buffers body fully, then stores it. A failed read stores nothing.
func (c *Container) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("memory: read body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sum := md5.Sum(data)
	obj := object{
		modified:    time.Now().UTC(),
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
		data:        data,
	}

	c.mu.Lock()
	c.objects[path] = obj
	c.mu.Unlock()
	return nil
}

// GetObject returns the object metadata stored at path.
func (c *Container) GetObject(_ context.Context, path string) (*storage.Object, error) {
	c.mu.RLock()
	obj, ok := c.objects[path]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, path)
	}
	return &storage.Object{
		Path:         path,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		ETag:         obj.etag,
		LastModified: obj.modified,
	}, nil
}

// DeleteObject removes obj.
func (c *Container) DeleteObject(_ context.Context, obj *storage.Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.objects[obj.Path]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, obj.Path)
	}
	delete(c.objects, obj.Path)
	return nil
}

// PublicURL returns "{base_url}/{container}/{path}" when base_url is set.
func (c *Container) PublicURL(_ context.Context, obj *storage.Object) (string, bool, error) {
	if c.baseURL == "" {
		return "", false, nil
	}
	u, err := url.JoinPath(c.baseURL, c.name, obj.Path)
	if err != nil {
		return "", false, err
	}
	return u, true, nil
}

// Len returns the number of stored objects.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

var (
	_ storage.Driver    = (*Driver)(nil)
	_ storage.Container = (*Container)(nil)
)
