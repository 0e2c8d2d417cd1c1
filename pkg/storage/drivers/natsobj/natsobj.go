// Package natsobj is the storage driver for NATS JetStream object stores.
//
// A container is an existing object store bucket. Objects have no public
// URL, so ResolveURL on this provider always reports absent; serve the bytes
// through the host application instead.
//
//	CLOUDSTORAGE_DRIVER=NATS
//	CLOUDSTORAGE_DRIVER_OPTIONS={"url": "nats://localhost:4222", "credentials_file": "/etc/nats/app.creds"}
package natsobj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Name is the provider identifier.
const Name = "NATS"

// metaContentType is the object metadata key holding the MIME type.
const metaContentType = "content-type"

// Schema validates the driver options.
const Schema = `{
	"type": "object",
	"required": ["url"],
	"properties": {
		"url":              {"type": "string", "minLength": 1},
		"credentials_file": {"type": "string"},
		"user":             {"type": "string"},
		"password":         {"type": "string"},
		"token":            {"type": "string"},
		"name":             {"type": "string"},
		"timeout":          {"type": "string"}
	}
}`

// Options configures the driver.
type Options struct {
	URL             string `json:"url"`
	CredentialsFile string `json:"credentials_file"`
	User            string `json:"user"`
	Password        string `json:"password"`
	Token           string `json:"token"`
	Name            string `json:"name"`

	// Timeout is the connect timeout as a Go duration string. Default 5s.
	Timeout string `json:"timeout"`
}

// Provider returns the registry entry for the NATS object store driver.
func Provider() storage.Provider {
	return storage.Provider{
		Name:   Name,
		Schema: Schema,
		New: func(_ context.Context, opts storage.Options) (storage.Driver, error) {
			var o Options
			if err := opts.Decode(&o); err != nil {
				return nil, err
			}
			return New(o)
		},
	}
}

// Driver holds one NATS connection.
type Driver struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// New connects to NATS and opens a JetStream context.
func New(o Options) (*Driver, error) {
	timeout := 5 * time.Second
	if o.Timeout != "" {
		d, err := time.ParseDuration(o.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: timeout: %v", storage.ErrConfigParse, err)
		}
		timeout = d
	}

	name := o.Name
	if name == "" {
		name = "cloudstorage"
	}

	natsOpts := []nats.Option{nats.Name(name), nats.Timeout(timeout)}
	switch {
	case o.CredentialsFile != "":
		natsOpts = append(natsOpts, nats.UserCredentials(o.CredentialsFile))
	case o.Token != "":
		natsOpts = append(natsOpts, nats.Token(o.Token))
	case o.User != "":
		natsOpts = append(natsOpts, nats.UserInfo(o.User, o.Password))
	}

	conn, err := nats.Connect(o.URL, natsOpts...)
	if err != nil {
		if errors.Is(err, nats.ErrAuthorization) || errors.Is(err, nats.ErrAuthExpired) {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("natsobj: connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natsobj: jetstream: %w", err)
	}

	return &Driver{conn: conn, js: js}, nil
}

// Container binds an existing object store bucket.
func (d *Driver) Container(ctx context.Context, name string) (storage.Container, error) {
	store, err := d.js.ObjectStore(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrContainerNotFound, err)
	}
	return &Container{store: store, name: name}, nil
}

// Close drains and closes the connection.
func (d *Driver) Close() error {
	if d.conn.IsClosed() {
		return nil
	}
	return d.conn.Drain()
}

// Container is one object store bucket.
type Container struct {
	store jetstream.ObjectStore
	name  string
}

// Name returns the bucket name.
func (c *Container) Name() string {
	return c.name
}

// UploadStream chunks body into the object store, replacing any object at path.
func (c *Container) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	meta := jetstream.ObjectMeta{Name: path}
	if contentType != "" {
		meta.Metadata = map[string]string{metaContentType: contentType}
	}

	if _, err := c.store.Put(ctx, meta, body); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	return nil
}

// GetObject returns object info. Deleted objects are reported as missing.
func (c *Container) GetObject(ctx context.Context, path string) (*storage.Object, error) {
	info, err := c.store.GetInfo(ctx, path)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrProviderFailed, err)
	}
	if info.Deleted {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, path)
	}

	return &storage.Object{
		Path:         path,
		Size:         int64(info.Size),
		ContentType:  info.Metadata[metaContentType],
		ETag:         info.Digest,
		LastModified: info.ModTime,
	}, nil
}

// DeleteObject removes obj.
func (c *Container) DeleteObject(ctx context.Context, obj *storage.Object) error {
	if err := c.store.Delete(ctx, obj.Path); err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, obj.Path)
		}
		return fmt.Errorf("%w: %v", storage.ErrDeleteFailed, err)
	}
	return nil
}

// PublicURL is unsupported.
func (c *Container) PublicURL(context.Context, *storage.Object) (string, bool, error) {
	return "", false, nil
}

var (
	_ storage.Driver    = (*Driver)(nil)
	_ storage.Container = (*Container)(nil)
)
