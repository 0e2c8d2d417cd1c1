// Package gcs is the storage driver for Google Cloud Storage.
//
// Credentials come from Application Default Credentials unless a service
// account file or JSON key is given:
//
//	CLOUDSTORAGE_DRIVER=GOOGLE_STORAGE
//	CLOUDSTORAGE_DRIVER_OPTIONS={"credentials_file": "/etc/gcs/sa.json"}
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	cloudstorage "github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Name is the provider identifier.
const Name = "GOOGLE_STORAGE"

// DefaultPublicURL is the public object host.
const DefaultPublicURL = "https://storage.googleapis.com"

// Schema validates the driver options.
const Schema = `{
	"type": "object",
	"properties": {
		"credentials_file":       {"type": "string", "minLength": 1},
		"credentials_json":       {"type": "string", "minLength": 1},
		"host":                   {"type": "string"},
		"public_url":             {"type": "string"},
		"without_authentication": {"type": "boolean"}
	},
	"not": {"required": ["credentials_file", "credentials_json"]}
}`

// Options configures the driver.
type Options struct {
	CredentialsFile       string `json:"credentials_file"`
	CredentialsJSON       string `json:"credentials_json"`
	Endpoint              string `json:"host"`
	PublicURL             string `json:"public_url"`
	WithoutAuthentication bool   `json:"without_authentication"`
}

// Provider returns the registry entry for the GCS driver.
func Provider() cloudstorage.Provider {
	return cloudstorage.Provider{
		Name:   Name,
		Schema: Schema,
		New: func(ctx context.Context, opts cloudstorage.Options) (cloudstorage.Driver, error) {
			var o Options
			if err := opts.Decode(&o); err != nil {
				return nil, err
			}
			return New(ctx, o)
		},
	}
}

// Driver holds one GCS client.
type Driver struct {
	client    *storage.Client
	publicURL string
}

// New creates a GCS driver.
func New(ctx context.Context, o Options) (*Driver, error) {
	var opts []option.ClientOption
	switch {
	case o.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	case o.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(o.CredentialsJSON)))
	case o.WithoutAuthentication:
		opts = append(opts, option.WithoutAuthentication())
	}
	if o.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cloudstorage.ErrInvalidCredentials, err)
	}

	publicURL := o.PublicURL
	if publicURL == "" {
		publicURL = DefaultPublicURL
	}

	return &Driver{client: client, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// Container binds an existing bucket.
func (d *Driver) Container(ctx context.Context, name string) (cloudstorage.Container, error) {
	bucket := d.client.Bucket(name)
	if _, err := bucket.Attrs(ctx); err != nil {
		return nil, wrapError(err, cloudstorage.ErrContainerNotFound)
	}
	return &Container{bucket: bucket, name: name, publicURL: d.publicURL}, nil
}

// Close closes the GCS client.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Container is one GCS bucket.
type Container struct {
	bucket    *storage.BucketHandle
	name      string
	publicURL string
}

// Name returns the bucket name.
func (c *Container) Name() string {
	return c.name
}

// UploadStream streams body to the object at path.
func (c *Container) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	w := c.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return wrapError(err, cloudstorage.ErrUploadFailed)
	}
	if err := w.Close(); err != nil {
		return wrapError(err, cloudstorage.ErrUploadFailed)
	}
	return nil
}

// GetObject returns object attributes.
func (c *Container) GetObject(ctx context.Context, path string) (*cloudstorage.Object, error) {
	attrs, err := c.bucket.Object(path).Attrs(ctx)
	if err != nil {
		return nil, wrapError(err, cloudstorage.ErrProviderFailed)
	}

	return &cloudstorage.Object{
		Path:         path,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		ETag:         attrs.Etag,
		LastModified: attrs.Updated,
	}, nil
}

// DeleteObject removes obj.
func (c *Container) DeleteObject(ctx context.Context, obj *cloudstorage.Object) error {
	if err := c.bucket.Object(obj.Path).Delete(ctx); err != nil {
		return wrapError(err, cloudstorage.ErrDeleteFailed)
	}
	return nil
}

// PublicURL returns "{public_url}/{bucket}/{path}". When public_url is a
// custom CDN host the bucket segment is omitted.
func (c *Container) PublicURL(_ context.Context, obj *cloudstorage.Object) (string, bool, error) {
	if c.publicURL == DefaultPublicURL {
		return c.publicURL + "/" + c.name + "/" + obj.Path, true, nil
	}
	return c.publicURL + "/" + obj.Path, true, nil
}

func wrapError(err error, fallback error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return fmt.Errorf("%w: %v", cloudstorage.ErrObjectNotFound, err)
	case errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("%w: %v", cloudstorage.ErrContainerNotFound, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", cloudstorage.ErrInvalidCredentials, err)
		case http.StatusNotFound:
			if errors.Is(fallback, cloudstorage.ErrContainerNotFound) {
				return fmt.Errorf("%w: %v", cloudstorage.ErrContainerNotFound, err)
			}
			return fmt.Errorf("%w: %v", cloudstorage.ErrObjectNotFound, err)
		}
	}

	return fmt.Errorf("%w: %v", fallback, err)
}

var (
	_ cloudstorage.Driver    = (*Driver)(nil)
	_ cloudstorage.Container = (*Container)(nil)
)
