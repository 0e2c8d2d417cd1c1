// Package minio is the storage driver for MinIO and other S3-compatible
// servers reached through the MinIO client.
//
//	CLOUDSTORAGE_DRIVER=MINIO
//	CLOUDSTORAGE_DRIVER_OPTIONS={"endpoint": "localhost:9000", "key": "minioadmin", "secret": "minioadmin", "secure": false}
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Name is the provider identifier.
const Name = "MINIO"

// Schema validates the driver options.
const Schema = `{
	"type": "object",
	"required": ["endpoint", "key", "secret"],
	"properties": {
		"endpoint":   {"type": "string", "minLength": 1},
		"key":        {"type": "string", "minLength": 1},
		"secret":     {"type": "string", "minLength": 1},
		"region":     {"type": "string"},
		"secure":     {"type": "boolean"},
		"public_url": {"type": "string"}
	}
}`

// Options configures the driver.
type Options struct {
	// Endpoint is host[:port] without scheme.
	Endpoint  string `json:"endpoint"`
	Key       string `json:"key"`
	Secret    string `json:"secret"`
	Region    string `json:"region"`
	PublicURL string `json:"public_url"`
	Secure    bool   `json:"secure"`
}

// Provider returns the registry entry for the MinIO driver.
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

// Driver wraps one MinIO client.
type Driver struct {
	client    *minio.Client
	publicURL string // empty means path-style URLs on the endpoint
}

// New creates a MinIO driver. No request is made until a container is bound.
func New(o Options) (*Driver, error) {
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.Key, o.Secret, ""),
		Secure: o.Secure,
		Region: o.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
	}

	return &Driver{client: client, publicURL: strings.TrimRight(o.PublicURL, "/")}, nil
}

// Container binds an existing bucket. Buckets are never created.
func (d *Driver) Container(ctx context.Context, name string) (storage.Container, error) {
	exists, err := d.client.BucketExists(ctx, name)
	if err != nil {
		return nil, wrapError(err, storage.ErrContainerNotFound)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrContainerNotFound, name)
	}
	return &Container{client: d.client, bucket: name, publicURL: d.publicURL}, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

// Container is one MinIO bucket.
type Container struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// Name returns the bucket name.
func (c *Container) Name() string {
	return c.bucket
}

// UploadStream streams body with multipart upload since the size is unknown.
func (c *Container) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, path, body, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return wrapError(err, storage.ErrUploadFailed)
	}
	return nil
}

// GetObject returns object metadata.
func (c *Container) GetObject(ctx context.Context, path string) (*storage.Object, error) {
	info, err := c.client.StatObject(ctx, c.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		return nil, wrapError(err, storage.ErrProviderFailed)
	}

	return &storage.Object{
		Path:         path,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// DeleteObject removes obj.
func (c *Container) DeleteObject(ctx context.Context, obj *storage.Object) error {
	if err := c.client.RemoveObject(ctx, c.bucket, obj.Path, minio.RemoveObjectOptions{}); err != nil {
		return wrapError(err, storage.ErrDeleteFailed)
	}
	return nil
}

// PublicURL returns "{public_url}/{path}" when public_url is set, otherwise
// the path-style URL on the server endpoint.
func (c *Container) PublicURL(_ context.Context, obj *storage.Object) (string, bool, error) {
	if c.publicURL != "" {
		return c.publicURL + "/" + obj.Path, true, nil
	}
	endpoint := strings.TrimRight(c.client.EndpointURL().String(), "/")
	return endpoint + "/" + c.bucket + "/" + obj.Path, true, nil
}

func wrapError(err error, fallback error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %v", storage.ErrContainerNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
	}
	switch resp.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
	case http.StatusNotFound:
		if errors.Is(fallback, storage.ErrContainerNotFound) {
			return fmt.Errorf("%w: %v", storage.ErrContainerNotFound, err)
		}
		return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

var (
	_ storage.Driver    = (*Driver)(nil)
	_ storage.Container = (*Container)(nil)
)
