// Package s3 is the storage driver for Amazon S3 and S3-compatible services.
//
// Options:
//
//	{
//	  "key": "AKIA...",                  // access key id
//	  "secret": "...",                   // secret access key
//	  "token": "...",                    // optional session token
//	  "region": "eu-west-1",             // default us-east-1
//	  "host": "https://s3.example.com",  // optional custom endpoint
//	  "path_style": true,                // path-style addressing for custom endpoints
//	  "public_url": "https://cdn.example.com",
//	  "use_default_credentials": false   // use the AWS default credential chain instead of key/secret
//	}
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Name is the provider identifier.
const Name = "S3"

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Schema validates the driver options.
const Schema = `{
	"type": "object",
	"properties": {
		"key":                     {"type": "string", "minLength": 1},
		"secret":                  {"type": "string", "minLength": 1},
		"token":                   {"type": "string"},
		"region":                  {"type": "string"},
		"host":                    {"type": "string"},
		"path_style":              {"type": "boolean"},
		"public_url":              {"type": "string"},
		"use_default_credentials": {"type": "boolean"}
	},
	"anyOf": [
		{"required": ["key", "secret"]},
		{"required": ["use_default_credentials"], "properties": {"use_default_credentials": {"enum": [true]}}}
	]
}`

// Options configures the driver.
type Options struct {
	Key                   string `json:"key"`
	Secret                string `json:"secret"`
	Token                 string `json:"token"`
	Region                string `json:"region"`
	Endpoint              string `json:"host"`
	PublicURL             string `json:"public_url"`
	PathStyle             bool   `json:"path_style"`
	UseDefaultCredentials bool   `json:"use_default_credentials"`
}

// Provider returns the registry entry for the S3 driver.
func Provider() storage.Provider {
	return storage.Provider{
		Name:   Name,
		Schema: Schema,
		New: func(ctx context.Context, opts storage.Options) (storage.Driver, error) {
			var o Options
			if err := opts.Decode(&o); err != nil {
				return nil, err
			}
			return New(ctx, o)
		},
	}
}

// Driver talks to one S3 account.
type Driver struct {
	client *awss3.Client
	opts   Options
}

// New creates an S3 driver. No request is made until a container is bound.
func New(ctx context.Context, o Options) (*Driver, error) {
	if o.Region == "" {
		o.Region = DefaultRegion
	}

	optFns := []func(*awss3.Options){}
	if o.Endpoint != "" {
		optFns = append(optFns, func(so *awss3.Options) {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = o.PathStyle
		})
	}

	if o.UseDefaultCredentials {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(o.Region))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
		}
		return &Driver{client: awss3.NewFromConfig(cfg, optFns...), opts: o}, nil
	}

	if o.Key == "" || o.Secret == "" {
		return nil, fmt.Errorf("%w: key and secret are required", storage.ErrInvalidCredentials)
	}

	optFns = append([]func(*awss3.Options){func(so *awss3.Options) {
		so.Region = o.Region
		so.Credentials = credentials.NewStaticCredentialsProvider(o.Key, o.Secret, o.Token)
	}}, optFns...)

	return &Driver{client: awss3.New(awss3.Options{}, optFns...), opts: o}, nil
}

// Container binds an existing bucket.
func (d *Driver) Container(ctx context.Context, name string) (storage.Container, error) {
	_, err := d.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(name)})
	if err != nil {
		return nil, wrapError(err, storage.ErrContainerNotFound)
	}
	return &Container{client: d.client, bucket: name, opts: d.opts}, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (d *Driver) Close() error {
	return nil
}

// Container is one S3 bucket.
type Container struct {
	client *awss3.Client
	bucket string
	opts   Options
}

// Name returns the bucket name.
func (c *Container) Name() string {
	return c.bucket
}

// UploadStream puts body at path. Non-seekable bodies are buffered in memory
// so the SDK can compute the payload checksum.
func (c *Container) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("s3: read body: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	input := &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
		Body:   rs,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return wrapError(err, storage.ErrUploadFailed)
	}
	return nil
}

// GetObject returns object metadata without downloading the body.
func (c *Container) GetObject(ctx context.Context, path string) (*storage.Object, error) {
	out, err := c.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, wrapError(err, storage.ErrProviderFailed)
	}

	obj := &storage.Object{
		Path:        path,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}
	if out.LastModified != nil {
		obj.LastModified = *out.LastModified
	}
	return obj, nil
}

// DeleteObject removes obj. S3 reports success for missing keys.
func (c *Container) DeleteObject(ctx context.Context, obj *storage.Object) error {
	_, err := c.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(obj.Path),
	})
	if err != nil {
		return wrapError(err, storage.ErrDeleteFailed)
	}
	return nil
}

// PublicURL returns the unsigned URL of obj. Whether it is reachable depends
// on the bucket policy.
func (c *Container) PublicURL(_ context.Context, obj *storage.Object) (string, bool, error) {
	return publicURL(c.opts, c.bucket, obj.Path), true, nil
}

func publicURL(o Options, bucket, key string) string {
	if o.PublicURL != "" {
		return strings.TrimSuffix(o.PublicURL, "/") + "/" + key
	}

	if o.Endpoint != "" {
		endpoint := strings.TrimSuffix(o.Endpoint, "/")
		if o.PathStyle {
			return fmt.Sprintf("%s/%s/%s", endpoint, bucket, key)
		}
		return fmt.Sprintf("%s/%s", endpoint, key)
	}

	region := o.Region
	if region == "" {
		region = DefaultRegion
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// wrapError maps S3 errors to storage sentinels, falling back to fallback.
// HeadObject and HeadBucket report a bare "NotFound" code with no body.
// Only explicit not-found codes become ErrObjectNotFound; throttling, 5xx
// and transport errors keep the fallback.
func wrapError(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey":
			return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
		case "NoSuchBucket":
			return fmt.Errorf("%w: %v", storage.ErrContainerNotFound, err)
		case "NotFound":
			if errors.Is(fallback, storage.ErrContainerNotFound) {
				return fmt.Errorf("%w: %v", storage.ErrContainerNotFound, err)
			}
			return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "Forbidden", "ExpiredToken":
			return fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
		}
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) && !errors.Is(fallback, storage.ErrContainerNotFound) {
		return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %v", storage.ErrContainerNotFound, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}

var (
	_ storage.Driver    = (*Driver)(nil)
	_ storage.Container = (*Container)(nil)
)
