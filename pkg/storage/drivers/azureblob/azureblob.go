// Package azureblob is the storage driver for Azure Blob Storage.
//
// With an account key the driver can sign read-only SAS URLs, which enables
// secure URLs on the backend. With a pre-issued SAS token it cannot.
//
//	CLOUDSTORAGE_DRIVER=AZURE_BLOBS
//	CLOUDSTORAGE_DRIVER_OPTIONS={"key": "myaccount", "secret": "base64-account-key"}
package azureblob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Name is the provider identifier.
const Name = "AZURE_BLOBS"

// Schema validates the driver options.
const Schema = `{
	"type": "object",
	"required": ["key"],
	"properties": {
		"key":       {"type": "string", "minLength": 1},
		"secret":    {"type": "string", "minLength": 1},
		"sas_token": {"type": "string", "minLength": 1},
		"host":      {"type": "string"}
	},
	"oneOf": [
		{"required": ["secret"]},
		{"required": ["sas_token"]}
	]
}`

// Options configures the driver.
type Options struct {
	// Account is the storage account name.
	Account string `json:"key"`

	// AccountKey is the base64 shared key. Required for URL signing.
	AccountKey string `json:"secret"`

	// SASToken authenticates without an account key.
	SASToken string `json:"sas_token"`

	// Endpoint overrides https://{account}.blob.core.windows.net/, e.g. for Azurite.
	Endpoint string `json:"host"`
}

// Provider returns the registry entry for the Azure Blob driver.
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

// Driver talks to one storage account.
type Driver struct {
	client  *azblob.Client
	canSign bool
}

// New creates an Azure Blob driver.
func New(o Options) (*Driver, error) {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", o.Account)
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	if o.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(o.Account, o.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
		}
		return &Driver{client: client, canSign: true}, nil
	}

	if o.SASToken == "" {
		return nil, fmt.Errorf("%w: secret or sas_token is required", storage.ErrInvalidCredentials)
	}

	client, err := azblob.NewClientWithNoCredential(endpoint+"?"+strings.TrimPrefix(o.SASToken, "?"), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
	}
	return &Driver{client: client}, nil
}

// Container binds an existing container.
func (d *Driver) Container(ctx context.Context, name string) (storage.Container, error) {
	cc := d.client.ServiceClient().NewContainerClient(name)
	if _, err := cc.GetProperties(ctx, nil); err != nil {
		return nil, wrapError(err, storage.ErrContainerNotFound)
	}
	return &Container{client: cc, name: name}, nil
}

// Signer returns a SAS signer when the driver holds an account key.
func (d *Driver) Signer() (storage.URLSigner, bool) {
	if !d.canSign {
		return nil, false
	}
	return signer{client: d.client}, true
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

type signer struct {
	client *azblob.Client
}

// SignedURL issues a read-only blob SAS URL valid until expiry.
func (s signer) SignedURL(_ context.Context, containerName, path string, expiry time.Time) (string, error) {
	bc := s.client.ServiceClient().NewContainerClient(containerName).NewBlobClient(path)
	u, err := bc.GetSASURL(sas.BlobPermissions{Read: true}, expiry.UTC(), nil)
	if err != nil {
		return "", fmt.Errorf("azureblob: sign %s/%s: %w", containerName, path, err)
	}
	return u, nil
}

// Container is one blob container.
type Container struct {
	client *container.Client
	name   string
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.name
}

// UploadStream uploads body as a block blob in chunks, replacing any blob at path.
func (c *Container) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	opts := &blockblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	if _, err := c.client.NewBlockBlobClient(path).UploadStream(ctx, body, opts); err != nil {
		return wrapError(err, storage.ErrUploadFailed)
	}
	return nil
}

// GetObject returns blob properties. Extra["url"] carries the blob URL.
func (c *Container) GetObject(ctx context.Context, path string) (*storage.Object, error) {
	bc := c.client.NewBlobClient(path)
	props, err := bc.GetProperties(ctx, nil)
	if err != nil {
		return nil, wrapError(err, storage.ErrProviderFailed)
	}

	obj := &storage.Object{
		Path:  path,
		Extra: map[string]string{storage.ExtraURL: stripQuery(bc.URL())},
	}
	if props.ContentLength != nil {
		obj.Size = *props.ContentLength
	}
	if props.ContentType != nil {
		obj.ContentType = *props.ContentType
	}
	if props.ETag != nil {
		obj.ETag = strings.Trim(string(*props.ETag), `"`)
	}
	if props.LastModified != nil {
		obj.LastModified = *props.LastModified
	}
	return obj, nil
}

// DeleteObject deletes the blob and its snapshots.
func (c *Container) DeleteObject(ctx context.Context, obj *storage.Object) error {
	include := blob.DeleteSnapshotsOptionTypeInclude
	_, err := c.client.NewBlobClient(obj.Path).Delete(ctx, &blob.DeleteOptions{DeleteSnapshots: &include})
	if err != nil {
		return wrapError(err, storage.ErrDeleteFailed)
	}
	return nil
}

// PublicURL is unsupported: blob URLs are reported through object metadata.
func (c *Container) PublicURL(context.Context, *storage.Object) (string, bool, error) {
	return "", false, nil
}

// stripQuery drops any SAS token the client URL carries.
func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}

// wrapError maps blob service codes to storage sentinels. Only BlobNotFound
// means the object is gone; other failures keep the fallback.
func wrapError(err error, fallback error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		return fmt.Errorf("%w: %v", storage.ErrContainerNotFound, err)
	case bloberror.HasCode(err,
		bloberror.AuthenticationFailed,
		bloberror.AuthorizationFailure,
		bloberror.InvalidAuthenticationInfo,
	):
		return fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

var (
	_ storage.Driver         = (*Driver)(nil)
	_ storage.SignerProvider = (*Driver)(nil)
	_ storage.Container      = (*Container)(nil)
)
