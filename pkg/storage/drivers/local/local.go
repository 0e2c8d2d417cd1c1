// Package local is a filesystem storage driver.
//
// A container is a directory under the configured root that must already
// exist. Each object is stored as a file with a ".meta" sidecar holding its
// content type.
//
//	CLOUDSTORAGE_DRIVER=LOCAL
//	CLOUDSTORAGE_DRIVER_OPTIONS={"path": "/var/lib/cloudstorage", "public_url": "https://files.example.com"}
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Name is the provider identifier.
const Name = "LOCAL"

const metaSuffix = ".meta"

// Schema validates the driver options.
const Schema = `{
	"type": "object",
	"required": ["path"],
	"properties": {
		"path":       {"type": "string", "minLength": 1},
		"public_url": {"type": "string"}
	},
	"additionalProperties": false
}`

// Options configures the driver.
type Options struct {
	// Path is the root directory holding one subdirectory per container.
	Path string `json:"path"`

	// PublicURL enables public URLs as "{PublicURL}/{container}/{path}".
	PublicURL string `json:"public_url"`
}

// Provider returns the registry entry for the local driver.
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

// Driver stores objects under a root directory.
type Driver struct {
	root      string
	publicURL string
}

// New checks that the root directory exists.
func New(o Options) (*Driver, error) {
	root, err := filepath.Abs(o.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: path: %v", storage.ErrConfigParse, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCredentials, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", storage.ErrInvalidCredentials, root)
	}
	return &Driver{root: root, publicURL: strings.TrimRight(o.PublicURL, "/")}, nil
}

// Container binds an existing subdirectory of the root.
func (d *Driver) Container(_ context.Context, name string) (storage.Container, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: invalid name %q", storage.ErrContainerNotFound, name)
	}

	dir := filepath.Join(d.root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", storage.ErrContainerNotFound, name)
	}
	return &Container{dir: dir, name: name, publicURL: d.publicURL}, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

// Container is one directory.
type Container struct {
	dir       string
	name      string
	publicURL string

	// mu pairs each object with its sidecar when uploads race on one path.
	mu sync.Mutex
}

// Name returns the directory name.
func (c *Container) Name() string {
	return c.name
}

func (c *Container) fullPath(path string) (string, error) {
	full := filepath.Join(c.dir, filepath.FromSlash(path))
	if !strings.HasPrefix(full, c.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("local: path %q escapes container", path)
	}
	return full, nil
}

// UploadStream writes body to a temp file and renames it into place, so a
// failed upload never leaves a partial object behind.
func (c *Container) UploadStream(ctx context.Context, path string, body io.Reader, contentType string) error {
	full, err := c.fullPath(path)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	meta, err := writeTemp(filepath.Dir(full), []byte(contentType))
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	defer os.Remove(meta)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	if err := os.Rename(meta, full+metaSuffix); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUploadFailed, err)
	}
	return nil
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".meta-*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// GetObject stats the file at path. The ETag is derived from its
// modification time and size, the way static file servers do it.
func (c *Container) GetObject(_ context.Context, path string) (*storage.Object, error) {
	full, err := c.fullPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	}

	info, err := os.Stat(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", storage.ErrProviderFailed, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, path)
	}

	contentType := storage.MIMEOctetStream
	if meta, err := os.ReadFile(full + metaSuffix); err == nil && len(meta) > 0 {
		contentType = string(meta)
	}

	return &storage.Object{
		Path:         path,
		Size:         info.Size(),
		ContentType:  contentType,
		ETag:         fmt.Sprintf("%x-%x", info.ModTime().UnixNano(), info.Size()),
		LastModified: info.ModTime().UTC(),
	}, nil
}

// DeleteObject removes the file and its sidecar.
func (c *Container) DeleteObject(_ context.Context, obj *storage.Object) error {
	full, err := c.fullPath(obj.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDeleteFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_ = os.Remove(full + metaSuffix)
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, obj.Path)
		}
		return fmt.Errorf("%w: %v", storage.ErrDeleteFailed, err)
	}
	return nil
}

// PublicURL returns "{public_url}/{container}/{path}" when public_url is set.
func (c *Container) PublicURL(_ context.Context, obj *storage.Object) (string, bool, error) {
	if c.publicURL == "" {
		return "", false, nil
	}
	return c.publicURL + "/" + c.name + "/" + obj.Path, true, nil
}

var (
	_ storage.Driver    = (*Driver)(nil)
	_ storage.Container = (*Container)(nil)
)
