package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cloudstorage/pkg/storage"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/local"
)

func newContainer(t *testing.T, publicURL string) (storage.Container, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "resources"), 0o755))

	d, err := local.New(local.Options{Path: root, PublicURL: publicURL})
	require.NoError(t, err)

	c, err := d.Container(context.Background(), "resources")
	require.NoError(t, err)
	return c, root
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()
		_, err := local.New(local.Options{Path: filepath.Join(t.TempDir(), "nope")})
		assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
	})

	t.Run("root is a file", func(t *testing.T) {
		t.Parallel()
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
		_, err := local.New(local.Options{Path: f})
		assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
	})
}

func TestDriver_Container(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d, err := local.New(local.Options{Path: root})
	require.NoError(t, err)

	for _, name := range []string{"missing", "", "..", "a/b"} {
		_, err := d.Container(context.Background(), name)
		assert.ErrorIs(t, err, storage.ErrContainerNotFound, name)
	}
}

func TestContainer_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, root := newContainer(t, "https://files.example.com/")

	path := "resources/abc/data.csv"
	require.NoError(t, c.UploadStream(ctx, path, strings.NewReader("a,b\n"), "text/csv"))

	stored, err := os.ReadFile(filepath.Join(root, "resources", "resources", "abc", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(stored))

	obj, err := c.GetObject(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(4), obj.Size)
	assert.Equal(t, "text/csv", obj.ContentType)
	assert.NotEmpty(t, obj.ETag)

	u, ok, err := c.PublicURL(ctx, obj)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://files.example.com/resources/resources/abc/data.csv", u)

	require.NoError(t, c.DeleteObject(ctx, obj))
	_, err = c.GetObject(ctx, path)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	err = c.DeleteObject(ctx, obj)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestContainer_UploadReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newContainer(t, "")

	require.NoError(t, c.UploadStream(ctx, "resources/x/f.txt", strings.NewReader("first"), "text/plain"))
	require.NoError(t, c.UploadStream(ctx, "resources/x/f.txt", strings.NewReader("second!"), "text/plain"))

	obj, err := c.GetObject(ctx, "resources/x/f.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(7), obj.Size)

	_, ok, err := c.PublicURL(ctx, obj)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContainer_ETagChangesOnReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newContainer(t, "")

	require.NoError(t, c.UploadStream(ctx, "resources/x/f.txt", strings.NewReader("first"), "text/plain"))
	before, err := c.GetObject(ctx, "resources/x/f.txt")
	require.NoError(t, err)

	again, err := c.GetObject(ctx, "resources/x/f.txt")
	require.NoError(t, err)
	assert.Equal(t, before.ETag, again.ETag)

	require.NoError(t, c.UploadStream(ctx, "resources/x/f.txt", strings.NewReader("second!"), "text/plain"))
	after, err := c.GetObject(ctx, "resources/x/f.txt")
	require.NoError(t, err)
	assert.NotEqual(t, before.ETag, after.ETag)
}

func TestContainer_ConcurrentUploadsKeepSidecarPaired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, root := newContainer(t, "")

	bodies := map[string]string{
		"text/plain":       "plain text body",
		"text/csv":         "a,b\n1,2\n",
		"application/json": `{"a": 1}`,
	}

	var wg sync.WaitGroup
	for range 10 {
		for contentType, body := range bodies {
			wg.Go(func() {
				assert.NoError(t, c.UploadStream(ctx, "resources/x/f.dat", strings.NewReader(body), contentType))
			})
		}
	}
	wg.Wait()

	obj, err := c.GetObject(ctx, "resources/x/f.dat")
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(root, "resources", "resources", "x", "f.dat"))
	require.NoError(t, err)
	assert.Equal(t, bodies[obj.ContentType], string(stored))

	entries, err := os.ReadDir(filepath.Join(root, "resources", "resources", "x"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only the object and its sidecar remain")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestContainer_FailedUploadLeavesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, root := newContainer(t, "")

	err := c.UploadStream(ctx, "resources/y/f.bin", failingReader{}, "")
	assert.ErrorIs(t, err, storage.ErrUploadFailed)

	_, err = c.GetObject(ctx, "resources/y/f.bin")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	entries, err := os.ReadDir(filepath.Join(root, "resources", "resources", "y"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestContainer_PathEscape(t *testing.T) {
	t.Parallel()
	c, _ := newContainer(t, "")

	err := c.UploadStream(context.Background(), "../outside.txt", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, storage.ErrUploadFailed)
}

func TestBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "files"), 0o755))

	b, err := storage.Open(ctx, storage.Config{
		Driver:        "local",
		DriverOptions: "{path: '" + root + "', public_url: 'http://localhost:8080/files'}",
		Container:     "files",
	}, storage.NewRegistry(local.Provider()))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Apply(ctx, "res-1", storage.Upload{Body: strings.NewReader("hello"), Filename: "Hello World.txt"}))

	u, ok, err := b.ResolveURL(ctx, "res-1", "hello-world.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:8080/files/files/resources/res-1/hello-world.txt", u)
}
