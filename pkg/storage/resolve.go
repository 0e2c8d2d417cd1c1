package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/cloudstorage/pkg/urlcache"
)

// errAbsent short-circuits the URL cache when there is nothing to cache.
var errAbsent = errors.New("storage: no url")

// uncachedURL carries a URL found by a lookup that overlapped a write. It is
// valid for this call but may already be stale, so it bypasses the cache.
type uncachedURL struct {
	url string
}

func (uncachedURL) Error() string { return "storage: lookup overlapped a write" }

// ResolveURL returns a URL for the file stored for resourceID under name.
//
// With secure URLs enabled and a signing-capable driver, it returns a
// read-only URL for exactly that object expiring SignedURLTTL from now.
// The object's existence is not checked on this path.
//
// Otherwise it looks the object up and returns, in order of preference, the
// provider-reported metadata URL or the container's public URL. ok is false
// when the object is absent or the provider cannot produce a URL.
func (b *Backend) ResolveURL(ctx context.Context, resourceID, name string) (url string, ok bool, err error) {
	path, err := DerivePath(resourceID, name)
	if err != nil {
		return "", false, err
	}

	if b.signer != nil && b.cfg.UseSecureURLs {
		return b.signedURL(ctx, path)
	}

	if b.cache == nil {
		return b.lookupURL(ctx, path)
	}

	u, err := urlcache.GetOrSet(ctx, b.cache, b.cacheKey(path), func(ctx context.Context) (string, time.Duration, error) {
		writes := b.writes.Load()
		u, ok, err := b.lookupURL(ctx, path)
		switch {
		case err != nil:
			return "", 0, err
		case !ok:
			return "", 0, errAbsent
		case b.writes.Load() != writes:
			return "", 0, &uncachedURL{url: u}
		}
		return u, b.cacheTTL, nil
	})

	var uncached *uncachedURL
	switch {
	case errors.As(err, &uncached):
		return uncached.url, true, nil
	case errors.Is(err, errAbsent):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return u, true, nil
}

func (b *Backend) signedURL(ctx context.Context, path string) (string, bool, error) {
	expiry := b.now().Add(SignedURLTTL)
	u, err := b.signer.SignedURL(ctx, b.container.Name(), path, expiry)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}
	return u, true, nil
}

func (b *Backend) lookupURL(ctx context.Context, path string) (string, bool, error) {
	obj, err := b.container.GetObject(ctx, path)
	switch {
	case errors.Is(err, ErrObjectNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}

	if u, ok := obj.MetadataURL(); ok {
		return u, true, nil
	}

	u, ok, err := b.container.PublicURL(ctx, obj)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}
	if !ok {
		return "", false, nil
	}
	return u, true, nil
}
