package storage

import (
	"context"
	"errors"
	"fmt"
)

// Apply carries out intent for the resource identified by resourceID.
//
// Upload writes the body at the derived path, replacing any object there.
// Clear deletes the object stored under the prior filename; an object that
// is already gone counts as cleared. NoChange does nothing and validates
// nothing.
//
// Each call performs at most one provider write and never retries. Replacing
// a file under a new name is an Upload followed by a separate Clear: if the
// Clear fails the old object stays behind and the caller decides what to do.
func (b *Backend) Apply(ctx context.Context, resourceID string, intent Intent) error {
	switch in := intent.(type) {
	case Upload:
		return b.upload(ctx, resourceID, in)
	case *Upload:
		if in == nil {
			return ErrInvalidIntent
		}
		return b.upload(ctx, resourceID, *in)
	case Clear:
		return b.clear(ctx, resourceID, in)
	case *Clear:
		if in == nil {
			return ErrInvalidIntent
		}
		return b.clear(ctx, resourceID, *in)
	case NoChange, *NoChange:
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrInvalidIntent, intent)
	}
}

func (b *Backend) upload(ctx context.Context, resourceID string, in Upload) error {
	if in.Body == nil {
		return fmt.Errorf("%w: upload without body", ErrInvalidIntent)
	}

	path, err := DerivePath(resourceID, in.Filename)
	if err != nil {
		return err
	}

	contentType, body := in.ContentType, in.Body
	if contentType == "" {
		contentType, body = detectContentType(in.Filename, in.Body)
	}

	if err := b.container.UploadStream(ctx, path, body, contentType); err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	b.invalidate(ctx, path)
	return nil
}

func (b *Backend) clear(ctx context.Context, resourceID string, in Clear) error {
	path, err := DerivePath(resourceID, in.PriorFilename)
	if err != nil {
		return err
	}

	obj, err := b.container.GetObject(ctx, path)
	switch {
	case errors.Is(err, ErrObjectNotFound):
		b.invalidate(ctx, path)
		return nil
	case err != nil:
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	if err := b.container.DeleteObject(ctx, obj); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	b.invalidate(ctx, path)
	return nil
}

// invalidate drops the cached URL for path and marks in-flight lookups as
// stale. Cache failures are ignored: entries expire on their own.
func (b *Backend) invalidate(ctx context.Context, path string) {
	if b.cache == nil {
		return
	}
	b.writes.Add(1)
	_ = b.cache.Delete(ctx, b.cacheKey(path))
}

func (b *Backend) cacheKey(path string) string {
	return b.container.Name() + ":" + path
}
