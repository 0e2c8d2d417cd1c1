package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for storage operations.
var (
	// Startup errors. All of them are fatal: Open returns no Backend.
	ErrConfigParse        = errors.New("storage: failed to parse driver options")
	ErrUnknownProvider    = errors.New("storage: unknown provider")
	ErrInvalidCredentials = errors.New("storage: invalid credentials")
	ErrContainerNotFound  = errors.New("storage: container not found")

	// Usage errors.
	ErrInvalidResourceID = errors.New("storage: invalid resource id")
	ErrInvalidIntent     = errors.New("storage: invalid upload intent")

	// Operational errors.
	ErrUploadFailed  = errors.New("storage: upload failed")
	ErrDeleteFailed  = errors.New("storage: delete failed")
	ErrResolveFailed = errors.New("storage: url resolution failed")

	// Driver-level errors. Apply and ResolveURL never surface ErrObjectNotFound.
	// Drivers report ErrObjectNotFound only for a provider's explicit
	// not-found answer; any other lookup failure is ErrProviderFailed.
	ErrObjectNotFound = errors.New("storage: object not found")
	ErrProviderFailed = errors.New("storage: provider request failed")
)

// Wrap tags err with a storage sentinel.
// Uses %v (not %w) for the original error so callers match the sentinel with
// errors.Is instead of reaching for provider SDK types. If err already carries
// one of the package sentinels it is returned unchanged.
func Wrap(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	if isSentinel(err) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

func isSentinel(err error) bool {
	for _, s := range []error{
		ErrConfigParse,
		ErrUnknownProvider,
		ErrInvalidCredentials,
		ErrContainerNotFound,
		ErrInvalidResourceID,
		ErrInvalidIntent,
		ErrObjectNotFound,
		ErrProviderFailed,
		ErrUploadFailed,
		ErrDeleteFailed,
		ErrResolveFailed,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
