// Package storage stores uploaded resource files in a cloud object store
// selected by configuration.
//
// A Backend binds one provider driver and one container at startup, then
// offers two operations: Apply writes or deletes the file for a resource,
// and ResolveURL turns a resource id and filename back into a download URL.
// Both recompute the object path with DerivePath, so nothing but the
// sanitized filename on the resource record has to be persisted.
//
// # Basic Usage
//
//	cfg := storage.Config{
//		Driver:        "S3",
//		DriverOptions: `{"key": "AKIA...", "secret": "...", "region": "eu-west-1"}`,
//		Container:     "resources",
//	}
//
//	b, err := storage.Open(ctx, cfg, providers.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	// Store a new upload.
//	err = b.Apply(ctx, resourceID, storage.Upload{Body: f, Filename: "Report 2024.csv"})
//
//	// Resolve the URL later, from the filename stored on the record.
//	url, ok, err := b.ResolveURL(ctx, resourceID, "report-2024.csv")
//
// # Providers
//
// Providers are registered by name in a Registry; each one declares a JSON
// Schema for its options. Driver options are a mapping literal in JSON or
// YAML flow style. See the drivers subpackages and providers.Default.
//
// # Signed URLs
//
// Drivers that implement SignerProvider can issue read-only URLs valid for
// SignedURLTTL. They are used only when Config.UseSecureURLs is set. A signed
// URL is returned without checking that the object exists.
//
// # Error Handling
//
// Startup errors (Open):
//   - [ErrConfigParse] - driver options are not a mapping literal
//   - [ErrUnknownProvider] - no provider registered under Config.Driver
//   - [ErrInvalidCredentials] - options fail the schema or are rejected by the provider
//   - [ErrContainerNotFound] - the container does not exist
//
// Request errors (Apply, ResolveURL):
//   - [ErrInvalidResourceID] - empty id or id that is not a single path segment
//   - [ErrInvalidIntent] - contradictory or incomplete intent
//   - [ErrUploadFailed], [ErrDeleteFailed], [ErrResolveFailed] - provider failures
//
// Deleting an object that is already gone is not an error. Apply never
// retries; a failed Clear leaves the old object in place.
package storage
