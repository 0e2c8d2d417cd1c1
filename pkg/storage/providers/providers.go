// Package providers assembles the registry of every built-in storage driver.
package providers

import (
	"github.com/dmitrymomot/cloudstorage/pkg/storage"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/azureblob"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/gcs"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/local"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/memory"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/minio"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/natsobj"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/drivers/s3"
)

// Default returns a new registry with all built-in providers.
func Default() *storage.Registry {
	return storage.NewRegistry(
		s3.Provider(),
		azureblob.Provider(),
		gcs.Provider(),
		minio.Provider(),
		natsobj.Provider(),
		local.Provider(),
		memory.Provider(),
	)
}
