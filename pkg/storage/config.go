package storage

import "strings"

// Config selects and configures the storage backend.
// It is loaded once at startup and never mutated afterwards.
type Config struct {
	// Driver is the provider identifier, e.g. "S3" or "AZURE_BLOBS".
	Driver string `env:"DRIVER,required"`

	// DriverOptions is a string-encoded mapping of provider constructor
	// arguments. Both JSON and YAML flow style are accepted, so
	// {"key": "AKIA", "secret": "..."} and {'key': 'AKIA'} parse alike.
	DriverOptions string `env:"DRIVER_OPTIONS" envDefault:"{}"`

	// Container is the bucket/container to bind.
	Container string `env:"CONTAINER_NAME,required"`

	// UseSecureURLs enables signed URLs when the provider supports them.
	UseSecureURLs bool `env:"USE_SECURE_URLS" envDefault:"false"`
}

// driverName normalizes the configured provider identifier for registry lookups.
func (c Config) driverName() string {
	return strings.ToUpper(strings.TrimSpace(c.Driver))
}

// validate checks fields that do not depend on the provider.
func (c Config) validate() error {
	if c.driverName() == "" {
		return ErrUnknownProvider
	}
	if strings.TrimSpace(c.Container) == "" {
		return ErrContainerNotFound
	}
	return nil
}
