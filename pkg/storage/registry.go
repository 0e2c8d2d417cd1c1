package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory builds a Driver from validated provider options.
type Factory func(ctx context.Context, opts Options) (Driver, error)

// Provider describes one storage backend implementation.
type Provider struct {
	// New constructs the driver.
	New Factory

	// Name is the identifier used in Config.Driver (matched case-insensitively).
	Name string

	// Schema is a JSON Schema for the provider options. Empty disables validation.
	Schema string
}

// Registry maps provider names to implementations.
type Registry struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewRegistry creates a registry pre-populated with providers.
// It panics on a duplicate or unnamed provider, which is a programming error.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a provider. Registering the same name twice is an error.
func (r *Registry) Register(p Provider) error {
	name := strings.ToUpper(strings.TrimSpace(p.Name))
	if name == "" || p.New == nil {
		return fmt.Errorf("storage: provider must have a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("storage: provider %q already registered", name)
	}
	p.Name = name
	r.providers[name] = p
	return nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Construct resolves cfg.Driver, parses and validates cfg.DriverOptions and
// builds the driver. It does not bind the container.
func (r *Registry) Construct(ctx context.Context, cfg Config) (Driver, error) {
	p, err := r.Lookup(cfg.driverName())
	if err != nil {
		return nil, err
	}

	opts, err := ParseOptions(cfg.DriverOptions)
	if err != nil {
		return nil, err
	}

	if err := opts.Validate(p.Schema); err != nil {
		return nil, err
	}

	d, err := p.New(ctx, opts)
	if err != nil {
		return nil, Wrap(err, ErrInvalidCredentials)
	}
	return d, nil
}
