// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gfx

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	// ErrNoBackend is returned when no registered backend is available.
	ErrNoBackend = errors.New("gfx: no backend available")

	// ErrUnknownBackend is returned when a named backend is not registered.
	ErrUnknownBackend = errors.New("gfx: backend not registered")

	// ErrBackendUnavailable is returned when a named backend reports it
	// cannot run on this system.
	ErrBackendUnavailable = errors.New("gfx: backend not available")
)

// OpenOptions configures device creation.
type OpenOptions struct {
	// AllowSoftware lets adapter selection fall back to software adapters.
	AllowSoftware bool
}

// Factory opens a device.
type Factory func(opts OpenOptions) (Device, error)

// RegistryEntry is a registered backend.
type RegistryEntry struct {
	Name string

	// Priority determines selection order (higher is preferred):
	//   - 100: hardware backends
	//   - 0: in-memory backends
	Priority int

	Factory   Factory
	Available func() bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*RegistryEntry)
)

// Register adds a backend. If available is nil the backend is assumed
// always available. Registering an existing name replaces it.
func Register(name string, priority int, factory Factory, available func() bool) {
	if factory == nil {
		panic("gfx: Register factory is nil for " + name)
	}
	if available == nil {
		available = func() bool { return true }
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Backends returns the registered names sorted by priority, highest first.
// Equal priorities sort by name.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedNames()
}

func sortedNames() []string {
	entries := make([]*RegistryEntry, 0, len(registry))
	for _, e := range registry {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// OpenByName opens the named backend.
func OpenByName(name string, opts OpenOptions) (Device, error) {
	registryMu.RLock()
	entry, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	if !entry.Available() {
		return nil, fmt.Errorf("%w: %q", ErrBackendUnavailable, name)
	}
	dev, err := entry.Factory(opts)
	if err != nil {
		return nil, fmt.Errorf("gfx: open %q: %w", name, err)
	}
	return dev, nil
}

// Open opens the highest-priority backend that is available and opens
// successfully.
func Open(opts OpenOptions) (Device, error) {
	registryMu.RLock()
	names := sortedNames()
	registryMu.RUnlock()

	var errs []error
	for _, name := range names {
		dev, err := OpenByName(name, opts)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoBackend
	}
	return nil, errors.Join(append([]error{ErrNoBackend}, errs...)...)
}
