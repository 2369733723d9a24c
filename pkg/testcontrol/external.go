package testcontrol

import (
	"sort"
	"sync"
)

// ExternalComponent is an independently pluggable system booted and shut
// down alongside the container: an embedded message broker, a test database,
// an in-process mail sink. Boot and shutdown failures are logged and never
// fatal to the run.
type ExternalComponent interface {
	// Ordinal orders boot sequence ascending; shutdown runs the same order.
	Ordinal() int

	Boot() error
	Shutdown() error
}

var (
	externalMu         sync.RWMutex
	externalComponents []ExternalComponent
)

// RegisterExternalComponent registers a component for discovery. Call from
// an init function or before the first runner boots the container; the
// booting context snapshots the registry once and does not see later
// registrations.
func RegisterExternalComponent(c ExternalComponent) {
	externalMu.Lock()
	defer externalMu.Unlock()
	externalComponents = append(externalComponents, c)
}

// ClearExternalComponents removes all registered components. For tests.
func ClearExternalComponents() {
	externalMu.Lock()
	defer externalMu.Unlock()
	externalComponents = nil
}

// ExternalComponents returns the registered components in boot order. For
// diagnostics.
func ExternalComponents() []ExternalComponent {
	return discoverExternalComponents()
}

// discoverExternalComponents snapshots the registry sorted ascending by
// ordinal. The sort is stable so equal ordinals keep registration order.
func discoverExternalComponents() []ExternalComponent {
	externalMu.RLock()
	defer externalMu.RUnlock()

	snapshot := make([]ExternalComponent, len(externalComponents))
	copy(snapshot, externalComponents)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Ordinal() < snapshot[j].Ordinal()
	})
	return snapshot
}
