// Package container defines the contract between the test-control core and
// the dependency-injection container it coordinates. The container itself is
// an external collaborator: implementations register themselves once per
// process via SetContainer, and the test runner only ever asks it to boot,
// shut down, control scopes, and resolve instances.
package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Scope is a named lifetime boundary for container-managed instances.
// Activating a scope makes instances of that lifetime resolvable until the
// scope is deactivated again.
type Scope string

const (
	ScopeRequest      Scope = "request"
	ScopeSession      Scope = "session"
	ScopeConversation Scope = "conversation"
	ScopeApplication  Scope = "application"
	ScopeSingleton    Scope = "singleton"

	// ScopeDependent marks per-injection instances. The invoker disposes
	// dependent-scoped instances explicitly after each method invocation.
	ScopeDependent Scope = "dependent"
)

// ScopeControl starts and stops individual scopes on a running container.
type ScopeControl interface {
	StartScope(scope Scope) error
	StopScope(scope Scope) error
}

// Handle identifies a single registration inside the container. It is the
// container's own bookkeeping token; the core only reads its scope and hands
// it back for instance creation and disposal.
type Handle interface {
	// Type returns the registered type.
	Type() reflect.Type

	// Scope returns the lifetime the instance is managed under.
	Scope() Scope
}

// Container is the runtime that manages instance creation, dependency
// resolution, and scope lifetimes. All calls are synchronous; the core does
// not apply timeouts to them.
type Container interface {
	// Boot starts the container. A boot failure is fatal to the run.
	Boot() error

	// Shutdown stops the container. Only the level that booted it may call
	// this.
	Shutdown() error

	// ScopeControl returns the scope controller for this container.
	ScopeControl() ScopeControl

	// ResolveHandles returns all registrations assignable to the given type,
	// or an empty slice when the type is not managed by the container.
	ResolveHandles(t reflect.Type) []Handle

	// CreateInstance materializes an instance for a resolved handle.
	CreateInstance(h Handle) (any, error)

	// DisposeInstance destroys an instance previously created for h.
	DisposeInstance(h Handle, instance any) error

	// InjectFields performs field injection on a plain (non-managed)
	// instance. Used as the fallback when no handle resolves for a test
	// class.
	InjectFields(target any) error
}

// ErrNoContainer is returned by Loaded when no container implementation has
// been registered for this process.
var ErrNoContainer = errors.New("no container registered; call container.SetContainer before running tests")

var (
	loaderMu sync.RWMutex
	active   Container
)

// SetContainer registers the process-wide container implementation.
// Registering a second, different container is an error: all runners in the
// process must coordinate against the same instance. Passing the already
// registered container is a no-op.
func SetContainer(c Container) error {
	if c == nil {
		return errors.New("container must not be nil")
	}

	loaderMu.Lock()
	defer loaderMu.Unlock()

	if active != nil && active != c {
		return fmt.Errorf("container already registered (%T)", active)
	}
	active = c
	return nil
}

// Loaded returns the registered container, or ErrNoContainer when none has
// been set.
func Loaded() (Container, error) {
	loaderMu.RLock()
	defer loaderMu.RUnlock()

	if active == nil {
		return nil, ErrNoContainer
	}
	return active, nil
}

// Reset clears the registered container. Intended for tests that need to
// swap implementations between cases.
func Reset() {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	active = nil
}
