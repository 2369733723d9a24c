// Package containertest provides an in-memory container implementation for
// exercising the test-control core without a real DI runtime.
package containertest

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/schmitthub/testcontrol/pkg/container"
)

// Fake is a container.Container that records every call it receives.
// Zero value is usable; configure failure injection through the exported
// fields before use.
type Fake struct {
	mu sync.Mutex

	booted        bool
	bootCount     int
	shutdownCount int

	// ScopeEvents records scope transitions in order, formatted as
	// "start:<scope>" and "stop:<scope>".
	ScopeEvents []string

	// Active tracks currently active scopes.
	Active map[container.Scope]bool

	// BootErr, when set, is returned by Boot.
	BootErr error

	// FailScopes lists scopes whose StartScope/StopScope calls fail.
	FailScopes map[container.Scope]error

	registrations map[reflect.Type][]*FakeHandle

	// Injected records targets passed to InjectFields.
	Injected []any

	// Disposed records instances passed to DisposeInstance.
	Disposed []any
}

// FakeHandle is a registration inside a Fake container.
type FakeHandle struct {
	typ      reflect.Type
	scope    container.Scope
	instance any
}

func (h *FakeHandle) Type() reflect.Type     { return h.typ }
func (h *FakeHandle) Scope() container.Scope { return h.scope }

// New returns an empty Fake container.
func New() *Fake {
	return &Fake{
		Active:        make(map[container.Scope]bool),
		FailScopes:    make(map[container.Scope]error),
		registrations: make(map[reflect.Type][]*FakeHandle),
	}
}

// Register adds a managed instance for the type of v under the given scope.
func (f *Fake) Register(v any, scope container.Scope) *FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := reflect.TypeOf(v)
	h := &FakeHandle{typ: t, scope: scope, instance: v}
	f.registrations[t] = append(f.registrations[t], h)
	return h
}

func (f *Fake) Boot() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.bootCount++
	if f.BootErr != nil {
		return f.BootErr
	}
	f.booted = true
	return nil
}

func (f *Fake) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.shutdownCount++
	f.booted = false
	return nil
}

func (f *Fake) ScopeControl() container.ScopeControl { return (*fakeScopeControl)(f) }

func (f *Fake) ResolveHandles(t reflect.Type) []container.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	hs := f.registrations[t]
	out := make([]container.Handle, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

func (f *Fake) CreateInstance(h container.Handle) (any, error) {
	fh, ok := h.(*FakeHandle)
	if !ok {
		return nil, fmt.Errorf("unknown handle %T", h)
	}
	return fh.instance, nil
}

func (f *Fake) DisposeInstance(h container.Handle, instance any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Disposed = append(f.Disposed, instance)
	return nil
}

func (f *Fake) InjectFields(target any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Injected = append(f.Injected, target)
	return nil
}

// Booted reports whether the fake considers itself booted.
func (f *Fake) Booted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.booted
}

// BootCount returns how many times Boot was called.
func (f *Fake) BootCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bootCount
}

// ShutdownCount returns how many times Shutdown was called.
func (f *Fake) ShutdownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdownCount
}

// fakeScopeControl shares the Fake's state and lock.
type fakeScopeControl Fake

func (sc *fakeScopeControl) StartScope(scope container.Scope) error {
	f := (*Fake)(sc)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.FailScopes[scope]; err != nil {
		return err
	}
	f.ScopeEvents = append(f.ScopeEvents, "start:"+string(scope))
	f.Active[scope] = true
	return nil
}

func (sc *fakeScopeControl) StopScope(scope container.Scope) error {
	f := (*Fake)(sc)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.FailScopes[scope]; err != nil {
		return err
	}
	f.ScopeEvents = append(f.ScopeEvents, "stop:"+string(scope))
	delete(f.Active, scope)
	return nil
}
