package testcontrol

import (
	"fmt"
	"reflect"

	"github.com/schmitthub/testcontrol/pkg/container"
)

// InvocationError is the single failure kind every test-method error or
// panic is wrapped into before it reaches the result path.
type InvocationError struct {
	Class  string
	Method string
	Err    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s#%s failed: %v", e.Class, e.Method, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// methodInvoker resolves the live instance to run a test method against.
// When the container manages the test type, the method runs on a managed
// instance, and dependent-scoped instances are disposed after the
// invocation whether it succeeded or not. When the container knows nothing
// about the type, the invoker falls back to field injection on the plain
// instance the runner already constructed, with no disposal.
type methodInvoker struct {
	class          *TestClass
	method         *TestMethod
	originalTarget any
}

func (mi *methodInvoker) Evaluate() error {
	ctr, err := container.Loaded()
	if err != nil {
		return err
	}

	handles := ctr.ResolveHandles(reflect.TypeOf(mi.originalTarget))
	if len(handles) == 0 {
		// Fallback to simple injection on the original instance.
		if err := ctr.InjectFields(mi.originalTarget); err != nil {
			return fmt.Errorf("field injection on %s failed: %w", mi.class.Name, err)
		}
		return mi.invokeMethod(mi.originalTarget)
	}

	handle := resolveHandle(handles)

	target, err := ctr.CreateInstance(handle)
	if err != nil {
		return fmt.Errorf("failed to create instance for %s: %w", mi.class.Name, err)
	}

	invokeErr := mi.invokeMethod(target)

	if handle.Scope() == container.ScopeDependent {
		if err := ctr.DisposeInstance(handle, target); err != nil && invokeErr == nil {
			invokeErr = fmt.Errorf("failed to dispose instance for %s: %w", mi.class.Name, err)
		}
	}

	return invokeErr
}

// resolveHandle reduces several registrations to the one to invoke on.
// The container returns registrations in its own precedence order, so the
// first entry wins.
func resolveHandle(handles []container.Handle) container.Handle {
	return handles[0]
}

// invokeMethod runs the method body, converting errors and panics into a
// single InvocationError. Failures propagate, never get swallowed.
func (mi *methodInvoker) invokeMethod(target any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InvocationError{
				Class:  mi.class.Name,
				Method: mi.method.Name,
				Err:    fmt.Errorf("panic: %v", r),
			}
		}
	}()

	if callErr := mi.method.Func(target); callErr != nil {
		return &InvocationError{Class: mi.class.Name, Method: mi.method.Name, Err: callErr}
	}
	return nil
}
