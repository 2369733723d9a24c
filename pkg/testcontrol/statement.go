package testcontrol

import (
	"errors"
	"sort"
	"sync"
)

// Statement is one executable unit in the chain wrapped around a test
// method: setup, the invocation itself, teardown, and any decorator layers.
type Statement interface {
	Evaluate() error
}

// StatementFunc adapts a function to the Statement interface.
type StatementFunc func() error

func (f StatementFunc) Evaluate() error { return f() }

// StatementDecoratorFactory produces wrapping statements around the before
// and after phases of a test invocation. A factory returning nil passes the
// statement through unchanged.
type StatementDecoratorFactory interface {
	// Ordinal orders factory application ascending.
	Ordinal() int

	// CreateBeforeStatement may wrap the statement executed before and
	// including the test method. Returning nil keeps the prior statement.
	CreateBeforeStatement(base Statement, testClass *TestClass, target any) Statement

	// CreateAfterStatement may wrap the statement covering the after phase.
	// Returning nil keeps the prior statement.
	CreateAfterStatement(base Statement, testClass *TestClass, target any) Statement
}

var (
	decoratorMu        sync.RWMutex
	decoratorFactories []StatementDecoratorFactory
)

// RegisterDecoratorFactory registers a statement decorator factory. Runners
// snapshot and sort the registry at construction; registrations after that
// do not affect an already-built runner.
func RegisterDecoratorFactory(f StatementDecoratorFactory) {
	decoratorMu.Lock()
	defer decoratorMu.Unlock()
	decoratorFactories = append(decoratorFactories, f)
}

// ClearDecoratorFactories removes all registered factories. For tests.
func ClearDecoratorFactories() {
	decoratorMu.Lock()
	defer decoratorMu.Unlock()
	decoratorFactories = nil
}

// DecoratorFactories returns the registered factories sorted the way a
// runner would apply them. For diagnostics.
func DecoratorFactories() []StatementDecoratorFactory {
	return snapshotDecoratorFactories()
}

// snapshotDecoratorFactories returns the registered factories sorted
// ascending by ordinal. The sort is stable, so factories with equal
// ordinals apply in registration order.
func snapshotDecoratorFactories() []StatementDecoratorFactory {
	decoratorMu.RLock()
	defer decoratorMu.RUnlock()

	snapshot := make([]StatementDecoratorFactory, len(decoratorFactories))
	copy(snapshot, decoratorFactories)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Ordinal() < snapshot[j].Ordinal()
	})
	return snapshot
}

// wrapBeforeStatement folds the factory chain over the statement. Factories
// apply in ascending ordinal order and each non-nil result becomes the new
// outermost statement, so ordinal 0 ends up innermost and the highest
// ordinal outermost. An empty chain returns the statement unchanged.
func wrapBeforeStatement(statement Statement, factories []StatementDecoratorFactory, testClass *TestClass, target any) Statement {
	for _, factory := range factories {
		if result := factory.CreateBeforeStatement(statement, testClass, target); result != nil {
			statement = result
		}
	}
	return statement
}

// wrapAfterStatement folds the factory chain over the after-phase statement
// with the same composition order as wrapBeforeStatement.
func wrapAfterStatement(statement Statement, factories []StatementDecoratorFactory, testClass *TestClass, target any) Statement {
	for _, factory := range factories {
		if result := factory.CreateAfterStatement(statement, testClass, target); result != nil {
			statement = result
		}
	}
	return statement
}

// ErrTimeoutUnsupported rejects per-method timeout declarations. A timeout
// would run the method on a second goroutine, which would observe none of
// the scope state activated on the runner's goroutine.
var ErrTimeoutUnsupported = errors.New("per-method timeouts are not supported in container-managed tests")

// rejectTimeoutStatement replaces the timeout wrapping a method would
// otherwise get. It fails fast before invocation.
func rejectTimeoutStatement() Statement {
	return StatementFunc(func() error {
		return ErrTimeoutUnsupported
	})
}
