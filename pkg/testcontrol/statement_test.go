package testcontrol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taggingFactory wraps statements so the execution trace shows which
// factory ran, and in what nesting order.
type taggingFactory struct {
	tag     string
	ordinal int
	trace   *[]string

	// passThrough disables wrapping entirely (the factory returns nil).
	passThrough bool
}

func (f *taggingFactory) Ordinal() int { return f.ordinal }

func (f *taggingFactory) CreateBeforeStatement(base Statement, _ *TestClass, _ any) Statement {
	if f.passThrough {
		return nil
	}
	return StatementFunc(func() error {
		*f.trace = append(*f.trace, "enter:"+f.tag)
		err := base.Evaluate()
		*f.trace = append(*f.trace, "exit:"+f.tag)
		return err
	})
}

func (f *taggingFactory) CreateAfterStatement(base Statement, tc *TestClass, target any) Statement {
	return f.CreateBeforeStatement(base, tc, target)
}

// sentinelStatement returns a fixed error so wrapping can be detected both
// by identity and by behavior.
type sentinelStatement struct{ err error }

func (s *sentinelStatement) Evaluate() error { return s.err }

func TestEmptyChainIsNoOp(t *testing.T) {
	sentinel := errors.New("base failure")
	base := &sentinelStatement{err: sentinel}

	wrapped := wrapBeforeStatement(base, nil, nil, nil)
	assert.Same(t, base, wrapped, "empty chain must return the base statement unchanged")
	assert.ErrorIs(t, wrapped.Evaluate(), sentinel)

	wrappedAfter := wrapAfterStatement(base, nil, nil, nil)
	assert.Same(t, base, wrappedAfter)
}

func TestChainAppliesInOrdinalOrder(t *testing.T) {
	var trace []string
	factories := []StatementDecoratorFactory{
		&taggingFactory{tag: "outer", ordinal: 10, trace: &trace},
		&taggingFactory{tag: "inner", ordinal: 0, trace: &trace},
	}
	// snapshot order mirrors registration; sorting happens in the registry.
	ClearDecoratorFactories()
	for _, f := range factories {
		RegisterDecoratorFactory(f)
	}
	sorted := snapshotDecoratorFactories()

	base := StatementFunc(func() error {
		trace = append(trace, "body")
		return nil
	})

	require.NoError(t, wrapBeforeStatement(base, sorted, nil, nil).Evaluate())

	// Ordinal 0 is innermost, the highest ordinal outermost.
	assert.Equal(t, []string{"enter:outer", "enter:inner", "body", "exit:inner", "exit:outer"}, trace)
}

func TestStableSortForEqualOrdinals(t *testing.T) {
	ClearDecoratorFactories()
	defer ClearDecoratorFactories()

	var trace []string
	first := &taggingFactory{tag: "first", ordinal: 5, trace: &trace}
	second := &taggingFactory{tag: "second", ordinal: 5, trace: &trace}
	RegisterDecoratorFactory(first)
	RegisterDecoratorFactory(second)

	sorted := snapshotDecoratorFactories()
	require.Len(t, sorted, 2)
	assert.Same(t, first, sorted[0], "equal ordinals keep registration order")
	assert.Same(t, second, sorted[1])
}

func TestNilResultPassesThrough(t *testing.T) {
	var trace []string
	factories := []StatementDecoratorFactory{
		&taggingFactory{tag: "skipped", ordinal: 0, trace: &trace, passThrough: true},
		&taggingFactory{tag: "active", ordinal: 1, trace: &trace},
	}

	base := StatementFunc(func() error {
		trace = append(trace, "body")
		return nil
	})

	require.NoError(t, wrapBeforeStatement(base, factories, nil, nil).Evaluate())
	assert.Equal(t, []string{"enter:active", "body", "exit:active"}, trace)
}

func TestTimeoutRejection(t *testing.T) {
	err := rejectTimeoutStatement().Evaluate()
	assert.ErrorIs(t, err, ErrTimeoutUnsupported)
}
