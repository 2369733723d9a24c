package testcontrol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/testcontrol/internal/config"
	"github.com/schmitthub/testcontrol/pkg/container"
)

func newWidgetClass(methods ...TestMethod) *TestClass {
	return &TestClass{
		Name:    "WidgetTest",
		New:     func() any { return &widgetService{} },
		Methods: methods,
	}
}

func TestRunnerBootsRunsAndShutsDown(t *testing.T) {
	fake := newTestHarness(t)

	ran := 0
	class := newWidgetClass(TestMethod{
		Name: "Works",
		Func: func(any) error { ran++; return nil },
	})

	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)

	listener := newRecordingListener()
	notifier := NewRunNotifier()
	notifier.AddListener(listener)

	require.NoError(t, runner.Run(notifier))

	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, fake.BootCount())
	assert.Equal(t, 1, fake.ShutdownCount(), "the booting runner owns the shutdown")
	assert.Equal(t, []string{"WidgetTest#Works"}, listener.started)
	assert.Equal(t, []string{"WidgetTest#Works"}, listener.finished)
	assert.Empty(t, listener.failed)
}

func TestRunnerActivatesMethodScopes(t *testing.T) {
	fake := newTestHarness(t)

	var activeDuringMethod []container.Scope
	class := newWidgetClass(TestMethod{
		Name: "Works",
		Func: func(any) error {
			for scope := range fake.Active {
				activeDuringMethod = append(activeDuringMethod, scope)
			}
			return nil
		},
	})

	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)
	require.NoError(t, runner.Run(NewRunNotifier()))

	// Without an explicit class Control the default scopes activate per
	// method, not at class level.
	assert.ElementsMatch(t, []container.Scope{container.ScopeSession, container.ScopeRequest}, activeDuringMethod)
	assert.Empty(t, fake.Active, "all scopes deactivated after the run")
}

func TestRunnerReportsFailuresAndContinues(t *testing.T) {
	newTestHarness(t)

	boom := errors.New("expected 4, got 5")
	ran := []string{}
	class := newWidgetClass(
		TestMethod{Name: "Fails", Func: func(any) error { ran = append(ran, "Fails"); return boom }},
		TestMethod{Name: "StillRuns", Func: func(any) error { ran = append(ran, "StillRuns"); return nil }},
	)

	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)

	listener := newRecordingListener()
	notifier := NewRunNotifier()
	notifier.AddListener(listener)

	require.NoError(t, runner.Run(notifier), "test failures are results, not run errors")

	assert.Equal(t, []string{"Fails", "StillRuns"}, ran)
	require.Contains(t, listener.failed, "WidgetTest#Fails")

	var invErr *InvocationError
	require.ErrorAs(t, listener.failed["WidgetTest#Fails"], &invErr)
	assert.ErrorIs(t, invErr, boom)
}

func TestRunnerRejectsDeclaredTimeout(t *testing.T) {
	newTestHarness(t)

	ran := false
	class := newWidgetClass(TestMethod{
		Name:    "Timed",
		Func:    func(any) error { ran = true; return nil },
		Timeout: 100,
	})

	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)

	listener := newRecordingListener()
	notifier := NewRunNotifier()
	notifier.AddListener(listener)

	require.NoError(t, runner.Run(notifier))

	assert.False(t, ran, "the method body must not run")
	require.Contains(t, listener.failed, "WidgetTest#Timed")
	assert.ErrorIs(t, listener.failed["WidgetTest#Timed"], ErrTimeoutUnsupported)
}

func TestRunnerBeforeAfterAndDecoratorOrdering(t *testing.T) {
	newTestHarness(t)

	var trace []string
	RegisterDecoratorFactory(&taggingFactory{tag: "hook", ordinal: 0, trace: &trace})

	class := newWidgetClass(TestMethod{
		Name: "Works",
		Func: func(any) error { trace = append(trace, "body"); return nil },
	})
	class.Before = []func(any) error{func(any) error { trace = append(trace, "before"); return nil }}
	class.After = []func(any) error{func(any) error { trace = append(trace, "after"); return nil }}

	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)
	require.NoError(t, runner.Run(NewRunNotifier()))

	// The before decorator wraps setup + body; the after decorator wraps
	// everything including the After funcs.
	assert.Equal(t, []string{
		"enter:hook", // after-phase wrapping, outermost
		"enter:hook", // before-phase wrapping
		"before",
		"body",
		"exit:hook",
		"after",
		"exit:hook",
	}, trace)
}

func TestRunnerAftersRunDespiteMethodFailure(t *testing.T) {
	newTestHarness(t)

	var trace []string
	class := newWidgetClass(TestMethod{
		Name: "Fails",
		Func: func(any) error { trace = append(trace, "body"); return errors.New("boom") },
	})
	class.After = []func(any) error{func(any) error { trace = append(trace, "after"); return nil }}

	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)
	require.NoError(t, runner.Run(NewRunNotifier()))

	assert.Equal(t, []string{"body", "after"}, trace)
}

func TestRunnerPerMethodStage(t *testing.T) {
	newTestHarness(t)

	var stageInDefault, stageInOverride string
	class := newWidgetClass(
		TestMethod{
			Name: "Default",
			Func: func(any) error { stageInDefault = CurrentProjectStage(); return nil },
		},
		TestMethod{
			Name:    "Override",
			Func:    func(any) error { stageInOverride = CurrentProjectStage(); return nil },
			Control: &Control{ProjectStage: "integration-test"},
		},
	)

	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)
	require.NoError(t, runner.Run(NewRunNotifier()))

	assert.Equal(t, DefaultProjectStage, stageInDefault)
	assert.Equal(t, "integration-test", stageInOverride)
	assert.Equal(t, DefaultProjectStage, CurrentProjectStage(), "stage restored after the run")
}

func TestRunnerPropagatesBootFailure(t *testing.T) {
	fake := newTestHarness(t)
	fake.BootErr = errors.New("container broken")

	class := newWidgetClass(TestMethod{Name: "Never", Func: func(any) error { return nil }})
	runner, err := NewRunner(class, WithConfig(config.Defaults()))
	require.NoError(t, err)

	assert.Error(t, runner.Run(NewRunNotifier()))
}

func TestSuiteOwnsSingleBootAcrossClasses(t *testing.T) {
	fake := newTestHarness(t)

	ran := []string{}
	first := &TestClass{
		Name: "FirstTest",
		New:  func() any { return &widgetService{} },
		Methods: []TestMethod{{
			Name: "A",
			Func: func(any) error { ran = append(ran, "First#A"); return nil },
		}},
	}
	second := &TestClass{
		Name: "SecondTest",
		New:  func() any { return &widgetService{} },
		Methods: []TestMethod{{
			Name: "B",
			Func: func(any) error { ran = append(ran, "Second#B"); return nil },
		}},
	}

	suite, err := NewSuiteRunner("widget-suite", nil, []*TestClass{first, second}, WithConfig(config.Defaults()))
	require.NoError(t, err)
	require.NoError(t, suite.Run(NewRunNotifier()))

	assert.Equal(t, []string{"First#A", "Second#B"}, ran)
	assert.Equal(t, 1, fake.BootCount(), "a suite boots exactly once")
	assert.Equal(t, 1, fake.ShutdownCount(), "a suite shuts down exactly once")
	assert.False(t, SuiteContainerRunning())
	assert.Empty(t, fake.Active)
}

func TestSuiteClassActivatesDefaultScopesAtClassLevel(t *testing.T) {
	fake := newTestHarness(t)

	var activeDuringMethod int
	class := newWidgetClass(TestMethod{
		Name: "Works",
		Func: func(any) error { activeDuringMethod = len(fake.Active); return nil },
	})

	suite, err := NewSuiteRunner("widget-suite", nil, []*TestClass{class}, WithConfig(config.Defaults()))
	require.NoError(t, err)

	require.NoError(t, suite.Run(NewRunNotifier()))

	// Under a suite the class context is not the tree root, so the legacy
	// restriction does not apply: defaults activate once at class level and
	// the method level skips them.
	assert.Equal(t, 2, activeDuringMethod)

	starts := 0
	for _, ev := range fake.ScopeEvents {
		if ev == "start:session" || ev == "start:request" {
			starts++
		}
	}
	assert.Equal(t, 2, starts, "defaults activate exactly once for the whole class")
}
