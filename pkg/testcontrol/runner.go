package testcontrol

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schmitthub/testcontrol/internal/config"
	"github.com/schmitthub/testcontrol/internal/logger"
	"github.com/schmitthub/testcontrol/pkg/container"
)

// TestMethod describes one test method of a class.
type TestMethod struct {
	Name string

	// Func runs the method body against the resolved target instance.
	Func func(target any) error

	// Control refines the class-level settings for this method only.
	Control *Control

	// Timeout, when non-zero, marks a declared per-method timeout. Declared
	// timeouts are rejected, not honored: the method fails fast instead of
	// running on a second goroutine that would see no scope state.
	Timeout time.Duration
}

// TestClass describes one test class: a factory for the plain test
// instance, its methods, and the per-method setup/teardown funcs.
type TestClass struct {
	Name string

	// New constructs the plain test instance a method runs against when the
	// container does not manage the type.
	New func() any

	// Control carries the class-level settings; nil means nothing declared.
	Control *Control

	Methods []TestMethod

	// Before funcs run before each method, inside the decorator chain.
	Before []func(target any) error

	// After funcs run after each method, always, even when the method or a
	// Before func failed.
	After []func(target any) error
}

// Runner executes one test class with container-aware lifecycle handling.
// Construction resolves the class context, attaches the configured log
// handler, and snapshots the decorator factories; Run does the rest.
type Runner struct {
	class       *TestClass
	cfg         config.Config
	testContext *Context
	factories   []StatementDecoratorFactory
	suiteName   string
}

// RunnerOption customizes runner construction.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	cfg config.Config
}

// WithConfig supplies the process configuration directly instead of loading
// testcontrol.yaml from the working directory.
func WithConfig(cfg config.Config) RunnerOption {
	return func(o *runnerOptions) { o.cfg = cfg }
}

// NewRunner builds a runner for the given class. The class Control, when
// present, is the explicit class-level configuration; absent fields fall
// back to testcontrol.yaml and then to compiled defaults.
func NewRunner(class *TestClass, opts ...RunnerOption) (*Runner, error) {
	if err := validateClass(class); err != nil {
		return nil, err
	}

	var options runnerOptions
	for _, opt := range opts {
		opt(&options)
	}

	cfg := options.cfg
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load testcontrol.yaml, using compiled defaults")
			loaded = config.Defaults()
		}
		cfg = loaded
	}

	r := &Runner{
		class:       class,
		cfg:         cfg,
		testContext: newContext(class.Control, nil, rootDefaultsFromConfig(cfg)),
		factories:   snapshotDecoratorFactories(),
	}

	if handler := r.testContext.logHandlerName(); handler != "" {
		if err := logger.AttachHandler(handler); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// newChildRunner builds a runner whose class context is a child of the
// suite context. The suite shares its configuration with all children.
func newChildRunner(class *TestClass, suiteName string, parent *Context, cfg config.Config) (*Runner, error) {
	if err := validateClass(class); err != nil {
		return nil, err
	}

	r := &Runner{
		class:       class,
		cfg:         cfg,
		testContext: newContext(class.Control, parent, nil),
		factories:   snapshotDecoratorFactories(),
		suiteName:   suiteName,
	}

	if handler := r.testContext.logHandlerName(); handler != "" {
		if err := logger.AttachHandler(handler); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func validateClass(class *TestClass) error {
	if class == nil {
		return errors.New("test class must not be nil")
	}
	if class.Name == "" {
		return errors.New("test class needs a name")
	}
	if class.New == nil {
		return fmt.Errorf("test class %s needs an instance factory", class.Name)
	}
	for _, m := range class.Methods {
		if m.Name == "" || m.Func == nil {
			return fmt.Errorf("test class %s has a method without name or func", class.Name)
		}
	}
	return nil
}

// rootDefaultsFromConfig maps the process configuration onto the fallbacks
// a root context resolves against.
func rootDefaultsFromConfig(cfg config.Config) *rootDefaults {
	scopes := make([]container.Scope, 0, len(cfg.DefaultScopes()))
	for _, s := range cfg.DefaultScopes() {
		scopes = append(scopes, container.Scope(s))
	}

	return &rootDefaults{
		projectStage:            cfg.ProjectStage(),
		startScopes:             scopes,
		startExternalComponents: cfg.StartExternalComponents(),
		logHandler:              cfg.LogHandler(),
	}
}

// Run executes every method of the class. Infrastructure failures such as
// container boot or shutdown are returned; individual test failures reach
// the notifier's listeners and do not abort the remaining methods.
func (r *Runner) Run(notifier *RunNotifier) error {
	if notifier == nil {
		return errors.New("notifier must not be nil")
	}

	ctr, err := container.Loaded()
	if err != nil {
		return err
	}

	underSuite := SuiteContainerRunning()

	if !underSuite {
		// Not running as part of a suite: this runner makes sure the
		// notifier gets its one log listener.
		registerLogListenerOnce(notifier)
	}

	runID := uuid.NewString()
	logger.SetContext(runID, r.suiteName, r.class.Name, "")
	if !underSuite {
		defer logger.ClearContext()
	}

	if err := r.testContext.applyBeforeClassConfig(ctr); err != nil {
		return err
	}

	for i := range r.class.Methods {
		r.runChild(ctr, &r.class.Methods[i], notifier)
	}

	if !underSuite {
		clearNotifierIdentities()
	}
	return r.testContext.applyAfterClassConfig(ctr)
}

// runChild runs one method inside a fresh method-level context.
func (r *Runner) runChild(ctr container.Container, method *TestMethod, notifier *RunNotifier) {
	methodContext := newContext(method.Control, r.testContext, nil)
	methodContext.applyBeforeMethodConfig(ctr)

	logger.SetMethod(method.Name)
	defer func() {
		methodContext.applyAfterMethodConfig(ctr)
		logger.SetMethod("")
	}()

	target := r.class.New()
	statement := r.methodBlock(method, target)

	notifier.fireTestStarted(r.class.Name, method.Name)
	if err := statement.Evaluate(); err != nil {
		notifier.fireTestFailed(r.class.Name, method.Name, err)
	}
	notifier.fireTestFinished(r.class.Name, method.Name)
}

// methodBlock composes the statement chain for one method, innermost first:
// the invoker (or the timeout rejection), the Before funcs, the before
// decorators, the After funcs, and the after decorators outermost.
func (r *Runner) methodBlock(method *TestMethod, target any) Statement {
	var statement Statement
	if method.Timeout > 0 {
		statement = rejectTimeoutStatement()
	} else {
		statement = &methodInvoker{class: r.class, method: method, originalTarget: target}
	}

	statement = r.withBefores(statement, target)
	statement = wrapBeforeStatement(statement, r.factories, r.class, target)
	statement = r.withAfters(statement, target)
	statement = wrapAfterStatement(statement, r.factories, r.class, target)
	return statement
}

// withBefores runs the class Before funcs ahead of the statement. A failing
// Before skips the statement; the After funcs still run.
func (r *Runner) withBefores(statement Statement, target any) Statement {
	if len(r.class.Before) == 0 {
		return statement
	}
	befores := r.class.Before
	return StatementFunc(func() error {
		for _, before := range befores {
			if err := before(target); err != nil {
				return err
			}
		}
		return statement.Evaluate()
	})
}

// withAfters runs the class After funcs once the statement finishes,
// regardless of its outcome. All errors are reported together.
func (r *Runner) withAfters(statement Statement, target any) Statement {
	if len(r.class.After) == 0 {
		return statement
	}
	afters := r.class.After
	return StatementFunc(func() error {
		errs := []error{statement.Evaluate()}
		for _, after := range afters {
			errs = append(errs, after(target))
		}
		return errors.Join(errs...)
	})
}
