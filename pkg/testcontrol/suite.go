package testcontrol

import (
	"errors"

	"github.com/google/uuid"

	"github.com/schmitthub/testcontrol/internal/config"
	"github.com/schmitthub/testcontrol/internal/logger"
	"github.com/schmitthub/testcontrol/pkg/container"
)

// SuiteRunner runs several test classes against a single container
// boot/shutdown pair. While the suite runs, the suite-level signal is set:
// child runners skip their own boot and their after-class phase leaves the
// container alone.
type SuiteRunner struct {
	name    string
	control *Control
	classes []*TestClass
	cfg     config.Config
}

// NewSuiteRunner builds a suite over the given classes. control, when
// present, is the suite-level configuration every class inherits from.
func NewSuiteRunner(name string, control *Control, classes []*TestClass, opts ...RunnerOption) (*SuiteRunner, error) {
	if name == "" {
		return nil, errors.New("suite needs a name")
	}
	if len(classes) == 0 {
		return nil, errors.New("suite needs at least one test class")
	}
	for _, class := range classes {
		if err := validateClass(class); err != nil {
			return nil, err
		}
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

	return &SuiteRunner{
		name:    name,
		control: control,
		classes: classes,
		cfg:     cfg,
	}, nil
}

// Run boots the container once, runs every class, and shuts the container
// down again. The suite context owns the boot: child contexts see the suite
// signal and never attempt their own boot or shutdown. Class-level
// infrastructure failures abort the suite; the teardown still runs.
func (s *SuiteRunner) Run(notifier *RunNotifier) error {
	if notifier == nil {
		return errors.New("notifier must not be nil")
	}

	ctr, err := container.Loaded()
	if err != nil {
		return err
	}

	registerLogListenerOnce(notifier)

	runID := uuid.NewString()
	logger.SetContext(runID, s.name, "", "")
	defer logger.ClearContext()

	suiteContext := newContext(s.control, nil, rootDefaultsFromConfig(s.cfg))

	setSuiteRunning(true)

	if err := ensureBooted(suiteContext, ctr); err != nil {
		setSuiteRunning(false)
		return err
	}

	logger.Info().Str("suite", s.name).Int("classes", len(s.classes)).Msg("suite started")

	var runErr error
	for _, class := range s.classes {
		child, err := newChildRunner(class, s.name, suiteContext, s.cfg)
		if err != nil {
			runErr = err
			break
		}
		if err := child.Run(notifier); err != nil {
			runErr = err
			break
		}
	}

	// Clearing the signal re-enables shutdown; the suite context is the
	// owner, so shutdownIfOwner tears the container down now.
	setSuiteRunning(false)
	clearNotifierIdentities()

	if err := shutdownIfOwner(suiteContext, ctr); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			runErr = errors.Join(runErr, err)
		}
	}

	logger.Info().Str("suite", s.name).Msg("suite finished")
	return runErr
}
