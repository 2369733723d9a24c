package testcontrol

import (
	"sync"
	"time"

	"github.com/schmitthub/testcontrol/internal/logger"
)

// RunListener observes test progress on a notifier.
type RunListener interface {
	TestStarted(class, method string)
	TestFinished(class, method string)
	TestFailed(class, method string, err error)
}

// RunNotifier fans test progress out to its listeners. One notifier is
// shared by all runners of a run; parallel harnesses may hand the same
// notifier to runners on different goroutines.
type RunNotifier struct {
	mu        sync.RWMutex
	listeners []RunListener
}

// NewRunNotifier returns an empty notifier.
func NewRunNotifier() *RunNotifier {
	return &RunNotifier{}
}

// AddListener appends a listener. Listeners fire in registration order.
func (n *RunNotifier) AddListener(l RunListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

func (n *RunNotifier) snapshot() []RunListener {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]RunListener, len(n.listeners))
	copy(out, n.listeners)
	return out
}

func (n *RunNotifier) fireTestStarted(class, method string) {
	for _, l := range n.snapshot() {
		l.TestStarted(class, method)
	}
}

func (n *RunNotifier) fireTestFinished(class, method string) {
	for _, l := range n.snapshot() {
		l.TestFinished(class, method)
	}
}

func (n *RunNotifier) fireTestFailed(class, method string, err error) {
	for _, l := range n.snapshot() {
		l.TestFailed(class, method, err)
	}
}

// notifierIdentities is the process-wide set of notifiers that already have
// a log listener attached. Keyed by notifier identity, not content: the same
// notifier handed to many runners gets exactly one listener.
var notifierIdentities = struct {
	sync.Mutex
	seen map[*RunNotifier]struct{}
}{seen: make(map[*RunNotifier]struct{})}

// registerLogListenerOnce atomically check-and-inserts the notifier into the
// identity set and attaches the logging listener on first sight. Safe under
// concurrent invocation from runners sharing the process.
func registerLogListenerOnce(n *RunNotifier) {
	notifierIdentities.Lock()
	defer notifierIdentities.Unlock()

	if _, ok := notifierIdentities.seen[n]; ok {
		return
	}
	notifierIdentities.seen[n] = struct{}{}
	n.AddListener(newLogRunListener())
}

// clearNotifierIdentities empties the identity set. Called when the owning
// level's after phase completes.
func clearNotifierIdentities() {
	notifierIdentities.Lock()
	defer notifierIdentities.Unlock()
	notifierIdentities.seen = make(map[*RunNotifier]struct{})
}

// logRunListener reports test progress through the global logger, with the
// wall time each test took.
type logRunListener struct {
	mu      sync.Mutex
	started map[string]time.Time
}

func newLogRunListener() *logRunListener {
	return &logRunListener{started: make(map[string]time.Time)}
}

func (l *logRunListener) TestStarted(class, method string) {
	l.mu.Lock()
	l.started[class+"#"+method] = time.Now()
	l.mu.Unlock()

	logger.Info().Str("class", class).Str("method", method).Msg("test started")
}

func (l *logRunListener) TestFinished(class, method string) {
	l.mu.Lock()
	start, ok := l.started[class+"#"+method]
	delete(l.started, class+"#"+method)
	l.mu.Unlock()

	event := logger.Info().Str("class", class).Str("method", method)
	if ok {
		event = event.Dur("took", time.Since(start))
	}
	event.Msg("test finished")
}

func (l *logRunListener) TestFailed(class, method string, err error) {
	logger.Error().Err(err).Str("class", class).Str("method", method).Msg("test failed")
}
