package testcontrol

import (
	"fmt"
	"sync"

	"github.com/schmitthub/testcontrol/pkg/container"
)

// gate is the process-wide container gatekeeper. Runner instances may
// execute on parallel goroutines, so every boot-or-skip and shutdown
// decision (the read and the act together) happens under this mutex.
var gate struct {
	mu sync.Mutex

	// booted is true while the shared container is up, regardless of which
	// level booted it.
	booted bool

	// suiteRunning is true while a suite owns the boot/shutdown pair. It
	// both answers the suite-level "already running" signal and suppresses
	// per-class shutdown.
	suiteRunning bool
}

// suiteContainerRunning is the suite-level environment signal consulted
// before boot and shutdown decisions.
func suiteContainerRunning() bool {
	gate.mu.Lock()
	defer gate.mu.Unlock()
	return gate.suiteRunning
}

// SuiteContainerRunning reports whether a suite-level container run is in
// progress.
func SuiteContainerRunning() bool { return suiteContainerRunning() }

// setSuiteRunning flips the suite signal. Only the suite runner calls this.
func setSuiteRunning(running bool) {
	gate.mu.Lock()
	defer gate.mu.Unlock()
	gate.suiteRunning = running
}

// containerBooted reports the shared booted flag.
func containerBooted() bool {
	gate.mu.Lock()
	defer gate.mu.Unlock()
	return gate.booted
}

// ensureBooted boots the container unless this context's ancestry or the
// shared flag already reports it running. The level that performs the boot
// becomes the owner: only it may shut the container down later. External
// components boot here too, on the owning context, when enabled.
//
// Boot failure of the container itself is fatal and propagates.
func ensureBooted(ctx *Context, ctr container.Container) error {
	gate.mu.Lock()
	defer gate.mu.Unlock()

	if ctx.bootedInChain() || gate.booted {
		return nil
	}

	if err := ctr.Boot(); err != nil {
		return fmt.Errorf("container boot failed: %w", err)
	}

	ctx.containerStartedHere = true
	gate.booted = true

	ctx.bootExternalComponents()
	return nil
}

// shutdownIfOwner shuts the container down, but only when ctx is the level
// that booted it and no suite run suppresses per-class shutdown. External
// components shut down first, best-effort; the container shutdown itself is
// fatal on failure. The shared booted flag clears afterward.
func shutdownIfOwner(ctx *Context, ctr container.Container) error {
	gate.mu.Lock()
	defer gate.mu.Unlock()

	if !ctx.containerStartedHere {
		return nil
	}
	if gate.suiteRunning {
		// The suite owns the single boot/shutdown pair; it clears the
		// signal before tearing down its own context.
		return nil
	}

	ctx.shutdownExternalComponents()

	if err := ctr.Shutdown(); err != nil {
		return fmt.Errorf("container shutdown failed: %w", err)
	}

	gate.booted = false
	ctx.containerStartedHere = false
	return nil
}

// resetGatekeeper clears all process-wide state. For tests.
func resetGatekeeper() {
	gate.mu.Lock()
	defer gate.mu.Unlock()
	gate.booted = false
	gate.suiteRunning = false
}
