package testcontrol

import "sync"

// The active project stage is process-wide, like the producer it replaces:
// container-managed beans read it while a test method executes, and each
// method-level context saves and restores it around the invocation.
var (
	stageMu      sync.RWMutex
	currentStage = DefaultProjectStage
)

// CurrentProjectStage returns the process-wide active project stage.
func CurrentProjectStage() string {
	stageMu.RLock()
	defer stageMu.RUnlock()
	return currentStage
}

// SetProjectStage sets the process-wide active project stage.
func SetProjectStage(stage string) {
	stageMu.Lock()
	defer stageMu.Unlock()
	if stage == "" {
		stage = DefaultProjectStage
	}
	currentStage = stage
}
