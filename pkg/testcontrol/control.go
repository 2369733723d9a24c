package testcontrol

import (
	"github.com/schmitthub/testcontrol/pkg/container"
)

// DefaultProjectStage is the stage assumed when neither a Control nor the
// process configuration names one.
const DefaultProjectStage = "unit-test"

// Control carries the test-control settings for one execution level. A nil
// *Control means "nothing declared here": every field falls back to the
// enclosing level, and at the root to the process configuration defaults.
//
// The distinction between a nil Control and an explicitly supplied zero
// Control is load-bearing: the legacy request/session restriction at the
// root of the context tree triggers on the absence of a declared Control,
// not on its content.
type Control struct {
	// StartScopes lists the scopes to activate for this level. Empty means
	// use the default set (session and request).
	StartScopes []container.Scope

	// ProjectStage selects the deployment stage active while this level
	// executes. Empty means DefaultProjectStage for an explicit Control, or
	// the parent's stage when the Control itself was omitted.
	ProjectStage string

	// StartExternalComponents controls whether discovered external
	// components boot alongside the container. Nil inherits from the parent
	// and defaults to true at the root.
	StartExternalComponents *bool

	// LogHandler names a log handler registered with the logger package to
	// attach for the duration of the run. Empty attaches nothing.
	LogHandler string
}
