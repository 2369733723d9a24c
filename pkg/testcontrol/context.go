package testcontrol

import (
	"github.com/schmitthub/testcontrol/internal/logger"
	"github.com/schmitthub/testcontrol/pkg/container"
)

// defaultStartScopes is the canonical default scope set activated when a
// level declares no scopes of its own.
var defaultStartScopes = []container.Scope{container.ScopeSession, container.ScopeRequest}

// rootDefaults carries the process-configuration fallbacks applied at the
// root of a context tree. Levels below the root inherit from their parent
// instead.
type rootDefaults struct {
	projectStage            string
	startScopes             []container.Scope
	startExternalComponents bool
	logHandler              string
}

// Context is one node in the suite → class → method execution tree. It
// records which scopes this level activated, whether this level booted the
// container, and the control settings resolved for it. The parent link is
// read-only: a context never mutates its ancestors.
type Context struct {
	parent *Context

	// control is the declared settings for this level; nil when the level
	// declared nothing.
	control *Control

	// explicit is true when a Control was supplied for this level. The
	// legacy request/session restriction keys on this, not on the control's
	// content.
	explicit bool

	// defaults is set only on root contexts.
	defaults *rootDefaults

	projectStage  string
	previousStage string

	// containerStartedHere is true only for the level that booted the
	// container. At most one context in the process carries it at a time.
	containerStartedHere bool

	// startedScopes is the LIFO record of scopes this level activated.
	startedScopes []container.Scope

	// externalComponents is populated only by the context that boots the
	// container; discovered once, ordinal-sorted.
	externalComponents []ExternalComponent
}

// newContext builds a context for one execution level. control may be nil
// (nothing declared); defaults apply only when parent is nil.
func newContext(control *Control, parent *Context, defaults *rootDefaults) *Context {
	ctx := &Context{
		parent:   parent,
		control:  control,
		explicit: control != nil,
		defaults: defaults,
	}
	ctx.projectStage = ctx.resolveProjectStage()
	return ctx
}

// resolveProjectStage resolves the stage effective for this level. An
// explicit Control pins its own stage (defaulting when empty); an omitted
// Control inherits the parent's stage, or the root defaults at the top.
func (c *Context) resolveProjectStage() string {
	if c.explicit {
		if c.control.ProjectStage != "" {
			return c.control.ProjectStage
		}
		return DefaultProjectStage
	}
	if c.parent != nil {
		return c.parent.projectStage
	}
	if c.defaults != nil && c.defaults.projectStage != "" {
		return c.defaults.projectStage
	}
	return DefaultProjectStage
}

// declaredScopes returns the scope list declared for this level, falling
// back to the root defaults for a root context with nothing declared.
func (c *Context) declaredScopes() []container.Scope {
	if c.control != nil && len(c.control.StartScopes) > 0 {
		return c.control.StartScopes
	}
	if c.parent == nil && c.defaults != nil && len(c.defaults.startScopes) > 0 {
		return c.defaults.startScopes
	}
	return nil
}

// startExternalComponentsEnabled resolves the flag along the parent chain,
// with the root defaults as the final fallback.
func (c *Context) startExternalComponentsEnabled() bool {
	if c.control != nil && c.control.StartExternalComponents != nil {
		return *c.control.StartExternalComponents
	}
	if c.parent != nil {
		return c.parent.startExternalComponentsEnabled()
	}
	if c.defaults != nil {
		return c.defaults.startExternalComponents
	}
	return true
}

// logHandlerName resolves the configured log handler along the parent
// chain; empty means none.
func (c *Context) logHandlerName() string {
	if c.control != nil && c.control.LogHandler != "" {
		return c.control.LogHandler
	}
	if c.parent != nil {
		return c.parent.logHandlerName()
	}
	if c.defaults != nil {
		return c.defaults.logHandler
	}
	return ""
}

// ProjectStage returns the stage resolved for this level.
func (c *Context) ProjectStage() string { return c.projectStage }

// ContainerStartedHere reports whether this level booted the container.
func (c *Context) ContainerStartedHere() bool { return c.containerStartedHere }

// isContainerBootedInAncestry is true when this context or any ancestor
// booted the container, or the suite-level signal reports it running.
func (c *Context) isContainerBootedInAncestry() bool {
	return c.bootedInChain() || suiteContainerRunning()
}

// bootedInChain walks only the parent chain, without the suite signal.
func (c *Context) bootedInChain() bool {
	if c.containerStartedHere {
		return true
	}
	if c.parent != nil {
		return c.parent.bootedInChain()
	}
	return false
}

// isScopeActiveInAncestry reports whether the scope is on the started stack
// of this context or any ancestor.
func (c *Context) isScopeActiveInAncestry(scope container.Scope) bool {
	for _, s := range c.startedScopes {
		if s == scope {
			return true
		}
	}
	if c.parent != nil {
		return c.parent.isScopeActiveInAncestry(scope)
	}
	return false
}

// applyBeforeClassConfig boots the container if no ancestor (nor the suite
// signal) reports it running, then activates the class-level scopes.
// Container-managed scopes are always restricted at class level; request and
// session are additionally restricted for a root context without an explicit
// Control, preserving the legacy default behavior.
func (c *Context) applyBeforeClassConfig(ctr container.Container) error {
	if !c.isContainerBootedInAncestry() {
		if err := ensureBooted(c, ctr); err != nil {
			return err
		}
	}

	restricted := []container.Scope{container.ScopeApplication, container.ScopeSingleton}
	if c.parent == nil && !c.explicit {
		restricted = append(restricted, container.ScopeRequest, container.ScopeSession)
	}

	c.activateScopes(ctr, restricted...)
	return nil
}

// applyAfterClassConfig reverses the class-level scope activation and, only
// when this level booted the container, shuts it down again.
func (c *Context) applyAfterClassConfig(ctr container.Container) error {
	c.deactivateScopes(ctr)
	return shutdownIfOwner(c, ctr)
}

// applyBeforeMethodConfig swaps in this level's project stage and activates
// the method-level scopes.
func (c *Context) applyBeforeMethodConfig(ctr container.Container) {
	c.previousStage = CurrentProjectStage()
	SetProjectStage(c.projectStage)

	c.activateScopes(ctr)
}

// applyAfterMethodConfig reverses the method-level scope activation and
// restores the saved project stage, even when deactivation panics.
func (c *Context) applyAfterMethodConfig(ctr container.Container) {
	defer func() {
		SetProjectStage(c.previousStage)
		c.previousStage = ""
	}()
	c.deactivateScopes(ctr)
}

// activateScopes computes the requested scope set (declared, or the default
// set), skips scopes active in an ancestor or restricted for this phase,
// and activates the rest. Each scope is stopped before it is started so the
// activation always begins from a clean context. Activation is best-effort:
// a failing scope is logged and the remaining scopes still activate.
func (c *Context) activateScopes(ctr container.Container, restricted ...container.Scope) {
	scopeControl := ctr.ScopeControl()

	scopes := c.declaredScopes()
	if len(scopes) == 0 {
		scopes = c.scopesForDefaultBehavior()
	}

	for _, scope := range scopes {
		if c.parent != nil && c.parent.isScopeActiveInAncestry(scope) {
			continue
		}
		if isRestrictedScope(scope, restricted) {
			continue
		}

		// Stop first to force a clean context.
		if err := scopeControl.StopScope(scope); err != nil {
			logger.Error().Err(err).Str("scope", string(scope)).Msg("failed to reset scope")
			continue
		}
		if err := scopeControl.StartScope(scope); err != nil {
			logger.Error().Err(err).Str("scope", string(scope)).Msg("failed to start scope")
			continue
		}
		c.startedScopes = append(c.startedScopes, scope)
	}
}

// scopesForDefaultBehavior returns the default scope set minus anything an
// ancestor already has active.
func (c *Context) scopesForDefaultBehavior() []container.Scope {
	var scopes []container.Scope
	for _, scope := range defaultStartScopes {
		if c.parent != nil && c.parent.isScopeActiveInAncestry(scope) {
			continue
		}
		scopes = append(scopes, scope)
	}
	return scopes
}

// deactivateScopes pops the started stack in reverse activation order and
// stops each scope. Teardown never short-circuits: a failing scope is
// logged and the remaining entries are still processed.
func (c *Context) deactivateScopes(ctr container.Container) {
	scopeControl := ctr.ScopeControl()

	for len(c.startedScopes) > 0 {
		last := len(c.startedScopes) - 1
		scope := c.startedScopes[last]
		c.startedScopes = c.startedScopes[:last]

		if err := scopeControl.StopScope(scope); err != nil {
			logger.Error().Err(err).Str("scope", string(scope)).Msg("failed to stop scope")
		}
	}
}

func isRestrictedScope(scope container.Scope, restricted []container.Scope) bool {
	for _, r := range restricted {
		if scope == r {
			return true
		}
	}
	return false
}

// bootExternalComponents discovers and boots the external components, once,
// on the context that booted the container. A component failing to boot is
// logged and does not prevent the others from booting.
func (c *Context) bootExternalComponents() {
	if !c.startExternalComponentsEnabled() {
		return
	}

	if c.externalComponents == nil {
		c.externalComponents = discoverExternalComponents()

		for _, component := range c.externalComponents {
			if err := component.Boot(); err != nil {
				logger.Warn().Err(err).
					Int("ordinal", component.Ordinal()).
					Msgf("booting external component %T failed", component)
			}
		}
	}
}

// shutdownExternalComponents shuts down the components this context booted,
// log-and-continue like the boot path.
func (c *Context) shutdownExternalComponents() {
	for _, component := range c.externalComponents {
		if err := component.Shutdown(); err != nil {
			logger.Warn().Err(err).
				Int("ordinal", component.Ordinal()).
				Msgf("shutting down external component %T failed", component)
		}
	}
}
