// Package cmdutil provides shared dependencies for CLI commands.
package cmdutil

import (
	"github.com/schmitthub/testcontrol/internal/config"
	"github.com/schmitthub/testcontrol/internal/iostreams"
)

// Factory provides shared dependencies for CLI commands. The struct defines
// what dependencies exist; New wires the real implementations. Commands
// extract only the fields they need.
type Factory struct {
	// Configuration from flags (set before command execution)
	WorkDir string
	Debug   bool

	// Version info (set at build time via ldflags)
	Version string
	Commit  string

	// IO streams for input/output (for testability)
	IOStreams *iostreams.IOStreams

	// Config loads the process defaults lazily, caching the result.
	Config func() (config.Config, error)
}

// New creates a Factory bound to the system streams.
func New(version, commit string) *Factory {
	f := &Factory{
		Version:   version,
		Commit:    commit,
		IOStreams: iostreams.System(),
	}

	var (
		cached   config.Config
		cacheErr error
		loaded   bool
	)
	f.Config = func() (config.Config, error) {
		if !loaded {
			cached, cacheErr = config.Load(f.WorkDir)
			loaded = true
		}
		return cached, cacheErr
	}

	return f
}
