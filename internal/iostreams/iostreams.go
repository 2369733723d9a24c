// Package iostreams provides access to standard input/output/error streams
// following the GitHub CLI pattern for testable I/O.
package iostreams

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/term"
)

// IOStreams bundles the three standard streams so commands never touch
// os.Stdin/os.Stdout directly.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// isOutputTTY caches whether stdout is a terminal.
	// -1 = unchecked, 0 = false, 1 = true
	isOutputTTY int
}

// System returns IOStreams bound to the process streams.
func System() *IOStreams {
	return &IOStreams{
		In:          os.Stdin,
		Out:         os.Stdout,
		ErrOut:      os.Stderr,
		isOutputTTY: -1,
	}
}

// IsOutputTTY reports whether stdout is a terminal.
func (s *IOStreams) IsOutputTTY() bool {
	if s.isOutputTTY == -1 {
		if f, ok := s.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			s.isOutputTTY = 1
		} else {
			s.isOutputTTY = 0
		}
	}
	return s.isOutputTTY == 1
}

// TestIOStreams holds IOStreams plus the buffers behind them.
type TestIOStreams struct {
	*IOStreams
	InBuf  *bytes.Buffer
	OutBuf *bytes.Buffer
	ErrBuf *bytes.Buffer
}

// Test returns IOStreams backed by buffers for assertions.
func Test() *TestIOStreams {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestIOStreams{
		IOStreams: &IOStreams{In: in, Out: out, ErrOut: errOut},
		InBuf:     in,
		OutBuf:    out,
		ErrBuf:    errOut,
	}
}
