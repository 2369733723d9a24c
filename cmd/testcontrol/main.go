// testcontrol is the diagnostic CLI for the container-aware test runner.
package main

import (
	"fmt"
	"os"

	"github.com/schmitthub/testcontrol/internal/cmd/root"
	"github.com/schmitthub/testcontrol/internal/cmdutil"
	"github.com/schmitthub/testcontrol/internal/logger"
)

// Set at build time via ldflags.
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	f := cmdutil.New(version, buildDate)

	rootCmd, err := root.NewCmdRoot(f, version, buildDate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	defer func() {
		_ = logger.CloseFileWriter()
	}()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}
