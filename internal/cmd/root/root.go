package root

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	inspectcmd "github.com/schmitthub/testcontrol/internal/cmd/inspect"
	versioncmd "github.com/schmitthub/testcontrol/internal/cmd/version"
	"github.com/schmitthub/testcontrol/internal/cmdutil"
	"github.com/schmitthub/testcontrol/internal/config"
	"github.com/schmitthub/testcontrol/internal/logger"
)

// NewCmdRoot creates the root command for the testcontrol CLI.
func NewCmdRoot(f *cmdutil.Factory, version, buildDate string) (*cobra.Command, error) {
	var debug bool

	cmd := &cobra.Command{
		Use:   "testcontrol",
		Short: "Inspect container-aware test lifecycle configuration",
		Long: `Testcontrol coordinates a shared DI container and scoped resource
contexts across test execution. This CLI inspects what a test run would
discover: registered hook decorators, external components, log handlers,
and the defaults resolved from ` + config.ConfigFileName + `.`,
		SilenceUsage: true,
		Annotations: map[string]string{
			"versionInfo": versioncmd.Format(version, buildDate),
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initializeLogger(f, debug)

			logger.Debug().
				Str("version", f.Version).
				Bool("debug", debug).
				Msg("testcontrol starting")

			return nil
		},
		Version: f.Version,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&f.WorkDir, "dir", "", "Directory to resolve testcontrol.yaml from")

	// Accept snake_case spellings of flag names for config-key parity.
	cmd.SetGlobalNormalizationFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	// Version template
	cmd.SetVersionTemplate(versioncmd.Format(version, buildDate) + "\n")

	cmd.AddCommand(inspectcmd.NewCmdInspect(f))
	cmd.AddCommand(versioncmd.NewCmdVersion(f, version, buildDate))

	return cmd, nil
}

// initializeLogger sets up the logger with file logging if configured.
// Falls back to console-only logging on any errors.
func initializeLogger(f *cmdutil.Factory, debug bool) {
	cfg, err := f.Config()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to load config")
		return
	}

	logsDir := cfg.LogsDir()
	if logsDir == "" {
		logger.Init(debug)
		return
	}

	lc := cfg.LoggingConfig()
	if err := logger.InitWithFile(debug, logsDir, &logger.LoggingConfig{
		FileEnabled: lc.FileEnabled,
		MaxSizeMB:   lc.MaxSizeMB,
		MaxAgeDays:  lc.MaxAgeDays,
		MaxBackups:  lc.MaxBackups,
	}); err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable")
	}
}
