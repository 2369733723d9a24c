// Package inspect implements the "inspect" subcommand: a diagnostic dump of
// everything the runner would discover at construction time, including
// decorator factories, external components, log handlers, and the resolved
// process defaults.
package inspect

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/schmitthub/testcontrol/internal/cmdutil"
	"github.com/schmitthub/testcontrol/internal/logger"
	"github.com/schmitthub/testcontrol/pkg/testcontrol"
)

type report struct {
	Defaults   defaultsReport `yaml:"defaults"`
	Decorators []entry        `yaml:"decorator_factories"`
	Components []entry        `yaml:"external_components"`
	Handlers   []string       `yaml:"log_handlers"`
}

type defaultsReport struct {
	ProjectStage            string   `yaml:"project_stage"`
	DefaultScopes           []string `yaml:"default_scopes"`
	StartExternalComponents bool     `yaml:"start_external_components"`
	LogHandler              string   `yaml:"log_handler,omitempty"`
}

type entry struct {
	Type    string `yaml:"type"`
	Ordinal int    `yaml:"ordinal"`
}

// NewCmdInspect creates the "inspect" subcommand.
func NewCmdInspect(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show discovered hooks, external components, and resolved defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.Config()
			if err != nil {
				return err
			}

			rep := report{
				Defaults: defaultsReport{
					ProjectStage:            cfg.ProjectStage(),
					DefaultScopes:           cfg.DefaultScopes(),
					StartExternalComponents: cfg.StartExternalComponents(),
					LogHandler:              cfg.LogHandler(),
				},
			}

			for _, factory := range testcontrol.DecoratorFactories() {
				rep.Decorators = append(rep.Decorators, entry{
					Type:    fmt.Sprintf("%T", factory),
					Ordinal: factory.Ordinal(),
				})
			}
			for _, component := range testcontrol.ExternalComponents() {
				rep.Components = append(rep.Components, entry{
					Type:    fmt.Sprintf("%T", component),
					Ordinal: component.Ordinal(),
				})
			}

			rep.Handlers = logger.HandlerNames()
			sort.Strings(rep.Handlers)

			out, err := yaml.Marshal(rep)
			if err != nil {
				return err
			}
			fmt.Fprint(f.IOStreams.Out, string(out))
			return nil
		},
	}
}
