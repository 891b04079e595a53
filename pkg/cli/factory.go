package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/hyperstub/pkg/cli/internal/output"
	"github.com/getmockd/hyperstub/pkg/cli/internal/parse"
	"github.com/getmockd/hyperstub/pkg/config"
	"github.com/getmockd/hyperstub/pkg/factory"
	"github.com/getmockd/hyperstub/pkg/logging"
)

var factoryBindings = map[string]string{
	"validate_factories": "validate",
	"preload":            "preload",
}

func newFactoryCmd(a *app) *cobra.Command {
	var (
		sets []string
		data string
	)

	cmd := &cobra.Command{
		Use:   "factory <definition> [schema...]",
		Short: "Print an object built from a definition's examples",
		Long: `Build an object for a definition the same way the mock server does and
print it as JSON. Custom properties are merged over the examples; --data
supplies a JSON object and --set assigns single properties, whose values are
read as JSON when they parse and as strings otherwise.`,
		Example: `  hyperstub factory app schema.json
  hyperstub factory app schema.json --set name=demo --set maintenance=true
  hyperstub factory app schema.json --data '{"region":{"name":"eu"}}' --validate`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, args[1:], factoryBindings)
			if err != nil {
				return err
			}

			custom := map[string]any{}
			if data != "" {
				if err := json.Unmarshal([]byte(data), &custom); err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
			}
			assigned, err := parse.Properties(sets)
			if err != nil {
				return err
			}
			custom = factory.Merge(custom, assigned)

			obj, err := a.buildFactory(cmd, cfg, args[0], custom)
			if err != nil {
				var invalid *factory.InvalidFactoryError
				if errors.As(err, &invalid) {
					for _, v := range invalid.Violations {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", v.Property, v.Message)
					}
				}
				return err
			}
			return output.JSON(cmd.OutOrStdout(), obj)
		},
	}

	fs := cmd.Flags()
	fs.StringArrayVar(&sets, "set", nil, "Custom property as key=value, repeatable")
	fs.StringVar(&data, "data", "", "Custom properties as a JSON object")
	fs.Bool("validate", false, "Check custom properties against schema type and enum constraints")
	fs.String("preload", "", "File whose factory definitions are registered before building")
	return cmd
}

func (a *app) buildFactory(cmd *cobra.Command, cfg *config.Config, name string, custom map[string]any) (map[string]any, error) {
	log := newLogger(cmd.ErrOrStderr(), cfg)

	sch, err := loadSchema(cfg)
	if err != nil {
		return nil, err
	}

	f := factory.New(sch,
		factory.WithValidation(cfg.ValidateFactories),
		factory.WithLogger(logging.Component(log, "factory")),
	)
	if cfg.Preload != "" {
		p, err := config.LoadPreload(cfg.Preload)
		if err != nil {
			return nil, err
		}
		for def, props := range p.Factories {
			f.Define(def, props)
		}
	}
	return f.Build(name, custom)
}
