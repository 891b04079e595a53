package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/getmockd/hyperstub/pkg/config"
	"github.com/getmockd/hyperstub/pkg/logging"
	"github.com/getmockd/hyperstub/pkg/schema"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// app carries state shared by the commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	jsonOutput bool

	// onReady is called by serve once its listeners are bound. control is
	// nil when the control API is disabled.
	onReady func(mock, control net.Addr)
}

// NewRootCommand builds the hyperstub command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	a.v = config.NewViper()

	root := &cobra.Command{
		Use:   "hyperstub",
		Short: "hyperstub serves a mock HTTP API synthesized from a hyper-schema",
		Long: `hyperstub reads a JSON hyper-schema and answers every link it declares with
an object built from the examples in the schema. Path parameters override
the matching properties, and canned responses can be registered at runtime
through the control API.

Configuration can be provided via flags, HYPERSTUB_* environment variables,
or a configuration file passed with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "Config file (YAML, JSON or TOML)")
	pf.BoolVar(&a.jsonOutput, "json", false, "Output command results in JSON format")
	pf.StringSliceP("schema", "s", nil, "Schema file or glob, repeatable (positional arguments take precedence)")
	pf.Bool("strict", false, "Fail when any $ref does not resolve")
	pf.StringToString("identity", nil, "Identity attribute per definition, e.g. app-setup=id")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newServeCmd(a),
		newFactoryCmd(a),
		newRoutesCmd(a),
		newValidateCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// Execute runs the CLI and exits the process.
func Execute() {
	os.Exit(Main())
}

// persistentBindings maps config keys to root flags.
var persistentBindings = map[string]string{
	"schemas":           "schema",
	"strict_references": "strict",
	"identity":          "identity",
	"log.level":         "log-level",
	"log.format":        "log-format",
}

// load binds the flags of cmd, applies positional schema arguments and
// returns the validated configuration.
func (a *app) load(cmd *cobra.Command, args []string, bindings map[string]string) (*config.Config, error) {
	if err := bindFlags(a.v, cmd.Flags(), persistentBindings); err != nil {
		return nil, err
	}
	if err := bindFlags(a.v, cmd.Flags(), bindings); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		a.v.Set("schemas", args)
	}
	return config.Load(a.v, a.configFile)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag --%s is not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return logging.New(cfg.Logging(w))
}

func loadSchema(cfg *config.Config) (*schema.Schema, error) {
	var opts []schema.Option
	for def, attr := range cfg.Identity {
		opts = append(opts, schema.WithIdentityAttribute(def, attr))
	}
	if cfg.StrictReferences {
		opts = append(opts, schema.WithStrictReferences())
	}
	return schema.LoadFiles(cfg.Schemas, opts...)
}
