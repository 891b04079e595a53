package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/hyperstub/pkg/cli/internal/output"
	"github.com/getmockd/hyperstub/pkg/synth"
)

func newRoutesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [schema...]",
		Short: "List the routes served for a schema",
		Long: `List every link of the schema in the order the mock server matches them,
with the definition that answers it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, args, nil)
			if err != nil {
				return err
			}
			sch, err := loadSchema(cfg)
			if err != nil {
				return err
			}
			idx, err := synth.NewIndex(sch)
			if err != nil {
				return err
			}

			routes := idx.Routes()
			if a.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), routes)
			}

			tw := output.Table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "METHOD\tHREF\tDEFINITION\tTITLE")
			for _, r := range routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Method, r.Href, r.Definition, r.Title)
			}
			return tw.Flush()
		},
	}
}
