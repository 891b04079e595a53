package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/hyperstub/pkg/cli/internal/output"
	"github.com/getmockd/hyperstub/pkg/synth"
)

// ValidateResult is the JSON output of the validate command.
type ValidateResult struct {
	Valid       bool     `json:"valid"`
	Definitions int      `json:"definitions"`
	Routes      int      `json:"routes"`
	Errors      []string `json:"errors,omitempty"`
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [schema...]",
		Short: "Check a schema without starting the server",
		Long: `Load the schema, compile every link template and resolve every $ref.
All problems are reported, and the command fails when there is any.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, args, nil)
			if err != nil {
				return err
			}
			// References are checked below so all of them get reported.
			cfg.StrictReferences = false
			sch, err := loadSchema(cfg)
			if err != nil {
				return err
			}

			var res ValidateResult
			res.Definitions = len(sch.Definitions())
			if idx, err := synth.NewIndex(sch); err != nil {
				res.Errors = append(res.Errors, err.Error())
			} else {
				res.Routes = len(idx.Routes())
			}
			if err := sch.Validate(); err != nil {
				res.Errors = append(res.Errors, unjoin(err)...)
			}
			res.Valid = len(res.Errors) == 0

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				if err := output.JSON(out, res); err != nil {
					return err
				}
			} else {
				for _, e := range res.Errors {
					fmt.Fprintf(out, "ERROR %s\n", e)
				}
				if res.Valid {
					fmt.Fprintf(out, "Schema OK: %d definitions, %d routes\n", res.Definitions, res.Routes)
				}
			}
			if !res.Valid {
				return fmt.Errorf("schema has %d problem(s)", len(res.Errors))
			}
			return nil
		},
	}
}

func unjoin(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
