package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidsub/internal/deps"
	"vidsub/internal/preflight"
	"vidsub/internal/services"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external tools required by the configured backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			if full {
				results := preflight.RunAll(cmd.Context(), cfg)
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				return preflight.Err(results)
			}

			statuses := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				location := s.Path
				if !s.Available {
					location = s.Detail
				}
				rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), yesNo(!s.Optional), location})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Command", "Available", "Required", "Location"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return services.Wrap(services.ErrConfiguration, "deps", "check", fmt.Sprintf("%d required tool(s) missing", len(missing)), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "all", false, "Also check directories and the translation backend")
	return cmd
}
