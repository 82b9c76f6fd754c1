package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidsub/internal/language"
	"vidsub/internal/services"
	"vidsub/internal/translation"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var source string
	var targets []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how each target language would be produced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src := normalizeLanguage(source)
			if src == "" {
				return services.Wrap(services.ErrValidation, "plan", "", "--from-language is required without a transcript", nil)
			}
			plan := translation.NewResolver(cfg.Translation.Hub).Resolve(src, normalizeLanguages(targets))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPlan(plan))
			if plan.NeedsRelay() {
				fmt.Fprintf(out, "Relay: %s is translated once and shared by relayed targets\n", plan.RelayPair())
			}
			return nil
		},
	}

	registerLanguageFlags(cmd, &source, &targets)
	return cmd
}

func renderPlan(plan translation.Plan) string {
	rows := make([][]string, 0, len(plan.Routes))
	for _, route := range plan.Routes {
		legs := make([]string, 0, len(route.Legs))
		for _, leg := range route.Legs {
			legs = append(legs, leg.String())
		}
		path := strings.Join(legs, ", ")
		if path == "" {
			path = "-"
		}
		rows = append(rows, []string{
			route.Target,
			language.DisplayName(route.Target),
			route.Kind.String(),
			path,
		})
	}
	return renderTable(
		[]string{"Target", "Name", "Route", "Legs"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
