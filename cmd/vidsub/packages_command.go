package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidsub/internal/packagedb"
	"vidsub/internal/services"
	"vidsub/internal/services/argos"
)

func newPackagesCommand(ctx *commandContext) *cobra.Command {
	packagesCmd := &cobra.Command{
		Use:   "packages",
		Short: "List translation packages recorded as installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPackageStore(ctx, func(store *packagedb.Store) error {
				pkgs, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(pkgs) == 0 {
					fmt.Fprintf(out, "No translation packages recorded in %s\n", store.Path())
					return nil
				}
				rows := make([][]string, 0, len(pkgs))
				for _, p := range pkgs {
					rows = append(rows, []string{
						p.Backend,
						p.Source + " -> " + p.Target,
						p.InstalledAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Backend", "Pair", "Installed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	packagesCmd.AddCommand(newPackagesForgetCommand(ctx))
	return packagesCmd
}

func newPackagesForgetCommand(ctx *commandContext) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "forget <source> <target>",
		Short: "Drop a pair from the registry so the next run re-checks it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := normalizeLanguage(args[0])
			target := normalizeLanguage(args[1])
			if source == "" || target == "" {
				return services.Wrap(services.ErrValidation, "packages", "forget", "source and target are required", nil)
			}
			return withPackageStore(ctx, func(store *packagedb.Store) error {
				if err := store.Forget(cmd.Context(), strings.TrimSpace(backend), source, target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s package %s -> %s\n", backend, source, target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&backend, "backend", argos.BackendName, "Backend the package was recorded for")
	return cmd
}

func withPackageStore(ctx *commandContext, fn func(*packagedb.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := packagedb.Open(cfg.Paths.PackageDB)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "packages", "open registry", cfg.Paths.PackageDB, err)
	}
	defer store.Close()
	return fn(store)
}
