package main

import (
	"fmt"

	"github.com/okian/rapport/internal/adapters/repository"
	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the schema of the configured SQL store.",
		Long: `Migrate moves the sqlite, postgres or mysql schema to --target.
A negative target means the latest version; 0 rolls everything back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			backend, err := cfg.Backend()
			if err != nil {
				return err
			}
			res, err := repository.Migrate(cmd.Context(), backend, cfg.StoreDSN, target)
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema already at version %d\n", backend, res.To)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema migrated from version %d to %d\n", backend, res.From, res.To)
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "target", repository.LatestVersion, "schema version to migrate to")
	return cmd
}
