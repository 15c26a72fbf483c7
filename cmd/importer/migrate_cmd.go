package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/uniimport/internal/store/postgres"
)

func newMigrateCmd(global *globalOptions) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			pg, err := openPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			if status {
				version, err := postgres.Version(ctx, pg.Pool())
				if err != nil {
					return withCode(exitDB, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			}

			version, err := postgres.Migrate(ctx, pg.Pool())
			if err != nil {
				return withCode(exitDB, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print the current version without migrating")
	return cmd
}
