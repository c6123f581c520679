package cli

import (
	"fmt"

	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := dbx.OpenSQLite(ctx, opts.db, dbx.ReadWrite)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repomanager.NewSQLiteRepositoryManager().RunMigrations(ctx, db); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", opts.db)
			return nil
		},
	}
}
