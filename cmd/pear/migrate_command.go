package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.connectStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.Migrate()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations (%s)\n", n, st.Dialect())
			return nil
		},
	}
}
