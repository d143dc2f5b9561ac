package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List processed transcript sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				sessions, err := st.ListSessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonMode {
					if sessions == nil {
						sessions = []store.Session{}
					}
					return writeJSON(cmd, sessions)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
					return nil
				}

				rows := make([][]string, 0, len(sessions))
				for _, s := range sessions {
					rows = append(rows, []string{
						shortID(s.ID),
						s.Filename,
						s.GroupName,
						s.SessionDate,
						s.ProcessingStatus,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Filename", "Group", "Date", "Status"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of sessions to list")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")

	return cmd
}
