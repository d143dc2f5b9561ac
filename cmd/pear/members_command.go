package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/store"
)

func newMembersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage the members used to resolve participant names",
	}
	cmd.AddCommand(newMembersAddCommand(ctx))
	cmd.AddCommand(newMembersListCommand(ctx))
	return cmd
}

func newMembersAddCommand(ctx *commandContext) *cobra.Command {
	var email, group string

	cmd := &cobra.Command{
		Use:   "add <full name>",
		Short: "Register a member",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				return fmt.Errorf("member name is empty")
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				m := &store.Member{FullName: name, Email: email, GroupName: group}
				if err := st.InsertMember(cmd.Context(), m); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added member %s (%s)\n", m.FullName, m.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Member email")
	cmd.Flags().StringVar(&group, "group", "", "Member group")

	return cmd
}

func newMembersListCommand(ctx *commandContext) *cobra.Command {
	var jsonMode bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				members, err := st.ListMembers(cmd.Context())
				if err != nil {
					return err
				}
				if jsonMode {
					if members == nil {
						members = []store.Member{}
					}
					return writeJSON(cmd, members)
				}
				if len(members) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No members")
					return nil
				}

				rows := make([][]string, 0, len(members))
				for _, m := range members {
					rows = append(rows, []string{m.FullName, m.Email, m.GroupName, shortID(m.ID)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Email", "Group", "ID"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")

	return cmd
}
