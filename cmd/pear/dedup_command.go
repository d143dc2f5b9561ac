package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/dedup"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

func newDedupCommand(ctx *commandContext) *cobra.Command {
	var (
		domains  []string
		execute  bool
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find and remove exact duplicate records (dry run unless --execute)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if len(domains) == 0 {
					counts, err := st.CountRecordsByDomain(cmd.Context())
					if err != nil {
						return err
					}
					for d := range counts {
						domains = append(domains, d)
					}
					sort.Strings(domains)
				}

				results, err := dedup.New(st, ctx.log()).Run(cmd.Context(), domains, execute)
				if err != nil {
					return err
				}
				if jsonMode {
					return writeJSON(cmd, results)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDedup(results, execute))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&domains, "domain", nil, "Domain to scan (repeatable; default all)")
	cmd.Flags().BoolVar(&execute, "execute", false, "Delete duplicates instead of reporting them")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")

	return cmd
}

func renderDedup(results []dedup.Result, execute bool) string {
	rows := make([][]string, 0, len(results))
	total := 0
	for _, r := range results {
		rows = append(rows, []string{
			r.Domain,
			strconv.Itoa(r.Clusters),
			strconv.Itoa(r.TotalItems),
			strconv.Itoa(r.Deduped),
		})
		total += r.Deduped
	}

	verb := "would remove"
	if execute {
		verb = "removed"
	}
	return renderTable(
		[]string{"Domain", "Clusters", "Records", "Duplicates"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	) + fmt.Sprintf("\n%s %d duplicate records", verb, total)
}
