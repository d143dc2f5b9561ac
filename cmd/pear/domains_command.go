package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/extractor"
)

func newDomainsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the configured extraction domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			domains, err := extractor.LoadDomains(cfg.DomainsFile)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(domains))
			for _, d := range domains {
				hint := d.ModelHint
				if hint == "" {
					hint = "default"
				}
				rows = append(rows, []string{
					d.Name,
					strconv.FormatBool(d.Enabled),
					hint,
					strconv.Itoa(len(d.Chain) + 1),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Domain", "Enabled", "Model", "Prompts"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
