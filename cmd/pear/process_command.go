package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pear/internal/processor"
	"github.com/MikeSquared-Agency/pear/internal/resolver"
	"github.com/MikeSquared-Agency/pear/internal/source"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		group string
		date  string
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process a single transcript file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, text, err := source.ReadFile(args[0])
			if err != nil {
				return err
			}

			if group == "" {
				group = resolver.InferGroup(doc.Name)
			}
			if date == "" {
				fallback := doc.ModifiedAt
				if fallback.IsZero() {
					fallback = time.Now()
				}
				date = resolver.InferDate(doc.Name, fallback)
			}

			p, err := ctx.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			out, procErr := p.proc.ProcessTranscript(cmd.Context(), processor.Transcript{
				Filename:    doc.Name,
				GroupName:   group,
				SessionDate: date,
				Text:        text,
				Source:      "file",
			})
			if out.SessionID != "" {
				fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(out, p.proc))
			}
			return procErr
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "Group name (inferred from the file name when empty)")
	cmd.Flags().StringVar(&date, "date", "", "Session date YYYY-MM-DD (inferred when empty)")

	return cmd
}

func renderOutcome(out processor.Outcome, proc *processor.Processor) string {
	rows := make([][]string, 0, len(out.Records)+len(out.Failed))
	for _, d := range proc.Domains() {
		if err, ok := out.Failed[d.Name]; ok {
			rows = append(rows, []string{d.Name, "-", "failed: " + err.Error()})
			continue
		}
		rows = append(rows, []string{d.Name, strconv.Itoa(out.Records[d.Name]), "ok"})
	}

	// Derived domains are not in the configured list.
	var extra []string
	for name := range out.Records {
		found := false
		for _, d := range proc.Domains() {
			if d.Name == name {
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		rows = append(rows, []string{name, strconv.Itoa(out.Records[name]), "derived"})
	}

	header := fmt.Sprintf("session %s (%s)", out.SessionID, out.Status)
	if out.Updated > 0 {
		header += fmt.Sprintf(", %d records updated", out.Updated)
	}
	if out.Skipped > 0 {
		header += fmt.Sprintf(", %d records skipped", out.Skipped)
	}
	return header + "\n" + renderTable(
		[]string{"Domain", "Records", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	)
}
