package batch

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MikeSquared-Agency/pear/internal/slack"
)

// RenderTally renders the end-of-run tally as a table.
func RenderTally(s slack.RunSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("PEAR run: " + s.Source)
	tw.AppendHeader(table.Row{"Metric", "Count"})

	tw.AppendRow(table.Row{"processed", strconv.Itoa(s.Processed)})
	tw.AppendRow(table.Row{"failed", strconv.Itoa(s.Failed)})
	tw.AppendRow(table.Row{"skipped", strconv.Itoa(s.Skipped)})

	total := 0
	if len(s.Records) > 0 {
		tw.AppendSeparator()
		for _, d := range sortedDomains(s.Records) {
			tw.AppendRow(table.Row{"records: " + d, strconv.Itoa(s.Records[d])})
			total += s.Records[d]
		}
	}
	tw.AppendFooter(table.Row{"records", strconv.Itoa(total)})
	tw.SetCaption("took %s", s.Duration.Round(time.Millisecond))

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}
