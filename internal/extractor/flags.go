package extractor

import "fmt"

// DeriveFlags turns stuck signals into system-generated health flags.
func DeriveFlags(stuck []Record) []Record {
	var flags []Record
	for _, r := range stuck {
		if r.Domain != DomainStuck || r.ParticipantName == "" {
			continue
		}
		flags = append(flags, Record{
			Domain:          DomainHealthFlags,
			ParticipantName: r.ParticipantName,
			PayloadText:     fmt.Sprintf("Participant %s showing stuck signals: %s", r.ParticipantName, r.Classification),
			Payload: map[string]any{
				"flag_category":  "stuck_signals",
				"triggered_by":   "stuck_signal_extraction",
				"stuck_type":     r.Classification,
				"summary":        r.PayloadText,
				"severity_score": 3,
			},
			Classification: "warning",
			Reasoning:      r.PayloadText,
			Quotes:         r.Quotes,
			Timestamp:      r.Timestamp,
			Derived:        true,
		})
	}
	return flags
}
