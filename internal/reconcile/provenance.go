package reconcile

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source types recorded on every write.
const (
	SourceAIExtraction    = "ai_extraction"
	SourceHumanInput      = "human_input"
	SourceMemberUpdate    = "member_update"
	SourceQAClarification = "qa_clarification"
	SourceSystemGenerated = "system_generated"
)

var validSources = map[string]bool{
	SourceAIExtraction:    true,
	SourceHumanInput:      true,
	SourceMemberUpdate:    true,
	SourceQAClarification: true,
	SourceSystemGenerated: true,
}

// ValidSourceType reports whether s is a recognised source type.
func ValidSourceType(s string) bool { return validSources[s] }

// ProvenanceEvent is one entry of a record's append-only history.
type ProvenanceEvent struct {
	At                  time.Time      `json:"at"`
	Source              string         `json:"source"`
	Note                string         `json:"note,omitempty"`
	UpdatedBy           string         `json:"updated_by,omitempty"`
	Classification      string         `json:"classification,omitempty"`
	ClarificationMethod string         `json:"clarification_method,omitempty"`
	Changes             map[string]any `json:"changes,omitempty"`
}

// Provenance is stored in source_details.
type Provenance struct {
	Reasoning  string            `json:"reasoning,omitempty"`
	Quotes     []string          `json:"quotes,omitempty"`
	Timestamp  string            `json:"timestamp,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	Provider   string            `json:"provider,omitempty"`
	Model      string            `json:"model,omitempty"`
	Updates    []ProvenanceEvent `json:"updates"`
}

// DecodeProvenance reads source_details. Empty input yields an empty
// provenance.
func DecodeProvenance(raw []byte) (Provenance, error) {
	var p Provenance
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode provenance: %w", err)
	}
	return p, nil
}

func (p Provenance) encode() (json.RawMessage, error) {
	if p.Updates == nil {
		p.Updates = []ProvenanceEvent{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode provenance: %w", err)
	}
	return b, nil
}
