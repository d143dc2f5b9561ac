package extractor

// Domain names.
const (
	DomainGoals       = "goals"
	DomainCommitments = "commitments"
	DomainMarketing   = "marketing"
	DomainPipeline    = "pipeline"
	DomainChallenges  = "challenges"
	DomainStuck       = "stuck"
	DomainHelpOffers  = "help_offers"
	DomainSentiment   = "sentiment"
	DomainHealthFlags = "health_flags"
)

// NoCommitment is the goal text recorded when a participant made none.
const NoCommitment = "No specific commitment made"

// TranscriptEvent is the NATS payload for a submitted transcript.
type TranscriptEvent struct {
	Filename    string `json:"filename"`
	GroupName   string `json:"group_name"`
	SessionDate string `json:"session_date"`
	Text        string `json:"text"`
	Source      string `json:"source,omitempty"` // e.g. "drive", "minio", "api"
}

// Record is one extracted item, before session and member resolution.
type Record struct {
	Domain          string         `json:"domain"`
	ParticipantName string         `json:"participant_name"`
	PayloadText     string         `json:"payload_text"`
	Payload         map[string]any `json:"payload"`
	Classification  string         `json:"classification"`
	TargetNumber    *float64       `json:"target_number,omitempty"`
	Reasoning       string         `json:"reasoning,omitempty"`
	Quotes          []string       `json:"quotes,omitempty"`
	Timestamp       string         `json:"timestamp,omitempty"`
	Confidence      float64        `json:"confidence,omitempty"`
	// Derived records are produced by rules rather than the model.
	Derived bool `json:"derived,omitempty"`
}

// Extraction holds every record one domain produced for a transcript.
type Extraction struct {
	Domain   string
	Records  []Record
	Provider string
	Model    string
	Raw      string
}

func float(v float64) *float64 { return &v }
