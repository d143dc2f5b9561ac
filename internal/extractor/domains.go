package extractor

import "github.com/MikeSquared-Agency/pear/internal/parser"

// Domain is one extraction pass over a transcript: a prompt, an optional
// chain of follow-up prompts, a parser schema and a record builder.
type Domain struct {
	Name   string
	Prompt string
	// Chain prompts are run in order after Prompt. Each receives the
	// previous response through the {previous} placeholder; the last
	// response is the one parsed.
	Chain     []string
	ModelHint string
	Schema    parser.Schema
	Build     func(parser.Block) []Record
	Enabled   bool
}

// DefaultDomains returns the built-in domains in processing order.
func DefaultDomains() []Domain {
	return []Domain{
		{
			Name:    DomainGoals,
			Prompt:  goalExtractionPrompt,
			Schema:  goalSchema,
			Build:   goalBuilder(DomainGoals),
			Enabled: true,
		},
		{
			Name:    DomainCommitments,
			Prompt:  extractCommitmentsPrompt,
			Chain:   []string{classifyCommitmentsPrompt, generateNudgesPrompt},
			Schema:  goalSchema,
			Build:   goalBuilder(DomainCommitments),
			Enabled: true,
		},
		{
			Name:    DomainMarketing,
			Prompt:  marketingActivityPrompt,
			Schema:  marketingSchema,
			Build:   buildMarketing,
			Enabled: true,
		},
		{
			Name:    DomainPipeline,
			Prompt:  pipelineOutcomePrompt,
			Schema:  pipelineSchema,
			Build:   buildPipeline,
			Enabled: true,
		},
		{
			Name:    DomainChallenges,
			Prompt:  challengeStrategyPrompt,
			Schema:  challengeSchema,
			Build:   buildChallenge,
			Enabled: true,
		},
		{
			Name:    DomainStuck,
			Prompt:  stuckSignalPrompt,
			Schema:  stuckSchema,
			Build:   buildStuck,
			Enabled: true,
		},
		{
			Name:    DomainHelpOffers,
			Prompt:  helpOfferPrompt,
			Schema:  helpOfferSchema,
			Build:   buildHelpOffer,
			Enabled: true,
		},
		{
			Name:    DomainSentiment,
			Prompt:  sentimentPrompt,
			Schema:  sentimentSchema,
			Build:   buildSentiment,
			Enabled: true,
		},
	}
}

var goalSchema = parser.Schema{
	Header: parser.HeaderHash,
	Sections: []parser.Section{
		{Key: "discussion", Labels: []string{"What They Discussed"}},
		{Key: "commitment", Labels: []string{"Their Commitment for Next Week", "Commitment"}},
		{Key: "classification", Labels: []string{"Classification"}, Join: parser.JoinLine},
		{Key: "classification_reason", Labels: []string{"Why This Classification", "Why"}},
		{Key: "exact_quote", Labels: []string{"Exact Quote", "Quote"}, Unquote: true},
		{Key: "timestamp", Labels: []string{"Timestamp"}, Join: parser.JoinLine},
		{Key: "how_to_quantify", Labels: []string{"How to Make It Quantifiable", "Suggestion"}},
		{Key: "nudge_message", Labels: []string{"Personalized Accountability Nudge Message", "Nudge Message"}, Join: parser.JoinBlockquote},
	},
	Required: []string{"commitment", "discussion", "classification"},
}

var goalVocabulary = parser.Vocabulary{
	Rules: []parser.Rule{
		{Label: "quantifiable", Exact: "quantifiable"},
		{Label: "quantifiable", Prefix: "quantifiable", Without: "not"},
		{Label: "not_quantifiable", Contains: "not quantifiable"},
		{Label: "no_goal", Contains: "no goal"},
		{Label: "decision_pending", Contains: "decision pending"},
		{Label: "quantifiable", Contains: "quantifiable", Without: "not"},
	},
	Default: "not_quantifiable",
}

var marketingSchema = parser.Schema{
	Header: parser.HeaderNameColon,
	Sections: []parser.Section{
		{Key: "network_activation", Labels: []string{"Network Activation"}, Join: parser.JoinLine},
		{Key: "linkedin", Labels: []string{"LinkedIn"}, Join: parser.JoinLine},
		{Key: "cold_outreach", Labels: []string{"Cold Outreach"}, Join: parser.JoinLine},
	},
	Required:  []string{"network_activation", "linkedin", "cold_outreach", "remainder"},
	Remainder: "remainder",
}

var pipelineSchema = parser.Schema{
	Header: parser.HeaderNameColon,
	Sections: []parser.Section{
		{Key: "meetings", Labels: []string{"Meetings"}, Join: parser.JoinLine, Default: "0"},
		{Key: "proposals", Labels: []string{"Proposals"}, Join: parser.JoinLine, Default: "0"},
		{Key: "clients", Labels: []string{"Clients"}, Join: parser.JoinLine, Default: "0"},
		{Key: "stage", Labels: []string{"Stage"}, Join: parser.JoinLine},
		{Key: "channel", Labels: []string{"Marketing Activity"}, Join: parser.JoinLine},
		{Key: "outcome", Labels: []string{"Win / Outcome", "Outcome"}},
		{Key: "quote", Labels: []string{"Quote"}, Unquote: true},
		{Key: "notes", Labels: []string{"Notes"}},
	},
	Required: []string{"meetings", "proposals", "clients", "stage", "outcome"},
}

var pipelineStages = parser.Vocabulary{
	Rules: []parser.Rule{
		{Label: "client_closed", Contains: "closed"},
		{Label: "proposal_sent", Contains: "proposal"},
		{Label: "meeting_booked", Contains: "meeting"},
	},
}

var channelVocabulary = parser.Vocabulary{
	Rules: []parser.Rule{
		{Label: "network_activation", Contains: "network"},
		{Label: "linkedin", Contains: "linkedin"},
		{Label: "cold_outreach", Contains: "cold"},
	},
}

var challengeSchema = parser.Schema{
	Header: parser.HeaderNameColon,
	Sections: []parser.Section{
		{Key: "challenge", Labels: []string{"Challenge"}},
		{Key: "category", Labels: []string{"Category"}, Join: parser.JoinLine},
		{Key: "strategies", Labels: []string{"Strategies/Tips", "Strategies", "Tips"}, Join: parser.JoinList},
	},
	Required: []string{"challenge"},
}

var strategyVocabulary = parser.Vocabulary{
	Rules: []parser.Rule{
		{Label: "mindset_reframe", Contains: "mindset"},
		{Label: "tool_resource", Contains: "tool"},
		{Label: "tool_resource", Contains: "resource"},
		{Label: "connection_referral", Contains: "connection"},
		{Label: "connection_referral", Contains: "referral"},
		{Label: "framework_model", Contains: "framework"},
		{Label: "framework_model", Contains: "model"},
		{Label: "tactical_process", Contains: "tactical"},
	},
	Default: "tactical_process",
}

var stuckSchema = parser.Schema{
	Header: parser.HeaderBracket,
	Sections: []parser.Section{
		{Key: "summary", Labels: []string{"Stuck Summary"}},
		{Key: "quotes", Labels: []string{"Exact Quotes", "Exact Quote"}, Join: parser.JoinList, MaxItems: 3},
		{Key: "timestamp", Labels: []string{"Timestamp"}, Join: parser.JoinLine},
		{Key: "classification", Labels: []string{"Stuck Classification"}, Join: parser.JoinLine},
		{Key: "next_step", Labels: []string{"Potential Next Step or Nudge (Optional)", "Potential Next Step or Nudge", "Potential Next Step"}},
	},
	Required: []string{"summary", "classification"},
}

var stuckVocabulary = parser.Vocabulary{
	Rules: []parser.Rule{
		{Label: "momentum_drop", Contains: "momentum"},
		{Label: "emotional_block", Contains: "emotional"},
		{Label: "overwhelm", Contains: "overwhelm"},
		{Label: "decision_paralysis", Contains: "decision"},
		{Label: "repeating_goal", Contains: "repeating"},
	},
	Default: "other",
}

var helpOfferSchema = parser.Schema{
	Header: parser.HeaderHash,
	Sections: []parser.Section{
		{Key: "offer", Labels: []string{"What They Offered"}},
		{Key: "context", Labels: []string{"Context"}},
		{Key: "exact_quote", Labels: []string{"Exact Quote", "Quote"}, Unquote: true},
		{Key: "timestamp", Labels: []string{"Timestamp"}, Join: parser.JoinLine},
		{Key: "classification", Labels: []string{"Classification"}, Join: parser.JoinLine},
	},
	Required: []string{"offer"},
}

var helpOfferVocabulary = parser.Vocabulary{
	Rules: []parser.Rule{
		{Label: "expertise", Contains: "expertise"},
		{Label: "resource", Contains: "resource"},
		{Label: "introductions", Contains: "introduction"},
		{Label: "review_feedback", Contains: "review"},
		{Label: "review_feedback", Contains: "feedback"},
		{Label: "general_support", Contains: "support"},
	},
	Default: "general_support",
}

var sentimentSchema = parser.Schema{
	Header: parser.HeaderNone,
	Sections: []parser.Section{
		{Key: "score", Labels: []string{"Sentiment Score"}, Join: parser.JoinLine},
		{Key: "rationale", Labels: []string{"Rationale"}},
		{Key: "emotions", Labels: []string{"Dominant Emotions"}, Join: parser.JoinLine},
		{Key: "quotes", Labels: []string{"Representative Quotes"}, Join: parser.JoinList},
		{Key: "confidence", Labels: []string{"Confidence Score"}, Join: parser.JoinLine},
		{Key: "negative", Labels: []string{"Negative Participants", "Participants Expressing Negative Emotions"}, Join: parser.JoinList},
	},
	Required: []string{"score", "rationale"},
}
