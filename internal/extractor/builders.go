package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/pear/internal/parser"
)

func goalBuilder(domain string) func(parser.Block) []Record {
	return func(b parser.Block) []Record {
		commitment := b.Get("commitment")
		classification := parser.Classify(b.Get("classification"), goalVocabulary)

		text := commitment
		var target float64
		if commitment == "" || strings.Contains(parser.Normalize(commitment), "no specific commitment") {
			text = NoCommitment
			classification = "no_goal"
		} else {
			target = parser.TargetNumber(commitment, classification)
		}

		payload := fieldsPayload(b)
		payload["classification"] = classification
		payload["source"] = "direct_extraction"

		var quotes []string
		if q := b.Get("exact_quote"); q != "" {
			quotes = []string{q}
		}
		return []Record{{
			Domain:          domain,
			ParticipantName: b.Participant,
			PayloadText:     text,
			Payload:         payload,
			Classification:  classification,
			TargetNumber:    float(target),
			Reasoning:       b.Get("classification_reason"),
			Quotes:          quotes,
			Timestamp:       b.Get("timestamp"),
		}}
	}
}

var marketingCategories = []string{"network_activation", "linkedin", "cold_outreach"}

func buildMarketing(b parser.Block) []Record {
	var out []Record
	for _, category := range marketingCategories {
		activity := b.Get(category)
		if activity == "" || isNone(activity) {
			continue
		}
		qty := parser.FirstInt(activity)
		out = append(out, Record{
			Domain:          DomainMarketing,
			ParticipantName: b.Participant,
			PayloadText:     activity,
			Payload: map[string]any{
				"category":    category,
				"description": activity,
				"quantity":    qty,
				"unit":        activityUnit(activity),
			},
			Classification: category,
			TargetNumber:   float(float64(qty)),
		})
	}
	if len(out) == 0 && strings.Contains(parser.Normalize(b.Get("remainder")), "no marketing activity") {
		out = append(out, Record{
			Domain:          DomainMarketing,
			ParticipantName: b.Participant,
			PayloadText:     "No marketing activity mentioned",
			Payload: map[string]any{
				"category": "no_activity",
				"quantity": 0,
				"unit":     "activities",
			},
			Classification: "no_activity",
			TargetNumber:   float(0),
		})
	}
	return out
}

func isNone(s string) bool {
	switch parser.Normalize(strings.TrimSuffix(strings.TrimSpace(s), ".")) {
	case "none", "no", "-", "not mentioned", "none mentioned":
		return true
	}
	return false
}

// activityUnit infers what an activity's quantity counts.
func activityUnit(activity string) string {
	a := parser.Normalize(activity)
	switch {
	case strings.Contains(a, "connection"):
		return "connections"
	case strings.Contains(a, "post"):
		return "posts"
	case strings.Contains(a, "message"), strings.Contains(a, "dm"):
		return "messages"
	case strings.Contains(a, "email"):
		return "emails"
	case strings.Contains(a, "call"):
		return "calls"
	}
	return "activities"
}

func buildPipeline(b parser.Block) []Record {
	meetings := parser.FirstInt(b.Get("meetings"))
	proposals := parser.FirstInt(b.Get("proposals"))
	clients := parser.FirstInt(b.Get("clients"))

	classification := parser.Classify(b.Get("stage"), pipelineStages)
	if classification == "" {
		switch {
		case clients > 0:
			classification = "client_closed"
		case proposals > 0:
			classification = "proposal_sent"
		case meetings > 0:
			classification = "meeting_booked"
		default:
			classification = "no_activity"
		}
	}

	payload := map[string]any{
		"meetings":  meetings,
		"proposals": proposals,
		"clients":   clients,
	}
	for _, k := range []string{"notes", "outcome", "stage"} {
		if v := b.Get(k); v != "" {
			payload[k] = v
		}
	}
	if ch := parser.Classify(b.Get("channel"), channelVocabulary); ch != "" {
		payload["marketing_channel"] = ch
	}

	var quotes []string
	if q := b.Get("quote"); q != "" {
		quotes = []string{q}
	}
	return []Record{{
		Domain:          DomainPipeline,
		ParticipantName: b.Participant,
		PayloadText:     fmt.Sprintf("%d meetings, %d proposals, %d clients", meetings, proposals, clients),
		Payload:         payload,
		Classification:  classification,
		TargetNumber:    float(float64(meetings + proposals + clients)),
		Reasoning:       b.Get("notes"),
		Quotes:          quotes,
	}}
}

var newCategory = regexp.MustCompile(`(?i)\[?\s*new category:\s*([^\]]+)\]?`)

func buildChallenge(b parser.Block) []Record {
	challenge := b.Get("challenge")
	implicit := strings.HasPrefix(parser.Normalize(challenge), "implicit")

	category := parser.StripSymbols(b.Get("category"))
	if m := newCategory.FindStringSubmatch(category); m != nil {
		category = strings.TrimSpace(m[1])
	}
	classification := parser.Slug(category)
	if classification == "" {
		classification = "other"
	}

	strategies := make([]map[string]any, 0, len(b.List("strategies")))
	for _, tip := range b.List("strategies") {
		strategies = append(strategies, parseStrategy(tip))
	}

	return []Record{{
		Domain:          DomainChallenges,
		ParticipantName: b.Participant,
		PayloadText:     challenge,
		Payload: map[string]any{
			"description": challenge,
			"category":    category,
			"implicit":    implicit,
			"strategies":  strategies,
		},
		Classification: classification,
	}}
}

var (
	strategyType = regexp.MustCompile(`\(([^()]+)\)\s*$`)
	sharedVerbs  = []string{" suggested", " shared", " recommended", " advised"}
)

// parseStrategy splits "Sam suggested batching outreach (Tactical Process)".
func parseStrategy(tip string) map[string]any {
	description := tip
	typ := strategyVocabulary.Default
	if m := strategyType.FindStringSubmatchIndex(tip); m != nil {
		typ = parser.Classify(tip[m[2]:m[3]], strategyVocabulary)
		description = strings.TrimSpace(tip[:m[0]])
	}
	var sharedBy string
	for _, v := range sharedVerbs {
		if i := strings.Index(description, v); i > 0 {
			sharedBy = strings.TrimSpace(description[:i])
			break
		}
	}
	return map[string]any{
		"description": description,
		"type":        typ,
		"shared_by":   sharedBy,
	}
}

func buildStuck(b parser.Block) []Record {
	summary := b.Get("summary")
	classification := parser.Classify(b.Get("classification"), stuckVocabulary)
	start, end := splitRange(b.Get("timestamp"))

	payload := map[string]any{
		"summary":        summary,
		"quotes":         b.List("quotes"),
		"timestamp":      b.Get("timestamp"),
		"start":          start,
		"end":            end,
		"severity_score": 3,
	}
	if s := b.Get("next_step"); s != "" {
		payload["next_step"] = s
	}

	text := summary
	if text == "" {
		text = classification + " stuck signal"
		if quotes := b.List("quotes"); len(quotes) > 0 {
			text = quotes[0]
		}
	}
	return []Record{{
		Domain:          DomainStuck,
		ParticipantName: b.Participant,
		PayloadText:     text,
		Payload:         payload,
		Classification:  classification,
		Reasoning:       summary,
		Quotes:          b.List("quotes"),
		Timestamp:       b.Get("timestamp"),
	}}
}

// splitRange splits "(12:30–14:05)" into its two ends.
func splitRange(ts string) (string, string) {
	ts = strings.Trim(strings.TrimSpace(ts), "()")
	for _, sep := range []string{"–", "—", "-"} {
		if before, after, ok := strings.Cut(ts, sep); ok {
			return strings.TrimSpace(before), strings.TrimSpace(after)
		}
	}
	return strings.TrimSpace(ts), ""
}

func buildHelpOffer(b parser.Block) []Record {
	offer := b.Get("offer")
	var quotes []string
	if q := b.Get("exact_quote"); q != "" {
		quotes = []string{q}
	}
	return []Record{{
		Domain:          DomainHelpOffers,
		ParticipantName: b.Participant,
		PayloadText:     offer,
		Payload:         fieldsPayload(b),
		Classification:  parser.Classify(b.Get("classification"), helpOfferVocabulary),
		Reasoning:       b.Get("context"),
		Quotes:          quotes,
		Timestamp:       b.Get("timestamp"),
	}}
}

// Fixed payload texts keep sentiment re-runs updating the same rows.
const (
	callSentimentText        = "call sentiment"
	participantSentimentText = "participant sentiment"
)

func buildSentiment(b parser.Block) []Record {
	score := 3
	if n, ok := parser.FirstNumber(b.Get("score")); ok && n >= 1 && n <= 5 {
		score = int(n)
	}
	confidence := 0.5
	if n, ok := parser.FirstNumber(b.Get("confidence")); ok && n >= 0 && n <= 1 {
		confidence = n
	}

	var emotions []string
	for _, e := range strings.Split(b.Get("emotions"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			emotions = append(emotions, e)
		}
	}

	out := []Record{{
		Domain:      DomainSentiment,
		PayloadText: callSentimentText,
		Payload: map[string]any{
			"sentiment_score":       score,
			"rationale":             b.Get("rationale"),
			"dominant_emotions":     emotions,
			"representative_quotes": b.List("quotes"),
			"confidence_score":      confidence,
		},
		Classification: sentimentLevel(score),
		TargetNumber:   float(float64(score)),
		Reasoning:      b.Get("rationale"),
		Quotes:         b.List("quotes"),
		Confidence:     confidence,
	}}

	for _, item := range b.List("negative") {
		name, emotions, evidence := splitNegative(item)
		if name == "" {
			continue
		}
		var quotes []string
		if evidence != "" {
			quotes = []string{evidence}
		}
		out = append(out, Record{
			Domain:          DomainSentiment,
			ParticipantName: name,
			PayloadText:     participantSentimentText,
			Payload: map[string]any{
				"emotions": emotions,
				"evidence": evidence,
			},
			Classification: "negative",
			Reasoning:      emotions,
			Quotes:         quotes,
			Confidence:     confidence,
		})
	}
	return out
}

func sentimentLevel(score int) string {
	switch score {
	case 1:
		return "very_negative"
	case 2:
		return "negative"
	case 4:
		return "positive"
	case 5:
		return "high_positive"
	}
	return "neutral"
}

// splitNegative parses "Name: emotions - evidence".
func splitNegative(item string) (name, emotions, evidence string) {
	name, rest, ok := strings.Cut(item, ":")
	if !ok {
		return strings.TrimSpace(strings.ReplaceAll(item, "**", "")), "", ""
	}
	name = strings.TrimSpace(strings.ReplaceAll(name, "**", ""))
	emotions, evidence, _ = strings.Cut(rest, " - ")
	evidence = strings.Trim(strings.TrimSpace(evidence), `"“”`)
	return name, strings.TrimSpace(emotions), evidence
}

func fieldsPayload(b parser.Block) map[string]any {
	payload := make(map[string]any)
	for k, v := range b.Fields() {
		payload[k] = v
	}
	return payload
}
