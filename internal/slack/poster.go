package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pear/internal/extractor"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// RunSummary is the end-of-run tally of a batch.
type RunSummary struct {
	Source    string
	Processed int
	Failed    int
	Skipped   int
	Records   map[string]int
	Failures  []string
	Duration  time.Duration
}

// PostRunSummary posts a batch tally. Returns the message timestamp.
func (p *Poster) PostRunSummary(ctx context.Context, s RunSummary) (string, error) {
	ts, err := p.post(ctx, formatRunSummary(s))
	if err != nil {
		return "", err
	}
	p.logger.Info("posted run summary to slack", "ts", ts, "processed", s.Processed, "failed", s.Failed)
	return ts, nil
}

// PostHealthFlags posts the health flags raised for one session. Nothing
// is posted when flags is empty.
func (p *Poster) PostHealthFlags(ctx context.Context, groupName, sessionDate string, flags []extractor.Record) error {
	if len(flags) == 0 {
		return nil
	}
	ts, err := p.post(ctx, formatHealthFlags(groupName, sessionDate, flags))
	if err != nil {
		return err
	}
	p.logger.Info("posted health flags to slack", "ts", ts, "group", groupName, "flags", len(flags))
	return nil
}

func (p *Poster) post(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatRunSummary(s RunSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*PEAR run complete* (%s, %s)\n", s.Source, s.Duration.Round(time.Second))
	fmt.Fprintf(&sb, "Processed: %d | Failed: %d | Skipped: %d\n", s.Processed, s.Failed, s.Skipped)

	if len(s.Records) > 0 {
		domains := make([]string, 0, len(s.Records))
		for d := range s.Records {
			domains = append(domains, d)
		}
		sort.Strings(domains)
		sb.WriteString("\n*Records by domain:*\n")
		for _, d := range domains {
			fmt.Fprintf(&sb, "- %s: %d\n", d, s.Records[d])
		}
	}

	if len(s.Failures) > 0 {
		sb.WriteString("\n*Failures:*\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}

	return sb.String()
}

func formatHealthFlags(groupName, sessionDate string, flags []extractor.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Health flags:* %s (%s)\n", groupName, sessionDate)
	for i, f := range flags {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, f.PayloadText)
		if f.Reasoning != "" {
			fmt.Fprintf(&sb, "   _%s_\n", f.Reasoning)
		}
	}
	return sb.String()
}
