// Package extractor runs the per-domain prompts against an LLM and turns
// the responses into typed records.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/pear/internal/llm"
	"github.com/MikeSquared-Agency/pear/internal/parser"
)

// Generator is the slice of the LLM gateway the extractor needs.
type Generator interface {
	GenerateResult(ctx context.Context, prompt, modelHint string) (*llm.Result, error)
}

type Extractor struct {
	llm    Generator
	logger *slog.Logger
}

func New(gen Generator, logger *slog.Logger) *Extractor {
	return &Extractor{llm: gen, logger: logger}
}

// Extract runs one domain over a transcript. A response that parses to
// zero records is not an error.
func (e *Extractor) Extract(ctx context.Context, d Domain, transcript string) (*Extraction, error) {
	e.logger.Info("extracting from transcript",
		"domain", d.Name,
		"transcript_len", len(transcript),
	)

	res, err := e.llm.GenerateResult(ctx, render(d.Prompt, transcriptPlaceholder, transcript), d.ModelHint)
	if err != nil {
		return nil, fmt.Errorf("llm extraction %s: %w", d.Name, err)
	}
	for i, step := range d.Chain {
		res, err = e.llm.GenerateResult(ctx, render(step, previousPlaceholder, res.Text), d.ModelHint)
		if err != nil {
			return nil, fmt.Errorf("llm extraction %s step %d: %w", d.Name, i+2, err)
		}
	}

	records := Parse(d, res.Text)
	if len(records) == 0 {
		e.logger.Warn("extraction parsed zero records",
			"domain", d.Name,
			"provider", res.Provider,
			"response_len", len(res.Text),
		)
	}

	e.logger.Info("extraction complete",
		"domain", d.Name,
		"records", len(records),
		"provider", res.Provider,
		"model", res.Model,
	)

	return &Extraction{
		Domain:   d.Name,
		Records:  records,
		Provider: res.Provider,
		Model:    res.Model,
		Raw:      res.Text,
	}, nil
}

// Parse builds the domain's records from a raw model response.
func Parse(d Domain, text string) []Record {
	var out []Record
	for _, b := range parser.Parse(text, d.Schema) {
		out = append(out, d.Build(b)...)
	}
	return out
}

func render(prompt, placeholder, value string) string {
	return strings.ReplaceAll(prompt, placeholder, value)
}
