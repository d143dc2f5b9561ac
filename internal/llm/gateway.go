package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrConfiguration is returned when no provider credential is configured.
var ErrConfiguration = errors.New("no llm provider configured")

// GenerationError is returned when every configured provider failed.
// It wraps the error of the last provider attempted.
type GenerationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s/%s): %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Provider is a single generative-text backend.
type Provider interface {
	Name() string
	// Model resolves a model hint to a concrete model name.
	Model(hint string) string
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Result carries the generated text and which backend produced it.
type Result struct {
	Text     string
	Provider string
	Model    string
}

// Gateway fails over from a primary to a secondary provider. Each
// provider gets exactly one attempt per call.
type Gateway struct {
	primary   Provider
	secondary Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewGateway builds a gateway. Either provider may be nil when its
// credential is not configured. A zero timeout means no timeout.
func NewGateway(primary, secondary Provider, timeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		logger:    logger,
	}
}

// Configured reports whether at least one provider is available.
func (g *Gateway) Configured() bool {
	return g.primary != nil || g.secondary != nil
}

// Generate returns the text produced for prompt.
func (g *Gateway) Generate(ctx context.Context, prompt, modelHint string) (string, error) {
	res, err := g.GenerateResult(ctx, prompt, modelHint)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// GenerateResult is Generate plus the provider and model that served it.
func (g *Gateway) GenerateResult(ctx context.Context, prompt, modelHint string) (*Result, error) {
	if !g.Configured() {
		return nil, ErrConfiguration
	}

	var lastErr *GenerationError
	for _, p := range []Provider{g.primary, g.secondary} {
		if p == nil {
			continue
		}
		model := p.Model(modelHint)
		text, err := g.attempt(ctx, p, model, prompt)
		if err != nil {
			g.logger.Warn("llm provider failed",
				"provider", p.Name(),
				"model", model,
				"error", err,
			)
			lastErr = &GenerationError{Provider: p.Name(), Model: model, Err: err}
			continue
		}

		g.logger.Info("llm request served",
			"provider", p.Name(),
			"model", model,
			"prompt_len", len(prompt),
			"response_len", len(text),
		)
		return &Result{Text: text, Provider: p.Name(), Model: model}, nil
	}
	return nil, lastErr
}

func (g *Gateway) attempt(ctx context.Context, p Provider, model, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return p.Complete(ctx, model, prompt)
}

func resolveModel(hint, fallback string) string {
	if hint == "" || hint == "default" {
		return fallback
	}
	return hint
}
