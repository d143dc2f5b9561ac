package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	name  string
	model string
	text  string
	err   error
	calls int
	seen  string
}

func (f *fakeProvider) Name() string             { return f.name }
func (f *fakeProvider) Model(hint string) string { return resolveModel(hint, f.model) }

func (f *fakeProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	f.calls++
	f.seen = model
	return f.text, f.err
}

func TestGenerate_PrimaryServes(t *testing.T) {
	primary := &fakeProvider{name: "gemini", model: "gemini-2.5-pro", text: "from primary"}
	secondary := &fakeProvider{name: "openai", model: "gpt-4o", text: "from secondary"}
	gw := NewGateway(primary, secondary, 0, discardLogger())

	res, err := gw.GenerateResult(context.Background(), "prompt", "default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "from primary" || res.Provider != "gemini" || res.Model != "gemini-2.5-pro" {
		t.Errorf("unexpected result: %+v", res)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.calls)
	}
}

func TestGenerate_FailsOverToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "gemini", model: "gemini-2.5-pro", err: errors.New("quota exceeded")}
	secondary := &fakeProvider{name: "openai", model: "gpt-4o", text: "from secondary"}
	gw := NewGateway(primary, secondary, 0, discardLogger())

	text, err := gw.Generate(context.Background(), "prompt", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from secondary" {
		t.Errorf("expected secondary text, got %q", text)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("expected one attempt each, got primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestGenerate_OnlySecondaryConfigured(t *testing.T) {
	secondary := &fakeProvider{name: "openai", model: "gpt-4o", text: "ok"}
	gw := NewGateway(nil, secondary, 0, discardLogger())

	res, err := gw.GenerateResult(context.Background(), "prompt", "default")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if errors.Is(err, ErrConfiguration) {
		t.Fatal("must not return configuration error")
	}
	if res.Provider != "openai" {
		t.Errorf("expected openai, got %q", res.Provider)
	}
	if secondary.calls != 1 {
		t.Errorf("expected exactly one call, got %d", secondary.calls)
	}
}

func TestGenerate_NothingConfigured(t *testing.T) {
	gw := NewGateway(nil, nil, 0, discardLogger())

	_, err := gw.Generate(context.Background(), "prompt", "default")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestGenerate_BothFailWrapsSecondary(t *testing.T) {
	primaryErr := errors.New("primary down")
	secondaryErr := errors.New("secondary down")
	primary := &fakeProvider{name: "gemini", model: "g", err: primaryErr}
	secondary := &fakeProvider{name: "openai", model: "o", err: secondaryErr}
	gw := NewGateway(primary, secondary, 0, discardLogger())

	_, err := gw.Generate(context.Background(), "prompt", "default")

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Provider != "openai" {
		t.Errorf("expected secondary provider in error, got %q", genErr.Provider)
	}
	if !errors.Is(err, secondaryErr) {
		t.Error("expected error to wrap the secondary failure")
	}
	if errors.Is(err, primaryErr) {
		t.Error("did not expect the primary failure to be wrapped")
	}
}

func TestGenerate_PrimaryOnlyFails(t *testing.T) {
	primaryErr := errors.New("bad key")
	gw := NewGateway(&fakeProvider{name: "gemini", model: "g", err: primaryErr}, nil, 0, discardLogger())

	_, err := gw.Generate(context.Background(), "prompt", "default")

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !errors.Is(err, primaryErr) {
		t.Error("expected error to wrap the primary failure")
	}
}

func TestGenerate_ModelHintPassthrough(t *testing.T) {
	primary := &fakeProvider{name: "gemini", model: "gemini-2.5-pro", text: "ok"}
	gw := NewGateway(primary, nil, 0, discardLogger())

	if _, err := gw.Generate(context.Background(), "prompt", "gemini-2.0-flash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.seen != "gemini-2.0-flash" {
		t.Errorf("expected explicit model, got %q", primary.seen)
	}
}

type slowProvider struct{}

func (slowProvider) Name() string             { return "slow" }
func (slowProvider) Model(hint string) string { return "slow-1" }

func (slowProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerate_Timeout(t *testing.T) {
	gw := NewGateway(slowProvider{}, nil, 10*time.Millisecond, discardLogger())

	_, err := gw.Generate(context.Background(), "prompt", "default")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
