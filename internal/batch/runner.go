// Package batch runs the serial transcript batch over a document source.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/MikeSquared-Agency/pear/internal/processor"
	"github.com/MikeSquared-Agency/pear/internal/resolver"
	"github.com/MikeSquared-Agency/pear/internal/slack"
	"github.com/MikeSquared-Agency/pear/internal/source"
)

// ErrLocked is returned when another batch holds the run lock.
var ErrLocked = errors.New("another pear batch is already running")

// Config holds the batch run options.
type Config struct {
	StateFile string
	LockFile  string
	// Limit stops the run after this many processed documents. Zero means
	// no limit.
	Limit int
	// DryRun lists what would be processed without calling the model.
	DryRun bool
	// Force reprocesses documents already recorded in the state file.
	Force bool
}

// Processor is the slice of processor.Processor the runner drives.
type Processor interface {
	ProcessTranscript(ctx context.Context, t processor.Transcript) (processor.Outcome, error)
}

// Notifier receives the end-of-run summary. *slack.Poster satisfies it.
type Notifier interface {
	PostRunSummary(ctx context.Context, s slack.RunSummary) (string, error)
}

// Runner orchestrates a batch run.
type Runner struct {
	cfg      Config
	src      source.Source
	proc     Processor
	notifier Notifier
	out      io.Writer
	logger   *slog.Logger
}

// NewRunner creates a batch runner. notifier may be nil. Status lines
// and the tally are written to out.
func NewRunner(cfg Config, src source.Source, proc Processor, notifier Notifier, out io.Writer, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		src:      src,
		proc:     proc,
		notifier: notifier,
		out:      out,
		logger:   logger,
	}
}

// Run processes every new document in the source, one at a time.
func (r *Runner) Run(ctx context.Context) (*slack.RunSummary, error) {
	lockPath := ExpandHome(r.cfg.LockFile)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", "error", err)
		}
	}()

	state, err := LoadState(r.cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	docs, err := r.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s documents: %w", r.src.Name(), err)
	}
	r.logger.Info("documents discovered", "source", r.src.Name(), "documents", len(docs))

	start := time.Now()
	summary := &slack.RunSummary{Source: r.src.Name(), Records: make(map[string]int)}
	seen := make(map[string]bool)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			r.logger.Info("batch interrupted, saving state")
			r.saveState(state)
			summary.Duration = time.Since(start)
			return summary, err
		}
		if r.cfg.Limit > 0 && summary.Processed+summary.Failed >= r.cfg.Limit {
			break
		}

		switch {
		case resolver.IsMainRoom(doc.Name):
			r.status("skip", doc.Name, "main room")
			summary.Skipped++
			continue
		case seen[doc.ID]:
			r.status("skip", doc.Name, "duplicate")
			summary.Skipped++
			continue
		case !r.cfg.Force && state.IsProcessed(doc.ID):
			summary.Skipped++
			continue
		}
		seen[doc.ID] = true

		text, err := r.src.Read(ctx, doc)
		if errors.Is(err, source.ErrUnsupported) {
			r.status("skip", doc.Name, "unsupported format")
			summary.Skipped++
			continue
		}
		if err != nil {
			r.fail(state, summary, doc, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			r.status("skip", doc.Name, "empty transcript")
			summary.Skipped++
			continue
		}

		if r.cfg.DryRun {
			r.status("dry-run", doc.Name, fmt.Sprintf("%d chars", len(text)))
			summary.Processed++
			continue
		}

		out, err := r.proc.ProcessTranscript(ctx, r.transcript(doc, text))
		if err != nil {
			r.fail(state, summary, doc, err)
			continue
		}

		summary.Processed++
		for d, n := range out.Records {
			summary.Records[d] += n
		}
		detail := fmt.Sprintf("%d records", out.Total())
		if len(out.Failed) > 0 {
			// Left unmarked so the next run re-extracts the failed domains.
			failed := make([]string, 0, len(out.Failed))
			for d := range out.Failed {
				failed = append(failed, d)
			}
			sort.Strings(failed)
			state.AddError(fmt.Sprintf("%s: domains failed: %s", doc.Name, strings.Join(failed, ", ")))
			r.status("partial", doc.Name, detail+", failed: "+strings.Join(failed, ", "))
			r.saveState(state)
			continue
		}
		state.MarkProcessed(doc.ID, DocumentRecord{Name: doc.Name, SessionID: out.SessionID, Records: out.Total()})
		r.status("ok", doc.Name, detail)
		r.saveState(state)
	}

	r.saveState(state)
	summary.Duration = time.Since(start)

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, RenderTally(*summary))

	r.logger.Info("batch complete",
		"source", summary.Source,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"dry_run", r.cfg.DryRun,
	)

	if r.notifier != nil && !r.cfg.DryRun {
		if _, err := r.notifier.PostRunSummary(ctx, *summary); err != nil {
			r.logger.Warn("failed to post run summary", "error", err)
		}
	}
	return summary, nil
}

func (r *Runner) transcript(doc source.Document, text string) processor.Transcript {
	date := doc.SessionDate()
	if date == "" {
		date = resolver.InferDate(doc.Name, time.Now())
	}
	return processor.Transcript{
		Filename:    doc.Name,
		GroupName:   resolver.InferGroup(doc.Name),
		SessionDate: date,
		Text:        text,
		Source:      r.src.Name(),
	}
}

func (r *Runner) fail(state *State, summary *slack.RunSummary, doc source.Document, err error) {
	r.status("failed", doc.Name, err.Error())
	r.logger.Error("document failed", "document", doc.Name, "error", err)
	summary.Failed++
	msg := fmt.Sprintf("%s: %v", doc.Name, err)
	summary.Failures = append(summary.Failures, msg)
	state.AddError(msg)
	r.saveState(state)
}

func (r *Runner) status(status, name, detail string) {
	fmt.Fprintf(r.out, "%-8s %s", status, name)
	if detail != "" {
		fmt.Fprintf(r.out, " (%s)", detail)
	}
	fmt.Fprintln(r.out)
}

func (r *Runner) saveState(state *State) {
	if err := state.Save(); err != nil {
		r.logger.Warn("failed to save state", "error", err)
	}
}

// sortedDomains returns the record map's keys in order.
func sortedDomains(records map[string]int) []string {
	out := make([]string, 0, len(records))
	for d := range records {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
