package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/MikeSquared-Agency/pear/internal/extractor"
	"github.com/MikeSquared-Agency/pear/internal/hermes"
	"github.com/MikeSquared-Agency/pear/internal/llm"
	"github.com/MikeSquared-Agency/pear/internal/reconcile"
	"github.com/MikeSquared-Agency/pear/internal/resolver"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reply struct {
	text string
	err  error
}

// scriptedGenerator answers calls in order, repeating the last reply.
type scriptedGenerator struct {
	replies []reply
	calls   int
}

func (g *scriptedGenerator) GenerateResult(_ context.Context, _, _ string) (*llm.Result, error) {
	r := g.replies[len(g.replies)-1]
	if g.calls < len(g.replies) {
		r = g.replies[g.calls]
	}
	g.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Result{Text: r.text, Provider: "fake", Model: "fake-1"}, nil
}

type fakePublisher struct {
	subjects []string
	sessions []hermes.SessionEvent
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.subjects = append(f.subjects, subject)
	if ev, ok := data.(hermes.SessionEvent); ok {
		f.sessions = append(f.sessions, ev)
	}
	return nil
}

type fakeNotifier struct {
	flags []extractor.Record
}

func (f *fakeNotifier) PostHealthFlags(_ context.Context, _, _ string, flags []extractor.Record) error {
	f.flags = append(f.flags, flags...)
	return nil
}

const goalsResponse = `### Alice Smith
**What They Discussed:** Building her client list.
**Their Commitment for Next Week:** Make 3 client calls
**Classification:** ✅ Quantifiable
**Why This Classification:** Specific number of calls.
**Exact Quote:** "I'll make 3 client calls"
**Timestamp:** (04:10)
---
### Bob Jones
**What They Discussed:** Still deciding on his offer.
**Their Commitment for Next Week:** No specific commitment made
**Classification:** ⚪ No Goal
**Why This Classification:** Nothing committed.
**Exact Quote:** N/A
---
`

const stuckResponse = `[CAROL WHITE]
Stuck Summary:
Carol has been repeating the same goal for three weeks.
Exact Quotes:
"I said this last week too."
Timestamp:
(14:05–15:30)
Stuck Classification:
Repeating Goal
`

const transcriptText = "Alice: I'll make 3 client calls.\nBob: I'm still thinking about it."

type harness struct {
	proc  *Processor
	store *store.Store
	gen   *scriptedGenerator
	pub   *fakePublisher
}

func newHarness(t *testing.T, domainNames []string, replies []reply, opts Options) *harness {
	t.Helper()
	ctx := context.Background()

	st, err := store.New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	if _, err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var domains []extractor.Domain
	for _, name := range domainNames {
		d, ok := extractor.Lookup(extractor.DefaultDomains(), name)
		if !ok {
			t.Fatalf("domain %q not registered", name)
		}
		domains = append(domains, d)
	}

	gen := &scriptedGenerator{replies: replies}
	pub := &fakePublisher{}
	logger := discardLogger()
	proc := New(st,
		resolver.New(st, "", logger),
		extractor.New(gen, logger),
		reconcile.New(st, pub, logger),
		pub, domains, opts, logger)
	return &harness{proc: proc, store: st, gen: gen, pub: pub}
}

func groupTranscript() Transcript {
	return Transcript{
		Filename:    "Group 1.2 - 2025-10-01",
		GroupName:   "Group 1.2",
		SessionDate: "2025-10-01",
		Text:        transcriptText,
	}
}

func byParticipant(records []store.Record) map[string]store.Record {
	m := make(map[string]store.Record)
	for _, r := range records {
		m[r.ParticipantName] = r
	}
	return m
}

func TestProcessTranscript_TwoParticipants(t *testing.T) {
	h := newHarness(t, []string{extractor.DomainGoals}, []reply{{text: goalsResponse}}, Options{})
	ctx := context.Background()

	out, err := h.proc.ProcessTranscript(ctx, groupTranscript())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.SessionCreated || out.Status != store.StatusCompleted {
		t.Errorf("unexpected outcome %+v", out)
	}
	if out.Records[extractor.DomainGoals] != 2 {
		t.Errorf("expected 2 goal records, got %d", out.Records[extractor.DomainGoals])
	}

	records, err := h.store.ListRecordsBySession(ctx, out.SessionID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	got := byParticipant(records)

	alice := got["Alice Smith"]
	if alice.Classification != "quantifiable" || alice.TargetNumber == nil || *alice.TargetNumber != 3.0 {
		t.Errorf("unexpected Alice record %+v", alice)
	}
	bob := got["Bob Jones"]
	if bob.Classification != "no_goal" || bob.TargetNumber == nil || *bob.TargetNumber != 0 {
		t.Errorf("unexpected Bob record %+v", bob)
	}
	for _, r := range records {
		if r.SessionID != out.SessionID {
			t.Errorf("record %s linked to session %s, want %s", r.ID, r.SessionID, out.SessionID)
		}
		if r.SourceType != reconcile.SourceAIExtraction || r.GroupName != "Group 1.2" || r.CallDate != "2025-10-01" {
			t.Errorf("unexpected record metadata %+v", r)
		}
	}

	prov, err := reconcile.DecodeProvenance(alice.SourceDetails)
	if err != nil {
		t.Fatalf("decode provenance: %v", err)
	}
	if prov.Provider != "fake" || prov.Model != "fake-1" || prov.Timestamp != "(04:10)" {
		t.Errorf("unexpected provenance %+v", prov)
	}

	sess, err := h.store.GetSession(ctx, out.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.ProcessingStatus != store.StatusCompleted || sess.AnalysisDate == "" {
		t.Errorf("unexpected session state %+v", sess)
	}

	if len(h.pub.sessions) != 1 || h.pub.sessions[0].Records[extractor.DomainGoals] != 2 {
		t.Errorf("unexpected session events %+v", h.pub.sessions)
	}
}

func TestProcessTranscript_ReprocessIsIdempotent(t *testing.T) {
	h := newHarness(t, []string{extractor.DomainGoals}, []reply{{text: goalsResponse}}, Options{})
	ctx := context.Background()

	first, err := h.proc.ProcessTranscript(ctx, groupTranscript())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := h.proc.ProcessTranscript(ctx, groupTranscript())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.SessionID != second.SessionID || second.SessionCreated {
		t.Errorf("expected session reuse, got %+v then %+v", first, second)
	}
	if first.Updated != 0 || second.Updated != 2 {
		t.Errorf("expected 0 then 2 updated records, got %d then %d", first.Updated, second.Updated)
	}

	records, err := h.store.ListRecordsBySession(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after reprocessing, got %d", len(records))
	}
	for _, r := range records {
		prov, err := reconcile.DecodeProvenance(r.SourceDetails)
		if err != nil {
			t.Fatalf("decode provenance: %v", err)
		}
		if len(prov.Updates) != 2 {
			t.Errorf("expected 2 provenance events for %s, got %d", r.ParticipantName, len(prov.Updates))
		}
	}
}

func TestProcessTranscript_DomainTx(t *testing.T) {
	h := newHarness(t, []string{extractor.DomainGoals}, []reply{{text: goalsResponse}}, Options{DomainTx: true})

	out, err := h.proc.ProcessTranscript(context.Background(), groupTranscript())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Records[extractor.DomainGoals] != 2 {
		t.Errorf("expected 2 records, got %d", out.Records[extractor.DomainGoals])
	}
}

func TestProcessTranscript_AllDomainsFailed(t *testing.T) {
	llmErr := &llm.GenerationError{Provider: "gemini", Model: "gemini-2.5-pro", Err: errors.New("503")}
	h := newHarness(t, []string{extractor.DomainGoals, extractor.DomainStuck}, []reply{{err: llmErr}}, Options{})
	ctx := context.Background()

	out, err := h.proc.ProcessTranscript(ctx, groupTranscript())
	if err == nil {
		t.Fatal("expected error when every domain fails")
	}
	var genErr *llm.GenerationError
	if !errors.As(err, &genErr) {
		t.Errorf("expected GenerationError in chain, got %v", err)
	}
	if out.Status != store.StatusFailed || len(out.Failed) != 2 {
		t.Errorf("unexpected outcome %+v", out)
	}

	sess, err := h.store.GetSession(ctx, out.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.ProcessingStatus != store.StatusFailed {
		t.Errorf("expected failed session, got %q", sess.ProcessingStatus)
	}
	if got := h.pub.sessions[0].FailedDomains; len(got) != 2 || got[0] != extractor.DomainGoals {
		t.Errorf("unexpected failed domains %v", got)
	}
}

func TestProcessTranscript_PartialFailureCompletes(t *testing.T) {
	h := newHarness(t, []string{extractor.DomainGoals, extractor.DomainStuck},
		[]reply{{text: goalsResponse}, {err: errors.New("timeout")}}, Options{})

	out, err := h.proc.ProcessTranscript(context.Background(), groupTranscript())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Status != store.StatusCompleted {
		t.Errorf("expected completed, got %q", out.Status)
	}
	if _, ok := out.Failed[extractor.DomainStuck]; !ok || len(out.Failed) != 1 {
		t.Errorf("expected only stuck to fail, got %v", out.Failed)
	}
	if out.Records[extractor.DomainGoals] != 2 {
		t.Errorf("expected goals to persist, got %v", out.Records)
	}
}

func TestProcessTranscript_StuckDerivesHealthFlags(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newHarness(t, []string{extractor.DomainStuck}, []reply{{text: stuckResponse}}, Options{Notifier: notifier})
	ctx := context.Background()

	out, err := h.proc.ProcessTranscript(ctx, groupTranscript())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Records[extractor.DomainStuck] != 1 || out.Records[extractor.DomainHealthFlags] != 1 {
		t.Fatalf("unexpected record counts %v", out.Records)
	}

	flags, err := h.store.ListRecordsByDomain(ctx, extractor.DomainHealthFlags)
	if err != nil {
		t.Fatalf("list flags: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	if flags[0].SourceType != reconcile.SourceSystemGenerated || flags[0].Classification != "warning" {
		t.Errorf("unexpected flag %+v", flags[0])
	}
	if len(notifier.flags) != 1 {
		t.Errorf("expected notifier to receive 1 flag, got %d", len(notifier.flags))
	}
}

func TestProcessTranscript_StuckWithoutSummary(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newHarness(t, []string{extractor.DomainStuck}, []reply{{text: "[JORDAN]\nStuck Classification: Overwhelm\n"}}, Options{Notifier: notifier})
	ctx := context.Background()

	out, err := h.proc.ProcessTranscript(ctx, groupTranscript())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Skipped != 0 {
		t.Errorf("expected no skipped records, got %d", out.Skipped)
	}
	if out.Records[extractor.DomainStuck] != 1 || out.Records[extractor.DomainHealthFlags] != 1 {
		t.Fatalf("unexpected record counts %v", out.Records)
	}

	stuck, err := h.store.ListRecordsByDomain(ctx, extractor.DomainStuck)
	if err != nil {
		t.Fatalf("list stuck: %v", err)
	}
	if len(stuck) != 1 {
		t.Fatalf("expected 1 stuck record, got %d", len(stuck))
	}
	if stuck[0].PayloadText != "overwhelm stuck signal" || stuck[0].Classification != "overwhelm" {
		t.Errorf("unexpected stuck record %+v", stuck[0])
	}
}

func TestProcessTranscript_ResolvesMembers(t *testing.T) {
	h := newHarness(t, []string{extractor.DomainGoals}, []reply{{text: goalsResponse}}, Options{})
	ctx := context.Background()

	alice := &store.Member{FullName: "Alice Smith"}
	if err := h.store.InsertMember(ctx, alice); err != nil {
		t.Fatalf("insert member: %v", err)
	}

	out, err := h.proc.ProcessTranscript(ctx, groupTranscript())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	records, err := h.store.ListRecordsBySession(ctx, out.SessionID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	got := byParticipant(records)
	if id := got["Alice Smith"].MemberID; id == nil || *id != alice.ID {
		t.Errorf("expected Alice linked to %s, got %v", alice.ID, id)
	}
	if got["Bob Jones"].MemberID != nil {
		t.Errorf("expected Bob unlinked, got %v", *got["Bob Jones"].MemberID)
	}
}

func TestProcessTranscript_EmptyText(t *testing.T) {
	h := newHarness(t, []string{extractor.DomainGoals}, []reply{{text: goalsResponse}}, Options{})
	tr := groupTranscript()
	tr.Text = "  \n"

	_, err := h.proc.ProcessTranscript(context.Background(), tr)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	if h.gen.calls != 0 {
		t.Errorf("expected no LLM calls, got %d", h.gen.calls)
	}
}

func TestHandleTranscriptSubmitted(t *testing.T) {
	h := newHarness(t, []string{extractor.DomainGoals}, []reply{{text: goalsResponse}}, Options{})
	ctx := context.Background()

	data, err := json.Marshal(extractor.TranscriptEvent{
		Filename:    "Group 3.1 - 2025-10-08",
		GroupName:   "Group 3.1",
		SessionDate: "2025-10-08",
		Text:        transcriptText,
		Source:      "api",
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	h.proc.HandleTranscriptSubmitted(hermes.SubjectTranscriptSubmitted, data)

	sess, err := h.store.FindSession(ctx, "Group 3.1 - 2025-10-08", "Group 3.1")
	if err != nil {
		t.Fatalf("expected session created: %v", err)
	}
	records, err := h.store.ListRecordsBySession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}

	// Malformed payloads are logged and dropped.
	h.proc.HandleTranscriptSubmitted(hermes.SubjectTranscriptSubmitted, []byte("{not json"))
}
