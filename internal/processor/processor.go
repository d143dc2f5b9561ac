// Package processor runs one transcript through every enabled extraction
// domain and reconciles the results into the store.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pear/internal/extractor"
	"github.com/MikeSquared-Agency/pear/internal/hermes"
	"github.com/MikeSquared-Agency/pear/internal/reconcile"
	"github.com/MikeSquared-Agency/pear/internal/resolver"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

// ErrEmptyTranscript is returned for a transcript with no text.
var ErrEmptyTranscript = errors.New("empty transcript")

const updatedBy = "pear"

// FlagNotifier receives the health flags raised for a session.
// *slack.Poster satisfies it.
type FlagNotifier interface {
	PostHealthFlags(ctx context.Context, groupName, sessionDate string, flags []extractor.Record) error
}

// Options tune a Processor.
type Options struct {
	// DomainTx wraps each domain's writes in one store transaction.
	DomainTx bool
	// Notifier, when set, is told about derived health flags.
	Notifier FlagNotifier
}

// Processor orchestrates the transcript processing pipeline.
type Processor struct {
	store     *store.Store
	resolver  *resolver.Resolver
	extractor *extractor.Extractor
	engine    *reconcile.Engine
	pub       reconcile.Publisher
	domains   []extractor.Domain
	opts      Options
	logger    *slog.Logger
}

func New(st *store.Store, res *resolver.Resolver, ext *extractor.Extractor, eng *reconcile.Engine,
	pub reconcile.Publisher, domains []extractor.Domain, opts Options, logger *slog.Logger) *Processor {
	return &Processor{
		store:     st,
		resolver:  res,
		extractor: ext,
		engine:    eng,
		pub:       pub,
		domains:   extractor.Enabled(domains),
		opts:      opts,
		logger:    logger,
	}
}

// Domains returns the enabled domains in processing order.
func (p *Processor) Domains() []extractor.Domain { return p.domains }

// Transcript is one unit of work.
type Transcript struct {
	Filename    string
	GroupName   string
	SessionDate string
	Text        string
	Source      string
}

// Outcome summarises one processed transcript.
type Outcome struct {
	SessionID      string
	SessionCreated bool
	Status         string
	Records        map[string]int
	// Failed maps a domain to the error that stopped it.
	Failed map[string]error
	// Updated counts written records whose key already existed.
	Updated int
	// Skipped counts individual records whose write was rejected.
	Skipped int
}

// FailedDomains lists the failed domains in processing order.
func (o Outcome) FailedDomains(order []extractor.Domain) []string {
	var out []string
	for _, d := range order {
		if _, ok := o.Failed[d.Name]; ok {
			out = append(out, d.Name)
		}
	}
	return out
}

// Total is the number of records written across all domains.
func (o Outcome) Total() int {
	n := 0
	for _, c := range o.Records {
		n += c
	}
	return n
}

// ProcessTranscript resolves the session, runs every enabled domain in
// order and sets the session status. A domain failure is logged and
// counted; the session is marked failed only when every domain failed,
// in which case the returned error describes the first failure.
func (p *Processor) ProcessTranscript(ctx context.Context, t Transcript) (Outcome, error) {
	out := Outcome{Records: make(map[string]int), Failed: make(map[string]error)}

	if strings.TrimSpace(t.Text) == "" {
		return out, fmt.Errorf("process %s: %w", t.Filename, ErrEmptyTranscript)
	}
	if t.GroupName == "" {
		t.GroupName = resolver.InferGroup(t.Filename)
	}
	if t.SessionDate == "" {
		t.SessionDate = resolver.InferDate(t.Filename, time.Now())
	}

	sess, created, err := p.resolver.ResolveOrCreateSession(ctx, resolver.SessionInput{
		Filename:    t.Filename,
		GroupName:   t.GroupName,
		SessionDate: t.SessionDate,
		Transcript:  t.Text,
	})
	if err != nil {
		return out, err
	}
	out.SessionID = sess.ID
	out.SessionCreated = created

	p.logger.Info("processing transcript",
		"session_id", sess.ID,
		"filename", t.Filename,
		"group", sess.GroupName,
		"date", sess.SessionDate,
		"domains", len(p.domains),
	)

	var firstErr error
	for _, d := range p.domains {
		if err := p.processDomain(ctx, sess, d, t.Text, &out); err != nil {
			p.logger.Error("domain failed", "session_id", sess.ID, "domain", d.Name, "error", err)
			out.Failed[d.Name] = err
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	out.Status = store.StatusCompleted
	if len(p.domains) > 0 && len(out.Failed) == len(p.domains) {
		out.Status = store.StatusFailed
	}
	if err := p.store.UpdateSessionStatus(ctx, sess.ID, out.Status); err != nil {
		p.logger.Error("failed to update session status", "session_id", sess.ID, "error", err)
	}

	p.publishSession(sess, out)

	p.logger.Info("transcript processed",
		"session_id", sess.ID,
		"status", out.Status,
		"records", out.Total(),
		"failed_domains", len(out.Failed),
		"updated", out.Updated,
		"skipped", out.Skipped,
	)

	if out.Status == store.StatusFailed {
		return out, fmt.Errorf("all %d domains failed: %w", len(p.domains), firstErr)
	}
	return out, nil
}

func (p *Processor) processDomain(ctx context.Context, sess *store.Session, d extractor.Domain, text string, out *Outcome) error {
	ext, err := p.extractor.Extract(ctx, d, text)
	if err != nil {
		return err
	}

	n, err := p.persist(ctx, sess, ext.Records, reconcile.SourceAIExtraction, ext.Provider, ext.Model, out)
	if err != nil {
		return err
	}
	out.Records[d.Name] += n

	if d.Name != extractor.DomainStuck {
		return nil
	}
	flags := extractor.DeriveFlags(ext.Records)
	if len(flags) == 0 {
		return nil
	}
	n, err = p.persist(ctx, sess, flags, reconcile.SourceSystemGenerated, "", "", out)
	if err != nil {
		p.logger.Error("failed to persist health flags", "session_id", sess.ID, "error", err)
		return nil
	}
	out.Records[extractor.DomainHealthFlags] += n

	if p.opts.Notifier != nil {
		if err := p.opts.Notifier.PostHealthFlags(ctx, sess.GroupName, sess.SessionDate, flags); err != nil {
			p.logger.Warn("failed to post health flags", "session_id", sess.ID, "error", err)
		}
	}
	return nil
}

// persist writes records for one session and returns how many were
// written. Without DomainTx a rejected record is logged, counted in
// out.Skipped and skipped; with DomainTx the first rejection rolls the
// whole domain back.
func (p *Processor) persist(ctx context.Context, sess *store.Session, records []extractor.Record,
	sourceType, provider, model string, out *Outcome) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	// Members are resolved up front so no lookup runs alongside an open
	// transaction on a single-connection store.
	members := make(map[string]*string)
	for _, r := range records {
		if _, ok := members[r.ParticipantName]; ok {
			continue
		}
		id, err := p.resolver.ResolveMember(ctx, r.ParticipantName)
		if err != nil {
			p.logger.Warn("member lookup failed", "participant", r.ParticipantName, "error", err)
		}
		members[r.ParticipantName] = id
	}

	inputs := make([]reconcile.RecordInput, 0, len(records))
	for _, r := range records {
		inputs = append(inputs, reconcile.RecordInput{
			Domain:          r.Domain,
			SessionID:       sess.ID,
			MemberID:        members[r.ParticipantName],
			ParticipantName: r.ParticipantName,
			GroupName:       sess.GroupName,
			CallDate:        sess.SessionDate,
			PayloadText:     r.PayloadText,
			Payload:         r.Payload,
			TargetNumber:    r.TargetNumber,
			Classification:  r.Classification,
			SourceType:      sourceType,
			UpdatedBy:       updatedBy,
			Provenance: reconcile.Provenance{
				Reasoning:  r.Reasoning,
				Quotes:     r.Quotes,
				Timestamp:  r.Timestamp,
				Confidence: r.Confidence,
				Provider:   provider,
				Model:      model,
			},
		})
	}

	if p.opts.DomainTx {
		written, updated := 0, 0
		err := p.store.WithTx(ctx, func(tx *store.Store) error {
			eng := p.engine.WithStore(tx)
			written, updated = 0, 0
			for _, in := range inputs {
				_, action, err := eng.UpsertRecordAction(ctx, in)
				if err != nil {
					return fmt.Errorf("upsert %s record for %s: %w", in.Domain, in.ParticipantName, err)
				}
				written++
				if action == reconcile.ActionUpdated {
					updated++
				}
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		out.Updated += updated
		return written, nil
	}

	written := 0
	for _, in := range inputs {
		_, action, err := p.engine.UpsertRecordAction(ctx, in)
		if err != nil {
			p.logger.Error("failed to persist record",
				"domain", in.Domain,
				"participant", in.ParticipantName,
				"error", err,
			)
			out.Skipped++
			continue
		}
		written++
		if action == reconcile.ActionUpdated {
			out.Updated++
		}
	}
	return written, nil
}

func (p *Processor) publishSession(sess *store.Session, out Outcome) {
	if p.pub == nil {
		return
	}
	ev := hermes.SessionEvent{
		SessionID:     sess.ID,
		Filename:      sess.Filename,
		GroupName:     sess.GroupName,
		Status:        out.Status,
		Records:       out.Records,
		FailedDomains: out.FailedDomains(p.domains),
		At:            time.Now().UTC(),
	}
	if err := p.pub.Publish(hermes.SubjectSessionProcessed, ev); err != nil {
		p.logger.Warn("failed to publish session event", "session_id", sess.ID, "error", err)
	}
}

// HandleTranscriptSubmitted is the NATS handler for pear.transcript.submitted.
func (p *Processor) HandleTranscriptSubmitted(subject string, data []byte) {
	var evt extractor.TranscriptEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcript event", "subject", subject, "error", err)
		return
	}

	out, err := p.ProcessTranscript(context.Background(), Transcript{
		Filename:    evt.Filename,
		GroupName:   evt.GroupName,
		SessionDate: evt.SessionDate,
		Text:        evt.Text,
		Source:      evt.Source,
	})
	if err != nil {
		p.logger.Error("transcript processing failed", "filename", evt.Filename, "error", err)
		return
	}
	p.logger.Info("submitted transcript processed",
		"filename", evt.Filename,
		"session_id", out.SessionID,
		"records", out.Total(),
	)
}
