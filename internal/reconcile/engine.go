// Package reconcile writes extracted records with create-or-update
// semantics and an append-only provenance log.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/pear/internal/hermes"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

// ErrInvalidSourceType is returned for a source type outside the fixed set.
var ErrInvalidSourceType = errors.New("invalid source type")

// Publisher broadcasts write events. *hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

type Engine struct {
	store  *store.Store
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

// New returns an engine. pub may be nil.
func New(st *store.Store, pub Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		pub:    pub,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithStore returns a copy of the engine writing through st, typically a
// transaction-bound store.
func (e *Engine) WithStore(st *store.Store) *Engine {
	c := *e
	c.store = st
	return &c
}

// RecordInput is one record to reconcile.
type RecordInput struct {
	Domain          string
	SessionID       string
	MemberID        *string
	ParticipantName string
	GroupName       string
	CallDate        string
	PayloadText     string
	Payload         map[string]any
	TargetNumber    *float64
	Classification  string
	SourceType      string
	UpdatedBy       string
	// Provenance carries reasoning, quotes and model metadata. Its
	// Updates are ignored; the engine owns the history.
	Provenance Provenance
}

// Upsert outcomes.
const (
	ActionInserted  = "inserted"
	ActionUpdated   = "updated"
	ActionClarified = "clarified"
)

// UpsertRecord inserts the record, or updates the existing record with
// the same (domain, session, participant, payload text) key and appends
// one provenance event. It returns the record ID.
func (e *Engine) UpsertRecord(ctx context.Context, in RecordInput) (string, error) {
	id, _, err := e.upsert(ctx, in)
	return id, err
}

// UpsertRecordAction is UpsertRecord that also reports whether the record
// was inserted or updated.
func (e *Engine) UpsertRecordAction(ctx context.Context, in RecordInput) (string, string, error) {
	return e.upsert(ctx, in)
}

func (e *Engine) upsert(ctx context.Context, in RecordInput) (string, string, error) {
	if !ValidSourceType(in.SourceType) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSourceType, in.SourceType)
	}
	if in.PayloadText == "" {
		return "", "", fmt.Errorf("upsert %s record: empty payload text", in.Domain)
	}

	payload, err := encodePayload(in.Payload)
	if err != nil {
		return "", "", err
	}

	existing, err := e.store.FindRecord(ctx, in.Domain, in.SessionID, in.ParticipantName, in.PayloadText)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", "", fmt.Errorf("lookup record: %w", err)
	}

	event := ProvenanceEvent{
		At:             e.now(),
		Source:         in.SourceType,
		UpdatedBy:      in.UpdatedBy,
		Classification: in.Classification,
	}

	if existing == nil {
		r, err := e.insert(ctx, in, payload, event)
		if err == nil {
			e.publish(hermes.SubjectRecordUpserted, r, ActionInserted)
			return r.ID, ActionInserted, nil
		}
		if !errors.Is(err, store.ErrDuplicateRecord) {
			return "", "", err
		}
		// A concurrent writer inserted the same key first.
		existing, err = e.store.FindRecord(ctx, in.Domain, in.SessionID, in.ParticipantName, in.PayloadText)
		if err != nil {
			return "", "", fmt.Errorf("lookup record after conflict: %w", err)
		}
	}

	prov, err := DecodeProvenance(existing.SourceDetails)
	if err != nil {
		return "", "", err
	}
	mergeProvenance(&prov, in.Provenance)

	// A human clarification outranks a later model re-extraction.
	if existing.Status == store.RecordClarified && in.SourceType == SourceAIExtraction {
		event.Note = "re-extracted; clarified record kept"
	} else {
		event.Note = "updated"
		existing.Classification = in.Classification
		existing.Payload = payload
		existing.TargetNumber = in.TargetNumber
		existing.SourceType = in.SourceType
		existing.UpdatedBy = in.UpdatedBy
	}
	if in.MemberID != nil {
		existing.MemberID = in.MemberID
	}
	prov.Updates = append(prov.Updates, event)
	if existing.SourceDetails, err = prov.encode(); err != nil {
		return "", "", err
	}
	if err := e.store.UpdateRecord(ctx, existing); err != nil {
		return "", "", err
	}
	e.publish(hermes.SubjectRecordUpserted, existing, ActionUpdated)
	return existing.ID, ActionUpdated, nil
}

func (e *Engine) insert(ctx context.Context, in RecordInput, payload json.RawMessage, event ProvenanceEvent) (*store.Record, error) {
	prov := in.Provenance
	event.Note = "created"
	prov.Updates = []ProvenanceEvent{event}
	details, err := prov.encode()
	if err != nil {
		return nil, err
	}
	r := &store.Record{
		Domain:          in.Domain,
		SessionID:       in.SessionID,
		MemberID:        in.MemberID,
		ParticipantName: in.ParticipantName,
		GroupName:       in.GroupName,
		CallDate:        in.CallDate,
		PayloadText:     in.PayloadText,
		Payload:         payload,
		TargetNumber:    in.TargetNumber,
		Classification:  in.Classification,
		SourceType:      in.SourceType,
		SourceDetails:   details,
		UpdatedBy:       in.UpdatedBy,
	}
	if err := e.store.InsertRecord(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func mergeProvenance(dst *Provenance, src Provenance) {
	if src.Reasoning != "" {
		dst.Reasoning = src.Reasoning
	}
	if len(src.Quotes) > 0 {
		dst.Quotes = src.Quotes
	}
	if src.Timestamp != "" {
		dst.Timestamp = src.Timestamp
	}
	if src.Confidence != 0 {
		dst.Confidence = src.Confidence
	}
	if src.Provider != "" {
		dst.Provider = src.Provider
		dst.Model = src.Model
	}
}

func encodePayload(p map[string]any) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("{}"), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

func (e *Engine) publish(subject string, r *store.Record, action string) {
	if e.pub == nil {
		return
	}
	ev := hermes.RecordEvent{
		RecordID:        r.ID,
		SessionID:       r.SessionID,
		Domain:          r.Domain,
		ParticipantName: r.ParticipantName,
		Classification:  r.Classification,
		SourceType:      r.SourceType,
		Action:          action,
		At:              e.now(),
	}
	if r.SupersedesID != nil {
		ev.SupersedesID = *r.SupersedesID
	}
	if err := e.pub.Publish(subject, ev); err != nil {
		e.logger.Warn("failed to publish record event", "record_id", r.ID, "error", err)
	}
}
