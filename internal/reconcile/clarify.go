package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/pear/internal/hermes"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

const defaultGoalContext = "Clarified from vague goal"

// Clarification is a human reviewer's refinement of a vague record.
type Clarification struct {
	UpdatedBy string
	Note      string
	// QuantifiableGoalText and TargetNumber together create a linked
	// quantifiable goal.
	QuantifiableGoalText string
	TargetNumber         *float64
	TargetUnit           string
	GoalContext          string
}

type ClarificationResult struct {
	Record *store.Record
	// Linked is the new quantifiable goal, when one was created.
	Linked *store.Record
}

// ApplyClarification marks a vague record clarified and, when a fully
// quantified replacement is supplied, creates a new record pointing back
// to it. The vague record's text is never changed.
func (e *Engine) ApplyClarification(ctx context.Context, recordID string, c Clarification) (*ClarificationResult, error) {
	var result *ClarificationResult
	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		result, err = e.WithStore(tx).applyClarification(ctx, recordID, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.publish(hermes.SubjectRecordClarified, result.Record, ActionClarified)
	if result.Linked != nil {
		e.publish(hermes.SubjectRecordUpserted, result.Linked, ActionInserted)
	}
	return result, nil
}

func (e *Engine) applyClarification(ctx context.Context, recordID string, c Clarification) (*ClarificationResult, error) {
	vague, err := e.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", recordID, err)
	}

	prov, err := DecodeProvenance(vague.SourceDetails)
	if err != nil {
		return nil, err
	}
	prov.Updates = append(prov.Updates, ProvenanceEvent{
		At:                  e.now(),
		Source:              SourceQAClarification,
		UpdatedBy:           c.UpdatedBy,
		Note:                c.Note,
		Classification:      vague.Classification,
		ClarificationMethod: "human_review",
	})
	if vague.SourceDetails, err = prov.encode(); err != nil {
		return nil, err
	}
	vague.Status = store.RecordClarified
	vague.SourceType = SourceQAClarification
	vague.UpdatedBy = c.UpdatedBy
	if err := e.store.UpdateRecord(ctx, vague); err != nil {
		return nil, err
	}

	result := &ClarificationResult{Record: vague}
	if c.QuantifiableGoalText == "" || c.TargetNumber == nil {
		return result, nil
	}

	existing, err := e.store.FindRecord(ctx, vague.Domain, vague.SessionID, vague.ParticipantName, c.QuantifiableGoalText)
	if err == nil {
		result.Linked = existing
		return result, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup linked record: %w", err)
	}

	goalContext := c.GoalContext
	if goalContext == "" {
		goalContext = defaultGoalContext
	}
	payload, err := json.Marshal(map[string]any{
		"goal_text":    c.QuantifiableGoalText,
		"target_unit":  c.TargetUnit,
		"goal_context": goalContext,
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	details, err := Provenance{
		Reasoning: goalContext,
		Updates: []ProvenanceEvent{{
			At:                  e.now(),
			Source:              SourceQAClarification,
			UpdatedBy:           c.UpdatedBy,
			Note:                "created from clarification of " + vague.ID,
			Classification:      "quantifiable",
			ClarificationMethod: "human_review",
		}},
	}.encode()
	if err != nil {
		return nil, err
	}

	linked := &store.Record{
		Domain:          vague.Domain,
		SessionID:       vague.SessionID,
		MemberID:        vague.MemberID,
		ParticipantName: vague.ParticipantName,
		GroupName:       vague.GroupName,
		CallDate:        vague.CallDate,
		PayloadText:     c.QuantifiableGoalText,
		Payload:         payload,
		TargetNumber:    c.TargetNumber,
		Classification:  "quantifiable",
		SourceType:      SourceQAClarification,
		SourceDetails:   details,
		UpdatedBy:       c.UpdatedBy,
		SupersedesID:    &vague.ID,
	}
	if err := e.store.InsertRecord(ctx, linked); err != nil {
		return nil, err
	}
	result.Linked = linked
	return result, nil
}
