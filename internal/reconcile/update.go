package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/pear/internal/hermes"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

// Fields are the editable parts of a record. Nil fields are left as is.
// Payload keys are merged into the stored payload.
type Fields struct {
	Classification *string
	TargetNumber   *float64
	Status         *string
	Payload        map[string]any
}

// UpdateWithSource applies a human or member edit to a record and
// appends a provenance event describing the change. The record's
// identifying text is never edited.
func (e *Engine) UpdateWithSource(ctx context.Context, recordID string, f Fields, sourceType, updatedBy, note string) (*store.Record, error) {
	if !ValidSourceType(sourceType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}

	r, err := e.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", recordID, err)
	}

	changes := make(map[string]any)
	if f.Classification != nil && *f.Classification != r.Classification {
		changes["classification"] = map[string]string{"from": r.Classification, "to": *f.Classification}
		r.Classification = *f.Classification
	}
	if f.TargetNumber != nil {
		changes["target_number"] = *f.TargetNumber
		r.TargetNumber = f.TargetNumber
	}
	if f.Status != nil && *f.Status != r.Status {
		changes["status"] = map[string]string{"from": r.Status, "to": *f.Status}
		r.Status = *f.Status
	}
	if len(f.Payload) > 0 {
		payload := make(map[string]any)
		if len(r.Payload) > 0 {
			if err := json.Unmarshal(r.Payload, &payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		for k, v := range f.Payload {
			payload[k] = v
		}
		if r.Payload, err = encodePayload(payload); err != nil {
			return nil, err
		}
		changes["payload"] = f.Payload
	}

	prov, err := DecodeProvenance(r.SourceDetails)
	if err != nil {
		return nil, err
	}
	prov.Updates = append(prov.Updates, ProvenanceEvent{
		At:             e.now(),
		Source:         sourceType,
		UpdatedBy:      updatedBy,
		Note:           note,
		Classification: r.Classification,
		Changes:        changes,
	})
	if r.SourceDetails, err = prov.encode(); err != nil {
		return nil, err
	}
	r.SourceType = sourceType
	r.UpdatedBy = updatedBy

	if err := e.store.UpdateRecord(ctx, r); err != nil {
		return nil, err
	}
	e.publish(hermes.SubjectRecordUpserted, r, ActionUpdated)
	return r, nil
}
