package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/MikeSquared-Agency/pear/internal/llm"
	"github.com/MikeSquared-Agency/pear/internal/processor"
	"github.com/MikeSquared-Agency/pear/internal/reconcile"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

// ClarifyRequest is the body of POST /records/{id}/clarify.
type ClarifyRequest struct {
	UpdatedBy            string   `json:"updated_by" validate:"required"`
	Note                 string   `json:"note"`
	QuantifiableGoalText string   `json:"quantifiable_goal_text" validate:"required_with=TargetNumber"`
	TargetNumber         *float64 `json:"target_number" validate:"omitempty,gte=0"`
	TargetUnit           string   `json:"target_unit"`
	GoalContext          string   `json:"goal_context"`
}

type ClarifyResponse struct {
	Record *store.Record `json:"record"`
	Linked *store.Record `json:"linked,omitempty"`
}

// SubmitRequest is the body of POST /transcripts.
type SubmitRequest struct {
	Filename    string `json:"filename" validate:"required"`
	GroupName   string `json:"group_name"`
	SessionDate string `json:"session_date" validate:"omitempty,datetime=2006-01-02"`
	Text        string `json:"text" validate:"required"`
}

type SubmitResponse struct {
	SessionID string            `json:"transcript_session_id"`
	Created   bool              `json:"created"`
	Status    string            `json:"status"`
	Records   map[string]int    `json:"records"`
	Failed    map[string]string `json:"failed,omitempty"`
	Updated   int               `json:"updated"`
	Skipped   int               `json:"skipped"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(r.Context(), limit)
	if err != nil {
		s.internalError(w, "list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) sessionRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		s.storeError(w, "get session", err)
		return
	}

	records, err := s.store.ListRecordsBySession(ctx, id)
	if err != nil {
		s.internalError(w, "list records", err)
		return
	}
	if domain := r.URL.Query().Get("domain"); domain != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Domain == domain {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if records == nil {
		records = []store.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) clarifyRecord(w http.ResponseWriter, r *http.Request) {
	var req ClarifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.ApplyClarification(r.Context(), chi.URLParam(r, "id"), reconcile.Clarification{
		UpdatedBy:            req.UpdatedBy,
		Note:                 req.Note,
		QuantifiableGoalText: req.QuantifiableGoalText,
		TargetNumber:         req.TargetNumber,
		TargetUnit:           req.TargetUnit,
		GoalContext:          req.GoalContext,
	})
	if err != nil {
		s.storeError(w, "clarify record", err)
		return
	}
	writeJSON(w, http.StatusOK, ClarifyResponse{Record: res.Record, Linked: res.Linked})
}

func (s *Server) submitTranscript(w http.ResponseWriter, r *http.Request) {
	if s.proc == nil {
		writeError(w, http.StatusServiceUnavailable, "processing disabled")
		return
	}

	var req SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}

	out, err := s.proc.ProcessTranscript(r.Context(), processor.Transcript{
		Filename:    req.Filename,
		GroupName:   req.GroupName,
		SessionDate: req.SessionDate,
		Text:        req.Text,
		Source:      "api",
	})

	resp := SubmitResponse{
		SessionID: out.SessionID,
		Created:   out.SessionCreated,
		Status:    out.Status,
		Records:   out.Records,
		Updated:   out.Updated,
		Skipped:   out.Skipped,
	}
	if len(out.Failed) > 0 {
		resp.Failed = make(map[string]string, len(out.Failed))
		for d, ferr := range out.Failed {
			resp.Failed[d] = ferr.Error()
		}
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, processor.ErrEmptyTranscript):
		writeError(w, http.StatusBadRequest, "transcript text is empty")
	case errors.Is(err, llm.ErrConfiguration):
		writeError(w, http.StatusServiceUnavailable, "no llm provider configured")
	case out.SessionID != "":
		s.logger.Warn("submitted transcript failed", "filename", req.Filename, "error", err)
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		s.internalError(w, "process transcript", err)
	}
}

// decode reads a JSON body into v and validates it, writing a 400 on
// failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(msgs, ", ")
}
