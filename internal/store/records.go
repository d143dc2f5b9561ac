package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record statuses.
const (
	RecordActive    = "active"
	RecordClarified = "clarified"
)

// Record is one row of extracted_records.
type Record struct {
	ID              string          `json:"id"`
	Domain          string          `json:"domain"`
	SessionID       string          `json:"transcript_session_id"`
	MemberID        *string         `json:"member_id,omitempty"`
	ParticipantName string          `json:"participant_name"`
	GroupName       string          `json:"group_name,omitempty"`
	CallDate        string          `json:"call_date,omitempty"`
	PayloadText     string          `json:"payload_text"`
	Payload         json.RawMessage `json:"payload"`
	TargetNumber    *float64        `json:"target_number,omitempty"`
	Classification  string          `json:"classification"`
	Status          string          `json:"status"`
	SourceType      string          `json:"source_type"`
	SourceDetails   json.RawMessage `json:"source_details"`
	UpdatedBy       string          `json:"updated_by,omitempty"`
	SupersedesID    *string         `json:"supersedes_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

const recordColumns = `id, domain, transcript_session_id, member_id, participant_name, group_name,
	call_date, payload_text, payload, target_number, classification, status, source_type,
	source_details, updated_by, supersedes_id, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var (
		r                      Record
		memberID, supersedesID sql.NullString
		target                 sql.NullFloat64
		payload, details       string
		created, updated       string
	)
	if err := row.Scan(&r.ID, &r.Domain, &r.SessionID, &memberID, &r.ParticipantName, &r.GroupName,
		&r.CallDate, &r.PayloadText, &payload, &target, &r.Classification, &r.Status, &r.SourceType,
		&details, &r.UpdatedBy, &supersedesID, &created, &updated); err != nil {
		return nil, err
	}
	r.MemberID = stringPtr(memberID)
	r.SupersedesID = stringPtr(supersedesID)
	if target.Valid {
		v := target.Float64
		r.TargetNumber = &v
	}
	r.Payload = json.RawMessage(payload)
	r.SourceDetails = json.RawMessage(details)
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

// FindRecord looks up the record with the exact duplicate key.
func (s *Store) FindRecord(ctx context.Context, domain, sessionID, participant, payloadText string) (*Record, error) {
	row := s.queryRow(ctx, `SELECT `+recordColumns+` FROM extracted_records
		WHERE domain = ? AND transcript_session_id = ? AND participant_name = ? AND payload_text = ?
		ORDER BY created_at LIMIT 1`, domain, sessionID, participant, payloadText)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

// GetRecord returns a record by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (*Record, error) {
	row := s.queryRow(ctx, `SELECT `+recordColumns+` FROM extracted_records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// InsertRecord writes a new record. ID, status and timestamps are filled
// in when empty. It returns ErrDuplicateRecord when the key is taken.
func (s *Store) InsertRecord(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RecordActive
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	r.UpdatedAt = r.CreatedAt

	res, err := s.exec(ctx, `INSERT INTO extracted_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain, transcript_session_id, participant_name, payload_text) DO NOTHING`,
		r.ID, r.Domain, r.SessionID, nullString(r.MemberID), r.ParticipantName, r.GroupName,
		r.CallDate, r.PayloadText, jsonText(r.Payload), nullFloat(r.TargetNumber), r.Classification,
		r.Status, r.SourceType, jsonText(r.SourceDetails), r.UpdatedBy, nullString(r.SupersedesID),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return &PersistenceError{Op: "insert record", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateRecord
	}
	return nil
}

// UpdateRecord rewrites the mutable columns of an existing record. The
// duplicate key columns are never changed.
func (s *Store) UpdateRecord(ctx context.Context, r *Record) error {
	r.UpdatedAt = now()
	res, err := s.exec(ctx, `UPDATE extracted_records SET
		member_id = ?, payload = ?, target_number = ?, classification = ?, status = ?,
		source_type = ?, source_details = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		nullString(r.MemberID), jsonText(r.Payload), nullFloat(r.TargetNumber), r.Classification, r.Status,
		r.SourceType, jsonText(r.SourceDetails), r.UpdatedBy, formatTime(r.UpdatedAt),
		r.ID,
	)
	if err != nil {
		return &PersistenceError{Op: "update record", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecordsBySession returns a session's records ordered by domain and
// creation time.
func (s *Store) ListRecordsBySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.query(ctx, `SELECT `+recordColumns+` FROM extracted_records
		WHERE transcript_session_id = ? ORDER BY domain, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return scanRecords(rows)
}

// ListRecordsByDomain returns every record of a domain, newest first.
func (s *Store) ListRecordsByDomain(ctx context.Context, domain string) ([]Record, error) {
	rows, err := s.query(ctx, `SELECT `+recordColumns+` FROM extracted_records
		WHERE domain = ? ORDER BY created_at DESC`, domain)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return scanRecords(rows)
}

// DeleteRecords removes records by ID and reports how many were deleted.
func (s *Store) DeleteRecords(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.exec(ctx, `DELETE FROM extracted_records WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, &PersistenceError{Op: "delete records", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CountRecordsByDomain returns record counts keyed by domain.
func (s *Store) CountRecordsByDomain(ctx context.Context) (map[string]int, error) {
	rows, err := s.query(ctx, `SELECT domain, COUNT(*) FROM extracted_records GROUP BY domain`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var domain string
		var n int
		if err := rows.Scan(&domain, &n); err != nil {
			return nil, fmt.Errorf("scan record count: %w", err)
		}
		out[domain] = n
	}
	return out, rows.Err()
}
