package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session processing states.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Session struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	GroupName        string    `json:"group_name"`
	SessionDate      string    `json:"session_date"`
	OrganizationID   string    `json:"organization_id,omitempty"`
	RawTranscript    string    `json:"-"`
	ProcessingStatus string    `json:"processing_status"`
	AnalysisDate     string    `json:"analysis_date,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const sessionColumns = `id, filename, group_name, session_date, organization_id, raw_transcript,
	processing_status, analysis_date, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var s Session
	var created, updated string
	if err := row.Scan(&s.ID, &s.Filename, &s.GroupName, &s.SessionDate, &s.OrganizationID,
		&s.RawTranscript, &s.ProcessingStatus, &s.AnalysisDate, &created, &updated); err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(created)
	s.UpdatedAt = parseTime(updated)
	return &s, nil
}

// FindSession looks a session up by its canonical key.
func (s *Store) FindSession(ctx context.Context, filename, groupName string) (*Session, error) {
	row := s.queryRow(ctx, `SELECT `+sessionColumns+` FROM transcript_sessions
		WHERE filename = ? AND group_name = ?`, filename, groupName)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return sess, nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.queryRow(ctx, `SELECT `+sessionColumns+` FROM transcript_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// InsertSession writes a new session. ID, status and timestamps are
// filled in when empty.
func (s *Store) InsertSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.ProcessingStatus == "" {
		sess.ProcessingStatus = StatusPending
	}
	ts := now()
	sess.CreatedAt, sess.UpdatedAt = ts, ts

	_, err := s.exec(ctx, `INSERT INTO transcript_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Filename, sess.GroupName, sess.SessionDate, sess.OrganizationID,
		sess.RawTranscript, sess.ProcessingStatus, sess.AnalysisDate,
		formatTime(ts), formatTime(ts),
	)
	if err != nil {
		return &PersistenceError{Op: "insert session", Err: err}
	}
	return nil
}

// UpdateSessionStatus records the outcome of processing a session.
func (s *Store) UpdateSessionStatus(ctx context.Context, id, status string) error {
	ts := formatTime(now())
	res, err := s.exec(ctx, `UPDATE transcript_sessions
		SET processing_status = ?, analysis_date = ?, updated_at = ?
		WHERE id = ?`, status, ts, ts, id)
	if err != nil {
		return &PersistenceError{Op: "update session status", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns the most recently created sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.query(ctx, `SELECT `+sessionColumns+` FROM transcript_sessions
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// CountSessionsByStatus returns session counts keyed by processing status.
func (s *Store) CountSessionsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.query(ctx, `SELECT processing_status, COUNT(*) FROM transcript_sessions
		GROUP BY processing_status`)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan session count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
