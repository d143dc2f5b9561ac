package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Member struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	GroupName string    `json:"group_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func scanMember(row interface{ Scan(...any) error }) (*Member, error) {
	var m Member
	var created string
	if err := row.Scan(&m.ID, &m.FullName, &m.Email, &m.GroupName, &created); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(created)
	return &m, nil
}

// FindMemberByName matches full_name exactly and case-sensitively. When
// several members share a name the earliest registered wins.
func (s *Store) FindMemberByName(ctx context.Context, fullName string) (*Member, error) {
	row := s.queryRow(ctx, `SELECT id, full_name, email, group_name, created_at FROM members
		WHERE full_name = ? ORDER BY created_at LIMIT 1`, fullName)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *Store) InsertMember(ctx context.Context, m *Member) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now()
	_, err := s.exec(ctx, `INSERT INTO members (id, full_name, email, group_name, created_at)
		VALUES (?, ?, ?, ?, ?)`, m.ID, m.FullName, m.Email, m.GroupName, formatTime(m.CreatedAt))
	if err != nil {
		return &PersistenceError{Op: "insert member", Err: err}
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := s.query(ctx, `SELECT id, full_name, email, group_name, created_at FROM members
		ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
