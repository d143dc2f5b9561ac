// Package resolver maps transcripts to sessions and participant names to
// registered members.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/pear/internal/store"
)

type Resolver struct {
	store  *store.Store
	orgID  string
	logger *slog.Logger
}

func New(st *store.Store, organizationID string, logger *slog.Logger) *Resolver {
	return &Resolver{store: st, orgID: organizationID, logger: logger}
}

// SessionInput identifies a transcript session.
type SessionInput struct {
	Filename    string
	GroupName   string
	SessionDate string
	Transcript  string
}

// ResolveOrCreateSession returns the session keyed by (filename,
// group_name), creating it with status pending when absent. The bool
// reports whether the session was created.
func (r *Resolver) ResolveOrCreateSession(ctx context.Context, in SessionInput) (*store.Session, bool, error) {
	sess, err := r.store.FindSession(ctx, in.Filename, in.GroupName)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("resolve session: %w", err)
	}

	sess = &store.Session{
		Filename:       in.Filename,
		GroupName:      in.GroupName,
		SessionDate:    in.SessionDate,
		OrganizationID: r.orgID,
		RawTranscript:  in.Transcript,
	}
	if err := r.store.InsertSession(ctx, sess); err != nil {
		// Another writer may have created it between the lookup and insert.
		if existing, findErr := r.store.FindSession(ctx, in.Filename, in.GroupName); findErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create session: %w", err)
	}

	r.logger.Info("session created",
		"session_id", sess.ID,
		"filename", in.Filename,
		"group", in.GroupName,
		"date", in.SessionDate,
	)
	return sess, true, nil
}

// ResolveMember returns the ID of the member whose full name matches
// exactly, or nil when there is none.
func (r *Resolver) ResolveMember(ctx context.Context, name string) (*string, error) {
	if name == "" {
		return nil, nil
	}
	m, err := r.store.FindMemberByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve member: %w", err)
	}
	return &m.ID, nil
}
