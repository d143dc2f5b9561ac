package resolver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/pear/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	if _, err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestResolveOrCreateSession_Dedup(t *testing.T) {
	st := newTestStore(t)
	r := New(st, "org-1", discardLogger())
	ctx := context.Background()

	in := SessionInput{Filename: "Group 1.2 - 2025-10-01", GroupName: "Group 1.2", SessionDate: "2025-10-01"}
	first, created, err := r.ResolveOrCreateSession(ctx, in)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !created {
		t.Error("expected session to be created")
	}
	if first.ProcessingStatus != store.StatusPending || first.OrganizationID != "org-1" {
		t.Errorf("unexpected session %+v", first)
	}

	second, created, err := r.ResolveOrCreateSession(ctx, in)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if created {
		t.Error("expected existing session to be reused")
	}
	if second.ID != first.ID {
		t.Errorf("expected same session id, got %s and %s", first.ID, second.ID)
	}

	other, _, err := r.ResolveOrCreateSession(ctx, SessionInput{Filename: in.Filename, GroupName: "Group 1.3"})
	if err != nil {
		t.Fatalf("third resolve: %v", err)
	}
	if other.ID == first.ID {
		t.Error("different group must be a different session")
	}
}

func TestResolveMember(t *testing.T) {
	st := newTestStore(t)
	r := New(st, "", discardLogger())
	ctx := context.Background()

	m := &store.Member{FullName: "Alice Smith"}
	if err := st.InsertMember(ctx, m); err != nil {
		t.Fatalf("insert member: %v", err)
	}

	id, err := r.ResolveMember(ctx, "Alice Smith")
	if err != nil {
		t.Fatalf("resolve member: %v", err)
	}
	if id == nil || *id != m.ID {
		t.Errorf("expected %s, got %v", m.ID, id)
	}

	for _, name := range []string{"Bob Jones", "alice smith", ""} {
		id, err := r.ResolveMember(ctx, name)
		if err != nil {
			t.Fatalf("resolve %q: %v", name, err)
		}
		if id != nil {
			t.Errorf("expected no member for %q, got %s", name, *id)
		}
	}
}

func TestInferGroup(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Group 1.2 - 2025-10-01.txt", "Group 1.2"},
		{"group1.3 transcript.docx", "Group 1.3"},
		{"Group 2.1", "Group 2.1"},
		{"Main Room 1 October 22, 2025.docx", "Main Room 1"},
		{"Room 3 10_1_2025.txt", "Room 3"},
		{"Breakout 2.4.txt", "Group 2.4"},
		{"Group Alpha - notes.md", "Group Alpha"},
		{"breakout-20251001.txt", "Session 20251001"},
		{"weekly call.txt", "Weekly Session"},
		{"", "Main Session"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := InferGroup(tt.filename); got != tt.want {
				t.Errorf("InferGroup(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestInferDate(t *testing.T) {
	fallback := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		filename string
		want     string
	}{
		{"Group 1.2 - 2025-10-01.txt", "2025-10-01"},
		{"Group 1.2 10-22-2025.txt", "2025-10-22"},
		{"Room 3 10_1_2025.txt", "2025-10-01"},
		{"breakout-20251001.txt", "2025-10-01"},
		{"Group_10_1_2025.txt", "2025-10-01"},
		{"Group_1.2_2025-10-08.txt", "2025-10-08"},
		{"session_20251015_final.txt", "2025-10-15"},
		{"Main Room 1 October 22, 2025.docx", "2025-10-22"},
		{"Group 1.1 Sep 3 2025.txt", "2025-09-03"},
		{"Group 1.2 2025-13-45.txt", "2025-01-15"},
		{"no date here.txt", "2025-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := InferDate(tt.filename, fallback); got != tt.want {
				t.Errorf("InferDate(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestIsMainRoom(t *testing.T) {
	if !IsMainRoom("Main Room 1 - 2025-10-01") {
		t.Error("expected main room")
	}
	if IsMainRoom("Group 1.2 - 2025-10-01") {
		t.Error("breakout is not main room")
	}
}

func TestSessionFilename(t *testing.T) {
	if got := SessionFilename("Group 1.2", "2025-10-01"); got != "Group 1.2 - 2025-10-01" {
		t.Errorf("unexpected session filename %q", got)
	}
}
