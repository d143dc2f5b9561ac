//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func setupPostgresStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if !strings.HasPrefix(dbURL, "postgres") {
		t.Skip("DATABASE_URL not set to postgres, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(s.Close)

	if _, err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestIntegration_SessionAndRecordRoundTrip(t *testing.T) {
	s := setupPostgresStore(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	sess := &Session{Filename: "integration-" + suffix, GroupName: "Group 9.9", SessionDate: "2025-10-01"}
	if err := s.InsertSession(ctx, sess); err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	found, err := s.FindSession(ctx, sess.Filename, sess.GroupName)
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if found.ID != sess.ID {
		t.Errorf("expected session %s, got %s", sess.ID, found.ID)
	}

	target := 5.0
	r := &Record{
		Domain:          "goals",
		SessionID:       sess.ID,
		ParticipantName: "Integration " + suffix,
		PayloadText:     "Make 5 calls",
		TargetNumber:    &target,
		Classification:  "quantifiable",
		SourceType:      "ai_extraction",
	}
	if err := s.InsertRecord(ctx, r); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	got, err := s.FindRecord(ctx, "goals", sess.ID, r.ParticipantName, "Make 5 calls")
	if err != nil {
		t.Fatalf("FindRecord failed: %v", err)
	}
	if got.TargetNumber == nil || *got.TargetNumber != 5 {
		t.Errorf("expected target 5, got %v", got.TargetNumber)
	}

	t.Cleanup(func() {
		s.DeleteRecords(context.Background(), []string{r.ID})
	})

	if _, err := s.GetRecord(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
