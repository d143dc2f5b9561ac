package dedup

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
	st, err := store.New(context.Background(), "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	if _, err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func insertSession(t *testing.T, st *store.Store, filename string) string {
	t.Helper()
	sess := &store.Session{Filename: filename, GroupName: "Group 1.2", SessionDate: "2025-10-01"}
	if err := st.InsertSession(context.Background(), sess); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return sess.ID
}

func insertRecord(t *testing.T, st *store.Store, sessionID, participant, text string, created time.Time) string {
	t.Helper()
	r := &store.Record{
		Domain:          "goals",
		SessionID:       sessionID,
		ParticipantName: participant,
		GroupName:       "Group 1.2",
		CallDate:        "2025-10-01",
		PayloadText:     text,
		Classification:  "quantifiable",
		SourceType:      "ai_extraction",
		CreatedAt:       created,
	}
	if err := st.InsertRecord(context.Background(), r); err != nil {
		t.Fatalf("insert record: %v", err)
	}
	return r.ID
}

func TestSurvivor(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	older := store.Record{ID: "a", CreatedAt: base}
	newer := store.Record{ID: "b", CreatedAt: base.Add(time.Hour)}
	clarified := store.Record{ID: "c", CreatedAt: base.Add(-time.Hour), Status: store.RecordClarified}

	tests := []struct {
		name    string
		records []store.Record
		want    string
	}{
		{"newest wins", []store.Record{older, newer}, "b"},
		{"order independent", []store.Record{newer, older}, "b"},
		{"clarified beats newer", []store.Record{newer, clarified, older}, "c"},
		{"tie goes to lowest id", []store.Record{{ID: "z", CreatedAt: base}, {ID: "m", CreatedAt: base}}, "m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Survivor(tt.records).ID; got != tt.want {
				t.Errorf("Survivor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	r := store.Record{GroupName: "Group 1.2", ParticipantName: "Alice", PayloadText: "Make 3 calls", CallDate: "2025-10-01"}
	if got := Key(r); got != "Group 1.2|Alice|Make 3 calls|2025-10-01" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDeduplicate_DryRunAndExecute(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	s1 := insertSession(t, st, "Group 1.2 - 2025-10-01.txt")
	s2 := insertSession(t, st, "Group 1.2 (copy).txt")
	s3 := insertSession(t, st, "Group 1.2 final.txt")

	oldest := insertRecord(t, st, s1, "Alice Smith", "Make 3 client calls", base)
	middle := insertRecord(t, st, s2, "Alice Smith", "Make 3 client calls", base.Add(time.Minute))
	newest := insertRecord(t, st, s3, "Alice Smith", "Make 3 client calls", base.Add(2*time.Minute))
	unique := insertRecord(t, st, s1, "Bob Jones", "Send 10 emails", base)

	d := New(st, discardLogger())

	dry, err := d.Deduplicate(ctx, "goals", false)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if dry.Clusters != 1 || dry.TotalItems != 3 || dry.Deduped != 2 || dry.Survivors != 1 {
		t.Errorf("unexpected dry run result %+v", dry)
	}
	if dry.Details[0].SurvivorID != newest {
		t.Errorf("expected newest %s to survive, got %s", newest, dry.Details[0].SurvivorID)
	}
	if _, err := st.GetRecord(ctx, oldest); err != nil {
		t.Errorf("dry run must not delete: %v", err)
	}

	results, err := d.Run(ctx, []string{"goals", "stuck"}, true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 2 || results[1].Clusters != 0 {
		t.Errorf("unexpected results %+v", results)
	}

	for _, id := range []string{oldest, middle} {
		if _, err := st.GetRecord(ctx, id); err == nil {
			t.Errorf("expected %s deleted", id)
		}
	}
	for _, id := range []string{newest, unique} {
		if _, err := st.GetRecord(ctx, id); err != nil {
			t.Errorf("expected %s kept: %v", id, err)
		}
	}

	again, err := d.Deduplicate(ctx, "goals", true)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Clusters != 0 {
		t.Errorf("expected no duplicates left, got %d", again.Clusters)
	}
}

func TestFindDuplicates_DifferentDatesAreDistinct(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s1 := insertSession(t, st, "a.txt")
	s2 := insertSession(t, st, "b.txt")
	insertRecord(t, st, s1, "Alice Smith", "Make 3 client calls", base)

	r := &store.Record{
		Domain:          "goals",
		SessionID:       s2,
		GroupName:       "Group 1.2",
		ParticipantName: "Alice Smith",
		CallDate:        "2025-10-08",
		PayloadText:     "Make 3 client calls",
		SourceType:      "ai_extraction",
	}
	if err := st.InsertRecord(context.Background(), r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	clusters, err := NewScanner(st).FindDuplicates(context.Background(), "goals")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("expected no clusters across dates, got %d", len(clusters))
	}
}

func TestDeduplicate_GroupsOnSameDateAreDistinct(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, group := range []string{"Group 1.1", "Group 1.2"} {
		sess := &store.Session{Filename: group + " - 2025-10-01.txt", GroupName: group, SessionDate: "2025-10-01"}
		if err := st.InsertSession(ctx, sess); err != nil {
			t.Fatalf("insert session: %v", err)
		}
		r := &store.Record{
			Domain:         "sentiment",
			SessionID:      sess.ID,
			GroupName:      group,
			CallDate:       "2025-10-01",
			PayloadText:    "call sentiment",
			Classification: "positive",
			SourceType:     "ai_extraction",
		}
		if err := st.InsertRecord(ctx, r); err != nil {
			t.Fatalf("insert record: %v", err)
		}
		ids = append(ids, r.ID)
	}

	res, err := New(st, discardLogger()).Deduplicate(ctx, "sentiment", true)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if res.Clusters != 0 || res.Deduped != 0 {
		t.Errorf("expected no clusters across groups, got %+v", res)
	}
	for _, id := range ids {
		if _, err := st.GetRecord(ctx, id); err != nil {
			t.Errorf("expected %s kept: %v", id, err)
		}
	}
}
