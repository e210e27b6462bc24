package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgard/phraseguard/internal/moderation"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { Close(db, nil) })
	return NewStore(db, nil)
}

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "journal.db", want: "journal.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"},
		{in: "file:journal.db?_pragma=foreign_keys(1)", want: "file:journal.db?_pragma=foreign_keys(1)"},
	}
	for _, tt := range tests {
		if got := DSN(tt.in); got != tt.want {
			t.Errorf("DSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("", nil); err == nil {
		t.Error("Open(\"\") error = nil")
	}
}

func TestRecordAndListModerationEvents(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []moderation.ModerationRecord{
		{EventID: "e1", ChatID: -100, MessageID: 10, UserID: 7, Phrase: "crypto", Deleted: true, Sanction: moderation.SanctionBan, Sanctioned: true, At: base},
		{EventID: "e2", ChatID: -100, MessageID: 11, Phrase: "crypto", Deleted: true, Sanction: moderation.SanctionBan, At: base.Add(time.Minute)},
		{EventID: "e3", ChatID: -200, MessageID: 12, UserID: 8, Phrase: "t.me/", Edited: true, Sanction: moderation.SanctionKick, At: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		if err := store.RecordModeration(ctx, rec); err != nil {
			t.Fatalf("RecordModeration(%s) error = %v", rec.EventID, err)
		}
	}

	events, err := store.RecentModerationEvents(ctx, 2)
	if err != nil {
		t.Fatalf("RecentModerationEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].EventID != "e3" || events[1].EventID != "e2" {
		t.Errorf("order = [%s %s], want [e3 e2]", events[0].EventID, events[1].EventID)
	}
	if !events[0].Edited || events[0].Deleted || events[0].Sanction != "kick" {
		t.Errorf("e3 = %+v", events[0])
	}
	if events[1].UserID.Valid {
		t.Errorf("e2 user_id = %v, want NULL", events[1].UserID)
	}

	all, err := store.RecentModerationEvents(ctx, 0)
	if err != nil {
		t.Fatalf("RecentModerationEvents(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}
	if got := all[2]; got.UserID.Int64 != 7 || !got.Sanctioned || got.MessageID != 10 {
		t.Errorf("e1 = %+v", got)
	}
}

func TestRecordModerationDuplicateEvent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	rec := moderation.ModerationRecord{EventID: "dup", ChatID: 1, MessageID: 1, Phrase: "x", Sanction: moderation.SanctionNone}

	if err := store.RecordModeration(ctx, rec); err != nil {
		t.Fatalf("first RecordModeration() error = %v", err)
	}
	if err := store.RecordModeration(ctx, rec); err == nil {
		t.Error("second RecordModeration() with the same event id succeeded")
	}
}

func TestPruneBefore(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(48 * time.Hour)

	mustRecord := func(id string, at time.Time) {
		t.Helper()
		rec := moderation.ModerationRecord{EventID: id, ChatID: 1, MessageID: 1, Phrase: "x", Sanction: moderation.SanctionBan, At: at}
		if err := store.RecordModeration(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	mustRecord("old", old)
	mustRecord("recent", recent)

	if err := store.RecordPhraseChange(ctx, moderation.PhraseChange{ChatID: 1, UserID: 2, Action: moderation.PhraseAdded, Phrase: "x", At: old}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordPhraseChange(ctx, moderation.PhraseChange{ChatID: 1, UserID: 2, Action: moderation.PhraseRemoved, Phrase: "x", At: recent}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.PruneBefore(ctx, old.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	events, err := store.RecentModerationEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventID != "recent" {
		t.Errorf("events after prune = %+v", events)
	}
	changes, err := store.RecentPhraseChanges(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].Action != "remove" {
		t.Errorf("changes after prune = %+v", changes)
	}
}

func TestPingAndMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := store.RunSQLMaintenance(ctx); err != nil {
		t.Errorf("RunSQLMaintenance() error = %v", err)
	}
}

func TestOpenMigratedDatabase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	Close(db, nil)

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("Open() on migrated database error = %v", err)
	}
	Close(db, nil)
}
