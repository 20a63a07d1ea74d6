package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/birthdaybot/internal/birthday"
	"github.com/ent0n29/birthdaybot/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	now := func() time.Time { return time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC) }
	return NewEngine(NewManager(time.Minute), st, nil, nil, now), st
}

func mustHandle(t *testing.T, e *Engine, userID, text string) []string {
	t.Helper()
	replies, err := e.HandleMessage(context.Background(), userID, text)
	if err != nil {
		t.Fatalf("HandleMessage(%q) error = %v", text, err)
	}
	return replies
}

func TestAddThenDeleteRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)

	replies := mustHandle(t, e, "u1", "/add_birthday")
	if len(replies) != 1 || replies[0] != replyAskName {
		t.Fatalf("entry replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "Alice")
	if len(replies) != 1 || replies[0] != replyAskDate {
		t.Fatalf("name step replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "22.02.2002")
	if len(replies) != 2 || replies[0] != replyAdded || replies[1] != helpText {
		t.Fatalf("date step replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "/list")
	if len(replies) != 1 || !strings.Contains(replies[0], "22 February, 2002") || !strings.Contains(replies[0], "Alice") {
		t.Fatalf("/list replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "/delete_birthday")
	if len(replies) != 2 || replies[1] != replyAskDelete {
		t.Fatalf("delete entry replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "Alice")
	if len(replies) != 2 || replies[0] != replyDeleted {
		t.Fatalf("delete step replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "/list")
	if len(replies) != 1 || replies[0] != birthday.EmptyListMessage {
		t.Fatalf("/list after delete = %v", replies)
	}
}

func TestAddNameRepromptsOnBadInput(t *testing.T) {
	e, st := newTestEngine(t)
	if _, err := st.Create(context.Background(), store.Record{OwnerID: "u1", Name: "Taken", Day: 1, Month: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	mustHandle(t, e, "u1", "/add_birthday")

	replies := mustHandle(t, e, "u1", strings.Repeat("x", 256))
	if len(replies) != 1 || replies[0] != replyNameTooLong {
		t.Fatalf("too-long replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "Taken")
	if len(replies) != 1 || replies[0] != replyNameTaken {
		t.Fatalf("taken replies = %v", replies)
	}

	// Still in the same state; a valid name advances.
	replies = mustHandle(t, e, "u1", "Fresh")
	if len(replies) != 1 || replies[0] != replyAskDate {
		t.Fatalf("valid name replies = %v", replies)
	}
}

func TestAddDateRepromptsOnInvalidInput(t *testing.T) {
	e, _ := newTestEngine(t)
	mustHandle(t, e, "u1", "/add_birthday")
	mustHandle(t, e, "u1", "Alice")

	replies := mustHandle(t, e, "u1", "not a date")
	if len(replies) != 1 || replies[0] != replyInvalidDate {
		t.Fatalf("invalid date replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "01.01")
	if len(replies) != 2 || replies[0] != replyAdded {
		t.Fatalf("valid date replies = %v", replies)
	}
}

func TestAddDateFeb29Advisory(t *testing.T) {
	e, st := newTestEngine(t)
	mustHandle(t, e, "u1", "/add_birthday")
	mustHandle(t, e, "u1", "Leapling")

	replies := mustHandle(t, e, "u1", "29.02")
	if len(replies) != 3 || replies[0] != replyFeb29Advisory || replies[1] != replyAdded {
		t.Fatalf("feb29 replies = %v", replies)
	}

	got, err := st.FindByOwnerAndName(context.Background(), "u1", "Leapling")
	if err != nil {
		t.Fatalf("FindByOwnerAndName() error = %v", err)
	}
	if got.Day != 29 || got.Month != 2 {
		t.Fatalf("stored record = %+v, want 29.02", got)
	}
}

func TestDeleteRepromptsOnMissingName(t *testing.T) {
	e, st := newTestEngine(t)
	if _, err := st.Create(context.Background(), store.Record{OwnerID: "u1", Name: "Alice", Day: 1, Month: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	mustHandle(t, e, "u1", "/delete_birthday")

	replies := mustHandle(t, e, "u1", "Ghost")
	if len(replies) != 1 || replies[0] != replyDeleteMissing {
		t.Fatalf("missing name replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "Alice")
	if len(replies) != 2 || replies[0] != replyDeleted {
		t.Fatalf("delete replies = %v", replies)
	}
}

func TestNoteFlow(t *testing.T) {
	e, st := newTestEngine(t)
	if _, err := st.Create(context.Background(), store.Record{OwnerID: "u1", Name: "Alice", Day: 1, Month: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	replies := mustHandle(t, e, "u1", "/add_note")
	if len(replies) != 2 || replies[0] != replyAskNoteName {
		t.Fatalf("note entry replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "Alice")
	if len(replies) != 1 || replies[0] != replyAskNote {
		t.Fatalf("note name replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "likes cats")
	if len(replies) != 2 || replies[0] != replyAdded {
		t.Fatalf("note text replies = %v", replies)
	}

	got, err := st.FindByOwnerAndName(context.Background(), "u1", "Alice")
	if err != nil {
		t.Fatalf("FindByOwnerAndName() error = %v", err)
	}
	if got.Note != "likes cats" {
		t.Fatalf("Note = %q, want %q", got.Note, "likes cats")
	}
}

func TestNoteFlowUnknownNameTerminates(t *testing.T) {
	e, _ := newTestEngine(t)
	mustHandle(t, e, "u1", "/add_note")
	mustHandle(t, e, "u1", "Ghost")

	replies := mustHandle(t, e, "u1", "some note")
	if len(replies) != 1 || replies[0] != replyNoteMissing {
		t.Fatalf("unknown note target replies = %v", replies)
	}

	// Flow terminated; plain text gets no reply.
	if replies := mustHandle(t, e, "u1", "hello?"); replies != nil {
		t.Fatalf("post-flow replies = %v, want none", replies)
	}
}

func TestNoteScopedByOwner(t *testing.T) {
	e, st := newTestEngine(t)
	for _, owner := range []string{"u1", "u2"} {
		if _, err := st.Create(context.Background(), store.Record{OwnerID: owner, Name: "Alice", Day: 1, Month: 1}); err != nil {
			t.Fatalf("Create(%s) error = %v", owner, err)
		}
	}

	mustHandle(t, e, "u2", "/add_note")
	mustHandle(t, e, "u2", "Alice")
	mustHandle(t, e, "u2", "u2's note")

	mine, err := st.FindByOwnerAndName(context.Background(), "u1", "Alice")
	if err != nil {
		t.Fatalf("FindByOwnerAndName() error = %v", err)
	}
	if mine.Note != "" {
		t.Fatalf("u1's record note = %q, want untouched", mine.Note)
	}
	theirs, err := st.FindByOwnerAndName(context.Background(), "u2", "Alice")
	if err != nil {
		t.Fatalf("FindByOwnerAndName() error = %v", err)
	}
	if theirs.Note != "u2's note" {
		t.Fatalf("u2's record note = %q", theirs.Note)
	}
}

func TestCommandCancelsActiveFlow(t *testing.T) {
	e, _ := newTestEngine(t)
	mustHandle(t, e, "u1", "/add_birthday")

	// A recognized command mid-flow cancels the flow and is dispatched.
	replies := mustHandle(t, e, "u1", "/list")
	if len(replies) != 1 || replies[0] != birthday.EmptyListMessage {
		t.Fatalf("/list mid-flow replies = %v", replies)
	}

	// The abandoned name input no longer advances anything.
	if replies := mustHandle(t, e, "u1", "Alice"); replies != nil {
		t.Fatalf("replies after cancel = %v, want none", replies)
	}
}

func TestNewEntryPointWins(t *testing.T) {
	e, _ := newTestEngine(t)
	mustHandle(t, e, "u1", "/add_birthday")

	replies := mustHandle(t, e, "u1", "/delete_birthday")
	if len(replies) != 2 || replies[1] != replyAskDelete {
		t.Fatalf("restart replies = %v", replies)
	}

	// The pending input is handled by the delete flow, not the add flow.
	replies = mustHandle(t, e, "u1", "Nobody")
	if len(replies) != 1 || replies[0] != replyDeleteMissing {
		t.Fatalf("delete step replies = %v", replies)
	}
}

func TestStopIsSilent(t *testing.T) {
	e, _ := newTestEngine(t)
	mustHandle(t, e, "u1", "/add_birthday")

	if replies := mustHandle(t, e, "u1", "/stop"); replies != nil {
		t.Fatalf("/stop replies = %v, want none", replies)
	}
	if replies := mustHandle(t, e, "u1", "Alice"); replies != nil {
		t.Fatalf("replies after /stop = %v, want none", replies)
	}
}

func TestUnknownCommandAndStrayTextIgnored(t *testing.T) {
	e, _ := newTestEngine(t)
	if replies := mustHandle(t, e, "u1", "/frobnicate"); replies != nil {
		t.Fatalf("unknown command replies = %v, want none", replies)
	}
	if replies := mustHandle(t, e, "u1", "just chatting"); replies != nil {
		t.Fatalf("stray text replies = %v, want none", replies)
	}
}

func TestStartAndHelp(t *testing.T) {
	e, _ := newTestEngine(t)

	replies := mustHandle(t, e, "u1", "/start")
	if len(replies) != 2 || replies[0] != "Hi" || replies[1] != helpText {
		t.Fatalf("/start replies = %v", replies)
	}

	replies = mustHandle(t, e, "u1", "/help")
	if len(replies) != 1 || replies[0] != helpText {
		t.Fatalf("/help replies = %v", replies)
	}
}

func TestSnapshotDescribesSession(t *testing.T) {
	e, _ := newTestEngine(t)
	if got := e.Snapshot("u1"); got != "no active session" {
		t.Fatalf("Snapshot() = %q", got)
	}

	mustHandle(t, e, "u1", "/add_birthday")
	mustHandle(t, e, "u1", "Alice")
	got := e.Snapshot("u1")
	if !strings.Contains(got, string(StateAddDate)) || !strings.Contains(got, "Alice") {
		t.Fatalf("Snapshot() = %q", got)
	}

	e.Reset("u1")
	if got := e.Snapshot("u1"); got != "no active session" {
		t.Fatalf("Snapshot() after Reset = %q", got)
	}
}
