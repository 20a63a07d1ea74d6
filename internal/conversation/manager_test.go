package conversation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerBeginGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	m.Begin("u1", StateAddName)

	got, err := m.Get("u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != StateAddName || got.DraftName != "" {
		t.Fatalf("unexpected session state: %+v", got)
	}

	if !m.End("u1") {
		t.Fatalf("End() = false, want true")
	}
	if _, err := m.Get("u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Get() after End error = %v, want ErrNoSession", err)
	}
	if m.End("u1") {
		t.Fatalf("End() on missing session = true, want false")
	}
}

func TestManagerBeginOverwritesActiveFlow(t *testing.T) {
	m := NewManager(time.Minute)
	m.Begin("u1", StateAddName)
	if err := m.SetDraft("u1", "Alice"); err != nil {
		t.Fatalf("SetDraft() error = %v", err)
	}

	m.Begin("u1", StateDelName)
	got, err := m.Get("u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != StateDelName || got.DraftName != "" {
		t.Fatalf("Begin() did not overwrite: %+v", got)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", m.ActiveCount())
	}
}

func TestManagerTransitionAndDraft(t *testing.T) {
	m := NewManager(time.Minute)
	m.Begin("u1", StateAddName)

	if err := m.SetDraft("u1", "Alice"); err != nil {
		t.Fatalf("SetDraft() error = %v", err)
	}
	if err := m.Transition("u1", StateAddDate); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	got, err := m.Get("u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != StateAddDate || got.DraftName != "Alice" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := m.Transition("u2", StateAddDate); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Transition() for unknown user error = %v, want ErrNoSession", err)
	}
}

func TestManagerJanitorExpiresAbandonedFlows(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	m.Begin("u1", StateAddName)

	expired := make(chan *Session, 1)
	m.SetExpireHook(func(s *Session) { expired <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case s := <-expired:
		if s.UserID != "u1" {
			t.Fatalf("expired UserID = %q, want u1", s.UserID)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor did not expire the session")
	}

	if _, err := m.Get("u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Get() after expiry error = %v, want ErrNoSession", err)
	}
}
