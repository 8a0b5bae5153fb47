package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "chat", "sessions.db"))
	if err != nil {
		t.Fatalf("creating store failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "budget questions")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("session has no ID")
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Title != "budget questions" {
		t.Errorf("title = %q", got.Title)
	}

	if err := s.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.GetSession(ctx, session.ID); err == nil {
		t.Error("expected error for deleted session")
	}
	if err := s.DeleteSession(ctx, session.ID); err == nil {
		t.Error("expected error deleting a missing session")
	}
}

func TestMessagesOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, turn := range []struct{ role, content string }{
		{RoleUser, "what grew last quarter?"},
		{RoleAssistant, "revenue grew ten percent"},
		{RoleUser, "and expenses?"},
	} {
		if _, err := s.AppendMessage(ctx, session.ID, turn.role, turn.content); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	msgs, err := s.Messages(ctx, session.ID)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Errorf("messages out of order: %v %v", msgs[0].Role, msgs[1].Role)
	}
	if msgs[2].Content != "and expenses?" {
		t.Errorf("last message = %q", msgs[2].Content)
	}
}

func TestAppendToMissingSession(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AppendMessage(context.Background(), "nope", RoleUser, "hi"); err == nil {
		t.Error("expected error appending to a missing session")
	}
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.CreateSession(ctx, "second")
	if err != nil {
		t.Fatal(err)
	}
	// Touch the first session so it becomes the most recent.
	time.Sleep(5 * time.Millisecond)
	if _, err := s.AppendMessage(ctx, first.ID, RoleUser, "bump"); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != first.ID || sessions[1].ID != second.ID {
		t.Errorf("unexpected order: %s, %s", sessions[0].Title, sessions[1].Title)
	}
}

func TestCleanup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old, err := s.CreateSession(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := s.CreateSession(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendMessage(ctx, old.ID, RoleUser, "stale message"); err != nil {
		t.Fatal(err)
	}

	// Age the old session past the retention window.
	stale := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, stale, old.ID); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 session removed, got %d", removed)
	}
	if _, err := s.GetSession(ctx, old.ID); err == nil {
		t.Error("stale session survived cleanup")
	}
	if _, err := s.GetSession(ctx, fresh.ID); err != nil {
		t.Errorf("fresh session removed by cleanup: %v", err)
	}
	if msgs, _ := s.Messages(ctx, old.ID); len(msgs) != 0 {
		t.Errorf("messages of removed session survived: %d", len(msgs))
	}
}
