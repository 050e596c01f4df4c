package history

import (
	"path/filepath"
	"testing"
	"time"
)

func seed(s *Store, sessionID string, contents ...string) {
	for i, c := range contents {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		s.Save(Message{SessionID: sessionID, Role: role, Content: c, CreatedAt: time.Now()})
	}
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "history.db"))
	defer s.Close()
	if s.db == nil {
		t.Fatal("expected a sqlite-backed store")
	}

	seed(s, "s1", "hello", "hi there")
	seed(s, "s2", "unrelated")

	msgs := s.List("s1")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hello" || msgs[1].Content != "hi there" {
		t.Errorf("messages out of order: %q, %q", msgs[0].Content, msgs[1].Content)
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("unexpected roles: %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[0].ID >= msgs[1].ID {
		t.Errorf("ids not ascending: %d, %d", msgs[0].ID, msgs[1].ID)
	}
}

func TestStore_FallbackOnBadPath(t *testing.T) {
	// The parent directory does not exist, so table creation fails and
	// the store degrades to memory.
	s := Open(filepath.Join(t.TempDir(), "missing", "history.db"))
	defer s.Close()
	if s.db != nil {
		t.Fatal("expected a memory-only store")
	}

	seed(s, "s1", "hello")
	msgs := s.List("s1")
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestStore_InMemory(t *testing.T) {
	s := InMemory()
	defer s.Close()

	seed(s, "a", "one", "two")
	seed(s, "b", "three")

	msgs := s.List("a")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "one" || msgs[1].Content != "two" {
		t.Errorf("messages out of order: %q, %q", msgs[0].Content, msgs[1].Content)
	}
	if got := s.List("missing"); len(got) != 0 {
		t.Errorf("expected no messages for unknown session, got %d", len(got))
	}
}
