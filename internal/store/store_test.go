package store

import (
	"testing"

	"github.com/sjlee-edu/mathtutor/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	count, err := s.SessionCount()
	if err != nil {
		t.Fatalf("SessionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 sessions, got %d", count)
	}

	token, err := s.CreateSession("20231234")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	sess, err := s.GetSession(token)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.StudentID != "20231234" {
		t.Errorf("expected student id '20231234', got %q", sess.StudentID)
	}
	if sess.Page != model.PageNone {
		t.Errorf("new session should start on the menu, got %q", sess.Page)
	}
	if sess.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	// Unknown token is nil, not an error.
	sess, err = s.GetSession("no-such-token")
	if err != nil {
		t.Fatalf("GetSession unknown: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session for unknown token")
	}

	// Logout deletes the row.
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	sess, err = s.GetSession(token)
	if err != nil {
		t.Fatalf("GetSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected session gone after delete")
	}
}

func TestSetPage(t *testing.T) {
	s := newTestStore(t)

	token, err := s.CreateSession("s1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	transitions := []model.Page{model.PageSurvey, model.PageNone, model.PageSolve, model.PageNone}
	for _, p := range transitions {
		if err := s.SetPage(token, p); err != nil {
			t.Fatalf("SetPage(%q): %v", p, err)
		}
		sess, err := s.GetSession(token)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if sess.Page != p {
			t.Errorf("expected page %q, got %q", p, sess.Page)
		}
	}

	if err := s.SetPage(token, model.Page("admin")); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestConcurrentSessionsIndependent(t *testing.T) {
	s := newTestStore(t)

	t1, err := s.CreateSession("a")
	if err != nil {
		t.Fatalf("CreateSession a: %v", err)
	}
	t2, err := s.CreateSession("b")
	if err != nil {
		t.Fatalf("CreateSession b: %v", err)
	}
	if t1 == t2 {
		t.Fatal("tokens must be unique")
	}

	if err := s.SetPage(t1, model.PageSolve); err != nil {
		t.Fatalf("SetPage: %v", err)
	}

	sess2, err := s.GetSession(t2)
	if err != nil {
		t.Fatalf("GetSession b: %v", err)
	}
	if sess2.Page != model.PageNone {
		t.Errorf("session b page should be untouched, got %q", sess2.Page)
	}

	if err := s.DeleteSession(t1); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	sess2, err = s.GetSession(t2)
	if err != nil || sess2 == nil {
		t.Fatalf("session b should survive session a logout: %v %v", sess2, err)
	}
}
