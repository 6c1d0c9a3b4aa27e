package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeTokenSource records sign-ins and mints a distinct token per call.
type fakeTokenSource struct {
	signIns []string
	fail    bool
}

func (f *fakeTokenSource) SignIn(_ context.Context, identity Identity) (string, error) {
	if f.fail {
		return "", errors.New("identity service unavailable")
	}
	f.signIns = append(f.signIns, identity.Email)
	return fmt.Sprintf("token-%d", len(f.signIns)), nil
}

func newTestSession(t *testing.T, accounts int) (*Session, *fakeTokenSource) {
	t.Helper()

	var lines []string
	for i := 0; i < accounts; i++ {
		lines = append(lines, fmt.Sprintf("acct%d@example.com:secret%d", i, i))
	}
	pool, err := ParseCredentialPool(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	src := &fakeTokenSource{}
	return NewSession(pool, src), src
}

// synthesisCall mimics the call sequence the synthesis client performs per
// request: rotate if due, fetch a token, then count the request.
func synthesisCall(t *testing.T, s *Session) {
	t.Helper()
	s.RotateIfNeeded()
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	s.BeginRequest()
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	s, src := newTestSession(t, 1)

	// Two calls on the same identity must share one sign-in.
	synthesisCall(t, s)
	synthesisCall(t, s)

	if len(src.signIns) != 1 {
		t.Errorf("expected 1 sign-in, got %d", len(src.signIns))
	}
}

func TestRotationEveryTwoRequests(t *testing.T) {
	s, src := newTestSession(t, 3)

	// Requests 1..7 must originate from identities 0,0,1,1,2,2,0.
	wantCursors := []int{0, 0, 1, 1, 2, 2, 0}
	for i, want := range wantCursors {
		s.RotateIfNeeded()
		if got := s.Cursor(); got != want {
			t.Fatalf("request %d: expected cursor %d, got %d", i+1, want, got)
		}
		if _, err := s.Token(context.Background()); err != nil {
			t.Fatalf("token: %v", err)
		}
		s.BeginRequest()
	}

	if s.Cursor() != 0 {
		t.Errorf("after 7 requests expected cursor 0, got %d", s.Cursor())
	}

	// One sign-in per rotation boundary: identities 0, 1, 2, 0.
	want := []string{"acct0@example.com", "acct1@example.com", "acct2@example.com", "acct0@example.com"}
	if len(src.signIns) != len(want) {
		t.Fatalf("expected %d sign-ins, got %d (%v)", len(want), len(src.signIns), src.signIns)
	}
	for i := range want {
		if src.signIns[i] != want[i] {
			t.Errorf("sign-in %d: expected %s, got %s", i, want[i], src.signIns[i])
		}
	}
}

func TestRotationCountsFailedRequests(t *testing.T) {
	s, _ := newTestSession(t, 2)

	// The counter increments before the request outcome is known, so two
	// "failed" requests still trigger rotation on the third.
	s.BeginRequest()
	s.BeginRequest()

	if !s.RotateIfNeeded() {
		t.Fatal("expected rotation after threshold requests")
	}
	if s.Cursor() != 1 {
		t.Errorf("expected cursor 1, got %d", s.Cursor())
	}
}

func TestRotationInvalidatesToken(t *testing.T) {
	s, src := newTestSession(t, 2)

	synthesisCall(t, s)
	synthesisCall(t, s)

	// Third call rotates and must sign in again for the new identity.
	synthesisCall(t, s)

	if len(src.signIns) != 2 {
		t.Fatalf("expected 2 sign-ins, got %d", len(src.signIns))
	}
	if src.signIns[1] != "acct1@example.com" {
		t.Errorf("expected second sign-in for acct1, got %s", src.signIns[1])
	}
}

func TestInvalidateForcesNewSignIn(t *testing.T) {
	s, src := newTestSession(t, 1)

	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	s.Invalidate()
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}

	if len(src.signIns) != 2 {
		t.Errorf("expected 2 sign-ins after invalidation, got %d", len(src.signIns))
	}
}

func TestTokenErrorPropagates(t *testing.T) {
	s, src := newTestSession(t, 1)
	src.fail = true

	if _, err := s.Token(context.Background()); err == nil {
		t.Fatal("expected error when sign-in fails")
	}
}
