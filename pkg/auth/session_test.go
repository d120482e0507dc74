package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func awaitState(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth snapshot")
		return State{}
	}
}

func TestObserveIsUnknownBeforeResolve(t *testing.T) {
	s := NewSession(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Observe(ctx)

	select {
	case st := <-ch:
		t.Fatalf("Expected no snapshot before Resolve, got %+v", st)
	case <-time.After(50 * time.Millisecond):
	}

	s.Resolve(ctx)
	st := awaitState(t, ch)
	if st.Principal != nil {
		t.Errorf("Expected signed-out snapshot with no cached token, got %+v", st.Principal)
	}
}

func TestResolveUsesCachedTokenAndProfile(t *testing.T) {
	dir := t.TempDir()

	if err := saveJSON(filepath.Join(dir, TokenFile), map[string]string{"access_token": "cached"}); err != nil {
		t.Fatalf("writing token cache failed: %v", err)
	}
	if err := saveJSON(filepath.Join(dir, ProfileFile), &Principal{ID: "u-123", DisplayName: "Ada"}); err != nil {
		t.Fatalf("writing profile cache failed: %v", err)
	}

	s := NewSession(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Observe(ctx)

	s.Resolve(ctx)
	st := awaitState(t, ch)
	if st.Principal == nil {
		t.Fatal("Expected a signed-in snapshot from cached credentials")
	}
	if st.Principal.ID != "u-123" || st.Principal.DisplayName != "Ada" {
		t.Errorf("Unexpected principal: %+v", st.Principal)
	}
}

func TestSignOutClearsLocalSession(t *testing.T) {
	dir := t.TempDir()

	if err := saveJSON(filepath.Join(dir, TokenFile), map[string]string{"access_token": "cached"}); err != nil {
		t.Fatalf("writing token cache failed: %v", err)
	}
	if err := saveJSON(filepath.Join(dir, ProfileFile), &Principal{ID: "u-123", DisplayName: "Ada"}); err != nil {
		t.Fatalf("writing profile cache failed: %v", err)
	}

	revoked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer revoked.Close()

	s := NewSession(dir)
	s.revokeURL = revoked.URL
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Resolve(ctx)

	ch := s.Observe(ctx)
	awaitState(t, ch) // signed-in snapshot

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	st := awaitState(t, ch)
	if st.Principal != nil {
		t.Errorf("Expected signed-out snapshot after SignOut, got %+v", st.Principal)
	}
	if _, err := os.Stat(filepath.Join(dir, TokenFile)); !os.IsNotExist(err) {
		t.Error("Expected token cache to be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, ProfileFile)); !os.IsNotExist(err) {
		t.Error("Expected profile cache to be removed")
	}
}

func TestObserveUnsubscribesOnCancel(t *testing.T) {
	s := NewSession(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Observe(ctx)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("observer channel did not close after cancellation")
		}
	}
}

func TestStaticSession(t *testing.T) {
	s := NewStatic(&Principal{ID: "demo", DisplayName: "Demo User"})

	st := awaitState(t, s.Observe(context.Background()))
	if st.Principal == nil || st.Principal.ID != "demo" {
		t.Errorf("Expected demo principal, got %+v", st.Principal)
	}
}
